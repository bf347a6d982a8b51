package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"sejmcollect/internal/adapters/ingest/sejm"
	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/services/collect/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	procs   []sejm.Proceeding
	days    map[string][]sejm.TranscriptEntry // key "num/date"
	texts   map[string]string                 // key "num/date/statement"
	members []sejm.Member
	errs    map[string]error // same keys as above, plus "proceedings" and "members"

	calls []string
}

func (f *fakeAPI) Proceedings(_ context.Context, term int) ([]sejm.Proceeding, error) {
	f.calls = append(f.calls, "proceedings")
	return f.procs, f.errs["proceedings"]
}

func (f *fakeAPI) Transcripts(_ context.Context, term, num int, date string) ([]sejm.TranscriptEntry, error) {
	k := fmt.Sprintf("%d/%s", num, date)
	f.calls = append(f.calls, "transcripts "+k)
	if err := f.errs[k]; err != nil {
		return nil, err
	}
	// hand out a copy so in-place filtering never leaks back
	return append([]sejm.TranscriptEntry(nil), f.days[k]...), nil
}

func (f *fakeAPI) Transcript(_ context.Context, term, num int, date string, statement int) (string, error) {
	k := fmt.Sprintf("%d/%s/%d", num, date, statement)
	f.calls = append(f.calls, "transcript "+k)
	if err := f.errs[k]; err != nil {
		return "", err
	}
	return f.texts[k], nil
}

func (f *fakeAPI) Members(_ context.Context, term int) ([]sejm.Member, error) {
	f.calls = append(f.calls, "members")
	return f.members, f.errs["members"]
}

func drain(t *testing.T, r domain.StatementReader) ([]domain.Statement, error) {
	t.Helper()
	var out []domain.Statement
	for {
		st, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, st)
	}
}

func TestListProceedings_SortedAndFiltered(t *testing.T) {
	api := &fakeAPI{procs: []sejm.Proceeding{
		{Number: 3, Title: " 3.  Posiedzenie ", Dates: []string{"2023-12-13", "2023-12-12"}},
		{Number: 0, Title: "zero"},
		{Number: 1, Dates: []string{"2023-11-13"}},
		{Number: -2},
	}}
	c := NewCollector(api, Options{})
	r, err := c.ListProceedings(context.Background(), 10)
	require.NoError(t, err)

	p1, err := r.Next()
	require.NoError(t, err)
	p3, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, r.Close())

	assert.Equal(t, 1, p1.ID)
	assert.Equal(t, 10, p1.Term)
	assert.Equal(t, 3, p3.ID)
	assert.Equal(t, "3. Posiedzenie", p3.Title)
	assert.Equal(t, "2023-12-12", p3.Date)
	assert.Equal(t, []string{"2023-12-12", "2023-12-13"}, p3.Dates)
}

func TestListProceedings_InvalidDateIsPermanent(t *testing.T) {
	api := &fakeAPI{procs: []sejm.Proceeding{{Number: 1, Dates: []string{"13.11.2023"}}}}
	_, err := NewCollector(api, Options{}).ListProceedings(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, perr.IsPermanent(err))
}

func TestListProceedings_PropagatesClass(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"proceedings": perr.Unavailablef("503")}}
	_, err := NewCollector(api, Options{}).ListProceedings(context.Background(), 10)
	assert.True(t, perr.IsTransient(err))
}

func TestListStatements_OrderSkipAndLaziness(t *testing.T) {
	api := &fakeAPI{
		days: map[string][]sejm.TranscriptEntry{
			"2/2023-11-21": {
				{Num: 2, Name: "Poseł B", MemberID: 7, StartDateTime: "2023-11-21T10:05:00"},
				{Num: 0, Name: "Marszałek"},
				{Num: 1, Name: "Poseł A", MemberID: 5},
			},
			"2/2023-11-22": {
				{Num: 0, Name: "Poseł C", MemberID: 9},
				{Num: 1, Name: "Minister D", Function: "Minister Finansów"},
			},
		},
		texts: map[string]string{"2/2023-11-21/1": "Wysoka Izbo!"},
	}
	c := NewCollector(api, Options{FetchContent: true})
	p := domain.Proceeding{ID: 2, Term: 10, Date: "2023-11-21", Dates: []string{"2023-11-22", "2023-11-21"}}

	r, err := c.ListStatements(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, api.calls, "nothing fetched before the first Next")

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"transcripts 2/2023-11-21", "transcript 2/2023-11-21/1"}, api.calls)
	assert.Equal(t, "Wysoka Izbo!", first.Text)

	rest, err := drain(t, r)
	require.NoError(t, err)
	all := append([]domain.Statement{first}, rest...)
	require.Len(t, all, 4)

	var got []string
	for _, s := range all {
		got = append(got, fmt.Sprintf("%s#%d %s", s.Date, s.SequenceNumber, s.Speaker))
	}
	assert.Equal(t, []string{
		"2023-11-21#1 Poseł A",
		"2023-11-21#2 Poseł B",
		"2023-11-22#3 Poseł C",
		"2023-11-22#4 Minister D",
	}, got)

	require.NotNil(t, all[1].MemberID)
	assert.Equal(t, 7, *all[1].MemberID)
	require.NotNil(t, all[1].Timestamp)
	assert.Nil(t, all[3].MemberID)
	assert.Equal(t, "Minister Finansów", all[3].Function)
}

func TestListStatements_ReissuesCalls(t *testing.T) {
	api := &fakeAPI{days: map[string][]sejm.TranscriptEntry{"1/2023-11-13": {{Num: 1, Name: "A"}}}}
	c := NewCollector(api, Options{})
	p := domain.Proceeding{ID: 1, Term: 10, Dates: []string{"2023-11-13"}}

	for i := 0; i < 2; i++ {
		r, err := c.ListStatements(context.Background(), p)
		require.NoError(t, err)
		sts, err := drain(t, r)
		require.NoError(t, err)
		require.Len(t, sts, 1)
	}
	assert.Equal(t, []string{"transcripts 1/2023-11-13", "transcripts 1/2023-11-13"}, api.calls)
}

func TestListStatements_NoContentWhenDisabled(t *testing.T) {
	api := &fakeAPI{days: map[string][]sejm.TranscriptEntry{"1/2023-11-13": {{Num: 1, Name: "A"}}}}
	r, _ := NewCollector(api, Options{}).ListStatements(context.Background(), domain.Proceeding{ID: 1, Term: 10, Dates: []string{"2023-11-13"}})
	sts, err := drain(t, r)
	require.NoError(t, err)
	assert.Empty(t, sts[0].Text)
	assert.Equal(t, []string{"transcripts 1/2023-11-13"}, api.calls)
}

func TestListStatements_ErrorsKeepClass(t *testing.T) {
	p := domain.Proceeding{ID: 4, Term: 10, Dates: []string{"2024-01-10"}}

	api := &fakeAPI{errs: map[string]error{"4/2024-01-10": perr.NotFoundf("404")}}
	r, _ := NewCollector(api, Options{}).ListStatements(context.Background(), p)
	_, err := r.Next()
	assert.True(t, perr.IsPermanent(err))
	assert.Contains(t, err.Error(), "proceeding 4")

	api = &fakeAPI{
		days: map[string][]sejm.TranscriptEntry{"4/2024-01-10": {{Num: 1, Name: "A"}}},
		errs: map[string]error{"4/2024-01-10/1": perr.Unavailablef("timeout")},
	}
	r, _ = NewCollector(api, Options{FetchContent: true}).ListStatements(context.Background(), p)
	_, err = r.Next()
	assert.True(t, perr.IsTransient(err))
}

func TestListStatements_DropsBadEntriesAndCountsThem(t *testing.T) {
	api := &fakeAPI{
		days: map[string][]sejm.TranscriptEntry{"1/2023-11-13": {
			{Num: 1, Name: "A"},
			{Num: 2, Name: "  "},
			{Num: 3, Name: "C"},
			{Num: 4, Name: "D"},
		}},
		errs: map[string]error{"1/2023-11-13/3": perr.NotFoundf("404")},
	}
	r, _ := NewCollector(api, Options{FetchContent: true}).ListStatements(context.Background(), domain.Proceeding{ID: 1, Term: 10, Dates: []string{"2023-11-13"}})
	sts, err := drain(t, r)
	require.NoError(t, err)
	require.Len(t, sts, 2)
	assert.Equal(t, 1, sts[0].SequenceNumber)
	assert.Equal(t, 4, sts[1].SequenceNumber)

	dc, ok := r.(domain.DropCounter)
	require.True(t, ok)
	assert.Equal(t, 2, dc.Dropped())
}

func TestListStatements_PendingTranscript(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	api := &pendingAPI{fakeAPI: fakeAPI{days: map[string][]sejm.TranscriptEntry{"5/2024-05-20": {{Num: 1, Name: "A"}}}}}
	c := NewCollector(api, Options{Now: now})

	recent := domain.Proceeding{ID: 5, Term: 10, Dates: []string{"2024-05-20", "2024-05-27"}}
	r, _ := c.ListStatements(context.Background(), recent)
	st, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), st.CollectedAt)
	_, err = r.Next()
	assert.ErrorIs(t, err, domain.ErrNotPublished)

	old := domain.Proceeding{ID: 5, Term: 10, Dates: []string{"2024-04-02", "2024-05-20"}}
	r, _ = c.ListStatements(context.Background(), old)
	sts, err := drain(t, r)
	require.NoError(t, err)
	assert.Len(t, sts, 1)
}

// pendingAPI reports days it has no listing for as unpublished
type pendingAPI struct{ fakeAPI }

func (p *pendingAPI) Transcripts(ctx context.Context, term, num int, date string) ([]sejm.TranscriptEntry, error) {
	if _, ok := p.days[fmt.Sprintf("%d/%s", num, date)]; !ok {
		return nil, sejm.ErrNoTranscript
	}
	return p.fakeAPI.Transcripts(ctx, term, num, date)
}

func TestListStatements_CloseAndCancel(t *testing.T) {
	api := &fakeAPI{days: map[string][]sejm.TranscriptEntry{"1/2023-11-13": {{Num: 1, Name: "A"}}}}
	c := NewCollector(api, Options{})
	p := domain.Proceeding{ID: 1, Term: 10, Dates: []string{"2023-11-13"}}

	r, _ := c.ListStatements(context.Background(), p)
	require.NoError(t, r.Close())
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ = c.ListStatements(ctx, p)
	_, err = r.Next()
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestListMembers(t *testing.T) {
	api := &fakeAPI{members: []sejm.Member{
		{ID: 2, FirstName: "Anna", SecondName: "Maria", LastName: "Nowak", Club: "KO", Active: true},
		{ID: 1, FirstName: "Jan", LastName: "Kowalski", Club: "PiS"},
	}}
	ms, err := NewCollector(api, Options{}).ListMembers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].ID)
	assert.Equal(t, "Anna Maria", ms[1].FirstName)
	assert.Equal(t, 10, ms[1].Term)

	api.members = append(api.members, sejm.Member{ID: 0, LastName: "X"})
	_, err = NewCollector(api, Options{}).ListMembers(context.Background(), 10)
	assert.True(t, perr.IsPermanent(err))
}
