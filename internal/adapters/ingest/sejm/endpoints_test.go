package sejm

import (
	"context"
	"net/http"
	"testing"
	"time"

	perr "sejmcollect/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sejm/term10/proceedings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"number":2,"title":"2. Posiedzenie","dates":["2023-11-21","2023-11-22"],"current":false},
			{"number":1,"title":"1. Posiedzenie","dates":["2023-11-13"]}
		]`))
	})
	mux.HandleFunc("/sejm/term10/proceedings/1/2023-11-13/transcripts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"proceedingNum":1,"date":"2023-11-13","statements":[
			{"num":0,"name":"Marszałek","function":"Marszałek Sejmu"},
			{"num":1,"name":"Szymon Hołownia","function":"Marszałek","memberID":125,"startDateTime":"2023-11-13T12:00:00","endDateTime":"2023-11-13T12:05:30","unspoken":false}
		]}`))
	})
	mux.HandleFunc("/sejm/term10/proceedings/1/2023-11-14/transcripts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/sejm/term10/proceedings/1/2023-11-16/transcripts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"proceedingNum":1,"date":"2023-11-16","statements":[]}`))
	})
	mux.HandleFunc("/sejm/term10/proceedings/1/2023-11-15/transcripts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statements":{"num":1}}`))
	})
	mux.HandleFunc("/sejm/term10/proceedings/1/2023-11-13/transcripts/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p class="mowca">Marszałek:</p><p>Wysoka Izbo!</p><p> Otwieram   posiedzenie. </p></body></html>`))
	})
	mux.HandleFunc("/sejm/term10/MP", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"firstName":"Andrzej","lastName":"Adamczyk","club":"PiS","districtName":"Kraków","districtNum":13,"voivodeship":"małopolskie","active":true}]`))
	})
	return mux
}

func TestProceedings(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	ps, err := c.Proceedings(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, 2, ps[0].Number)
	assert.Equal(t, []string{"2023-11-21", "2023-11-22"}, ps[0].Dates)
	assert.Equal(t, "1. Posiedzenie", ps[1].Title)
}

func TestTranscripts_Envelope(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	es, err := c.Transcripts(context.Background(), 10, 1, "2023-11-13")
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.True(t, es[0].Procedural())
	assert.False(t, es[1].Procedural())
	assert.Equal(t, 125, es[1].MemberID)
	assert.Equal(t, "2023-11-13T12:00:00", es[1].StartDateTime)
}

func TestTranscripts_UnpublishedDay(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	_, err := c.Transcripts(context.Background(), 10, 1, "2023-11-14")
	require.ErrorIs(t, err, ErrNoTranscript)

	es, err := c.Transcripts(context.Background(), 10, 1, "2023-11-16")
	require.NoError(t, err)
	assert.Empty(t, es)
}

func TestTranscripts_WrongShape(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	_, err := c.Transcripts(context.Background(), 10, 1, "2023-11-15")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeJSON))
}

func TestTranscript_Text(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	s, err := c.Transcript(context.Background(), 10, 1, "2023-11-13", 1)
	require.NoError(t, err)
	assert.Equal(t, "Wysoka Izbo!\nOtwieram posiedzenie.", s)
}

func TestMembers(t *testing.T) {
	c, _ := newTestClient(t, fixtureMux(), Options{})
	ms, err := c.Members(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "Adamczyk", ms[0].LastName)
	assert.Equal(t, 13, ms[0].DistrictNum)
	assert.True(t, ms[0].Active)
}

func TestParseTime(t *testing.T) {
	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("yesterday"))

	local := ParseTime("2023-11-13T12:00:00")
	require.NotNil(t, local)
	assert.Equal(t, "2023-11-13T11:00:00Z", local.UTC().Format(time.RFC3339))

	zoned := ParseTime("2023-11-13T12:00:00+02:00")
	require.NotNil(t, zoned)
	assert.Equal(t, "2023-11-13T10:00:00Z", zoned.UTC().Format(time.RFC3339))

	d, ok := ParseDay("2023-11-13")
	require.True(t, ok)
	assert.Equal(t, 13, d.Day())
	_, ok = ParseDay("13.11.2023")
	assert.False(t, ok)
}
