package repo

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"sejmcollect/internal/services/collect/domain"
)

var statementHeader = []string{
	"proceeding_id", "sequence_number", "term", "date", "num", "speaker", "function",
	"member_id", "timestamp", "end_time", "unspoken", "text", "collected_at",
}

var proceedingHeader = []string{"id", "term", "date", "title", "dates", "current"}

var memberHeader = []string{
	"term", "id", "first_name", "last_name", "club", "district_name", "district_num",
	"voivodeship", "profession", "education_level", "email", "active",
}

// CSV stores each record kind as one CSV table under a directory
type CSV struct {
	mu          sync.Mutex
	statements  csvTable[domain.Statement]
	proceedings csvTable[domain.Proceeding]
	members     csvTable[domain.Member]
	cps         checkpointFiles

	known domain.KeySet // lazily loaded
}

var _ domain.Backend = (*CSV)(nil)

// NewCSV returns a CSV backend rooted at dir
func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		dir = "data"
	}
	return &CSV{
		statements:  csvTable[domain.Statement]{path: filepath.Join(dir, "statements.csv"), header: statementHeader, enc: encStatement, dec: decStatement},
		proceedings: csvTable[domain.Proceeding]{path: filepath.Join(dir, "proceedings.csv"), header: proceedingHeader, enc: encProceeding, dec: decProceeding},
		members:     csvTable[domain.Member]{path: filepath.Join(dir, "members.csv"), header: memberHeader, enc: encMember, dec: decMember},
		cps:         checkpointFiles{dir: dir},
	}, nil
}

// AppendBatch writes the statements not yet stored in one atomic file replace
func (b *CSV) AppendBatch(ctx context.Context, sts []domain.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.loadKnown(); err != nil {
		return err
	}
	fresh := filterNew(b.known, sts)
	if len(fresh) == 0 {
		return nil
	}
	if err := b.statements.append(fresh); err != nil {
		return err
	}
	for _, s := range fresh {
		b.known.Add(s.Key())
	}
	return nil
}

// ReadExistingIDs returns the keys present in statements.csv
func (b *CSV) ReadExistingIDs(ctx context.Context) (domain.KeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.known = nil
	if err := b.loadKnown(); err != nil {
		return nil, err
	}
	return cloneKeys(b.known), nil
}

func (b *CSV) loadKnown() error {
	if b.known != nil {
		return nil
	}
	ks := domain.KeySet{}
	err := b.statements.scan(func(rec []string) error {
		pid, err := strconv.Atoi(rec[0])
		if err != nil {
			return fieldErr("proceeding_id", err)
		}
		seq, err := strconv.Atoi(rec[1])
		if err != nil {
			return fieldErr("sequence_number", err)
		}
		ks.Add(domain.Key{ProceedingID: pid, SequenceNumber: seq})
		return nil
	})
	if err != nil {
		return err
	}
	b.known = ks
	return nil
}

// FlushCheckpoint replaces checkpoint-term{N}.json
func (b *CSV) FlushCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.cps.save(cp)
}

// LoadCheckpoint reads checkpoint-term{N}.json
func (b *CSV) LoadCheckpoint(_ context.Context, term int) (*domain.Checkpoint, error) {
	return b.cps.load(term)
}

// SaveProceedings upserts by (term, id)
func (b *CSV) SaveProceedings(_ context.Context, ps []domain.Proceeding) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, err := b.proceedings.readAll()
	if err != nil {
		return err
	}
	return b.proceedings.rewrite(mergeProceedings(cur, ps))
}

// SaveMembers upserts by (term, id)
func (b *CSV) SaveMembers(_ context.Context, ms []domain.Member) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, err := b.members.readAll()
	if err != nil {
		return err
	}
	return b.members.rewrite(mergeMembers(cur, ms))
}

// Stats reads every table
func (b *CSV) Stats(_ context.Context) (domain.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sts, err := b.statements.readAll()
	if err != nil {
		return domain.Stats{}, err
	}
	ps, err := b.proceedings.readAll()
	if err != nil {
		return domain.Stats{}, err
	}
	ms, err := b.members.readAll()
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(sts, ms, len(ps)), nil
}

// Close is a no-op; every write is already durable
func (b *CSV) Close() error { return nil }

func encStatement(s domain.Statement) []string {
	return []string{
		itoa(s.ProceedingID), itoa(s.SequenceNumber), itoa(s.Term), s.Date, itoa(s.Num),
		s.Speaker, s.Function, optInt(s.MemberID), optTime(s.Timestamp), optTime(s.EndTime),
		strconv.FormatBool(s.Unspoken), s.Text, stamp(s.CollectedAt),
	}
}

func decStatement(r []string) (domain.Statement, error) {
	var (
		s   domain.Statement
		err error
	)
	if s.ProceedingID, err = atoi(r[0]); err != nil {
		return s, fieldErr("proceeding_id", err)
	}
	if s.SequenceNumber, err = atoi(r[1]); err != nil {
		return s, fieldErr("sequence_number", err)
	}
	if s.Term, err = atoi(r[2]); err != nil {
		return s, fieldErr("term", err)
	}
	s.Date = r[3]
	if s.Num, err = atoi(r[4]); err != nil {
		return s, fieldErr("num", err)
	}
	s.Speaker, s.Function = r[5], r[6]
	if s.MemberID, err = parseOptInt(r[7]); err != nil {
		return s, fieldErr("member_id", err)
	}
	if s.Timestamp, err = parseOptTime(r[8]); err != nil {
		return s, fieldErr("timestamp", err)
	}
	if s.EndTime, err = parseOptTime(r[9]); err != nil {
		return s, fieldErr("end_time", err)
	}
	if s.Unspoken, err = parseBool(r[10]); err != nil {
		return s, fieldErr("unspoken", err)
	}
	s.Text = r[11]
	at, err := parseOptTime(r[12])
	if err != nil {
		return s, fieldErr("collected_at", err)
	}
	if at != nil {
		s.CollectedAt = *at
	}
	return s, nil
}

func encProceeding(p domain.Proceeding) []string {
	return []string{itoa(p.ID), itoa(p.Term), p.Date, p.Title, joinDates(p.Dates), strconv.FormatBool(p.Current)}
}

func decProceeding(r []string) (domain.Proceeding, error) {
	var (
		p   domain.Proceeding
		err error
	)
	if p.ID, err = atoi(r[0]); err != nil {
		return p, fieldErr("id", err)
	}
	if p.Term, err = atoi(r[1]); err != nil {
		return p, fieldErr("term", err)
	}
	p.Date, p.Title, p.Dates = r[2], r[3], splitDates(r[4])
	if p.Current, err = parseBool(r[5]); err != nil {
		return p, fieldErr("current", err)
	}
	return p, nil
}

func encMember(m domain.Member) []string {
	return []string{
		itoa(m.Term), itoa(m.ID), m.FirstName, m.LastName, m.Club, m.DistrictName, itoa(m.DistrictNum),
		m.Voivodeship, m.Profession, m.EducationLevel, m.Email, strconv.FormatBool(m.Active),
	}
}

func decMember(r []string) (domain.Member, error) {
	var (
		m   domain.Member
		err error
	)
	if m.Term, err = atoi(r[0]); err != nil {
		return m, fieldErr("term", err)
	}
	if m.ID, err = atoi(r[1]); err != nil {
		return m, fieldErr("id", err)
	}
	m.FirstName, m.LastName, m.Club, m.DistrictName = r[2], r[3], r[4], r[5]
	if m.DistrictNum, err = atoi(r[6]); err != nil {
		return m, fieldErr("district_num", err)
	}
	m.Voivodeship, m.Profession, m.EducationLevel, m.Email = r[7], r[8], r[9], r[10]
	if m.Active, err = parseBool(r[11]); err != nil {
		return m, fieldErr("active", err)
	}
	return m, nil
}

// shared helpers for the file backends

// filterNew drops statements already in known and repeats within sts, keeping first occurrences
func filterNew(known domain.KeySet, sts []domain.Statement) []domain.Statement {
	seen := make(domain.KeySet, len(sts))
	out := make([]domain.Statement, 0, len(sts))
	for _, s := range sts {
		k := s.Key()
		if known.Has(k) || seen.Has(k) {
			continue
		}
		seen.Add(k)
		out = append(out, s)
	}
	return out
}

func cloneKeys(ks domain.KeySet) domain.KeySet {
	out := make(domain.KeySet, len(ks))
	for k := range ks {
		out.Add(k)
	}
	return out
}

func mergeProceedings(cur, in []domain.Proceeding) []domain.Proceeding {
	type key struct{ term, id int }
	byKey := make(map[key]domain.Proceeding, len(cur)+len(in))
	for _, p := range cur {
		byKey[key{p.Term, p.ID}] = p
	}
	for _, p := range in {
		byKey[key{p.Term, p.ID}] = p
	}
	out := make([]domain.Proceeding, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Term != out[j].Term {
			return out[i].Term < out[j].Term
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func mergeMembers(cur, in []domain.Member) []domain.Member {
	type key struct{ term, id int }
	byKey := make(map[key]domain.Member, len(cur)+len(in))
	for _, m := range cur {
		byKey[key{m.Term, m.ID}] = m
	}
	for _, m := range in {
		byKey[key{m.Term, m.ID}] = m
	}
	out := make([]domain.Member, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Term != out[j].Term {
			return out[i].Term < out[j].Term
		}
		return out[i].ID < out[j].ID
	})
	return out
}
