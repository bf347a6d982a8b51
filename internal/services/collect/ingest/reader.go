package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"sejmcollect/internal/adapters/ingest/sejm"
	"sejmcollect/internal/core/normalize"
	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/validate"
	"sejmcollect/internal/services/collect/domain"
)

type proceedingReader struct {
	items []domain.Proceeding
	i     int
}

func (r *proceedingReader) Next() (domain.Proceeding, error) {
	if r.i >= len(r.items) {
		return domain.Proceeding{}, io.EOF
	}
	p := r.items[r.i]
	r.i++
	return p, nil
}

func (r *proceedingReader) Close() error {
	r.i = len(r.items)
	return nil
}

// statementReader fetches the next day's list only once the current one is drained.
// A permanent failure on one entry drops that entry; failures on a day listing end the reader
type statementReader struct {
	ctx  context.Context
	c    *Collector
	p    domain.Proceeding
	days []string

	day     int
	cur     string
	queue   []sejm.TranscriptEntry
	seq     int
	dropped int
	closed  bool
}

var _ domain.DropCounter = (*statementReader)(nil)

func (r *statementReader) Next() (domain.Statement, error) {
	for {
		if err := r.fill(); err != nil {
			return domain.Statement{}, err
		}
		e := r.queue[0]
		r.queue = r.queue[1:]
		// a dropped entry still takes its position so later keys stay stable
		r.seq++

		st, err := r.build(e)
		if err == nil {
			return st, nil
		}
		if !perr.IsPermanent(err) {
			return domain.Statement{}, err
		}
		r.dropped++
		r.c.log.Warn().Err(err).
			Int("proceeding_id", r.p.ID).
			Str("date", r.cur).
			Int("num", e.Num).
			Int("sequence_number", r.seq).
			Int("status", sejm.StatusOf(err)).
			Msg("statement dropped")
	}
}

// fill loads sitting days until the queue holds an entry; io.EOF after the last day
func (r *statementReader) fill() error {
	for len(r.queue) == 0 {
		if r.closed || r.day >= len(r.days) {
			return io.EOF
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}
		date := r.days[r.day]
		entries, err := r.c.api.Transcripts(r.ctx, r.p.Term, r.p.ID, date)
		switch {
		case errors.Is(err, sejm.ErrNoTranscript):
			if r.pending(date) {
				return fmt.Errorf("proceeding %d day %s: %w", r.p.ID, date, domain.ErrNotPublished)
			}
			r.c.log.Warn().Int("proceeding_id", r.p.ID).Str("date", date).Msg("no transcript past the publish grace, day read as empty")
			entries = nil
		case err != nil:
			return fmt.Errorf("proceeding %d day %s: %w", r.p.ID, date, err)
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Num < entries[j].Num })
		kept := entries[:0]
		for _, e := range entries {
			if !e.Procedural() {
				kept = append(kept, e)
			}
		}
		r.queue, r.cur = kept, date
		r.day++
		r.c.log.Debug().Int("proceeding", r.p.ID).Str("date", date).Int("listed", len(entries)).Int("kept", len(kept)).Msg("sitting day listed")
	}
	return nil
}

// pending reports whether date is still inside the publish grace window
func (r *statementReader) pending(date string) bool {
	day, ok := sejm.ParseDay(date)
	if !ok {
		return false
	}
	return r.c.opts.Now().Sub(day) < r.c.opts.PublishGrace
}

func (r *statementReader) build(e sejm.TranscriptEntry) (domain.Statement, error) {
	st := domain.Statement{
		ProceedingID:   r.p.ID,
		SequenceNumber: r.seq,
		Speaker:        normalize.Line(e.Name),
		Timestamp:      sejm.ParseTime(e.StartDateTime),
		Term:           r.p.Term,
		Date:           r.cur,
		Num:            e.Num,
		Function:       normalize.Line(e.Function),
		EndTime:        sejm.ParseTime(e.EndDateTime),
		Unspoken:       e.Unspoken,
		CollectedAt:    r.c.opts.Now().UTC().Truncate(time.Second),
	}
	if e.MemberID > 0 {
		id := e.MemberID
		st.MemberID = &id
	}
	if r.c.opts.FetchContent {
		text, err := r.c.api.Transcript(r.ctx, r.p.Term, r.p.ID, r.cur, e.Num)
		if err != nil {
			return domain.Statement{}, fmt.Errorf("proceeding %d day %s statement %d: %w", r.p.ID, r.cur, e.Num, err)
		}
		st.Text = text
	}
	if err := validate.Struct(st); err != nil {
		return domain.Statement{}, fmt.Errorf("proceeding %d day %s statement %d: %w", r.p.ID, r.cur, e.Num, err)
	}
	return st, nil
}

// Dropped counts entries left out on a permanent error
func (r *statementReader) Dropped() int { return r.dropped }

func (r *statementReader) Close() error {
	r.closed = true
	r.queue = nil
	return nil
}
