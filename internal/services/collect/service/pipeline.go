// Package service provides the collection pipeline
package service

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/logger"
	"sejmcollect/internal/services/collect/domain"
	"sejmcollect/internal/services/collect/guardrails"

	"github.com/google/uuid"
)

// Config holds the pipeline options
type Config struct {
	Term      int
	BatchSize int // <=0 -> 100

	// OnPermanent decides between skipping and aborting on a permanent proceeding error; "" -> skip
	OnPermanent domain.PermanentPolicy

	// CollectMembers refreshes the term's members before walking proceedings
	CollectMembers bool

	Timeouts guardrails.Timeouts
}

// DefaultBatchSize applies when Config.BatchSize is unset
const DefaultBatchSize = 100

// Pipeline walks the proceedings of one term and persists their statements
type Pipeline struct {
	src   domain.Source
	store domain.Backend
	cfg   Config

	now   func() time.Time
	newID func() string

	state   atomic.Value // domain.State
	observe func(domain.State)
}

var _ domain.RunnerPort = (*Pipeline)(nil)

// New constructs the pipeline
func New(src domain.Source, store domain.Backend, cfg Config) *Pipeline {
	if src == nil {
		panic("collect.Pipeline requires a non nil Source")
	}
	if store == nil {
		panic("collect.Pipeline requires a non nil Backend")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.OnPermanent == "" {
		cfg.OnPermanent = domain.OnPermanentSkip
	}
	p := &Pipeline{src: src, store: store, cfg: cfg, now: time.Now, newID: uuid.NewString}
	p.state.Store(domain.StateIdle)
	return p
}

// WithClock replaces the wall clock used for checkpoint stamps and the unfinished cutoff
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithObserver registers fn to receive every state transition
func (p *Pipeline) WithObserver(fn func(domain.State)) *Pipeline {
	p.observe = fn
	return p
}

// State returns the current lifecycle state
func (p *Pipeline) State() domain.State { return p.state.Load().(domain.State) }

func (p *Pipeline) set(s domain.State) {
	p.state.Store(s)
	if p.observe != nil {
		p.observe(s)
	}
}

// RunFull processes every proceeding of the term; existing statements are deduplicated
func (p *Pipeline) RunFull(ctx context.Context) (domain.Report, error) {
	return p.run(ctx, domain.ModeFull, nil)
}

// RunIncremental processes proceedings after the checkpoint, at most *limit when limit is set
func (p *Pipeline) RunIncremental(ctx context.Context, limit *int) (domain.Report, error) {
	return p.run(ctx, domain.ModeIncremental, limit)
}

// run is one pass over the term
type run struct {
	rep   domain.Report
	known domain.KeySet
	last  int // checkpoint floor
	batch []domain.Statement
}

func (p *Pipeline) run(ctx context.Context, mode domain.Mode, limit *int) (domain.Report, error) {
	start := p.now()
	r := &run{rep: domain.Report{RunID: p.newID(), Mode: mode, Term: p.cfg.Term, State: domain.StateIdle}}
	ctx = logger.WithRun(ctx, r.rep.RunID, p.cfg.Term)
	log := logger.C(ctx)

	finish := func(err error, pid int) (domain.Report, error) {
		r.rep.Elapsed = p.now().Sub(start)
		if err == nil {
			r.rep.State = domain.StateDone
			p.set(domain.StateDone)
			log.Info().
				Str("mode", string(mode)).
				Int("processed", r.rep.Processed).
				Int("skipped", r.rep.Skipped).
				Int("statements", r.rep.Statements).
				Int("deduped", r.rep.Deduped).
				Int("dropped", r.rep.Dropped).
				Dur("elapsed", r.rep.Elapsed).
				Msg("collect: run done")
			return r.rep, nil
		}
		r.rep.State = domain.StateFailed
		r.rep.FailedProceeding = pid
		p.set(domain.StateFailed)
		ev := log.Error().Err(err).Str("class", perr.ClassOf(err).String())
		if pid > 0 {
			ev = ev.Int("proceeding_id", pid)
		}
		ev.Msg("collect: run failed")
		return r.rep, err
	}

	if p.cfg.Term < 1 {
		return finish(perr.InvalidArgf("term must be at least 1, got %d", p.cfg.Term), 0)
	}
	p.set(domain.StateIdle)
	log.Info().Str("mode", string(mode)).Int("batch_size", p.cfg.BatchSize).Msg("collect: run start")

	if p.cfg.CollectMembers {
		n, err := p.refreshMembers(ctx)
		if err != nil {
			return finish(err, 0)
		}
		r.rep.Members = n
	}

	cp, err := p.store.LoadCheckpoint(ctx, p.cfg.Term)
	if err != nil {
		return finish(err, 0)
	}
	r.last = cp.Last()
	if cp != nil && cp.LastCompletedProceedingID != nil {
		r.rep.Checkpoint = intPtr(r.last)
	}
	if r.known, err = p.store.ReadExistingIDs(ctx); err != nil {
		return finish(err, 0)
	}

	p.set(domain.StateEnumerating)
	ps, err := p.enumerate(ctx)
	if err != nil {
		return finish(err, 0)
	}
	r.rep.Proceedings = len(ps)
	if len(ps) > 0 {
		if err := p.store.SaveProceedings(ctx, ps); err != nil {
			return finish(err, 0)
		}
	}

	today := p.now().Format(time.DateOnly)
	for _, pr := range ps {
		if mode == domain.ModeIncremental && cp.Covers(pr.ID) {
			continue
		}
		if limit != nil && r.rep.Processed >= *limit {
			break
		}
		if unfinished(pr, today) {
			log.Info().Int("proceeding_id", pr.ID).Str("last_day", pr.LastDay()).Msg("collect: proceeding not finished upstream, stopping")
			break
		}

		if err := p.collect(ctx, r, pr); err != nil {
			if errors.Is(err, domain.ErrNotPublished) {
				log.Info().Err(err).Int("proceeding_id", pr.ID).Msg("collect: transcript pending upstream, stopping")
				break
			}
			if !p.skippable(err) {
				return finish(err, pr.ID)
			}
			log.Warn().Err(err).Int("proceeding_id", pr.ID).Msg("collect: permanent error, proceeding skipped")
			r.rep.Skipped++
		}

		if err := p.advance(ctx, r, pr.ID); err != nil {
			return finish(err, pr.ID)
		}
		r.rep.Processed++
	}
	return finish(nil, 0)
}

func (p *Pipeline) enumerate(ctx context.Context) ([]domain.Proceeding, error) {
	rd, err := p.src.ListProceedings(ctx, p.cfg.Term)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rd.Close() }()
	var out []domain.Proceeding
	for {
		pr, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
}

// collect streams one proceeding into batches; the unflushed tail is dropped on error
func (p *Pipeline) collect(ctx context.Context, r *run, pr domain.Proceeding) error {
	p.set(domain.StateCollecting)
	pctx, cancel := guardrails.ForProceeding(ctx, p.cfg.Timeouts)
	defer cancel()

	rd, err := p.src.ListStatements(pctx, pr)
	if err != nil {
		return err
	}
	defer func() {
		if dc, ok := rd.(domain.DropCounter); ok {
			r.rep.Dropped += dc.Dropped()
		}
		_ = rd.Close()
	}()

	r.batch = r.batch[:0]
	for {
		s, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.batch = r.batch[:0]
			return err
		}
		if r.known.Has(s.Key()) {
			r.rep.Deduped++
			continue
		}
		r.batch = append(r.batch, s)
		if len(r.batch) >= p.cfg.BatchSize {
			if err := p.flush(ctx, r, pr.ID); err != nil {
				return err
			}
		}
	}
	return p.flush(ctx, r, pr.ID)
}

func (p *Pipeline) flush(ctx context.Context, r *run, pid int) error {
	if len(r.batch) == 0 {
		return nil
	}
	p.set(domain.StateFlushing)
	fctx, cancel := guardrails.ForFlush(ctx, p.cfg.Timeouts)
	defer cancel()

	if err := p.store.AppendBatch(fctx, r.batch); err != nil {
		return asStorage(err, "append batch of proceeding %d", pid)
	}
	for _, s := range r.batch {
		r.known.Add(s.Key())
	}
	r.rep.Statements += len(r.batch)
	r.rep.Batches++
	logger.C(ctx).Debug().Int("proceeding_id", pid).Int("size", len(r.batch)).Msg("collect: batch flushed")
	r.batch = r.batch[:0]
	p.set(domain.StateCollecting)
	return nil
}

// advance persists the checkpoint past pid; it never moves backwards
func (p *Pipeline) advance(ctx context.Context, r *run, pid int) error {
	if pid <= r.last {
		return nil
	}
	p.set(domain.StateAdvancing)
	fctx, cancel := guardrails.ForFlush(ctx, p.cfg.Timeouts)
	defer cancel()

	cp := domain.Checkpoint{Term: p.cfg.Term, LastCompletedProceedingID: intPtr(pid), UpdatedAt: p.now().UTC()}
	if err := p.store.FlushCheckpoint(fctx, cp); err != nil {
		return asStorage(err, "flush checkpoint %d", pid)
	}
	r.last = pid
	r.rep.Checkpoint = intPtr(pid)
	return nil
}

// skippable applies the permanent error policy; anything else ends the run
func (p *Pipeline) skippable(err error) bool {
	return p.cfg.OnPermanent == domain.OnPermanentSkip && perr.IsPermanent(err)
}

// refreshMembers stores the term's members; a permanent upstream error is only logged
func (p *Pipeline) refreshMembers(ctx context.Context) (int, error) {
	ms, err := p.src.ListMembers(ctx, p.cfg.Term)
	if err != nil {
		if perr.IsPermanent(err) {
			logger.C(ctx).Warn().Err(err).Msg("collect: members unavailable, continuing")
			return 0, nil
		}
		return 0, err
	}
	if len(ms) == 0 {
		return 0, nil
	}
	if err := p.store.SaveMembers(ctx, ms); err != nil {
		return 0, asStorage(err, "save members")
	}
	return len(ms), nil
}

// Members refreshes the member list of the term on its own
func (p *Pipeline) Members(ctx context.Context) (int, error) {
	ctx = logger.WithRun(ctx, p.newID(), p.cfg.Term)
	ms, err := p.src.ListMembers(ctx, p.cfg.Term)
	if err != nil {
		return 0, err
	}
	if err := p.store.SaveMembers(ctx, ms); err != nil {
		return 0, asStorage(err, "save members")
	}
	logger.C(ctx).Info().Int("members", len(ms)).Msg("collect: members stored")
	return len(ms), nil
}

// Stats summarizes what the backend holds
func (p *Pipeline) Stats(ctx context.Context) (domain.Stats, error) {
	return p.store.Stats(ctx)
}

// unfinished reports whether upstream may still add statements to pr
func unfinished(pr domain.Proceeding, today string) bool {
	last := pr.LastDay()
	return pr.Current || last == "" || last >= today
}

// asStorage keeps backend failures out of the skip policy; cancellations pass through
func asStorage(err error, format string, a ...any) error {
	switch perr.ClassOf(err) {
	case perr.ClassStorage, perr.ClassCanceled:
		return err
	}
	return perr.Wrapf(err, perr.ErrorCodeStorage, format, a...)
}

func intPtr(v int) *int { return &v }
