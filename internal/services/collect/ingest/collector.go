// Package ingest adapts the Sejm API client to the collect domain ports
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sejmcollect/internal/adapters/ingest/sejm"
	"sejmcollect/internal/core/normalize"
	"sejmcollect/internal/platform/logger"
	"sejmcollect/internal/platform/validate"
	"sejmcollect/internal/services/collect/domain"
)

// API is the part of the Sejm client the collector uses
type API interface {
	Proceedings(ctx context.Context, term int) ([]sejm.Proceeding, error)
	Transcripts(ctx context.Context, term, num int, date string) ([]sejm.TranscriptEntry, error)
	Transcript(ctx context.Context, term, num int, date string, statement int) (string, error)
	Members(ctx context.Context, term int) ([]sejm.Member, error)
}

// DefaultPublishGrace is how long after a sitting day a missing transcript still counts as pending
const DefaultPublishGrace = 14 * 24 * time.Hour

// Options tunes what the collector fetches
type Options struct {
	// FetchContent pulls each statement's transcript body; off leaves Text empty
	FetchContent bool

	// PublishGrace bounds how old a sitting day without a transcript may be before it is read as empty; <=0 -> DefaultPublishGrace
	PublishGrace time.Duration

	// Now stamps CollectedAt and dates the grace window; nil -> time.Now
	Now func() time.Time
}

// Collector turns API listings into domain records; it keeps no cache
type Collector struct {
	api  API
	opts Options
	log  logger.Logger
}

var _ domain.Source = (*Collector)(nil)

// NewCollector constructs a Collector
func NewCollector(api API, o Options) *Collector {
	if api == nil {
		panic("ingest.Collector requires a non nil API")
	}
	if o.PublishGrace <= 0 {
		o.PublishGrace = DefaultPublishGrace
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Collector{api: api, opts: o, log: *logger.Named("collector")}
}

// ListProceedings returns the term's proceedings by ascending id; entries without a positive number are dropped
func (c *Collector) ListProceedings(ctx context.Context, term int) (domain.ProceedingReader, error) {
	raw, err := c.api.Proceedings(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("list proceedings term %d: %w", term, err)
	}

	out := make([]domain.Proceeding, 0, len(raw))
	for _, r := range raw {
		if r.Number <= 0 {
			continue
		}
		p := toProceeding(term, r)
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("proceeding %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	c.log.Debug().Int("term", term).Int("listed", len(raw)).Int("kept", len(out)).Msg("proceedings listed")
	return &proceedingReader{items: out}, nil
}

// ListStatements streams a proceeding's statements one sitting day at a time.
// Each call starts over and re-issues every request
func (c *Collector) ListStatements(ctx context.Context, p domain.Proceeding) (domain.StatementReader, error) {
	days := append([]string(nil), p.Dates...)
	if len(days) == 0 && p.Date != "" {
		days = []string{p.Date}
	}
	sort.Strings(days)
	return &statementReader{ctx: ctx, c: c, p: p, days: days}, nil
}

// ListMembers returns the MPs of a term
func (c *Collector) ListMembers(ctx context.Context, term int) ([]domain.Member, error) {
	raw, err := c.api.Members(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("list members term %d: %w", term, err)
	}
	out := make([]domain.Member, 0, len(raw))
	for _, r := range raw {
		m := toMember(term, r)
		if err := validate.Struct(m); err != nil {
			return nil, fmt.Errorf("member %d: %w", r.ID, err)
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func toProceeding(term int, r sejm.Proceeding) domain.Proceeding {
	dates := append([]string(nil), r.Dates...)
	sort.Strings(dates)
	p := domain.Proceeding{
		ID:      r.Number,
		Term:    term,
		Title:   normalize.Line(r.Title),
		Dates:   dates,
		Current: r.Current,
	}
	if len(dates) > 0 {
		p.Date = dates[0]
	}
	return p
}

func toMember(term int, r sejm.Member) domain.Member {
	first := r.FirstName
	if r.SecondName != "" {
		first += " " + r.SecondName
	}
	return domain.Member{
		ID:             r.ID,
		Term:           term,
		FirstName:      normalize.Line(first),
		LastName:       normalize.Line(r.LastName),
		Club:           r.Club,
		DistrictName:   normalize.Line(r.DistrictName),
		DistrictNum:    r.DistrictNum,
		Voivodeship:    r.Voivodeship,
		Profession:     normalize.Line(r.Profession),
		EducationLevel: r.EducationLevel,
		Email:          r.Email,
		Active:         r.Active,
	}
}
