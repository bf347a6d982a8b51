// Package module wires the collect service: client, collector, backend and pipeline
package module

import (
	"context"

	"sejmcollect/internal/adapters/ingest/sejm"
	"sejmcollect/internal/modkit"
	"sejmcollect/internal/services/collect/domain"
	"sejmcollect/internal/services/collect/guardrails"
	"sejmcollect/internal/services/collect/ingest"
	"sejmcollect/internal/services/collect/repo"
	"sejmcollect/internal/services/collect/service"
)

// Ports defines the collect module ports
type Ports struct {
	Runner  domain.RunnerPort
	Members MembersPort
	Stats   StatsPort
}

// MembersPort refreshes the member list on its own
type MembersPort interface {
	Members(ctx context.Context) (int, error)
}

// StatsPort summarizes stored data
type StatsPort interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// Overrides replaces the adapters New would build; pass with modkit.WithPorts
type Overrides struct {
	Source  domain.Source
	Backend domain.Backend
}

// Module implements the collect module
type Module struct {
	name    string
	opts    Options
	backend domain.Backend
	ports   Ports
}

var _ modkit.Module = (*Module)(nil)

// New reads options from deps.Cfg and wires every adapter
func New(ctx context.Context, deps modkit.Deps, mods ...modkit.Option) (*Module, error) {
	opts, err := FromConfig(deps.Cfg)
	if err != nil {
		return nil, err
	}
	m, err := NewWithOptions(ctx, opts, mods...)
	if err != nil {
		return nil, err
	}
	deps.Logger(m.name).Info().
		Int("term", opts.Term).
		Str("storage", opts.StorageType).
		Str("api", opts.BaseURL).
		Msg("module ready")
	return m, nil
}

// NewWithOptions wires the module from an already built Options value
func NewWithOptions(ctx context.Context, opts Options, mods ...modkit.Option) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	built := modkit.Build("collect", mods...)
	ov, _ := built.Ports.(Overrides)

	src := ov.Source
	if src == nil {
		client := sejm.NewClient(sejm.Options{
			BaseURL:       opts.BaseURL,
			UserAgent:     opts.UserAgent,
			Timeout:       opts.Timeout,
			RetryAttempts: opts.RetryAttempts,
			RetryBase:     opts.RetryBase,
			Delay:         opts.Delay,
		})
		src = ingest.NewCollector(client, ingest.Options{FetchContent: opts.FetchContent, PublishGrace: opts.PublishGrace})
	}

	backend := ov.Backend
	if backend == nil {
		if err := opts.EnsureDirs(); err != nil {
			return nil, err
		}
		b, err := repo.Open(ctx, opts.Storage())
		if err != nil {
			return nil, err
		}
		backend = b
	}

	pl := service.New(src, backend, service.Config{
		Term:           opts.Term,
		BatchSize:      opts.BatchSize,
		OnPermanent:    domain.PermanentPolicy(opts.OnPermanent),
		CollectMembers: opts.CollectMembers,
		Timeouts:       guardrails.Timeouts{Proceeding: opts.ProceedingTimeout},
	})

	return &Module{
		name:    built.Name,
		opts:    opts,
		backend: backend,
		ports:   Ports{Runner: pl, Members: pl, Stats: pl},
	}, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }

// Close releases the storage backend
func (m *Module) Close() error { return m.backend.Close() }
