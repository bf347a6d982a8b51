package domain

import (
	"context"
	"errors"
)

// ErrNotPublished is returned by a StatementReader when a recent sitting day has no transcript yet
var ErrNotPublished = errors.New("transcript not published yet")

// RunnerPort is the public port of the collect module
type RunnerPort interface {
	RunFull(ctx context.Context) (Report, error)
	RunIncremental(ctx context.Context, limit *int) (Report, error)
}

// ProceedingReader yields proceedings in ascending id order; io.EOF when exhausted
type ProceedingReader interface {
	Next() (Proceeding, error)
	Close() error
}

// StatementReader yields the statements of one proceeding in sequence order; io.EOF when exhausted
type StatementReader interface {
	Next() (Statement, error)
	Close() error
}

// DropCounter is implemented by readers that leave out single malformed records
type DropCounter interface {
	Dropped() int
}

// Source is the collector as seen by the pipeline
type Source interface {
	ListProceedings(ctx context.Context, term int) (ProceedingReader, error)
	ListStatements(ctx context.Context, p Proceeding) (StatementReader, error)
	ListMembers(ctx context.Context, term int) ([]Member, error)
}

// Backend persists records; every failure is a storage error
type Backend interface {
	// AppendBatch durably appends statements; all or nothing
	AppendBatch(ctx context.Context, sts []Statement) error

	// ReadExistingIDs returns every stored statement key
	ReadExistingIDs(ctx context.Context) (KeySet, error)

	// FlushCheckpoint durably replaces the checkpoint of cp.Term
	FlushCheckpoint(ctx context.Context, cp Checkpoint) error

	// LoadCheckpoint returns nil, nil when the term has none
	LoadCheckpoint(ctx context.Context, term int) (*Checkpoint, error)

	// SaveProceedings upserts by id
	SaveProceedings(ctx context.Context, ps []Proceeding) error

	// SaveMembers upserts by (term, id)
	SaveMembers(ctx context.Context, ms []Member) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
