// Package repo implements the storage backends of the collect service
package repo

import (
	"context"
	"fmt"

	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/services/collect/domain"
)

// Type names a storage variant
type Type string

// Storage variants
const (
	TypeCSV      Type = "csv"
	TypeJSON     Type = "json"
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
)

// Types lists every supported variant
var Types = []string{string(TypeCSV), string(TypeJSON), string(TypeSQLite), string(TypePostgres)}

// Config selects and locates a backend
type Config struct {
	Type Type

	DataDir    string // csv tables and their checkpoints
	RawDir     string // json documents and their checkpoints
	SQLitePath string

	PGURL      string
	PGMaxConns int32
	LogSQL     bool
}

// Open builds the backend named by cfg.Type
func Open(ctx context.Context, cfg Config) (domain.Backend, error) {
	switch cfg.Type {
	case TypeCSV, "":
		return NewCSV(cfg.DataDir)
	case TypeJSON:
		return NewJSON(cfg.RawDir)
	case TypeSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case TypePostgres:
		return NewPostgres(ctx, cfg)
	default:
		return nil, perr.InvalidArgf("unknown storage type %q", cfg.Type)
	}
}

func storageErr(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	if perr.IsStorage(err) {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeStorage, fmt.Sprintf(format, a...))
}
