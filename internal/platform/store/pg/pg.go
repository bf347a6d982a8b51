// Package pg opens a pgxpool with a health-checked start and optional query tracing
package pg

import (
	"context"
	"fmt"
	"time"

	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	AppName  string

	// LogSQL attaches the query tracer; SlowMs marks queries logged at warn
	LogSQL bool
	SlowMs int

	// PingAttempts bounds the startup health check; <=0 uses the default
	PingAttempts int
}

// PG is a postgres client with pool
type PG struct {
	Pool *pgxpool.Pool
}

// seams for tests
var (
	newPool = pgxpool.NewWithConfig
	ping    = func(ctx context.Context, p *pgxpool.Pool) error { return p.Ping(ctx) }
)

const (
	defaultPingAttempts = 20
	pingTimeout         = 3 * time.Second
	pingBackoffStart    = 150 * time.Millisecond
	pingBackoffCeiling  = 2 * time.Second
)

// Open parses cfg, builds the pool and returns once a ping succeeds.
// Errors that look like a database still starting up are retried with backoff
func Open(ctx context.Context, cfg Config, poolCfgMut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "postgres url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	if cfg.LogSQL {
		pcfg.ConnConfig.Tracer = Tracer(*logger.Named("pg"), time.Duration(cfg.SlowMs)*time.Millisecond)
	}
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, perr.FromPostgres(err, "postgres pool")
	}

	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = defaultPingAttempts
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pingBackoffStart
	b.MaxInterval = pingBackoffCeiling
	b.MaxElapsedTime = 0

	tries := 0
	err = backoff.Retry(func() error {
		tries++
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		pingErr := ping(toCtx, pool)
		if pingErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !perr.IsRetryable(pingErr) && !isTimeout(toCtx) {
			return backoff.Permanent(pingErr)
		}
		return pingErr
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
	if err != nil {
		pool.Close()
		return nil, perr.FromPostgres(fmt.Errorf("ping failed after %d attempts: %w", tries, err), "postgres open")
	}
	return &PG{Pool: pool}, nil
}

func isTimeout(ctx context.Context) bool { return ctx.Err() == context.DeadlineExceeded }

// Close closes the pool
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
