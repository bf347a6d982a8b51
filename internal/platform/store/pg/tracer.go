package pg

import (
	"context"
	"time"

	"sejmcollect/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

type traceKey struct{}

type traceStart struct {
	sql  string
	args []any
	at   time.Time
}

// Tracer returns a pgx.QueryTracer logging every statement at debug, and at warn past slow
func Tracer(log logger.Logger, slow time.Duration) pgx.QueryTracer {
	return &zlTracer{log: log, slow: slow, now: time.Now}
}

type zlTracer struct {
	log  logger.Logger
	slow time.Duration
	now  func() time.Time
}

func (z *zlTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{sql: d.SQL, args: d.Args, at: z.now()})
}

func (z *zlTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	st, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	elapsed := z.now().Sub(st.at)
	slow := z.slow > 0 && elapsed >= z.slow

	evt := z.log.Debug()
	if slow {
		evt = z.log.Warn()
	}
	if d.Err != nil {
		evt = z.log.Error().Err(d.Err)
	}
	evt.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000.0).
		Bool("slow", slow).
		Str("sql", compact(st.sql)).
		Int("args", len(st.args)).
		Str("tag", d.CommandTag.String()).
		Msg("pg query")
}

// compact folds whitespace runs to single spaces so SQL fits on one log line
func compact(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch r {
		case '\n', '\t', '\r', ' ':
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
