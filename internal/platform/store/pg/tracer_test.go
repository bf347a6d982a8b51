package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"select 1", "select 1"},
		{"  select   1  ", " select 1 "},
		{"SELECT\t*\nFROM\r\tstatements WHERE  a =  1", "SELECT * FROM statements WHERE a = 1"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, compact(c.in))
	}
}

type line struct {
	Level   string  `json:"level"`
	Elapsed float64 `json:"elapsed_ms"`
	Slow    bool    `json:"slow"`
	SQL     string  `json:"sql"`
	Args    int     `json:"args"`
	Error   string  `json:"error"`
	Message string  `json:"message"`
}

func trace(t *testing.T, slow, took time.Duration, err error) line {
	t.Helper()
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf).Level(zerolog.DebugLevel), slow).(*zlTracer)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  "INSERT INTO statements\n  VALUES ($1, $2)",
		Args: []any{1, "x"},
	})
	clock = clock.Add(took)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("INSERT 0 1"), Err: err})

	var l line
	require.NoError(t, json.Unmarshal(buf.Bytes(), &l))
	return l
}

func TestTracer_Levels(t *testing.T) {
	fast := trace(t, 100*time.Millisecond, 12*time.Millisecond, nil)
	assert.Equal(t, "debug", fast.Level)
	assert.False(t, fast.Slow)
	assert.InDelta(t, 12.0, fast.Elapsed, 0.001)
	assert.Equal(t, "INSERT INTO statements VALUES ($1, $2)", fast.SQL)
	assert.Equal(t, 2, fast.Args)
	assert.Equal(t, "pg query", fast.Message)

	slow := trace(t, 100*time.Millisecond, 150*time.Millisecond, nil)
	assert.Equal(t, "warn", slow.Level)
	assert.True(t, slow.Slow)

	failed := trace(t, 0, time.Millisecond, errors.New("boom"))
	assert.Equal(t, "error", failed.Level)
	assert.Equal(t, "boom", failed.Error)
}

func TestTracer_EndWithoutStartIsNoop(t *testing.T) {
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf), 0)
	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	assert.Zero(t, buf.Len())
}
