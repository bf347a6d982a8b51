package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCodeFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusTooManyRequests, ErrorCodeTooManyRequests},
		{http.StatusNotFound, ErrorCodeNotFound},
		{http.StatusBadRequest, ErrorCodeUpstream},
		{http.StatusForbidden, ErrorCodeUpstream},
		{http.StatusInternalServerError, ErrorCodeUnavailable},
		{http.StatusBadGateway, ErrorCodeUnavailable},
		{http.StatusServiceUnavailable, ErrorCodeUnavailable},
		{http.StatusMovedPermanently, ErrorCodeUnknown},
	}
	for _, c := range cases {
		if got := CodeFromHTTPStatus(c.status); got != c.want {
			t.Fatalf("CodeFromHTTPStatus(%d) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeStorage, "write failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	if got := e3.Error(); got != "write failed: root" {
		t.Fatalf("Wrap().Error = %q", got)
	}
	if Root(fmt.Errorf("outer: %w", e3)) != src {
		t.Fatalf("Root did not reach the deepest cause")
	}
	if WrapIf(nil, ErrorCodeStorage, "x") != nil {
		t.Fatalf("WrapIf(nil) must be nil")
	}
}

func TestWithFieldAndOpCopyOnWrite(t *testing.T) {
	base := New(ErrorCodeValidation, "invalid")
	withField := WithField(base, "speaker")
	withOp := WithOp(withField, "collector.statements")

	be, _ := As(base)
	if be.Field() != "" || be.Op() != "" {
		t.Fatalf("base mutated: field=%q op=%q", be.Field(), be.Op())
	}
	oe, ok := As(withOp)
	if !ok || oe.Field() != "speaker" || oe.Op() != "collector.statements" {
		t.Fatalf("copy-on-write lost metadata: %+v", oe)
	}

	foreign := stderrs.New("plain")
	if WithField(foreign, "x") != foreign {
		t.Fatalf("WithField should pass foreign errors through")
	}
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"unavailable", Unavailablef("5xx"), ClassTransient},
		{"rate", New(ErrorCodeTooManyRequests, "429"), ClassTransient},
		{"not found", NotFoundf("404"), ClassPermanent},
		{"upstream", New(ErrorCodeUpstream, "400"), ClassPermanent},
		{"json", JSONErrf("bad"), ClassPermanent},
		{"validation", Validationf("bad"), ClassPermanent},
		{"storage", Storagef("disk full"), ClassStorage},
		{"wrapped storage", fmt.Errorf("flush: %w", Storagef("disk full")), ClassStorage},
		{"canceled", context.Canceled, ClassCanceled},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), ClassCanceled},
		{"foreign", stderrs.New("boom"), ClassUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ClassOf(c.err); got != c.want {
				t.Fatalf("ClassOf = %v, want %v", got, c.want)
			}
		})
	}
	if !IsTransient(Unavailablef("x")) || IsTransient(NotFoundf("x")) {
		t.Fatalf("IsTransient mismatch")
	}
	if !IsPermanent(NotFoundf("x")) || !IsStorage(Storagef("x")) {
		t.Fatalf("IsPermanent/IsStorage mismatch")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) must be nil")
	}
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	err := FromPostgres(pgErr, "insert statements")
	if !IsStorage(err) {
		t.Fatalf("expected storage class, got %v", ClassOf(err))
	}
	if got, ok := ExtractPgError(err); !ok || got.Code != "23505" {
		t.Fatalf("ExtractPgError lost cause")
	}
	if !IsSQLState(err, "23505") {
		t.Fatalf("IsSQLState mismatch")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) || IsRetryable(context.Canceled) {
		t.Fatalf("nil/canceled must not be retryable")
	}
	if !IsRetryable(&pgconn.PgError{Code: "57P03"}) {
		t.Fatalf("cannot-connect-now should be retryable")
	}
	if IsRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation should not be retryable")
	}
	if !IsRetryable(stderrs.New("dial tcp: connection refused")) {
		t.Fatalf("connection refused should be retryable")
	}
}
