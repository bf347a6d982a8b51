package sejm

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Warsaw must resolve on minimal images
)

// StatusError wraps non-2xx responses; the inner error carries the perr code
type StatusError struct {
	Status int
	Err    error
}

// Error interface
func (e *StatusError) Error() string { return e.Err.Error() }

// Unwrap interface
func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus interface
func (e *StatusError) HTTPStatus() int { return e.Status }

// StatusOf returns the HTTP status behind err, or 0
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// warsaw is the zone the API reports local sitting times in
var warsaw = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		return time.UTC
	}
	return loc
}()

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTime reads an API timestamp; offset-less values are Warsaw local time.
// Empty or unparseable input yields nil
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, warsaw)
		}
		if err == nil {
			return &t
		}
	}
	return nil
}

// ParseDay reads a YYYY-MM-DD sitting day as a civil date at Warsaw midnight
func ParseDay(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), warsaw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
