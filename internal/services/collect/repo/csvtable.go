package repo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sejmcollect/internal/platform/files"
)

// csvTable binds a row type to a CSV file with a fixed header
type csvTable[T any] struct {
	path   string
	header []string
	enc    func(T) []string
	dec    func([]string) (T, error)
}

// readAll decodes every row; a missing file is an empty table
func (t csvTable[T]) readAll() ([]T, error) {
	var out []T
	err := t.scan(func(rec []string) error {
		v, err := t.dec(rec)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// scan feeds raw records after the header to fn
func (t csvTable[T]) scan(fn func([]string) error) error {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return storageErr(err, "open %s", t.path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(t.header)
	r.ReuseRecord = true
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return storageErr(err, "read %s", t.path)
		}
		line++
		if line == 1 && rec[0] == t.header[0] {
			continue
		}
		if err := fn(rec); err != nil {
			return storageErr(err, "decode %s line %d", t.path, line)
		}
	}
}

// append adds rows after the current content in one atomic replace
func (t csvTable[T]) append(rows []T) error {
	err := files.WriteAtomic(t.path, func(w io.Writer) error {
		existed, err := files.CopyInto(w, t.path)
		if err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		if !existed {
			if err := cw.Write(t.header); err != nil {
				return err
			}
		}
		for _, r := range rows {
			if err := cw.Write(t.enc(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	return storageErr(err, "append %s", t.path)
}

// rewrite replaces the whole table
func (t csvTable[T]) rewrite(rows []T) error {
	err := files.WriteAtomic(t.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.header); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write(t.enc(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	return storageErr(err, "rewrite %s", t.path)
}

// cell codecs

func itoa(v int) string { return strconv.Itoa(v) }

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// stamp renders a required time; the zero value stays empty
func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return optTime(&t)
}

func parseOptTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func joinDates(ds []string) string { return strings.Join(ds, ";") }

func splitDates(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func fieldErr(col string, err error) error { return fmt.Errorf("column %s: %w", col, err) }
