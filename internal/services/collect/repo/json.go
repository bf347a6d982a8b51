package repo

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"sejmcollect/internal/platform/files"
	"sejmcollect/internal/services/collect/domain"
)

// jsonDoc binds a row type to a file holding one JSON array
type jsonDoc[T any] struct{ path string }

func (d jsonDoc[T]) readAll() ([]T, error) {
	b, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "read %s", d.path)
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, storageErr(err, "decode %s", d.path)
	}
	return out, nil
}

// rewrite writes one element per line so diffs and tail stay readable
func (d jsonDoc[T]) rewrite(rows []T) error {
	err := files.WriteAtomic(d.path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, r := range rows {
			sep := ",\n"
			if i == 0 {
				sep = "\n"
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return err
			}
			b, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if _, err := w.Write(b); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "\n]\n")
		return err
	})
	return storageErr(err, "write %s", d.path)
}

// JSON stores each record kind as a JSON array document under a directory
type JSON struct {
	mu          sync.Mutex
	statements  jsonDoc[domain.Statement]
	proceedings jsonDoc[domain.Proceeding]
	members     jsonDoc[domain.Member]
	cps         checkpointFiles

	rows  []domain.Statement // cached content of statements.json
	known domain.KeySet
}

var _ domain.Backend = (*JSON)(nil)

// NewJSON returns a JSON backend rooted at dir
func NewJSON(dir string) (*JSON, error) {
	if dir == "" {
		dir = filepath.Join("data", "raw")
	}
	return &JSON{
		statements:  jsonDoc[domain.Statement]{path: filepath.Join(dir, "statements.json")},
		proceedings: jsonDoc[domain.Proceeding]{path: filepath.Join(dir, "proceedings.json")},
		members:     jsonDoc[domain.Member]{path: filepath.Join(dir, "members.json")},
		cps:         checkpointFiles{dir: dir},
	}, nil
}

func (b *JSON) load() error {
	if b.known != nil {
		return nil
	}
	rows, err := b.statements.readAll()
	if err != nil {
		return err
	}
	ks := make(domain.KeySet, len(rows))
	for _, s := range rows {
		ks.Add(s.Key())
	}
	b.rows, b.known = rows, ks
	return nil
}

// AppendBatch rewrites statements.json with the new rows merged in key order
func (b *JSON) AppendBatch(ctx context.Context, sts []domain.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(); err != nil {
		return err
	}
	fresh := filterNew(b.known, sts)
	if len(fresh) == 0 {
		return nil
	}
	next := make([]domain.Statement, 0, len(b.rows)+len(fresh))
	next = append(append(next, b.rows...), fresh...)
	domain.SortStatements(next)
	if err := b.statements.rewrite(next); err != nil {
		return err
	}
	b.rows = next
	for _, s := range fresh {
		b.known.Add(s.Key())
	}
	return nil
}

// ReadExistingIDs re-reads statements.json
func (b *JSON) ReadExistingIDs(ctx context.Context) (domain.KeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.known, b.rows = nil, nil
	if err := b.load(); err != nil {
		return nil, err
	}
	return cloneKeys(b.known), nil
}

// FlushCheckpoint replaces checkpoint-term{N}.json
func (b *JSON) FlushCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.cps.save(cp)
}

// LoadCheckpoint reads checkpoint-term{N}.json
func (b *JSON) LoadCheckpoint(_ context.Context, term int) (*domain.Checkpoint, error) {
	return b.cps.load(term)
}

// SaveProceedings upserts by (term, id)
func (b *JSON) SaveProceedings(_ context.Context, ps []domain.Proceeding) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, err := b.proceedings.readAll()
	if err != nil {
		return err
	}
	return b.proceedings.rewrite(mergeProceedings(cur, ps))
}

// SaveMembers upserts by (term, id)
func (b *JSON) SaveMembers(_ context.Context, ms []domain.Member) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, err := b.members.readAll()
	if err != nil {
		return err
	}
	return b.members.rewrite(mergeMembers(cur, ms))
}

// Stats reads every document
func (b *JSON) Stats(_ context.Context) (domain.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(); err != nil {
		return domain.Stats{}, err
	}
	ps, err := b.proceedings.readAll()
	if err != nil {
		return domain.Stats{}, err
	}
	ms, err := b.members.readAll()
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(b.rows, ms, len(ps)), nil
}

// Close drops the cache
func (b *JSON) Close() error {
	b.mu.Lock()
	b.rows, b.known = nil, nil
	b.mu.Unlock()
	return nil
}
