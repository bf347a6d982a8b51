package files

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	kit "sejmcollect/internal/platform/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_CreatesAndReplaces(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "statements.csv")

	require.NoError(t, WriteAtomic(p, func(w io.Writer) error {
		_, err := io.WriteString(w, "a\n")
		return err
	}))
	assert.Equal(t, "a\n", kit.MustReadFile(t, p))

	require.NoError(t, WriteAtomic(p, func(w io.Writer) error {
		if _, err := CopyInto(w, p); err != nil {
			return err
		}
		_, err := io.WriteString(w, "b\n")
		return err
	}))
	assert.Equal(t, "a\nb\n", kit.MustReadFile(t, p))
	kit.MustNotExist(t, p+".part")
}

func TestWriteAtomic_WriterErrorLeavesOriginal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "statements.json")
	require.NoError(t, os.WriteFile(p, []byte("[]"), 0o644))

	boom := errors.New("encode failed")
	err := WriteAtomic(p, func(w io.Writer) error {
		_, _ = io.WriteString(w, "[{\"partial\":")
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "[]", kit.MustReadFile(t, p))
	kit.MustNotExist(t, p+".part")
}

func TestWriteAtomic_RenameFailureLeavesOriginal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "checkpoint-term10.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"term":10}`), 0o644))

	kit.Swap(t, &rename, func(string, string) error { return errors.New("disk full") })

	err := WriteAtomic(p, func(w io.Writer) error {
		_, err := io.WriteString(w, `{"term":10,"last_completed_proceeding_id":3}`)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, `{"term":10}`, kit.MustReadFile(t, p))
	kit.MustNotExist(t, p+".part")
}

func TestCopyInto_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	ok, err := CopyInto(&buf, filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, buf.Len())
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope.csv")))
}
