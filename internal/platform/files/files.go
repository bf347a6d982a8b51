// Package files provides crash-safe file replacement for the file storage backends
package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// seams for tests
var (
	rename = os.Rename
	remove = os.Remove
)

// WriteAtomic replaces path with whatever write produces.
// Content goes to a sibling .part file which is flushed, fsynced and renamed over path,
// so readers observe either the old file or the complete new one, never a mix
func WriteAtomic(path string, write func(w io.Writer) error) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	tmp := path + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if retErr != nil {
			_ = f.Close()
			_ = remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, 64<<10)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	syncDir(filepath.Dir(path))
	return nil
}

// CopyInto streams the current content of path into w; a missing file copies nothing
func CopyInto(w io.Writer, path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return true, err
	}
	return true, nil
}

// Exists reports whether path is a regular file
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// syncDir makes the rename itself durable where the platform allows it; best effort
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
