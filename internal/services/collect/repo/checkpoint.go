package repo

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sejmcollect/internal/platform/files"
	"sejmcollect/internal/services/collect/domain"
)

// checkpointFiles keeps one checkpoint-term{N}.json per term next to the data it describes
type checkpointFiles struct{ dir string }

func (c checkpointFiles) path(term int) string {
	return filepath.Join(c.dir, fmt.Sprintf("checkpoint-term%d.json", term))
}

func (c checkpointFiles) load(term int) (*domain.Checkpoint, error) {
	b, err := os.ReadFile(c.path(term))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "read checkpoint term %d", term)
	}
	var cp domain.Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, storageErr(err, "decode checkpoint term %d", term)
	}
	return &cp, nil
}

func (c checkpointFiles) save(cp domain.Checkpoint) error {
	err := files.WriteAtomic(c.path(cp.Term), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	})
	return storageErr(err, "write checkpoint term %d", cp.Term)
}
