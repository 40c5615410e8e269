package host

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DirStore persists captures as one JSON document per capture under a
// directory, named by capture ID. Writes go through a temp file and
// rename so a crashed save never leaves a half-written capture behind.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed and returns a store rooted there.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("host: create capture dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

func (s *DirStore) Save(ctx context.Context, c *Capture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".capture-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(c.Metadata.ID))
}

func (s *DirStore) Load(ctx context.Context, id uuid.UUID) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("host: capture %s corrupt: %w", id, err)
	}
	return &c, nil
}

// List returns the IDs of every stored capture, in directory order.
func (s *DirStore) List() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id, err := uuid.Parse(e.Name()[:len(e.Name())-len(".json")])
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
