package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// resource is one durable JSON snapshot file. Every write goes to a temp
// file first and is renamed over the original, so a crash mid-write never
// corrupts the previous snapshot.
type resource struct {
	name string
	path string
}

func newResource(dir, name string) *resource {
	return &resource{name: name, path: filepath.Join(dir, name+".json")}
}

// read returns the raw snapshot bytes, or nil when no snapshot exists yet.
func (r *resource) read() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.name, err)
	}
	return data, nil
}

// write atomically replaces the snapshot with data.
func (r *resource) write(data []byte) error {
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", r.name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", r.name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", r.name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", r.name, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", r.name, err)
	}
	return nil
}
