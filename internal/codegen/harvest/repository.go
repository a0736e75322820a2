package harvest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// Snapshot is a read-only view of the source tree at one tag.
type Snapshot interface {
	// ReadDir lists the file names (not sub-directories) directly inside dir.
	ReadDir(dir string) ([]string, error)
	ReadFile(name string) ([]byte, error)
}

// Repository is a version-controlled source tree with tags.
type Repository interface {
	Tags() ([]string, error)
	Checkout(tag string) (Snapshot, error)
}

// ErrNotFound is returned by snapshots for missing paths.
var ErrNotFound = fs.ErrNotExist

// FSSnapshot adapts an fs.FS to a Snapshot.
type FSSnapshot struct {
	FS fs.FS
}

func (s FSSnapshot) ReadDir(dir string) ([]string, error) {
	entries, err := fs.ReadDir(s.FS, path.Clean(dir))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s FSSnapshot) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.FS, path.Clean(name))
}

// FSRepository serves one fs.FS per tag. It backs tests and the single
// directory mode of the harvest command.
type FSRepository map[string]fs.FS

func (r FSRepository) Tags() ([]string, error) {
	tags := make([]string, 0, len(r))
	for tag := range r {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r FSRepository) Checkout(tag string) (Snapshot, error) {
	fsys, ok := r[tag]
	if !ok {
		return nil, fmt.Errorf("checkout %s: %w", tag, errors.New("unknown tag"))
	}
	return FSSnapshot{FS: fsys}, nil
}
