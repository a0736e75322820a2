package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrNotFound is returned when a store has no set for a version.
var ErrNotFound = fs.ErrNotExist

// Store keeps one artifact set per version.
type Store interface {
	// Write replaces the set of s.Version.
	Write(s *Set) error
	// Read returns the set of version after verifying it against its manifest.
	Read(version *semver.Version) (*Set, error)
	// Names lists the version directory names in the store.
	Names() ([]string, error)
	// Reset removes every set.
	Reset() error
}

// FSStore lays sets out as <Root>/<version>/.
type FSStore struct {
	Root   string
	logger *slog.Logger
}

// NewFSStore returns a store rooted at root.
func NewFSStore(root string, logger *slog.Logger) *FSStore {
	return &FSStore{Root: root, logger: logger}
}

func (s *FSStore) dir(version *semver.Version) string {
	return filepath.Join(s.Root, version.String())
}

func (s *FSStore) Write(set *Set) error {
	manifest, err := set.Manifest().Encode()
	if err != nil {
		return err
	}

	dir := s.dir(set.Version)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear %s: %w", dir, err)
	}
	for _, name := range set.Names() {
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", dst, err)
		}
		if err := os.WriteFile(dst, set.Files[name], 0644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	s.logger.Info("Wrote artifact set", "version", set.Version.String(), "dir", dir, "files", len(set.Files))
	return nil
}

func (s *FSStore) Read(version *semver.Version) (*Set, error) {
	dir := s.dir(version)
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", version, err)
	}
	m, err := DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", version, err)
	}

	set := &Set{Version: version, Tag: m.Tag, Generator: m.Generator, Files: map[string][]byte{}}
	for _, f := range m.Files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Name)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", version, err)
		}
		set.Files[f.Name] = data
	}
	if err := m.Verify(set.Files); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *FSStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Reset removes the version directories below Root. Other files are kept.
func (s *FSStore) Reset() error {
	names, err := s.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := semver.StrictNewVersion(name); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Root, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		s.logger.Debug("Removed artifact set", "version", name)
	}
	return nil
}

// MemStore keeps sets in memory. It encodes and verifies manifests exactly
// like FSStore.
type MemStore struct {
	sets      map[string]map[string][]byte
	manifests map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sets: map[string]map[string][]byte{}, manifests: map[string][]byte{}}
}

func (s *MemStore) Write(set *Set) error {
	manifest, err := set.Manifest().Encode()
	if err != nil {
		return err
	}
	files := make(map[string][]byte, len(set.Files))
	for name, data := range set.Files {
		files[path.Clean(name)] = append([]byte(nil), data...)
	}
	s.sets[set.Version.String()] = files
	s.manifests[set.Version.String()] = manifest
	return nil
}

func (s *MemStore) Read(version *semver.Version) (*Set, error) {
	files, ok := s.sets[version.String()]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", version, ErrNotFound)
	}
	m, err := DecodeManifest(s.manifests[version.String()])
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", version, err)
	}
	if err := m.Verify(files); err != nil {
		return nil, err
	}
	set := &Set{Version: version, Tag: m.Tag, Generator: m.Generator, Files: map[string][]byte{}}
	for name, data := range files {
		set.Files[name] = append([]byte(nil), data...)
	}
	return set, nil
}

func (s *MemStore) Names() ([]string, error) {
	names := make([]string, 0, len(s.sets))
	for n := range s.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemStore) Reset() error {
	s.sets = map[string]map[string][]byte{}
	s.manifests = map[string][]byte{}
	return nil
}
