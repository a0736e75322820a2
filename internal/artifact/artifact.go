// Package artifact persists the generated files of each libcamera release as
// a versioned artifact set, guarded by a manifest of blake2b digests.
package artifact

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	toml "github.com/pelletier/go-toml"
	"github.com/samber/lo"
	"golang.org/x/crypto/blake2b"
)

// ManifestFile is the name of the manifest inside every set directory.
const ManifestFile = "manifest.toml"

// SourcesDir holds copies of the raw inputs a set was generated from.
const SourcesDir = "sources"

// Set is the output for one release. File names are slash separated and
// relative to the set directory.
type Set struct {
	Version   *semver.Version
	Tag       string
	Generator string
	Files     map[string][]byte
}

// NewSet returns an empty set for version.
func NewSet(version *semver.Version, tag string) *Set {
	return &Set{Version: version, Tag: tag, Files: map[string][]byte{}}
}

// Add stores a file in the set, replacing any previous content.
func (s *Set) Add(name string, data []byte) {
	s.Files[name] = data
}

// Names returns the file names in sorted order.
func (s *Set) Names() []string {
	names := lo.Keys(s.Files)
	sort.Strings(names)
	return names
}

// Manifest describes a stored set.
type Manifest struct {
	Version   string       `toml:"version"`
	Tag       string       `toml:"tag"`
	Generator string       `toml:"generator"`
	Files     []FileDigest `toml:"file"`
}

// FileDigest is the blake2b-256 digest of one file, hex encoded.
type FileDigest struct {
	Name    string `toml:"name"`
	Blake2b string `toml:"blake2b"`
}

// Manifest computes the manifest of the set. Files are listed in name order.
func (s *Set) Manifest() Manifest {
	m := Manifest{Version: s.Version.String(), Tag: s.Tag, Generator: s.Generator}
	for _, name := range s.Names() {
		m.Files = append(m.Files, FileDigest{Name: name, Blake2b: Digest(s.Files[name])})
	}
	return m
}

// Digest returns the hex encoded blake2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encode renders the manifest as TOML.
func (m Manifest) Encode() ([]byte, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses a manifest.toml.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// IntegrityError reports a stored file whose content does not match the
// manifest.
type IntegrityError struct {
	Version string
	File    string
	Want    string
	Got     string
}

func (e *IntegrityError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("artifact %s/%s: file listed in manifest is missing", e.Version, e.File)
	}
	return fmt.Sprintf("artifact %s/%s: digest mismatch (manifest %s, content %s)", e.Version, e.File, e.Want, e.Got)
}

// Verify checks every file listed in m against files.
func (m Manifest) Verify(files map[string][]byte) error {
	for _, f := range m.Files {
		data, ok := files[f.Name]
		if !ok {
			return &IntegrityError{Version: m.Version, File: f.Name, Want: f.Blake2b}
		}
		if got := Digest(data); got != f.Blake2b {
			return &IntegrityError{Version: m.Version, File: f.Name, Want: f.Blake2b, Got: got}
		}
	}
	return nil
}
