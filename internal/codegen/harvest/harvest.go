// Package harvest walks the tags of a libcamera repository and collects, for
// every compatible release, the raw schema and format files the normalizer
// consumes.
package harvest

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/Alia5/camerameta/internal/codegen/compat"
)

// Paths locates the harvested files inside a source tree.
type Paths struct {
	SchemaDir      string
	ControlPrefix  string
	PropertyPrefix string
	SchemaExt      string
	Catalogue      string
	Layout         string
	// LocalDRMHeader is optional; older trees do not ship one.
	LocalDRMHeader string
}

// DefaultPaths matches the libcamera source layout.
func DefaultPaths() Paths {
	return Paths{
		SchemaDir:      "src/libcamera",
		ControlPrefix:  "control_ids",
		PropertyPrefix: "property_ids",
		SchemaExt:      ".yaml",
		Catalogue:      "src/libcamera/formats.yaml",
		Layout:         "src/libcamera/formats.cpp",
		LocalDRMHeader: "include/linux/drm_fourcc.h",
	}
}

// RawFile is one harvested file, named by its base name.
type RawFile struct {
	Name string
	Data []byte
}

// Bundle is the raw material of one release.
type Bundle struct {
	Version *semver.Version
	Tag     string
	// Controls and Properties are sorted by file name.
	Controls       []RawFile
	Properties     []RawFile
	FormatsYAML    []byte
	FormatsCPP     []byte
	LocalDRMHeader []byte
}

// Harvester extracts bundles from a repository.
type Harvester struct {
	Paths Paths
	Floor *semver.Version
	// KeepGoing skips a version whose files cannot be read instead of
	// failing the whole harvest.
	KeepGoing bool

	logger *slog.Logger
}

// New returns a harvester using the default paths and floor.
func New(logger *slog.Logger) *Harvester {
	return &Harvester{
		Paths:  DefaultPaths(),
		Floor:  compat.DefaultFloor,
		logger: logger,
	}
}

// Harvest reads one bundle per eligible tag and returns them in ascending
// version order. When two tags name the same version the first one in tag
// order wins.
func (h *Harvester) Harvest(repo Repository) ([]Bundle, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	sort.Strings(tags)

	type pick struct {
		tag     string
		version *semver.Version
	}
	var picks []pick
	seen := map[string]string{}
	for _, tag := range tags {
		v, ok := compat.ParseTag(tag)
		if !ok {
			h.logger.Debug("Skipping non-version tag", "tag", tag)
			continue
		}
		if !compat.Accept(v, h.Floor) {
			h.logger.Info("Skipping unsupported version", "version", v.String(), "tag", tag)
			continue
		}
		if prev, dup := seen[v.String()]; dup {
			h.logger.Warn("Duplicate version tag ignored", "version", v.String(), "tag", tag, "kept", prev)
			continue
		}
		seen[v.String()] = tag
		picks = append(picks, pick{tag: tag, version: v})
	}
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].version.LessThan(picks[j].version) })

	bundles := make([]Bundle, 0, len(picks))
	for _, p := range picks {
		h.logger.Info("Extracting files", "version", p.version.String(), "tag", p.tag)
		snap, err := repo.Checkout(p.tag)
		if err != nil {
			return nil, fmt.Errorf("checkout %s: %w", p.tag, err)
		}
		b, err := h.Extract(snap, p.version)
		if err != nil {
			if h.KeepGoing {
				h.logger.Warn("Skipping version", "version", p.version.String(), "tag", p.tag, "error", err)
				continue
			}
			return nil, fmt.Errorf("version %s: %w", p.version, err)
		}
		b.Tag = p.tag
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// Extract reads a bundle out of a single snapshot.
func (h *Harvester) Extract(snap Snapshot, version *semver.Version) (Bundle, error) {
	b := Bundle{Version: version}

	names, err := snap.ReadDir(h.Paths.SchemaDir)
	if err != nil {
		return b, fmt.Errorf("list %s: %w", h.Paths.SchemaDir, err)
	}
	sort.Strings(names)

	if b.Controls, err = h.schemaFiles(snap, names, h.Paths.ControlPrefix); err != nil {
		return b, err
	}
	if b.Properties, err = h.schemaFiles(snap, names, h.Paths.PropertyPrefix); err != nil {
		return b, err
	}
	if b.FormatsYAML, err = snap.ReadFile(h.Paths.Catalogue); err != nil {
		return b, fmt.Errorf("read %s: %w", h.Paths.Catalogue, err)
	}
	if b.FormatsCPP, err = snap.ReadFile(h.Paths.Layout); err != nil {
		return b, fmt.Errorf("read %s: %w", h.Paths.Layout, err)
	}

	if h.Paths.LocalDRMHeader != "" {
		b.LocalDRMHeader, err = snap.ReadFile(h.Paths.LocalDRMHeader)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return b, fmt.Errorf("read %s: %w", h.Paths.LocalDRMHeader, err)
		}
	}
	return b, nil
}

func (h *Harvester) schemaFiles(snap Snapshot, names []string, prefix string) ([]RawFile, error) {
	var files []RawFile
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || path.Ext(name) != h.Paths.SchemaExt {
			continue
		}
		p := path.Join(h.Paths.SchemaDir, name)
		data, err := snap.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, RawFile{Name: name, Data: data})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s*%s files in %s: %w", prefix, h.Paths.SchemaExt, h.Paths.SchemaDir, ErrNotFound)
	}
	return files, nil
}
