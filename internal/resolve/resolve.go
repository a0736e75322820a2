// Package resolve picks the stored artifact set matching an installed
// libcamera and copies it, together with the files derived from the
// installed headers, into a binding package.
package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"

	"github.com/Alia5/camerameta/internal/artifact"
	"github.com/Alia5/camerameta/internal/codegen/compat"
	"github.com/Alia5/camerameta/internal/codegen/generator/golang"
	"github.com/Alia5/camerameta/internal/codegen/scanner"
)

// Installed header locations relative to the include directory.
const (
	ControlIDsHeader = "libcamera/control_ids.h"
	FormatsHeader    = "libcamera/formats.h"
)

// NoMatchError is returned when no stored version is compatible with the
// runtime version.
type NoMatchError struct {
	Runtime    *semver.Version
	Policy     compat.Policy
	Candidates []*semver.Version
}

func (e *NoMatchError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("unsupported libcamera version %s: no artifact sets available", e.Runtime)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "unsupported libcamera version %s (policy %s)\nsupported versions are:", e.Runtime, e.Policy)
	for _, c := range e.Candidates {
		b.WriteString("\n\t")
		b.WriteString(c.String())
	}
	return b.String()
}

// Candidates parses version directory names, drops the ones that are not
// versions and returns the rest ascending.
func Candidates(names []string) []*semver.Version {
	out := lo.FilterMap(names, func(name string, _ int) (*semver.Version, bool) {
		v, err := compat.ParseVersion(name)
		return v, err == nil
	})
	compat.Sort(out)
	return out
}

// Select returns the highest candidate compatible with runtime under policy.
func Select(runtime *semver.Version, candidates []*semver.Version, policy compat.Policy) (*semver.Version, error) {
	matching := lo.Filter(candidates, func(c *semver.Version, _ int) bool {
		return policy.Matches(c, runtime)
	})
	if len(matching) == 0 {
		return nil, &NoMatchError{Runtime: runtime, Policy: policy, Candidates: candidates}
	}
	return lo.MaxBy(matching, func(a, b *semver.Version) bool {
		return a.GreaterThan(b)
	}), nil
}

// Resolver copies the artifact set for an installed libcamera.
type Resolver struct {
	Policy  compat.Policy
	Emitter *golang.Emitter

	logger *slog.Logger
}

// New returns a resolver using the Exact policy.
func New(logger *slog.Logger) *Resolver {
	return &Resolver{
		Policy:  compat.Exact,
		Emitter: golang.New(logger),
		logger:  logger,
	}
}

// Resolve selects the set matching runtime, verifies it and copies its
// generated files into out. It returns the selected version.
func (r *Resolver) Resolve(store artifact.Store, runtime *semver.Version, out string) (*semver.Version, error) {
	names, err := store.Names()
	if err != nil {
		return nil, fmt.Errorf("list artifact sets: %w", err)
	}
	candidates := Candidates(names)
	r.logger.Debug("Found artifact sets", "count", len(candidates))

	selected, err := Select(runtime, candidates, r.Policy)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Selected artifact set", "runtime", runtime.String(), "selected", selected.String(), "policy", string(r.Policy))

	set, err := store.Read(selected)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	for _, name := range golang.VersionedFiles {
		data, ok := set.Files[name]
		if !ok {
			return nil, fmt.Errorf("artifact %s: %s: %w", selected, name, artifact.ErrNotFound)
		}
		if err := writeFile(out, name, data); err != nil {
			return nil, err
		}
		r.logger.Info("Copied file", "file", filepath.Join(out, name))
	}
	return selected, nil
}

// Installed scans the installed control_ids.h and formats.h below includeDir
// and writes vendor_features.go and formats.go into out. Both headers are
// required.
func (r *Resolver) Installed(includeDir, out string) error {
	controlIDs, err := os.ReadFile(filepath.Join(includeDir, filepath.FromSlash(ControlIDsHeader)))
	if err != nil {
		return fmt.Errorf("read installed header: %w", err)
	}
	formatsHeader, err := os.ReadFile(filepath.Join(includeDir, filepath.FromSlash(FormatsHeader)))
	if err != nil {
		return fmt.Errorf("read installed header: %w", err)
	}

	flags := scanner.FeatureFlags(controlIDs)
	r.logger.Info("Found vendor features", "count", len(flags), "features", flags)
	features, err := r.Emitter.VendorFeatures(flags)
	if err != nil {
		return err
	}

	consts, err := scanner.InstalledFormats(formatsHeader)
	if err != nil {
		return fmt.Errorf("%s: %w", FormatsHeader, err)
	}
	r.logger.Info("Found installed pixel formats", "count", len(consts))
	formats, err := r.Emitter.FormatConstants(consts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFile(out, golang.FileVendorFeatures, features); err != nil {
		return err
	}
	if err := writeFile(out, golang.FileFormats, formats); err != nil {
		return err
	}
	r.logger.Info("Generated installed files", "dir", out)
	return nil
}

func writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
