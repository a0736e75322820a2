package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/Alia5/camerameta/internal/artifact"
	"github.com/Alia5/camerameta/internal/codegen/compat"
	"github.com/Alia5/camerameta/internal/resolve"
	"github.com/Alia5/camerameta/internal/resolve/pkgconfig"
)

type Resolve struct {
	VersionsDir    string `help:"Artifact store written by harvest" default:"./versioned_files" env:"CAMERAMETA_VERSIONS_DIR"`
	Out            string `help:"Directory of the binding package receiving the files" default:"." env:"CAMERAMETA_OUT"`
	Policy         string `help:"Version matching policy" default:"exact" enum:"exact,caret" env:"CAMERAMETA_POLICY"`
	RuntimeVersion string `help:"Installed libcamera version; probed with pkg-config when empty" env:"CAMERAMETA_RUNTIME_VERSION"`
	IncludeDir     string `help:"Installed libcamera include directory; probed with pkg-config when empty" env:"CAMERAMETA_INCLUDE_DIR"`
	Package        string `help:"Package clause of the generated files" default:"libcamera" env:"CAMERAMETA_PACKAGE"`

	probe func(names ...string) (*pkgconfig.Library, error) `kong:"-"`
}

// Run is called by Kong when the resolve command is executed.
func (r *Resolve) Run(logger *slog.Logger) error {
	policy, err := compat.ParsePolicy(r.Policy)
	if err != nil {
		return err
	}
	runtime, includeDir, err := r.installed(logger)
	if err != nil {
		return err
	}

	res := resolve.New(logger)
	res.Policy = policy
	res.Emitter.Package = r.Package

	store := artifact.NewFSStore(r.VersionsDir, logger)
	selected, err := res.Resolve(store, runtime, r.Out)
	if err != nil {
		return err
	}
	if err := res.Installed(includeDir, r.Out); err != nil {
		return err
	}
	logger.Info("Resolved libcamera metadata", "runtime", runtime.String(), "selected", selected.String(), "out", r.Out)
	return nil
}

// installed returns the runtime version and include directory, asking
// pkg-config only for what the flags leave unset.
func (r *Resolve) installed(logger *slog.Logger) (*semver.Version, string, error) {
	var runtime *semver.Version
	if r.RuntimeVersion != "" {
		v, err := semver.NewVersion(r.RuntimeVersion)
		if err != nil {
			return nil, "", fmt.Errorf("invalid runtime version: %w", err)
		}
		runtime = v
	}
	includeDir := r.IncludeDir
	if runtime != nil && includeDir != "" {
		return runtime, includeDir, nil
	}

	probe := r.probe
	if probe == nil {
		probe = pkgconfig.Probe
	}
	lib, err := probe()
	if err != nil {
		return nil, "", fmt.Errorf("locate libcamera (set --runtime-version and --include-dir to skip pkg-config): %w", err)
	}
	logger.Info("Found libcamera", "module", lib.Name, "version", lib.Version.String(), "include", lib.IncludeDirs)
	if runtime == nil {
		runtime = lib.Version
	}
	if includeDir == "" {
		includeDir = lib.IncludeDir()
	}
	if includeDir == "" {
		return nil, "", errors.New("pkg-config reported no include directory; set --include-dir")
	}
	return runtime, includeDir, nil
}
