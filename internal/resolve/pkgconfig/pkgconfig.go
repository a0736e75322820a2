// Package pkgconfig locates an installed libcamera through pkg-config.
package pkgconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultNames are tried in order. Older releases ship the module as "camera".
var DefaultNames = []string{"libcamera", "camera"}

// Library is what pkg-config reports for a module.
type Library struct {
	Name        string
	Version     *semver.Version
	IncludeDirs []string
}

// IncludeDir returns the first include directory, or "" if there is none.
func (l *Library) IncludeDir() string {
	if len(l.IncludeDirs) == 0 {
		return ""
	}
	return l.IncludeDirs[0]
}

// Runner executes pkg-config with args and returns its standard output.
type Runner func(args ...string) ([]byte, error)

// Exec runs the pkg-config binary from PATH.
func Exec(args ...string) ([]byte, error) {
	out, err := exec.Command("pkg-config", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("pkg-config %s: %s", strings.Join(args, " "), bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("pkg-config %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Probe queries pkg-config for the first of names that is installed. With
// no names, DefaultNames are used. The error of the first name is returned
// when none is found.
func Probe(names ...string) (*Library, error) {
	return ProbeWith(Exec, names...)
}

// ProbeWith is Probe with a custom runner.
func ProbeWith(run Runner, names ...string) (*Library, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	var firstErr error
	for _, name := range names {
		lib, err := probe(run, name)
		if err == nil {
			return lib, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func probe(run Runner, name string) (*Library, error) {
	out, err := run("--modversion", name)
	if err != nil {
		return nil, err
	}
	version, err := semver.NewVersion(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("bad version from pkg-config for %s: %w", name, err)
	}

	out, err = run("--cflags-only-I", name)
	if err != nil {
		return nil, err
	}
	lib := &Library{Name: name, Version: version}
	for _, f := range strings.Fields(string(out)) {
		if dir, ok := strings.CutPrefix(f, "-I"); ok && dir != "" {
			lib.IncludeDirs = append(lib.IncludeDirs, dir)
		}
	}
	return lib, nil
}
