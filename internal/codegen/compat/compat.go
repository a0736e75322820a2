// Package compat parses libcamera release versions and decides which harvested
// release is usable with a given installed library.
package compat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Sentinel is the version of the empty, untagged repository state.
var Sentinel = semver.New(0, 0, 0, "", "")

// DefaultFloor is the oldest release whose control schema is still compatible.
var DefaultFloor = semver.New(0, 4, 0, "", "")

// ParseTag extracts a version from a tag name such as "refs/tags/v0.5.2" or
// "v0.5.2". Only the trailing path segment is considered and it must be
// "v" followed by a strict semantic version.
func ParseTag(tag string) (*semver.Version, bool) {
	name := tag
	if idx := strings.LastIndexByte(tag, '/'); idx >= 0 {
		name = tag[idx+1:]
	}
	rest, ok := strings.CutPrefix(name, "v")
	if !ok {
		return nil, false
	}
	v, err := semver.StrictNewVersion(rest)
	if err != nil {
		return nil, false
	}
	return v, true
}

// ParseVersion parses a bare version string such as a directory name or the
// version reported by pkg-config.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}
	return v, nil
}

// Accept reports whether a harvested version is eligible for generation.
func Accept(v, floor *semver.Version) bool {
	if v.Equal(Sentinel) {
		return false
	}
	return floor == nil || !v.LessThan(floor)
}

// Policy selects how a harvested version is matched against the runtime one.
type Policy string

const (
	// Exact requires identical major, minor and patch.
	Exact Policy = "exact"
	// Caret accepts any runtime in [candidate, next-breaking(candidate)).
	Caret Policy = "caret"
)

// ParsePolicy accepts "exact" or "caret" case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case Exact, Caret:
		return p, nil
	default:
		return "", fmt.Errorf("unknown compatibility policy %q (expected exact or caret)", s)
	}
}

// NextBreaking is the first version that is not caret-compatible with v.
// For 0.x releases the minor number is bumped, otherwise the major.
func NextBreaking(v *semver.Version) *semver.Version {
	if v.Major() == 0 {
		return semver.New(0, v.Minor()+1, 0, "", "")
	}
	return semver.New(v.Major()+1, 0, 0, "", "")
}

// Matches reports whether candidate may be used with runtime.
func (p Policy) Matches(candidate, runtime *semver.Version) bool {
	switch p {
	case Exact:
		return candidate.Major() == runtime.Major() &&
			candidate.Minor() == runtime.Minor() &&
			candidate.Patch() == runtime.Patch()
	case Caret:
		return !runtime.LessThan(candidate) && runtime.LessThan(NextBreaking(candidate))
	default:
		return false
	}
}

// Sort orders versions ascending in place.
func Sort(vs []*semver.Version) {
	sort.Sort(semver.Collection(vs))
}
