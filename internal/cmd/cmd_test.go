package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/camerameta/internal/codegen/generator/golang"
	"github.com/Alia5/camerameta/internal/resolve"
	"github.com/Alia5/camerameta/internal/resolve/pkgconfig"
	th "github.com/Alia5/camerameta/internal/testing"
)

func TestConfigTemplate(t *testing.T) {
	root, err := ConfigTemplate("harvest")
	require.NoError(t, err)

	assert.Equal(t, "https://git.libcamera.org/libcamera/libcamera.git", root["repo_url"])
	assert.Equal(t, "/usr/include/drm/drm_fourcc.h", root["drm_header"])
	assert.Equal(t, "0.4.0", root["floor"])
	assert.Equal(t, `#include "camerameta_ids.h"`, root["native_header"])
	assert.Equal(t, false, root["keep_going"])
	assert.Equal(t, map[string]any{"level": "info", "file": ""}, root["log"])

	root, err = ConfigTemplate("resolve")
	require.NoError(t, err)
	assert.Equal(t, "exact", root["policy"])
	assert.Equal(t, "", root["runtime_version"])
	assert.NotContains(t, root, "probe")

	_, err = ConfigTemplate("server")
	assert.Error(t, err)
}

func TestConfigInitFormats(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			dest := filepath.Join(dir, "resolve."+format)
			require.NoError(t, (&ConfigInit{Command: "resolve", Format: format, Output: dest}).Run())

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Contains(t, string(data), "versions_dir")

			var decoded map[string]any
			switch format {
			case "json":
				require.NoError(t, json.Unmarshal(data, &decoded))
			case "yaml":
				require.NoError(t, yaml.Unmarshal(data, &decoded))
			default:
				return
			}
			assert.Equal(t, "./versioned_files", decoded["versions_dir"])
		})
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "harvest.json")
	require.NoError(t, os.WriteFile(dest, []byte("{}"), 0o644))

	err := (&ConfigInit{Command: "harvest", Format: "json", Output: dest}).Run()
	assert.ErrorContains(t, err, "--force")

	require.NoError(t, (&ConfigInit{Command: "harvest", Format: "json", Output: dest, Force: true}).Run())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "repo_url")
}

// harvestSourceTree runs the harvest command over the fixture tree.
func harvestSourceTree(t *testing.T, version string) string {
	t.Helper()
	src := t.TempDir()
	th.WriteTree(t, src, th.SourceTree())
	headers := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(headers, "drm_fourcc.h"), []byte(th.DRMHeader), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(headers, "videodev2.h"), []byte(th.VideodevHeader), 0o644))

	out := filepath.Join(t.TempDir(), "versioned_files")
	h := &Harvest{
		SourceDir:      src,
		SourceVersion:  version,
		Output:         out,
		Floor:          "0.4.0",
		DRMHeader:      filepath.Join(headers, "drm_fourcc.h"),
		VideodevHeader: filepath.Join(headers, "videodev2.h"),
		Package:        "libcamera",
		NativeHeader:   `#include "camerameta_ids.h"`,
	}
	require.NoError(t, h.Run(th.Logger(t)))
	return out
}

func TestHarvestSourceDir(t *testing.T) {
	out := harvestSourceTree(t, "0.5.2")

	for _, name := range golang.VersionedFiles {
		assert.FileExists(t, filepath.Join(out, "0.5.2", name))
	}
	assert.FileExists(t, filepath.Join(out, "0.5.2", "manifest.toml"))
	assert.FileExists(t, filepath.Join(out, "0.5.2", "sources", "formats.cpp"))
}

func TestHarvestFlagErrors(t *testing.T) {
	err := (&Harvest{Floor: "nope"}).Run(th.Logger(t))
	assert.ErrorContains(t, err, "invalid floor")

	err = (&Harvest{Floor: "0.4.0", SourceDir: t.TempDir()}).Run(th.Logger(t))
	assert.ErrorContains(t, err, "--source-version")
}

func TestResolveCommand(t *testing.T) {
	versions := harvestSourceTree(t, "0.5.2")
	include := t.TempDir()
	th.WriteTree(t, include, th.IncludeTree())
	out := t.TempDir()

	r := &Resolve{
		VersionsDir:    versions,
		Out:            out,
		Policy:         "caret",
		RuntimeVersion: "0.5.3",
		IncludeDir:     include,
		Package:        "libcamera",
		probe: func(...string) (*pkgconfig.Library, error) {
			t.Fatal("pkg-config must not run when both flags are set")
			return nil, nil
		},
	}
	require.NoError(t, r.Run(th.Logger(t)))

	names := append([]string{golang.FileVendorFeatures, golang.FileFormats}, golang.VersionedFiles...)
	for _, name := range names {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestResolveCommandProbes(t *testing.T) {
	versions := harvestSourceTree(t, "0.5.2")
	include := t.TempDir()
	th.WriteTree(t, include, th.IncludeTree())

	r := &Resolve{
		VersionsDir: versions,
		Out:         t.TempDir(),
		Policy:      "exact",
		Package:     "libcamera",
		probe: func(...string) (*pkgconfig.Library, error) {
			return &pkgconfig.Library{Name: "libcamera", Version: th.MustVersion(t, "0.5.2"), IncludeDirs: []string{include}}, nil
		},
	}
	require.NoError(t, r.Run(th.Logger(t)))

	r.probe = func(...string) (*pkgconfig.Library, error) {
		return &pkgconfig.Library{Name: "libcamera", Version: th.MustVersion(t, "0.6.0"), IncludeDirs: []string{include}}, nil
	}
	err := r.Run(th.Logger(t))
	var nm *resolve.NoMatchError
	assert.True(t, errors.As(err, &nm), "got %v", err)

	r.probe = func(...string) (*pkgconfig.Library, error) { return nil, errors.New("Package libcamera was not found") }
	assert.ErrorContains(t, r.Run(th.Logger(t)), "--include-dir")
}

func TestVersionsCommand(t *testing.T) {
	color.NoColor = true
	versions := harvestSourceTree(t, "0.5.2")

	var buf bytes.Buffer
	v := &Versions{VersionsDir: versions, Runtime: "0.5.2", Policy: "exact", out: &buf}
	require.NoError(t, v.Run(th.Logger(t)))

	text := buf.String()
	assert.Contains(t, text, "0.5.2")
	assert.Contains(t, text, "v0.5.2")
	assert.Contains(t, text, "selected")
	assert.Contains(t, text, "ok")

	require.NoError(t, os.WriteFile(filepath.Join(versions, "0.5.2", golang.FileControls), []byte("x"), 0o644))
	buf.Reset()
	require.NoError(t, v.Run(th.Logger(t)))
	assert.Contains(t, buf.String(), "corrupt: controls.go")
}

func TestVersionsCommandEmpty(t *testing.T) {
	var buf bytes.Buffer
	v := &Versions{VersionsDir: t.TempDir(), Policy: "exact", out: &buf}
	require.NoError(t, v.Run(th.Logger(t)))
	assert.Empty(t, buf.String())
}
