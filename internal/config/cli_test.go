package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/camerameta/internal/config"
)

func parse(t *testing.T, args []string, opts ...kong.Option) (*config.CLI, *kong.Context) {
	t.Helper()
	var cli config.CLI
	parser, err := kong.New(&cli, append([]kong.Option{kong.Name("camerameta")}, opts...)...)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestCLIDefaults(t *testing.T) {
	cli, ctx := parse(t, []string{"harvest"})

	assert.Equal(t, "harvest", ctx.Command())
	assert.Equal(t, "0.4.0", cli.Harvest.Floor)
	assert.Equal(t, "./versioned_files", cli.Harvest.Output)
	assert.Equal(t, "/usr/include/drm/drm_fourcc.h", cli.Harvest.DRMHeader)
	assert.Equal(t, "info", cli.Log.Level)
	assert.False(t, cli.Harvest.KeepGoing)
}

func TestCLIFlags(t *testing.T) {
	cli, ctx := parse(t, []string{"--log.level=debug", "resolve", "--policy=caret", "--runtime-version=0.5.2"})

	assert.Equal(t, "resolve", ctx.Command())
	assert.Equal(t, "debug", cli.Log.Level)
	assert.Equal(t, "caret", cli.Resolve.Policy)
	assert.Equal(t, "0.5.2", cli.Resolve.RuntimeVersion)
}

func TestCLIRejectsUnknownPolicy(t *testing.T) {
	var cli config.CLI
	parser, err := kong.New(&cli)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"resolve", "--policy=tilde"})
	assert.Error(t, err)
}

func TestCLIConfigFiles(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "harvest.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
  "keep_going": true,
  "drm_header": "/opt/drm_fourcc.h",
  "log": {"level": "warn"}
}`), 0o644))
	cli, _ := parse(t, []string{"harvest"}, kong.Configuration(kong.JSON, jsonPath))
	assert.True(t, cli.Harvest.KeepGoing)
	assert.Equal(t, "/opt/drm_fourcc.h", cli.Harvest.DRMHeader)
	assert.Equal(t, "warn", cli.Log.Level)

	// Flags win over the file.
	cli, _ = parse(t, []string{"harvest", "--drm-header=/tmp/drm.h"}, kong.Configuration(kong.JSON, jsonPath))
	assert.Equal(t, "/tmp/drm.h", cli.Harvest.DRMHeader)

	yamlPath := filepath.Join(dir, "resolve.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("policy: caret\nversions_dir: /srv/versions\n"), 0o644))
	cli, _ = parse(t, []string{"resolve"}, kong.Configuration(kongyaml.Loader, yamlPath))
	assert.Equal(t, "caret", cli.Resolve.Policy)
	assert.Equal(t, "/srv/versions", cli.Resolve.VersionsDir)
}
