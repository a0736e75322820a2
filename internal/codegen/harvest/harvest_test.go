package harvest_test

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/camerameta/internal/codegen/harvest"
	th "github.com/Alia5/camerameta/internal/testing"
)

func TestHarvestFiltersAndSorts(t *testing.T) {
	tree := th.SourceTree()
	repo := harvest.FSRepository{
		"refs/tags/v0.0.0":       tree,
		"refs/tags/v0.3.2":       tree,
		"refs/tags/v0.5.2":       tree,
		"refs/tags/v0.4.0":       tree,
		"refs/tags/v1.0.0":       tree,
		"refs/tags/release-1.1":  tree,
		"refs/tags/v0.5.2-rc1":   tree,
		"refs/tags/weird/v0.6.0": tree,
	}

	h := harvest.New(th.Logger(t))
	bundles, err := h.Harvest(repo)
	require.NoError(t, err)

	var got []string
	for _, b := range bundles {
		got = append(got, b.Version.String())
	}
	assert.Equal(t, []string{"0.4.0", "0.5.2-rc1", "0.5.2", "0.6.0", "1.0.0"}, got)
}

func TestHarvestBundleContents(t *testing.T) {
	repo := harvest.FSRepository{"refs/tags/v0.5.2": th.SourceTree()}

	bundles, err := harvest.New(th.Logger(t)).Harvest(repo)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	b := bundles[0]
	assert.Equal(t, "0.5.2", b.Version.String())
	assert.Equal(t, "refs/tags/v0.5.2", b.Tag)

	var controls, properties []string
	for _, f := range b.Controls {
		controls = append(controls, f.Name)
	}
	for _, f := range b.Properties {
		properties = append(properties, f.Name)
	}
	assert.Equal(t, []string{"control_ids_core.yaml", "control_ids_rpi.yaml"}, controls)
	assert.Equal(t, []string{"property_ids_core.yaml"}, properties)
	assert.Equal(t, th.FormatsYAML, string(b.FormatsYAML))
	assert.Equal(t, th.FormatsCPP, string(b.FormatsCPP))
	assert.Equal(t, th.LocalDRMHeader, string(b.LocalDRMHeader))
}

func TestHarvestDuplicateVersionKeepsFirstTag(t *testing.T) {
	first := th.SourceTree()
	second := th.SourceTree()
	second["src/libcamera/formats.yaml"] = &fstest.MapFile{Data: []byte("formats: []\n")}

	repo := harvest.FSRepository{
		"refs/tags/a/v0.5.0": first,
		"refs/tags/b/v0.5.0": second,
	}
	bundles, err := harvest.New(th.Logger(t)).Harvest(repo)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "refs/tags/a/v0.5.0", bundles[0].Tag)
	assert.Equal(t, th.FormatsYAML, string(bundles[0].FormatsYAML))
}

func TestHarvestCustomFloor(t *testing.T) {
	repo := harvest.FSRepository{
		"v0.3.0": th.SourceTree(),
		"v0.4.0": th.SourceTree(),
	}
	h := harvest.New(th.Logger(t))
	h.Floor = th.MustVersion(t, "0.1.0")

	bundles, err := h.Harvest(repo)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "0.3.0", bundles[0].Version.String())
}

func TestHarvestMissingFiles(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{name: "no catalogue", remove: "src/libcamera/formats.yaml"},
		{name: "no layout", remove: "src/libcamera/formats.cpp"},
		{name: "no control schema", remove: "src/libcamera/control_ids_core.yaml"},
		{name: "no property schema", remove: "src/libcamera/property_ids_core.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := th.SourceTree()
			delete(tree, tt.remove)
			if tt.remove == "src/libcamera/control_ids_core.yaml" {
				delete(tree, "src/libcamera/control_ids_rpi.yaml")
			}

			_, err := harvest.New(th.Logger(t)).Harvest(harvest.FSRepository{"v0.5.0": tree})
			require.Error(t, err)
			assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
			assert.Contains(t, err.Error(), "0.5.0")
		})
	}
}

func TestHarvestLocalHeaderOptional(t *testing.T) {
	tree := th.SourceTree()
	delete(tree, "include/linux/drm_fourcc.h")

	bundles, err := harvest.New(th.Logger(t)).Harvest(harvest.FSRepository{"v0.5.0": tree})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Nil(t, bundles[0].LocalDRMHeader)
}

func TestHarvestNoTags(t *testing.T) {
	bundles, err := harvest.New(th.Logger(t)).Harvest(harvest.FSRepository{})
	require.NoError(t, err)
	assert.Empty(t, bundles)
}

func TestFSRepositoryUnknownTag(t *testing.T) {
	_, err := harvest.FSRepository{}.Checkout("v1.0.0")
	assert.Error(t, err)
}

func TestHarvestKeepGoing(t *testing.T) {
	broken := th.SourceTree()
	delete(broken, "src/libcamera/formats.yaml")
	repo := harvest.FSRepository{"v0.5.0": broken, "v0.5.1": th.SourceTree()}

	_, err := harvest.New(th.Logger(t)).Harvest(repo)
	require.Error(t, err)

	h := harvest.New(th.Logger(t))
	h.KeepGoing = true
	bundles, err := h.Harvest(repo)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "0.5.1", bundles[0].Version.String())
	assert.Equal(t, "v0.5.1", bundles[0].Tag)
}
