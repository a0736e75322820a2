package harvest_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/camerameta/internal/codegen/harvest"
	th "github.com/Alia5/camerameta/internal/testing"
)

// initRepo creates a repository holding the fixture tree with a lightweight
// tag v0.5.2 and an annotated tag v0.6.0 on the same commit.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	th.WriteTree(t, dir, th.SourceTree())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)}
	hash, err := wt.Commit("import", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	_, err = repo.CreateTag("v0.5.2", hash, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("v0.6.0", hash, &git.CreateTagOptions{Tagger: sig, Message: "v0.6.0"})
	require.NoError(t, err)
	_, err = repo.CreateTag("v0.0.0", hash, nil)
	require.NoError(t, err)
	return dir
}

func TestGitRepositoryHarvest(t *testing.T) {
	dir := initRepo(t)

	// No origin remote: the fetch fails and the local tags are used.
	repo, err := harvest.OpenOrClone(dir, "https://invalid.example/libcamera.git", th.Logger(t))
	require.NoError(t, err)

	tags, err := repo.Tags()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"refs/tags/v0.0.0", "refs/tags/v0.5.2", "refs/tags/v0.6.0"}, tags)

	bundles, err := harvest.New(th.Logger(t)).Harvest(repo)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "0.5.2", bundles[0].Version.String())
	assert.Equal(t, "refs/tags/v0.6.0", bundles[1].Tag)
	assert.Equal(t, th.FormatsYAML, string(bundles[1].FormatsYAML))
	assert.Equal(t, th.LocalDRMHeader, string(bundles[1].LocalDRMHeader))
}

func TestGitRepositoryCheckout(t *testing.T) {
	repo, err := harvest.OpenOrClone(initRepo(t), "", th.Logger(t))
	require.NoError(t, err)

	for _, tag := range []string{"refs/tags/v0.5.2", "refs/tags/v0.6.0"} {
		snap, err := repo.Checkout(tag)
		require.NoError(t, err, tag)

		names, err := snap.ReadDir("src/libcamera")
		require.NoError(t, err)
		assert.Contains(t, names, "control_ids_core.yaml")

		_, err = snap.ReadFile("src/libcamera/missing.yaml")
		assert.True(t, errors.Is(err, harvest.ErrNotFound), "got %v", err)
		_, err = snap.ReadDir("src/missing")
		assert.True(t, errors.Is(err, harvest.ErrNotFound), "got %v", err)
	}

	_, err = repo.Checkout("refs/tags/v9.9.9")
	assert.Error(t, err)
}

func TestOpenOrCloneFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "clone")
	_, err := harvest.OpenOrClone(dest, filepath.Join(t.TempDir(), "does-not-exist"), th.Logger(t))
	assert.ErrorContains(t, err, "clone")
}
