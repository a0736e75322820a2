package harvest

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultRepoURL is the upstream libcamera repository.
const DefaultRepoURL = "https://git.libcamera.org/libcamera/libcamera.git"

// GitRepository is a Repository backed by a local git clone.
type GitRepository struct {
	repo   *git.Repository
	logger *slog.Logger
}

// OpenOrClone opens the clone at dir, or clones url into it. An existing
// clone is always fetched so that new tags are picked up; a failed fetch is
// tolerated because the local tags are still usable. A failed clone is not.
func OpenOrClone(dir, url string, logger *slog.Logger) (*GitRepository, error) {
	repo, err := git.PlainOpen(dir)
	switch {
	case err == nil:
		logger.Info("Fetching tags", "dir", dir)
		err := repo.Fetch(&git.FetchOptions{Tags: git.AllTags, Force: true})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			logger.Warn("Fetch failed, continuing with the local clone", "dir", dir, "error", err)
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		logger.Info("Cloning repository", "url", url, "dir", dir)
		repo, err = git.PlainClone(dir, false, &git.CloneOptions{URL: url, Tags: git.AllTags})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", url, err)
		}
	default:
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return &GitRepository{repo: repo, logger: logger}, nil
}

// Tags returns the full reference names of every tag, e.g. "refs/tags/v0.5.2".
func (r *GitRepository) Tags() ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().String())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Checkout resolves a tag, annotated or lightweight, to its commit tree. Files
// are read straight from the tree object so the work tree is left untouched.
func (r *GitRepository) Checkout(tag string) (Snapshot, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(tag), true)
	if err != nil {
		return nil, fmt.Errorf("resolve tag %s: %w", tag, err)
	}

	var commit *object.Commit
	if tagObj, err := r.repo.TagObject(ref.Hash()); err == nil {
		commit, err = tagObj.Commit()
		if err != nil {
			return nil, fmt.Errorf("resolve tag %s to commit: %w", tag, err)
		}
	} else if errors.Is(err, plumbing.ErrObjectNotFound) {
		commit, err = r.repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("resolve tag %s to commit: %w", tag, err)
		}
	} else {
		return nil, fmt.Errorf("read tag object %s: %w", tag, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", tag, err)
	}
	r.logger.Debug("Checked out tag", "tag", tag, "commit", commit.Hash.String())
	return treeSnapshot{tree: tree}, nil
}

type treeSnapshot struct {
	tree *object.Tree
}

func (s treeSnapshot) ReadDir(dir string) ([]string, error) {
	sub, err := s.tree.Tree(path.Clean(dir))
	if err != nil {
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, err
	}
	var names []string
	for _, e := range sub.Entries {
		if e.Mode.IsFile() {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (s treeSnapshot) ReadFile(name string) ([]byte, error) {
	f, err := s.tree.File(path.Clean(name))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return []byte(contents), nil
}
