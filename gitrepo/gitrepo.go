// Package gitrepo resolves commits and file contents from the distro
// source repository through a temporary local clone. The clone is an
// explicit cache scoped to the Repo value; Close removes it.
package gitrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo serializes access to the underlying repository: go-git does not
// document *git.Repository as safe for concurrent history walks.
type Repo struct {
	dir    string
	branch string

	mu   sync.Mutex
	repo *git.Repository
}

// Open clones the repository with full history for a single branch
// into a fresh temporary directory.
func Open(ctx context.Context, url, branch string, log *slog.Logger) (*Repo, error) {
	dir, err := os.MkdirTemp("", "reldb-repo-")
	if err != nil {
		return nil, err
	}

	log.Debug("cloning repository", "url", url, "branch", branch, "dir", dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", url, err)
	}
	return &Repo{dir: dir, branch: branch, repo: repo}, nil
}

func (r *Repo) Close() error {
	return os.RemoveAll(r.dir)
}

// CommitAt returns the newest commit on the branch not after t, as
// full and short (8 character) hashes.
func (r *Repo) CommitAt(t time.Time) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t = t.UTC()
	iter, err := r.repo.Log(&git.LogOptions{Until: &t, Order: git.LogOrderCommitterTime})
	if err != nil {
		return "", "", err
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return "", "", fmt.Errorf("no commit found before %s", t.Format(time.RFC3339))
	}
	hash := commit.Hash.String()
	return hash, hash[:8], nil
}

// FileAt returns the contents of path at the given commit. An empty
// commitish means the branch head.
func (r *Repo) FileAt(commitish, path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hash plumbing.Hash
	if commitish == "" {
		head, err := r.repo.Head()
		if err != nil {
			return nil, err
		}
		hash = head.Hash()
	} else {
		hash = plumbing.NewHash(commitish)
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", commitish, err)
	}
	file, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("%s at %s: %w", path, commitish, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(contents), nil
}
