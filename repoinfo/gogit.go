package repoinfo

import (
	"context"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/teranos/searchq/errors"
)

// GoGit implements GitHelpers with go-git, without a git binary
type GoGit struct{}

func open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open repository at %s", dir)
	}
	return repo, nil
}

// RootDirectory returns the work tree root
func (GoGit) RootDirectory(ctx context.Context, dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "worktree")
	}
	return wt.Filesystem.Root(), nil
}

// Remotes returns remote names sorted like git remote
func (GoGit) Remotes(ctx context.Context, dir string) ([]string, error) {
	repo, err := open(dir)
	if err != nil {
		return nil, err
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return nil, errors.Wrap(err, "list remotes")
	}
	names := make([]string, 0, len(remotes))
	for _, r := range remotes {
		names = append(names, r.Config().Name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoteURL returns the first URL of remote
func (GoGit) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	r, err := repo.Remote(remote)
	if err != nil {
		return "", errors.Wrapf(err, "remote %s", remote)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", errors.Newf("remote %s has no url", remote)
	}
	return urls[0], nil
}

// Branch returns the short name of the checked out branch, or "HEAD"
func (GoGit) Branch(ctx context.Context, dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", errors.Wrap(err, "read HEAD")
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().Short(), nil
	}
	return "HEAD", nil
}

// UpstreamAndBranch returns "<remote>/<branch>" from the branch's tracking
// configuration.
func (g GoGit) UpstreamAndBranch(ctx context.Context, dir string) (string, error) {
	branch, err := g.Branch(ctx, dir)
	if err != nil {
		return "", err
	}
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	cfg, err := repo.Config()
	if err != nil {
		return "", errors.Wrap(err, "read config")
	}

	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return "", errors.Newf("no upstream configured for branch %s", branch)
	}
	if b.Remote == "." {
		// Tracking a local branch
		return b.Merge.Short(), nil
	}
	return b.Remote + "/" + b.Merge.Short(), nil
}
