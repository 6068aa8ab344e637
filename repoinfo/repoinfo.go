// Package repoinfo resolves a local file to the hosted repository it belongs
// to and builds links to it on a Sourcegraph instance.
package repoinfo

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
)

// GitHelpers answers the repository questions RepoInfo needs. ExecGit shells
// out to git; GoGit reads the repository directly.
type GitHelpers interface {
	// RootDirectory returns the work tree root for any directory inside it
	RootDirectory(ctx context.Context, dir string) (string, error)
	// Remotes returns remote names, e.g. ["origin", "fork"]
	Remotes(ctx context.Context, dir string) ([]string, error)
	// RemoteURL returns the fetch URL of a remote
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// Branch returns the current branch, or "HEAD" when detached
	Branch(ctx context.Context, dir string) (string, error)
	// UpstreamAndBranch returns "<remote>/<branch>" of the upstream, or an
	// error when none is set
	UpstreamAndBranch(ctx context.Context, dir string) (string, error)
}

// ErrNoRemotes is returned when a repository has no remote to link to
var ErrNoRemotes = errors.New("no configured git remotes")

// Info locates a file in its hosted repository
type Info struct {
	RemoteURL    string `json:"remote_url"`
	Branch       string `json:"branch"`
	FileRelative string `json:"file_relative"` // slash-separated, relative to the repository root
	RemoteName   string `json:"remote_name"`
}

// RemoteNameAndBranch picks the remote to link to and the current branch.
//
// The upstream ("remote/two/tj/feature") is split on the last occurrence of
// the branch name ("tj/feature") because both remote and branch names may
// contain slashes. Without a usable upstream the first remote is used.
func RemoteNameAndBranch(ctx context.Context, dir string, git GitHelpers) (remoteName, branch string, err error) {
	remotes, err := git.Remotes(ctx, dir)
	if err != nil {
		return "", "", errors.Wrap(err, "list remotes")
	}
	branch, err = git.Branch(ctx, dir)
	if err != nil {
		return "", "", errors.Wrap(err, "current branch")
	}

	if upstream, err := git.UpstreamAndBranch(ctx, dir); err == nil {
		if pos := strings.LastIndex(upstream, branch); pos > 1 {
			remoteName = upstream[:pos-1]
		}
	} else {
		logger.Debugw("No upstream branch", "dir", dir, "error", err)
	}

	if remoteName == "" && len(remotes) > 0 {
		if len(remotes) > 1 {
			logger.Infow("No upstream found, using first git remote", "remote", remotes[0])
		}
		remoteName = remotes[0]
	}
	if remoteName == "" {
		return "", "", ErrNoRemotes
	}
	return remoteName, branch, nil
}

// RepoInfo returns the remote URL, branch and repository-relative path of
// filePath.
func RepoInfo(ctx context.Context, filePath string, git GitHelpers) (*Info, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", filePath)
	}

	root, err := git.RootDirectory(ctx, filepath.Dir(abs))
	if err != nil {
		return nil, errors.Wrapf(err, "find repository root of %s", filePath)
	}

	rel, err := relativeTo(root, abs)
	if err != nil {
		return nil, err
	}

	remoteName, branch, err := RemoteNameAndBranch(ctx, root, git)
	if err != nil {
		return nil, err
	}

	remoteURL, err := git.RemoteURL(ctx, root, remoteName)
	if err != nil {
		return nil, errors.Wrapf(err, "url of remote %s", remoteName)
	}

	return &Info{
		RemoteURL:    remoteURL,
		Branch:       branch,
		FileRelative: rel,
		RemoteName:   remoteName,
	}, nil
}

// relativeTo returns path relative to root, resolving symlinks on either
// side when the plain paths disagree.
func relativeTo(root, path string) (string, error) {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel), nil
	}
	realRoot, err1 := filepath.EvalSymlinks(root)
	realPath, err2 := filepath.EvalSymlinks(path)
	if err1 == nil && err2 == nil {
		if rel, err := filepath.Rel(realRoot, realPath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel), nil
		}
	}
	return "", errors.Newf("%s is not inside repository %s", path, root)
}

// RepoName derives the repository name from a remote URL by dropping the
// https:// scheme and a .git suffix.
func RepoName(remoteURL string) string {
	return strings.TrimSuffix(strings.TrimPrefix(remoteURL, "https://"), ".git")
}

// FileURL links to lines startLine..endLine (1-based) of a file:
// <base>/<repo>@<branch>/-/blob/<path>?L<start>:<end>
func FileURL(base, remoteURL, branch, fileRelative string, startLine, endLine int) string {
	return fmt.Sprintf("%s/%s@%s/-/blob/%s?L%d:%d",
		strings.TrimSuffix(base, "/"),
		url.PathEscape(RepoName(remoteURL)),
		url.PathEscape(branch),
		url.PathEscape(fileRelative),
		startLine,
		endLine,
	)
}
