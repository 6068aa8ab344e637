package ingest

// Repository source resolution: local paths are used in place, remote URLs
// are shallow-cloned into a temporary directory.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/teranos/searchq/errors"
)

// RepoSource represents a resolved repository source
type RepoSource struct {
	// LocalPath is the path to the local repository (either original or cloned)
	LocalPath string
	// OriginalInput is the original input (URL or path)
	OriginalInput string
	// IsCloned indicates if the repo was cloned from a remote URL
	IsCloned bool
	cleanup  func()
}

// Cleanup removes any temporary resources created for this repo source.
// Safe to call multiple times.
func (r *RepoSource) Cleanup() {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

var knownHosts = []string{
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"codeberg.org",
	"sr.ht",
	"gitea.com",
}

// IsRepoURL checks if the input looks like a git repository URL.
// Supports:
//   - HTTPS URLs: https://github.com/user/repo, https://github.com/user/repo.git
//   - SSH URLs: git@github.com:user/repo.git
//   - Git protocol: git://github.com/user/repo.git
func IsRepoURL(input string) bool {
	switch {
	case strings.HasPrefix(input, "https://"), strings.HasPrefix(input, "http://"):
		return isGitHostURL(input)
	case strings.HasPrefix(input, "git@"), strings.HasPrefix(input, "git://"), strings.HasPrefix(input, "ssh://"):
		return true
	}
	return false
}

func isGitHostURL(url string) bool {
	lowered := strings.ToLower(url)
	for _, host := range knownHosts {
		if strings.Contains(lowered, host) {
			return true
		}
	}
	return strings.HasSuffix(url, ".git")
}

// NormalizeRepoURL adds a .git suffix to HTTP(S) URLs of known hosts
func NormalizeRepoURL(url string) string {
	if strings.HasSuffix(url, ".git") {
		return url
	}
	url = strings.TrimSuffix(url, "/")
	if (strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) && isGitHostURL(url) {
		return url + ".git"
	}
	return url
}

var (
	schemeURL = regexp.MustCompile(`^(?:https?|git|ssh)://(?:[^@/]+@)?([^/:]+)(?::\d+)?/(.+)$`)
	scpURL    = regexp.MustCompile(`^[^@/]+@([^:]+):(.+)$`)
)

// RepoNameFromRemote turns a remote URL into the name the index uses,
// host/owner/repo without scheme, credentials or .git suffix. It returns ""
// when the URL has no recognizable host and path.
//
//	https://github.com/sourcegraph/jsonrpc2.git -> github.com/sourcegraph/jsonrpc2
//	git@github.com:sourcegraph/jsonrpc2.git     -> github.com/sourcegraph/jsonrpc2
func RepoNameFromRemote(remote string) string {
	remote = strings.TrimSuffix(strings.TrimSuffix(remote, "/"), ".git")
	if m := schemeURL.FindStringSubmatch(remote); m != nil {
		return strings.ToLower(m[1]) + "/" + strings.Trim(m[2], "/")
	}
	if m := scpURL.FindStringSubmatch(remote); m != nil {
		return strings.ToLower(m[1]) + "/" + strings.Trim(m[2], "/")
	}
	return ""
}

// ExtractRepoName returns the last path component of a URL or path, used
// for display and temp directory naming.
func ExtractRepoName(input string) string {
	input = strings.TrimSuffix(strings.TrimSuffix(input, "/"), ".git")
	if name := RepoNameFromRemote(input); name != "" {
		input = name
	}
	return filepath.Base(filepath.FromSlash(input))
}

// IsGitRepository checks if a path is a git repository
func IsGitRepository(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// ResolveRepository resolves an input (URL or local path) to a local
// repository. URLs are shallow-cloned; the returned RepoSource must be
// cleaned up when done.
func ResolveRepository(ctx context.Context, input string, logger *zap.SugaredLogger) (*RepoSource, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if IsRepoURL(input) {
		return cloneRepository(ctx, input, logger)
	}

	if !IsGitRepository(input) {
		return nil, errors.WithHint(
			errors.Newf("not a git repository: %s", input),
			"pass the repository root or a clone URL",
		)
	}
	return &RepoSource{LocalPath: input, OriginalInput: input}, nil
}

func cloneRepository(ctx context.Context, url string, logger *zap.SugaredLogger) (*RepoSource, error) {
	normalizedURL := NormalizeRepoURL(url)
	repoName := ExtractRepoName(url)

	tempDir, err := os.MkdirTemp("", fmt.Sprintf("searchq-index-%s-*", repoName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}

	logger.Infow("Cloning repository",
		"url", normalizedURL,
		"destination", tempDir,
		"depth", 1,
	)

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:          normalizedURL,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, errors.Wrapf(err, "failed to clone %s", normalizedURL)
	}

	logger.Infow("Clone completed", "destination", tempDir)

	return &RepoSource{
		LocalPath:     tempDir,
		OriginalInput: url,
		IsCloned:      true,
		cleanup: func() {
			logger.Debugw("Cleaning up cloned repository", "path", tempDir)
			os.RemoveAll(tempDir)
		},
	}, nil
}
