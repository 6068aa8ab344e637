package repoinfo

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/teranos/searchq/errors"
)

// ExecGit implements GitHelpers by running the git binary
type ExecGit struct {
	// Binary defaults to "git" on PATH
	Binary string
	Logger *zap.SugaredLogger
}

func (g ExecGit) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	if g.Logger != nil {
		g.Logger.Debugw("Running git", "cmd", shellquote.Join(append([]string{bin}, args...)...), "dir", dir)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		err = errors.Wrapf(err, "%s", shellquote.Join(args...))
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.WithDetail(err, msg)
		}
		return "", err
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

// RootDirectory runs git rev-parse --show-toplevel
func (g ExecGit) RootDirectory(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "rev-parse", "--show-toplevel")
}

// Remotes runs git remote
func (g ExecGit) Remotes(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, dir, "remote")
	if err != nil {
		return nil, err
	}
	var remotes []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			remotes = append(remotes, line)
		}
	}
	return remotes, nil
}

// RemoteURL runs git remote get-url <remote>
func (g ExecGit) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	return g.run(ctx, dir, "remote", "get-url", remote)
}

// Branch runs git rev-parse --abbrev-ref HEAD
func (g ExecGit) Branch(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// UpstreamAndBranch runs git rev-parse --abbrev-ref HEAD@{upstream}
func (g ExecGit) UpstreamAndBranch(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD@{upstream}")
}
