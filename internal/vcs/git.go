package vcs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/qepting91/threadbot/internal/domain"
)

const commitMessage = "Update From Bot Run"

// Runner executes one git command in Dir and returns its stdout
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// GitHook commits and pushes whatever the run left in the working tree
type GitHook struct {
	Dir    string
	Run    Runner
	Logger *slog.Logger
}

func NewGitHook(dir string, logger *slog.Logger) *GitHook {
	return &GitHook{Dir: dir, Run: execGit, Logger: logger}
}

func (g *GitHook) Name() string {
	return "git"
}

func (g *GitHook) AfterRun(ctx context.Context, s domain.RunSummary) error {
	status, err := g.Run(ctx, g.Dir, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		g.Logger.Info("No changes to commit", "run_id", s.RunID)
		return nil
	}
	for _, args := range [][]string{
		{"add", "."},
		{"commit", "-m", commitMessage},
		{"push"},
	} {
		if _, err := g.Run(ctx, g.Dir, args...); err != nil {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
	}
	g.Logger.Info("Run artifacts pushed", "run_id", s.RunID)
	return nil
}

func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
