// Package vcs wraps the git binary so a migration can be turned into a
// reviewable change. The migration engine never calls into version
// control; only the CLI layer does.
package vcs

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Git runs git commands against a working directory.
type Git struct {
	dir string
}

// New returns a Git bound to dir.
func New(dir string) *Git {
	return &Git{dir: dir}
}

// run executes git with args and returns trimmed stdout. Failures
// carry git's stderr, which is where git explains itself.
func (g *Git) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsRepo reports whether dir is inside a git working tree.
func (g *Git) IsRepo() bool {
	_, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch() (string, error) {
	branch, err := g.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return branch, nil
}

// BranchName returns the conventional branch name for a migration
// between two versions.
func BranchName(from, to string) string {
	return fmt.Sprintf("config-migrate-%s-to-%s", from, to)
}

// CreateBranch creates name and switches to it. An existing branch is
// an error; a stale migration branch should be deleted deliberately,
// not silently reused.
func (g *Git) CreateBranch(name string) error {
	if _, err := g.run("rev-parse", "--verify", "refs/heads/"+name); err == nil {
		return fmt.Errorf("branch %q already exists, delete it first or use a different name", name)
	}
	if _, err := g.run("checkout", "-b", name); err != nil {
		return fmt.Errorf("failed to create branch %q: %w", name, err)
	}
	return nil
}

// Commit stages everything under the working directory and commits it
// with message.
func (g *Git) Commit(message string) error {
	if _, err := g.run("add", "-A", "."); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	if _, err := g.run("commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Status returns the paths with uncommitted changes, untracked files
// included.
func (g *Git) Status() ([]string, error) {
	out, err := g.run("status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		// Renames are reported as "old -> new".
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		// Paths with special characters come back C-quoted.
		if strings.HasPrefix(path, `"`) {
			if unquoted, err := strconv.Unquote(path); err == nil {
				path = unquoted
			}
		}
		files = append(files, path)
	}
	return files, nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func (g *Git) IsClean() (bool, error) {
	files, err := g.Status()
	if err != nil {
		return false, err
	}
	return len(files) == 0, nil
}
