// Package sync auto-commits the vault after saves so drawing history
// lands in the user's existing git-backed vault workflow.
package sync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Manager handles git operations on the vault repository.
type Manager struct {
	RepoPath string
	// Push controls whether commits are pushed to the remote. Off by
	// default; local history is enough for recovery.
	Push bool

	log *slog.Logger
}

// NewManager creates a Manager rooted at repoPath.
func NewManager(repoPath string, push bool, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{RepoPath: repoPath, Push: push, log: log}
}

// Sync commits all pending changes with the given message and
// optionally pushes. A clean worktree is a no-op.
func (m *Manager) Sync(message string) error {
	r, err := git.PlainOpen(m.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open repo: %w", err)
	}

	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if _, err := w.Add("."); err != nil {
		return fmt.Errorf("failed to add changes: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Auto-sync: %s", time.Now().Format(time.RFC3339))
	}
	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Excalidraw Local",
			Email: "excalidraw@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if !m.Push {
		return nil
	}
	return m.push(r)
}

// push tries the default SSH key first; without one it falls back to
// an unauthenticated push, which works for http remotes with a
// credential helper.
func (m *Manager) push(r *git.Repository) error {
	home, _ := os.UserHomeDir()
	keyPath := filepath.Join(home, ".ssh", "id_rsa")

	var err error
	if keys, keyErr := ssh.NewPublicKeysFromFile("git", keyPath, ""); keyErr == nil {
		err = r.Push(&git.PushOptions{Auth: keys})
	} else {
		m.log.Warn("could not load SSH key, pushing without explicit auth", "err", keyErr)
		err = r.Push(&git.PushOptions{})
	}
	if err != nil {
		if err == git.NoErrAlreadyUpToDate {
			return nil
		}
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
