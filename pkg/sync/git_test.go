package sync

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

func TestSyncCommitsPendingChanges(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "drawing.excalidraw.md"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := m.Sync("Update drawing.excalidraw.md"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("No commit created: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "Update drawing.excalidraw.md" {
		t.Errorf("Unexpected commit message %q", commit.Message)
	}

	// Clean worktree: second sync is a no-op, HEAD stays put.
	if err := m.Sync("should not commit"); err != nil {
		t.Fatalf("Sync on clean tree failed: %v", err)
	}
	head2, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head2.Hash() != head.Hash() {
		t.Error("Clean worktree produced a new commit")
	}
}
