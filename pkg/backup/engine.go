package backup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the sibling directory snapshots live in.
const DirName = "backup"

const timestampLayout = "20060102_150405"

// Engine creates and prunes snapshots on disk according to the
// retention policy. It holds no state between calls.
type Engine struct {
	log *slog.Logger
	now func() time.Time
}

// NewEngine returns an engine logging through the given logger.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log, now: time.Now}
}

// Create snapshots the file at path into its sibling backup directory,
// pruning expired and redundant snapshots first. A missing source file
// is a no-op. Failures here must never abort a caller's save; the
// caller is expected to degrade the returned error to a warning.
//
// Two snapshots created within the same second collide by name; not
// defended against.
func (e *Engine) Create(path string, force bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat source: %w", err)
	}

	dir := filepath.Join(filepath.Dir(path), DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	stem, ext := splitName(filepath.Base(path))
	snaps, err := listSnapshots(dir, stem, ext)
	if err != nil {
		return err
	}

	plan := Retention(e.now(), snaps, force)
	if !plan.Create {
		e.log.Debug("backup skipped, recent snapshot exists", "path", path)
		return nil
	}
	for _, name := range plan.Delete {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			e.log.Warn("failed to prune snapshot", "name", name, "err", err)
			continue
		}
		e.log.Debug("pruned snapshot", "name", name)
	}

	name := fmt.Sprintf("%s_backup_%s%s", stem, e.now().Format(timestampLayout), ext)
	dst := filepath.Join(dir, name)
	if err := copyFile(path, dst); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	e.log.Info("created backup", "snapshot", dst)
	return nil
}

func splitName(base string) (stem, ext string) {
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func listSnapshots(dir, stem, ext string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list backup dir: %w", err)
	}
	prefix := stem + "_backup_"
	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snap := Snapshot{Name: name, ModTime: info.ModTime()}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		if ts, err := time.ParseInLocation(timestampLayout, stamp, time.Local); err == nil {
			snap.Created = ts
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// copyFile is a true copy: bytes plus mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
