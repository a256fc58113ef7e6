// Package store orchestrates document persistence: it classifies
// paths, runs the markdown codec for vault documents, the backup
// engine for native ones, and guards every save with the meaningful
// content filter. Each call is stateless beyond the filesystem.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/natefinch/atomic"

	"github.com/hmizuno/excalidraw-local/pkg/backup"
	"github.com/hmizuno/excalidraw-local/pkg/drawing"
	"github.com/hmizuno/excalidraw-local/pkg/obsidian"
)

// Write retry bounds for transient external lock contention (e.g. a
// sync client holding the file). Same-process races are not in scope.
const (
	writeAttempts   = 5
	writeRetryDelay = 200 * time.Millisecond
)

// Store loads and saves drawing documents.
type Store struct {
	backups *backup.Engine
	log     *slog.Logger
}

// New returns a store using the given backup engine.
func New(backups *backup.Engine, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backups: backups, log: log}
}

// SaveResult reports the outcome of a save. A skipped save is not an
// error; Success is false only when the save was refused to protect
// existing meaningful content.
type SaveResult struct {
	Success bool
	Message string
	Hash    string
}

// Load reads the document at ref, decoding the markdown-embedded form
// and re-inlining externalized assets when the ref is an Obsidian one.
// Returns the document and the file's modification time.
func (s *Store) Load(ref Ref) (*drawing.Document, time.Time, error) {
	info, err := os.Stat(ref.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, ref.Path)
		}
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var doc *drawing.Document
	if ref.Format == FormatObsidian {
		jsonText, err := obsidian.Decode(string(data))
		if err != nil {
			return nil, time.Time{}, err
		}
		doc, err = drawing.Parse(jsonText)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %v", obsidian.ErrFormat, err)
		}
		s.resolveAssets(filepath.Dir(ref.Path), doc, obsidian.ParseEmbeddedFiles(string(data)))
	} else {
		doc, err = drawing.Parse(data)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return doc, info.ModTime(), nil
}

// Save persists the document at ref. Non-meaningful payloads never
// overwrite meaningful content. Obsidian refs get externalized assets
// and a codec merge against the prior markdown; native refs get a
// best-effort backup before the overwrite. Only the final write
// failing is fatal.
func (s *Store) Save(ref Ref, doc *drawing.Document, forceBackup bool) (*SaveResult, error) {
	hash, err := drawing.ComputeHash(doc)
	if err != nil {
		return nil, err
	}

	if !doc.HasMeaningfulContent() {
		if s.existingIsMeaningful(ref) {
			s.log.Warn("refusing to overwrite drawing with empty canvas", "path", ref.Path)
			return &SaveResult{
				Success: false,
				Message: "save skipped: new content is empty but the existing file has content",
				Hash:    hash,
			}, nil
		}
		return &SaveResult{
			Success: true,
			Message: "nothing to persist; save skipped",
			Hash:    hash,
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(ref.Path), 0o755); err != nil {
		return nil, err
	}

	if ref.Format == FormatObsidian {
		if err := s.saveObsidian(ref, doc); err != nil {
			return nil, err
		}
	} else {
		if err := s.saveNative(ref, doc, forceBackup); err != nil {
			return nil, err
		}
	}

	return &SaveResult{
		Success: true,
		Message: fmt.Sprintf("saved %s", ref.Path),
		Hash:    hash,
	}, nil
}

func (s *Store) saveObsidian(ref Ref, doc *drawing.Document) error {
	persisted := doc.Clone()
	embedded, err := s.externalizeAssets(filepath.Dir(ref.Path), persisted)
	if err != nil {
		return err
	}

	existing := ""
	if data, err := os.ReadFile(ref.Path); err == nil {
		existing = string(data)
	}
	markdown, err := obsidian.Encode(existing, persisted, embedded)
	if err != nil {
		return err
	}
	return s.writeWithRetry(ref.Path, []byte(markdown))
}

func (s *Store) saveNative(ref Ref, doc *drawing.Document, forceBackup bool) error {
	if err := s.backups.Create(ref.Path, forceBackup); err != nil {
		// Backups are a recovery aid, not a source of truth; a failed
		// snapshot must not block the save.
		s.log.Warn("backup failed, saving anyway", "path", ref.Path, "err", err)
	}
	data, err := drawing.MarshalIndent(doc)
	if err != nil {
		return err
	}
	return s.writeWithRetry(ref.Path, append(data, '\n'))
}

func (s *Store) existingIsMeaningful(ref Ref) bool {
	existing, _, err := s.Load(ref)
	if err != nil {
		return false
	}
	return existing.HasMeaningfulContent()
}

// writeWithRetry writes atomically, retrying on lock and permission
// errors with a fixed backoff before giving up.
func (s *Store) writeWithRetry(path string, data []byte) error {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt > 0 {
			s.log.Warn("write blocked, retrying", "path", path, "attempt", attempt, "err", lastErr)
			time.Sleep(writeRetryDelay)
		}
		lastErr = atomic.WriteFile(path, bytes.NewReader(data))
		if lastErr == nil {
			return nil
		}
		if !isLockErr(lastErr) {
			return fmt.Errorf("write %s: %w", path, lastErr)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrFileLocked, path, lastErr)
}

func isLockErr(err error) bool {
	return errors.Is(err, os.ErrPermission) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY)
}
