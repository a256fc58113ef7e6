package store

import "errors"

var (
	// ErrNotFound means the document path does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrMalformed means the file exists but does not hold a valid
	// document. Markdown-embedded format failures surface as
	// obsidian.ErrFormat instead.
	ErrMalformed = errors.New("invalid document JSON")
	// ErrFileLocked means the write kept failing with a lock or
	// permission error after all retries. Unlike backup failures this
	// one is fatal to the save.
	ErrFileLocked = errors.New("file is locked by another process")
)
