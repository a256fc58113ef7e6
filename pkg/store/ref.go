package store

import (
	"path/filepath"
	"strings"
)

// Format tags the on-disk encoding of a document.
type Format int

const (
	// FormatNative is plain Excalidraw JSON.
	FormatNative Format = iota
	// FormatObsidian is the markdown-embedded encoding used inside an
	// Obsidian vault.
	FormatObsidian
)

// Ref is a resolved document reference: the path plus its encoding,
// classified once so no operation re-derives it.
type Ref struct {
	Path   string
	Format Format
}

// Resolve classifies a path. A document is markdown-embedded when it
// lives under a directory named "obsidian" (any case) and carries a
// drawing extension; everything else is native JSON.
func Resolve(path string) Ref {
	f := FormatNative
	if underObsidianDir(path) && hasDrawingExt(path) {
		f = FormatObsidian
	}
	return Ref{Path: path, Format: f}
}

func hasDrawingExt(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(lower, ".excalidraw.md") || strings.HasSuffix(lower, ".excalidraw")
}

func underObsidianDir(path string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, part := range strings.Split(dir, "/") {
		if strings.EqualFold(part, "obsidian") {
			return true
		}
	}
	return false
}
