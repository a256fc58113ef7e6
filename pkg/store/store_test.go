package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hmizuno/excalidraw-local/pkg/backup"
	"github.com/hmizuno/excalidraw-local/pkg/drawing"
	"github.com/hmizuno/excalidraw-local/pkg/obsidian"
)

func testStore() *Store {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(backup.NewEngine(log), log)
}

func mustParse(t *testing.T, raw string) *drawing.Document {
	t.Helper()
	doc, err := drawing.Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

const meaningfulJSON = `{"type":"excalidraw","version":2,"source":"https://excalidraw.com","elements":[{"id":"r1","type":"rectangle","isDeleted":false,"x":100,"y":100}],"appState":{},"files":{}}`

func TestLoadNotFound(t *testing.T) {
	s := testStore()
	_, _, err := s.Load(Resolve(filepath.Join(t.TempDir(), "missing.excalidraw")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadMalformedNative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.excalidraw")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := testStore()
	_, _, err := s.Load(Resolve(path))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestSaveLoadNativeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawing.excalidraw")
	s := testStore()
	doc := mustParse(t, meaningfulJSON)

	res, err := s.Save(Resolve(path), doc, false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !res.Success || res.Hash == "" {
		t.Fatalf("Unexpected result: %+v", res)
	}

	loaded, modified, err := s.Load(Resolve(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if modified.IsZero() {
		t.Error("Expected a modification time")
	}
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}

	wantHash, err := drawing.ComputeHash(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if wantHash != res.Hash {
		t.Errorf("Save hash %s != recomputed %s", res.Hash, wantHash)
	}
}

func TestSaveNativeCreatesBackupBeforeOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawing.excalidraw")
	s := testStore()

	if _, err := s.Save(Resolve(path), mustParse(t, meaningfulJSON), false); err != nil {
		t.Fatal(err)
	}
	// First save: no source existed, so no snapshot.
	if _, err := os.Stat(filepath.Join(dir, backup.DirName)); !os.IsNotExist(err) {
		t.Error("No backup expected on first save")
	}

	if _, err := s.Save(Resolve(path), mustParse(t, meaningfulJSON), false); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, backup.DirName))
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one snapshot after overwrite, got %v (%v)", entries, err)
	}
}

func TestSaveRefusesToEraseMeaningfulContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawing.excalidraw")
	s := testStore()

	if _, err := s.Save(Resolve(path), mustParse(t, meaningfulJSON), false); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	empty := mustParse(t, `{"type":"excalidraw","version":2,"elements":[{"id":"r1","type":"rectangle","isDeleted":true}],"appState":{},"files":{}}`)
	res, err := s.Save(Resolve(path), empty, false)
	if err != nil {
		t.Fatalf("Skip must not be an error: %v", err)
	}
	if res.Success {
		t.Error("Expected rejection when erasing meaningful content")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("File changed despite rejected save")
	}
	if _, err := os.Stat(filepath.Join(dir, backup.DirName)); !os.IsNotExist(err) {
		t.Error("No backup must be written for a rejected save")
	}
}

func TestSaveEmptyOverNothingIsBenignNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawing.excalidraw")
	s := testStore()

	empty := mustParse(t, `{"type":"excalidraw","version":2,"elements":[],"appState":{},"files":{}}`)
	res, err := s.Save(Resolve(path), empty, false)
	if err != nil {
		t.Fatalf("No-op save errored: %v", err)
	}
	if !res.Success {
		t.Errorf("Benign no-op should report success: %+v", res)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Nothing should have been written")
	}
}

func TestSaveObsidianFreshFile(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, "obsidian")
	path := filepath.Join(vault, "drawing.excalidraw.md")
	s := testStore()

	ref := Resolve(path)
	if ref.Format != FormatObsidian {
		t.Fatalf("Expected obsidian ref for %s", path)
	}

	res, err := s.Save(ref, mustParse(t, meaningfulJSON), false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("Unexpected result: %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, marker := range []string{"tags: [excalidraw]", "excalidraw-plugin: parsed", "```compressed-json"} {
		if !strings.Contains(content, marker) {
			t.Errorf("Missing %q in saved markdown:\n%s", marker, content)
		}
	}

	jsonText, err := obsidian.Decode(content)
	if err != nil {
		t.Fatal(err)
	}
	decoded := mustParse(t, string(jsonText))
	if len(decoded.Elements) != 1 || decoded.Elements[0].Type() != "rectangle" {
		t.Errorf("Expected one rectangle element, got %v", decoded.Elements)
	}

	// Obsidian saves never run the backup engine.
	if _, err := os.Stat(filepath.Join(vault, backup.DirName)); !os.IsNotExist(err) {
		t.Error("Backup dir must not exist for obsidian saves")
	}
}

func TestSaveObsidianExternalizesAssets(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, "obsidian")
	path := filepath.Join(vault, "drawing.excalidraw.md")
	s := testStore()

	pngBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	doc := mustParse(t, `{"type":"excalidraw","version":2,"elements":[{"id":"r1","type":"rectangle","isDeleted":false}],"appState":{},"files":{}}`)
	doc.Files["asset1"] = drawing.FileAsset{
		"id":       "asset1",
		"mimeType": "image/png",
		"dataURL":  drawing.EncodeDataURL("image/png", pngBytes),
	}

	if _, err := s.Save(Resolve(path), doc, false); err != nil {
		t.Fatal(err)
	}

	// The asset landed as a sibling file named by its full id.
	assetPath := filepath.Join(vault, "asset1.png")
	written, err := os.ReadFile(assetPath)
	if err != nil {
		t.Fatalf("Externalized asset missing: %v", err)
	}
	if string(written) != string(pngBytes) {
		t.Error("Asset bytes mismatch")
	}

	// The caller's document keeps its inline data.
	if doc.Files["asset1"].DataURL() == "" {
		t.Error("Save mutated the caller's document")
	}

	// The persisted payload holds no inline data.
	data, _ := os.ReadFile(path)
	jsonText, err := obsidian.Decode(string(data))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(jsonText), "dataURL") {
		t.Error("Inline data leaked into the markdown payload")
	}
	if !strings.Contains(string(data), "asset1: [[asset1.png]]") {
		t.Errorf("Embedded Files entry missing:\n%s", data)
	}

	// Loading re-inlines the asset.
	loaded, _, err := s.Load(Resolve(path))
	if err != nil {
		t.Fatal(err)
	}
	asset := loaded.Files["asset1"]
	if asset == nil {
		t.Fatal("Asset missing after load")
	}
	mimeType, raw, err := drawing.DecodeDataURL(asset.DataURL())
	if err != nil {
		t.Fatalf("Asset not re-inlined: %v", err)
	}
	if mimeType != "image/png" || string(raw) != string(pngBytes) {
		t.Errorf("Re-inlined asset mismatch: %s %v", mimeType, raw)
	}
}

func TestLoadObsidianMissingAssetDegrades(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, "obsidian")
	path := filepath.Join(vault, "drawing.excalidraw.md")
	s := testStore()

	doc := mustParse(t, `{"type":"excalidraw","version":2,"elements":[{"id":"r1","type":"rectangle","isDeleted":false}],"appState":{},"files":{}}`)
	doc.Files["ghost"] = drawing.FileAsset{
		"id":       "ghost",
		"mimeType": "image/png",
		"dataURL":  drawing.EncodeDataURL("image/png", []byte{1, 2, 3}),
	}
	if _, err := s.Save(Resolve(path), doc, false); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(vault, "ghost.png")); err != nil {
		t.Fatal(err)
	}

	loaded, _, err := s.Load(Resolve(path))
	if err != nil {
		t.Fatalf("Missing asset must not fail the load: %v", err)
	}
	asset := loaded.Files["ghost"]
	if asset == nil {
		t.Fatal("Expected a placeholder entry for the missing asset")
	}
	if asset.DataURL() != "" {
		t.Error("Missing asset should have no inline data")
	}
}

func TestSaveObsidianMergesExistingMarkdown(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, "obsidian")
	path := filepath.Join(vault, "drawing.excalidraw.md")
	s := testStore()

	if _, err := s.Save(Resolve(path), mustParse(t, meaningfulJSON), false); err != nil {
		t.Fatal(err)
	}

	// A user adds notes to the file between saves.
	data, _ := os.ReadFile(path)
	edited := strings.Replace(string(data), "# Text Elements", "# My Notes\nremember this\n# Text Elements", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Save(Resolve(path), mustParse(t, meaningfulJSON), false); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(path)
	if !strings.Contains(string(after), "# My Notes\nremember this") {
		t.Errorf("User content lost on re-save:\n%s", after)
	}
}
