package store

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/hmizuno/excalidraw-local/pkg/drawing"
)

// extForMime maps the asset MIME types the editor produces to file
// extensions. Kept as a fixed table so externalized filenames are
// deterministic across platforms.
func extForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func mimeForExt(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// externalizeAssets writes each inline file asset to a sibling file
// named by its full id and strips the inline data from the document.
// Returns the id-to-filename map for the Embedded Files section.
// Mutates doc; callers pass a clone.
func (s *Store) externalizeAssets(dir string, doc *drawing.Document) (map[string]string, error) {
	embedded := make(map[string]string)
	for id, asset := range doc.Files {
		dataURL := asset.DataURL()
		if dataURL == "" {
			continue
		}
		mimeType, data, err := drawing.DecodeDataURL(dataURL)
		if err != nil {
			s.log.Warn("skipping undecodable file asset", "id", id, "err", err)
			continue
		}
		name := id + extForMime(mimeType)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, err
		}
		embedded[id] = name
		asset.StripData()
	}
	return embedded, nil
}

// resolveAssets re-inlines externalized assets referenced by the
// Embedded Files section. A missing or unreadable asset file degrades
// to an entry without inline data rather than failing the load.
func (s *Store) resolveAssets(dir string, doc *drawing.Document, refs map[string]string) {
	for id, name := range refs {
		asset := doc.Files[id]
		if asset == nil {
			asset = drawing.FileAsset{"id": id}
			doc.Files[id] = asset
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("embedded file missing, loading without data", "id", id, "file", name)
			if asset.MimeType() == "" {
				asset["mimeType"] = mimeForExt(name)
			}
			continue
		}
		mimeType := asset.MimeType()
		if mimeType == "" {
			mimeType = mimeForExt(name)
			asset["mimeType"] = mimeType
		}
		asset["dataURL"] = drawing.EncodeDataURL(mimeType, data)
		if _, ok := asset["created"]; !ok {
			if info, err := os.Stat(path); err == nil {
				asset["created"] = info.ModTime().UnixMilli()
			}
		}
	}
}
