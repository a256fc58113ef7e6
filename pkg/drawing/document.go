package drawing

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the canonical JSON representation of a drawing canvas.
// Identity is by path; the struct carries no internal id.
type Document struct {
	Type     string               `json:"type"`
	Version  int                  `json:"version"`
	Source   string               `json:"source"`
	Elements []Element            `json:"elements"`
	AppState map[string]any       `json:"appState"`
	Files    map[string]FileAsset `json:"files"`
}

// Element is one drawable primitive. It is an open map so fields this
// server does not know about survive a load/save round trip unchanged.
type Element map[string]any

// ID returns the element id, or "" if absent.
func (e Element) ID() string {
	s, _ := e["id"].(string)
	return s
}

// Type returns the element type, e.g. "rectangle" or "text".
func (e Element) Type() string {
	s, _ := e["type"].(string)
	return s
}

// IsDeleted reports whether the element is soft-deleted.
func (e Element) IsDeleted() bool {
	b, _ := e["isDeleted"].(bool)
	return b
}

// IsText reports whether the element is a text element.
func (e Element) IsText() bool {
	return e.Type() == "text"
}

// Text returns the textual content of a text element, or "".
func (e Element) Text() string {
	s, _ := e["text"].(string)
	return s
}

// FileAsset is a binary attachment. Inline form carries a dataURL;
// the externalized form has the bytes in a sibling file instead.
type FileAsset map[string]any

// ID returns the asset id, or "" if absent.
func (f FileAsset) ID() string {
	s, _ := f["id"].(string)
	return s
}

// MimeType returns the asset MIME type, or "".
func (f FileAsset) MimeType() string {
	s, _ := f["mimeType"].(string)
	return s
}

// DataURL returns the inline data URL, or "" when externalized.
func (f FileAsset) DataURL() string {
	s, _ := f["dataURL"].(string)
	return s
}

// StripData removes the inline data URL, leaving an externalized asset.
func (f FileAsset) StripData() {
	delete(f, "dataURL")
}

// Parse decodes a Document from JSON. Numbers are kept as json.Number
// so values re-serialize digit-for-digit.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

func (d *Document) normalize() {
	if d.Elements == nil {
		d.Elements = []Element{}
	}
	if d.AppState == nil {
		d.AppState = map[string]any{}
	}
	if d.Files == nil {
		d.Files = map[string]FileAsset{}
	}
}

// Marshal encodes the document as compact JSON without HTML escaping.
func Marshal(doc *Document) ([]byte, error) {
	return marshal(doc, "")
}

// MarshalIndent encodes the document as two-space indented JSON, the
// layout used for native .excalidraw files on disk.
func MarshalIndent(doc *Document) ([]byte, error) {
	return marshal(doc, "  ")
}

func marshal(doc *Document, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Clone returns a copy safe to mutate at the Files level. Elements are
// shared; the files map and each asset map are copied.
func (d *Document) Clone() *Document {
	c := *d
	c.Files = make(map[string]FileAsset, len(d.Files))
	for id, asset := range d.Files {
		copied := make(FileAsset, len(asset))
		for k, v := range asset {
			copied[k] = v
		}
		c.Files[id] = copied
	}
	return &c
}

// HasMeaningfulContent reports whether the document is worth persisting:
// at least one non-deleted element, or any file asset.
func (d *Document) HasMeaningfulContent() bool {
	for _, e := range d.Elements {
		if !e.IsDeleted() {
			return true
		}
	}
	return len(d.Files) > 0
}

// EncodeDataURL builds a base64 data URL for the given MIME type.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into MIME type and raw bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return mimeType, data, nil
}
