// Package obsidian converts between Excalidraw document JSON and the
// Markdown-embedded format the Obsidian Excalidraw plugin stores in a
// vault: YAML frontmatter, a human-readable Text Elements section, an
// optional Embedded Files section and an LZ-string compressed payload
// inside a fenced code block.
package obsidian

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/hmizuno/excalidraw-local/pkg/drawing"
)

const (
	sectionTextElements  = "Text Elements"
	sectionEmbeddedFiles = "Embedded Files"
	headingDrawing       = "Drawing"
	fenceTagCompressed   = "compressed-json"
	fenceTagPlain        = "json"

	frontmatterPlugin = "excalidraw-plugin: parsed"
	frontmatterTags   = "tags: [excalidraw]"
	banner            = "==⚠  Switch to EXCALIDRAW VIEW in the MORE OPTIONS menu of this document. ⚠=="
)

// ErrFormat is the base error for content that is not a valid drawing
// file: no drawing code block, or a payload that is neither JSON nor a
// decompressible LZ-string payload.
var ErrFormat = errors.New("not a valid drawing file")

// ErrNoDrawing reports a markdown file without a drawing code block.
var ErrNoDrawing = fmt.Errorf("%w: no drawing code block", ErrFormat)

// Decode extracts the document JSON from a markdown-embedded drawing.
// The payload is tried as plain JSON first; on failure it is stripped
// of the plugin's hard wrapping and decompressed.
func Decode(markdown string) ([]byte, error) {
	md := ParseMarkdown(markdown)
	i := md.fenceIndex(fenceTagCompressed, fenceTagPlain)
	if i < 0 {
		return nil, ErrNoDrawing
	}
	raw := strings.TrimSpace(strings.Join(md.blocks[i].body(), "\n"))
	if json.Valid([]byte(raw)) {
		return []byte(raw), nil
	}
	decompressed, err := decompressPayload(stripWhitespace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !json.Valid([]byte(decompressed)) {
		return nil, fmt.Errorf("%w: decompressed payload is not JSON", ErrFormat)
	}
	return []byte(decompressed), nil
}

// Encode embeds a document into markdown. With no existing markdown a
// complete plugin-compatible file is produced. With existing markdown
// only the codec-owned regions are rewritten: the payload fence, the
// Text Elements body and the Embedded Files body. Frontmatter, banner
// and any free-form sections come through byte-identical.
//
// embedded maps file asset ids to the sibling filenames their bytes
// were externalized to.
func Encode(existing string, doc *drawing.Document, embedded map[string]string) (string, error) {
	jsonText, err := drawing.Marshal(doc)
	if err != nil {
		return "", err
	}
	payload, err := compressPayload(jsonText)
	if err != nil {
		return "", err
	}
	textBody := textElementsBody(doc)
	filesBody := embeddedFilesBody(embedded)

	if strings.TrimSpace(existing) == "" {
		return renderTemplate(textBody, filesBody, payload), nil
	}

	md := ParseMarkdown(existing)

	if i := md.fenceIndex(fenceTagCompressed, fenceTagPlain); i >= 0 {
		md.setFenceBody(i, payload)
	} else {
		appendDrawingScaffold(md, payload)
	}

	ti := md.sectionIndex(sectionTextElements)
	if ti >= 0 {
		md.setSectionBody(ti, textBody)
	} else {
		blk := newSection(sectionTextElements, textBody)
		if di := md.firstDelimiterIndex(); di >= 0 {
			md.insertAt(di, blk)
			ti = di
		} else {
			md.appendBlock(blk)
			ti = len(md.blocks) - 1
		}
	}

	if i := md.sectionIndex(sectionEmbeddedFiles); i >= 0 {
		md.setSectionBody(i, filesBody)
	} else if len(embedded) > 0 {
		md.insertAt(ti+1, newSection(sectionEmbeddedFiles, filesBody))
	}

	return md.String(), nil
}

// ParseEmbeddedFiles reads the Embedded Files section of a
// markdown-embedded drawing, mapping asset ids to sibling filenames.
func ParseEmbeddedFiles(markdown string) map[string]string {
	md := ParseMarkdown(markdown)
	i := md.sectionIndex(sectionEmbeddedFiles)
	if i < 0 {
		return nil
	}
	refs := make(map[string]string)
	for _, line := range md.blocks[i].body() {
		m := embeddedFileLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		refs[m[1]] = m[2]
	}
	return refs
}

var embeddedFileLine = regexp.MustCompile(`^(\S+):\s*\[\[([^\]]+)\]\]`)

// textElementsBody derives the human-readable text section: one
// paragraph per non-deleted text element with content and an id, in
// element order, newlines flattened, no trailing blank line.
func textElementsBody(doc *drawing.Document) []string {
	var body []string
	for _, e := range doc.Elements {
		if !e.IsText() || e.IsDeleted() || e.Text() == "" || e.ID() == "" {
			continue
		}
		if len(body) > 0 {
			body = append(body, "")
		}
		line := strings.ReplaceAll(e.Text(), "\n", " ")
		body = append(body, line+" ^"+e.ID())
	}
	return body
}

func embeddedFilesBody(embedded map[string]string) []string {
	if len(embedded) == 0 {
		return nil
	}
	ids := make([]string, 0, len(embedded))
	for id := range embedded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	body := make([]string, 0, len(ids))
	for _, id := range ids {
		body = append(body, fmt.Sprintf("%s: [[%s]]", id, embedded[id]))
	}
	return body
}

func renderTemplate(textBody, filesBody, payload []string) string {
	lines := []string{
		"---",
		frontmatterPlugin,
		frontmatterTags,
		"---",
		banner,
		"",
		"# " + sectionTextElements,
	}
	lines = append(lines, textBody...)
	if len(filesBody) > 0 {
		lines = append(lines, "# "+sectionEmbeddedFiles)
		lines = append(lines, filesBody...)
	}
	lines = append(lines, delimiterMarker, "# "+headingDrawing, fenceMarker+fenceTagCompressed)
	lines = append(lines, payload...)
	lines = append(lines, fenceMarker, delimiterMarker)
	return strings.Join(lines, "\n") + "\n"
}

func appendDrawingScaffold(md *MarkdownDoc, payload []string) {
	md.appendBlock(Block{Kind: BlockDelimiter, Lines: []string{delimiterMarker}})
	md.appendBlock(newSection(headingDrawing, nil))
	fence := Block{Kind: BlockFence, Tag: fenceTagCompressed, Lines: []string{fenceMarker + fenceTagCompressed}}
	fence.Lines = append(fence.Lines, payload...)
	fence.Lines = append(fence.Lines, fenceMarker)
	md.appendBlock(fence)
	md.appendBlock(Block{Kind: BlockDelimiter, Lines: []string{delimiterMarker}})
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
