package obsidian

import "strings"

// BlockKind identifies the role of a parsed markdown block.
type BlockKind int

const (
	// BlockFrontmatter is the YAML frontmatter, --- delimiters included.
	BlockFrontmatter BlockKind = iota
	// BlockText is free-form prose outside any heading (e.g. the banner).
	BlockText
	// BlockSection is a heading line plus its body, up to the next
	// heading, fence or delimiter.
	BlockSection
	// BlockFence is a fenced code block, fence lines included.
	BlockFence
	// BlockDelimiter is a lone %% line.
	BlockDelimiter
)

// Block holds the exact source lines of one region of a markdown file.
// Heading, Level and Tag are derived metadata; Lines is the truth and
// serializes back verbatim.
type Block struct {
	Kind    BlockKind
	Heading string
	Level   int
	Tag     string
	Lines   []string
}

// body returns the lines after the structural marker: the section body,
// or the fence interior.
func (b *Block) body() []string {
	switch b.Kind {
	case BlockSection:
		return b.Lines[1:]
	case BlockFence:
		if n := len(b.Lines); n >= 2 && b.Lines[n-1] == fenceMarker {
			return b.Lines[1 : n-1]
		}
		return b.Lines[1:]
	default:
		return b.Lines
	}
}

// MarkdownDoc is an ordered list of blocks covering every line of the
// source file. Serializing an unmodified parse reproduces the input
// byte for byte, which is what makes "unmanaged content is never
// mutated" a structural guarantee instead of a regex side effect.
type MarkdownDoc struct {
	blocks          []Block
	trailingNewline bool
}

const (
	delimiterMarker = "%%"
	fenceMarker     = "```"
)

// ParseMarkdown splits markdown text into typed blocks.
func ParseMarkdown(text string) *MarkdownDoc {
	d := &MarkdownDoc{}
	lines := strings.Split(text, "\n")
	if n := len(lines); text != "" && lines[n-1] == "" {
		d.trailingNewline = true
		lines = lines[:n-1]
	}

	i := 0
	if len(lines) > 0 && lines[0] == "---" {
		j := 1
		for j < len(lines) && lines[j] != "---" {
			j++
		}
		if j < len(lines) {
			fm := Block{Kind: BlockFrontmatter}
			fm.Lines = append(fm.Lines, lines[:j+1]...)
			d.blocks = append(d.blocks, fm)
			i = j + 1
		}
	}

	for i < len(lines) {
		line := lines[i]
		switch {
		case line == delimiterMarker:
			d.blocks = append(d.blocks, Block{Kind: BlockDelimiter, Lines: []string{line}})
			i++
		case strings.HasPrefix(line, fenceMarker):
			blk := Block{
				Kind:  BlockFence,
				Tag:   strings.TrimSpace(strings.TrimPrefix(line, fenceMarker)),
				Lines: []string{line},
			}
			i++
			for i < len(lines) {
				blk.Lines = append(blk.Lines, lines[i])
				closed := lines[i] == fenceMarker
				i++
				if closed {
					break
				}
			}
			d.blocks = append(d.blocks, blk)
		case isHeading(line):
			level, title := splitHeading(line)
			blk := Block{Kind: BlockSection, Heading: title, Level: level, Lines: []string{line}}
			i++
			for i < len(lines) && !isStructural(lines[i]) {
				blk.Lines = append(blk.Lines, lines[i])
				i++
			}
			d.blocks = append(d.blocks, blk)
		default:
			blk := Block{Kind: BlockText}
			for i < len(lines) && !isStructural(lines[i]) {
				blk.Lines = append(blk.Lines, lines[i])
				i++
			}
			d.blocks = append(d.blocks, blk)
		}
	}
	return d
}

// String reassembles the document from its blocks.
func (d *MarkdownDoc) String() string {
	var all []string
	for _, b := range d.blocks {
		all = append(all, b.Lines...)
	}
	s := strings.Join(all, "\n")
	if d.trailingNewline {
		s += "\n"
	}
	return s
}

func isStructural(line string) bool {
	return line == delimiterMarker || strings.HasPrefix(line, fenceMarker) || isHeading(line)
}

// isHeading matches ATX headings at any level. Sub-headings count as
// section boundaries too, so a "## Notes" inside a managed region is
// its own block and survives rewrites.
func isHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	rest := strings.TrimLeft(line, "#")
	return rest == "" || strings.HasPrefix(rest, " ")
}

func splitHeading(line string) (int, string) {
	level := len(line) - len(strings.TrimLeft(line, "#"))
	return level, strings.TrimSpace(line[level:])
}

// sectionIndex finds a top-level section by heading text.
func (d *MarkdownDoc) sectionIndex(heading string) int {
	for i, b := range d.blocks {
		if b.Kind == BlockSection && b.Level == 1 && b.Heading == heading {
			return i
		}
	}
	return -1
}

// fenceIndex finds the first fenced block carrying one of the tags.
func (d *MarkdownDoc) fenceIndex(tags ...string) int {
	for i, b := range d.blocks {
		if b.Kind != BlockFence {
			continue
		}
		for _, tag := range tags {
			if b.Tag == tag {
				return i
			}
		}
	}
	return -1
}

func (d *MarkdownDoc) firstDelimiterIndex() int {
	for i, b := range d.blocks {
		if b.Kind == BlockDelimiter {
			return i
		}
	}
	return -1
}

// setSectionBody replaces a section's body, keeping the heading line.
// A non-empty body keeps one blank line before the next block, matching
// the plugin's own spacing.
func (d *MarkdownDoc) setSectionBody(i int, body []string) {
	heading := d.blocks[i].Lines[0]
	if i < len(d.blocks)-1 && len(body) > 0 && body[len(body)-1] != "" {
		body = append(body, "")
	}
	d.blocks[i].Lines = append([]string{heading}, body...)
}

// setFenceBody replaces a fence's interior, keeping the original tag.
func (d *MarkdownDoc) setFenceBody(i int, body []string) {
	open := d.blocks[i].Lines[0]
	lines := append([]string{open}, body...)
	d.blocks[i].Lines = append(lines, fenceMarker)
}

func (d *MarkdownDoc) insertAt(i int, b Block) {
	d.blocks = append(d.blocks, Block{})
	copy(d.blocks[i+1:], d.blocks[i:])
	d.blocks[i] = b
}

func (d *MarkdownDoc) appendBlock(b Block) {
	d.blocks = append(d.blocks, b)
}

func newSection(heading string, body []string) Block {
	return Block{
		Kind:    BlockSection,
		Heading: heading,
		Level:   1,
		Lines:   append([]string{"# " + heading}, body...),
	}
}
