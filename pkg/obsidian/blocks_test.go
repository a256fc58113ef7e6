package obsidian

import (
	"strings"
	"testing"
)

const sampleMarkdown = `---
excalidraw-plugin: parsed
tags: [excalidraw]
---
==banner text==

# Text Elements
Hello ^abc123

## Notes
free-form note the codec must never touch

# Embedded Files
f1: [[f1.png]]
%%
# Drawing
` + "```compressed-json" + `
PAYLOAD
` + "```" + `
%%
`

func TestParseRoundTripIsByteIdentical(t *testing.T) {
	cases := []string{
		sampleMarkdown,
		"",
		"just a line of text",
		"# Heading only",
		"---\nkey: value\n---\nbody",
		"no trailing newline\n# Section\nbody",
	}
	for _, in := range cases {
		if got := ParseMarkdown(in).String(); got != in {
			t.Errorf("Round trip changed content.\nInput:\n%q\nOutput:\n%q", in, got)
		}
	}
}

func TestParseBlockKinds(t *testing.T) {
	d := ParseMarkdown(sampleMarkdown)

	if d.blocks[0].Kind != BlockFrontmatter {
		t.Errorf("Expected frontmatter first, got kind %d", d.blocks[0].Kind)
	}
	if i := d.sectionIndex("Text Elements"); i < 0 {
		t.Error("Text Elements section not found")
	}
	if i := d.sectionIndex("Embedded Files"); i < 0 {
		t.Error("Embedded Files section not found")
	}
	if i := d.sectionIndex("Notes"); i >= 0 {
		t.Error("Sub-heading Notes should not match as a top-level section")
	}
	if i := d.fenceIndex("compressed-json", "json"); i < 0 {
		t.Error("Drawing fence not found")
	} else if body := d.blocks[i].body(); len(body) != 1 || body[0] != "PAYLOAD" {
		t.Errorf("Unexpected fence body: %v", body)
	}
	if d.firstDelimiterIndex() < 0 {
		t.Error("Delimiter not found")
	}
}

func TestSubHeadingIsOwnBlock(t *testing.T) {
	d := ParseMarkdown(sampleMarkdown)
	ti := d.sectionIndex("Text Elements")
	d.setSectionBody(ti, []string{"New text ^xyz"})

	out := d.String()
	if !strings.Contains(out, "## Notes\nfree-form note the codec must never touch") {
		t.Errorf("Sub-heading content lost:\n%s", out)
	}
	if strings.Contains(out, "Hello ^abc123") {
		t.Error("Old section body still present")
	}
	if !strings.Contains(out, "# Text Elements\nNew text ^xyz") {
		t.Errorf("New body not written:\n%s", out)
	}
}

func TestSetFenceBodyKeepsTag(t *testing.T) {
	d := ParseMarkdown(sampleMarkdown)
	i := d.fenceIndex("compressed-json", "json")
	d.setFenceBody(i, []string{"NEW1", "", "NEW2"})

	out := d.String()
	if !strings.Contains(out, "```compressed-json\nNEW1\n\nNEW2\n```") {
		t.Errorf("Fence not rewritten:\n%s", out)
	}
}

func TestInsertAt(t *testing.T) {
	d := ParseMarkdown("# First\nbody\n%%\n")
	di := d.firstDelimiterIndex()
	d.insertAt(di, newSection("Second", []string{"inserted"}))

	out := d.String()
	want := "# First\nbody\n# Second\ninserted\n%%\n"
	if out != want {
		t.Errorf("Insert produced:\n%q\nwant:\n%q", out, want)
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Text Elements", true},
		{"## Notes", true},
		{"#", true},
		{"#tag", false},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHeading(tt.line); got != tt.want {
			t.Errorf("isHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
