package store

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"/vault/obsidian/test.excalidraw.md", FormatObsidian},
		{"/vault/Obsidian/test.excalidraw.md", FormatObsidian},
		{"/vault/obsidian/test.excalidraw", FormatObsidian},
		{"/vault/obsidian/deep/nested/test.excalidraw.md", FormatObsidian},
		{"/vault/test.excalidraw.md", FormatNative},
		{"/vault/test.excalidraw", FormatNative},
		{"/vault/obsidian/test.json", FormatNative},
		{"/vault/obsidianish/test.excalidraw.md", FormatNative},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ref := Resolve(tt.path)
			if ref.Format != tt.want {
				t.Errorf("Resolve(%q).Format = %v, want %v", tt.path, ref.Format, tt.want)
			}
			if ref.Path != tt.path {
				t.Errorf("Resolve changed path: %q", ref.Path)
			}
		})
	}
}
