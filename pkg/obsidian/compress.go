package obsidian

import (
	"fmt"

	lzstring "github.com/daku10/go-lz-string"
)

// payloadLineWidth is the wrap width the Obsidian Excalidraw plugin
// uses for the compressed payload; chunks are blank-line separated.
const payloadLineWidth = 256

// compressPayload LZ-string compresses JSON text and wraps it into
// fence-ready lines.
func compressPayload(jsonText []byte) ([]string, error) {
	compressed, err := lzstring.CompressToBase64(string(jsonText))
	if err != nil {
		return nil, fmt.Errorf("compress drawing: %w", err)
	}
	return wrapPayload(compressed, payloadLineWidth), nil
}

func wrapPayload(s string, width int) []string {
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width], "")
		s = s[width:]
	}
	return append(lines, s)
}

func decompressPayload(s string) (string, error) {
	out, err := lzstring.DecompressFromBase64(s)
	if err != nil {
		return "", fmt.Errorf("decompress drawing: %w", err)
	}
	return out, nil
}
