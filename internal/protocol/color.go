package protocol

import "unicode/utf16"

// Palette is the fixed set of presence colours.
var Palette = []string{
	"#3498db", "#e74c3c", "#2ecc71", "#f39c12",
	"#9b59b6", "#1abc9c", "#e67e22",
}

// ColorFor picks a stable palette colour for a display name. The hash walks
// UTF-16 code units and truncates to 32 bits before every shift, so browser
// clients computing the same hash agree on the colour.
func ColorFor(name string) string {
	var h int64
	for _, c := range utf16.Encode([]rune(name)) {
		h = int64(c) + (int64(int32(uint32(h)<<5)) - h)
	}
	if h < 0 {
		h = -h
	}
	return Palette[h%int64(len(Palette))]
}
