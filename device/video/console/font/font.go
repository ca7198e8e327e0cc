// Package font contains the bitmap fonts used by the framebuffer renderer.
package font

var (
	// The list of available fonts.
	availableFonts []*Font
)

// Font describes a bitmap font that can be used by a console device.
type Font struct {
	// The name of the font
	Name string

	// The width of each glyph in pixels.
	GlyphWidth uint32

	// The height of each glyph in pixels.
	GlyphHeight uint32

	// The recommended console resolution for this font.
	RecommendedWidth  uint32
	RecommendedHeight uint32

	// Font priority (lower is better). When auto-detecting a font to use, the font with
	// the lowest priority will be preferred
	Priority uint32

	// The number of bytes describing a row in a glyph.
	BytesPerRow uint32

	// The font bitmap. Each character consists of BytesPerRow * Height
	// bytes where each bit indicates whether a pixel should be set to the
	// foreground color. The most significant bit of each row byte
	// corresponds to the leftmost pixel.
	Data []byte

	// Replacement is drawn for code points that have no entry in Data.
	Replacement []byte
}

// GlyphCount returns the number of code points covered by the font table.
func (f *Font) GlyphCount() int {
	glyphSize := int(f.BytesPerRow * f.GlyphHeight)
	if glyphSize == 0 {
		return 0
	}
	return len(f.Data) / glyphSize
}

// Glyph returns the bitmap for code point r. Code points outside the font
// table are mapped to the replacement glyph.
func (f *Font) Glyph(r rune) []byte {
	glyphSize := int(f.BytesPerRow * f.GlyphHeight)
	if r < 0 || int(r) >= f.GlyphCount() {
		return f.Replacement
	}

	offset := int(r) * glyphSize
	return f.Data[offset : offset+glyphSize]
}

// FindByName looks up a font instance by name. If the font is not found then
// the function returns nil.
func FindByName(name string) *Font {
	for _, f := range availableFonts {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// BestFit returns the best font from the available font list given the
// specified console dimensions. If multiple fonts match the dimension criteria
// then their priority attribute is used to select one.
//
// The font with the lowest sum of absolute differences between its
// recommended dimensions and the console dimensions wins; ties go to the
// font with the lowest priority value.
func BestFit(consoleWidth, consoleHeight uint32) *Font {
	var (
		best      *Font
		bestDelta uint32
	)

	for _, f := range availableFonts {
		delta := absDiff(f.RecommendedWidth, consoleWidth) + absDiff(f.RecommendedHeight, consoleHeight)

		switch {
		case best == nil:
		case delta > bestDelta:
			continue
		case delta == bestDelta && f.Priority >= best.Priority:
			continue
		}

		best = f
		bestDelta = delta
	}

	return best
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
