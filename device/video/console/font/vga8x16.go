package font

import (
	"image"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	vgaGlyphWidth  = 8
	vgaGlyphHeight = 16
	vgaGlyphCount  = 256

	// baseline row inside the 16-pixel cell; leaves 2 empty rows above
	// the tallest glyph.
	vgaBaseline = 13
)

// VGA8x16 is an 8x16 font covering code points 0-255. Printable ASCII and
// Latin-1 glyphs are rasterised from the 7x13 face of x/image at package
// init; control characters are blank.
var VGA8x16 = &Font{
	Name:              "vga8x16",
	GlyphWidth:        vgaGlyphWidth,
	GlyphHeight:       vgaGlyphHeight,
	RecommendedWidth:  640,
	RecommendedHeight: 480,
	Priority:          1,
	BytesPerRow:       1,
}

func init() {
	VGA8x16.Data, VGA8x16.Replacement = rasterize(basicfont.Face7x13)
	availableFonts = append(availableFonts, VGA8x16)
}

// rasterize renders the glyphs of face into a table of vgaGlyphCount 8x16
// cells and builds a hollow box replacement glyph. Code points the face
// does not cover (it substitutes U+FFFD for them) stay blank.
func rasterize(face xfont.Face) ([]byte, []byte) {
	data := make([]byte, vgaGlyphCount*vgaGlyphHeight)

	dot := fixed.P(0, vgaBaseline)
	_, _, missingMaskp, _, _ := face.Glyph(dot, '\ufffd')

	for r := rune(0); r < vgaGlyphCount; r++ {
		if r < 0x20 || (r >= 0x7f && r < 0xa0) {
			continue
		}

		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if !ok || mask == nil || maskp == missingMaskp {
			continue
		}

		drawMask(data[int(r)*vgaGlyphHeight:(int(r)+1)*vgaGlyphHeight], dr, mask, maskp)
	}

	return data, hollowBox()
}

// drawMask sets the bits of glyph that correspond to opaque mask pixels.
func drawMask(glyph []byte, dr image.Rectangle, mask image.Image, maskp image.Point) {
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		if y < 0 || y >= vgaGlyphHeight {
			continue
		}

		for x := dr.Min.X; x < dr.Max.X; x++ {
			if x < 0 || x >= vgaGlyphWidth {
				continue
			}

			_, _, _, a := mask.At(maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y).RGBA()
			if a >= 0x8000 {
				glyph[y] |= 1 << (7 - uint(x))
			}
		}
	}
}

func hollowBox() []byte {
	glyph := make([]byte, vgaGlyphHeight)
	glyph[2], glyph[13] = 0x7e, 0x7e
	for y := 3; y < 13; y++ {
		glyph[y] = 0x42
	}
	return glyph
}
