// Package fb implements drawing primitives on top of a linear 32-bit
// framebuffer described by a bootinfo.FrameBuffer.
package fb

import (
	"gopherboot/bootinfo"
	"gopherboot/device/video/console/font"
	"gopherboot/device/video/console/logo"
	"gopherboot/kernel"
	"gopherboot/kernel/mm"
	"image"
	"image/color"
)

var (
	errNoFramebuffer     = &kernel.Error{Module: "fb", Message: "framebuffer base address is null"}
	errUnsupportedFormat = &kernel.Error{Module: "fb", Message: "unsupported pixel format"}
	errInvalidStride     = &kernel.Error{Module: "fb", Message: "framebuffer stride is smaller than its width"}

	// mapRegionFn is mocked by tests.
	mapRegionFn = mm.MapRegion
)

// Surface is the only view of the framebuffer memory. All drawing
// operations go through PutPixel which silently clips coordinates that fall
// outside the visible area.
type Surface struct {
	mem []byte

	width  int
	height int
	stride int

	// byte offsets of each color channel inside a pixel.
	rOff, gOff, bOff int

	font *font.Font
}

// NewSurface maps the framebuffer described by desc and returns a Surface for
// drawing on it. Glyphs are drawn using font.VGA8x16.
func NewSurface(desc *bootinfo.FrameBuffer) (*Surface, *kernel.Error) {
	if desc.Base == 0 {
		return nil, errNoFramebuffer
	}

	if desc.Stride < desc.Width {
		return nil, errInvalidStride
	}

	s := &Surface{
		width:  int(desc.Width),
		height: int(desc.Height),
		stride: int(desc.Stride),
		font:   font.VGA8x16,
	}

	switch desc.Format {
	case bootinfo.RGB:
		s.rOff, s.gOff, s.bOff = 0, 1, 2
	case bootinfo.BGR:
		s.rOff, s.gOff, s.bOff = 2, 1, 0
	default:
		return nil, errUnsupportedFormat
	}

	mem, err := mapRegionFn(desc.Base, mm.Size(desc.Size()))
	if err != nil {
		return nil, err
	}
	s.mem = mem

	return s, nil
}

// SetFont selects the bitmap font used by DrawGlyph and DrawString.
func (s *Surface) SetFont(f *font.Font) {
	if f == nil {
		return
	}
	s.font = f
}

// Font returns the bitmap font used for drawing glyphs.
func (s *Surface) Font() *font.Font {
	return s.font
}

// Dimensions returns the visible width and height of the surface in pixels.
func (s *Surface) Dimensions() (uint32, uint32) {
	return uint32(s.width), uint32(s.height)
}

func (s *Surface) offset(x, y int) int {
	return (s.stride*y + x) * bootinfo.BytesPerPixel
}

// PutPixel sets the pixel at (x, y) to c. The alpha channel of c is ignored.
// Calls with coordinates outside the surface are no-ops.
func (s *Surface) PutPixel(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}

	off := s.offset(x, y)
	s.mem[off+s.rOff] = c.R
	s.mem[off+s.gOff] = c.G
	s.mem[off+s.bOff] = c.B
}

// DrawRect fills the rectangle [x, x+w) x [y, y+h) with c.
func (s *Surface) DrawRect(x, y, w, h int, c color.RGBA) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			s.PutPixel(px, py, c)
		}
	}
}

// Clear fills the entire surface with c.
func (s *Surface) Clear(c color.RGBA) {
	s.DrawRect(0, 0, s.width, s.height, c)
}

// DrawGlyph draws the glyph for r with its top-left corner at (x, y). Only
// the set pixels of the glyph are drawn. Code points without a glyph in the
// active font are drawn using the font's replacement glyph.
func (s *Surface) DrawGlyph(x, y int, r rune, c color.RGBA) {
	var (
		glyph      = s.font.Glyph(r)
		glyphIndex int
		mask       uint8
	)

	for gy := 0; gy < int(s.font.GlyphHeight); gy, glyphIndex = gy+1, glyphIndex+1 {
		if glyphIndex >= len(glyph) {
			return
		}

		rowData := glyph[glyphIndex]
		mask = 1 << 7
		for gx := 0; gx < int(s.font.GlyphWidth); gx, mask = gx+1, mask>>1 {
			// Fonts wider than 8 pixels use more than one byte per
			// row.
			if mask == 0 {
				if glyphIndex++; glyphIndex >= len(glyph) {
					return
				}
				rowData = glyph[glyphIndex]
				mask = 1 << 7
			}

			if rowData&mask != 0 {
				s.PutPixel(x+gx, y+gy, c)
			}
		}
	}
}

// DrawString draws text starting at (x, y), advancing by the glyph width for
// each character. Text is not wrapped.
func (s *Surface) DrawString(x, y int, text string, c color.RGBA) {
	for _, r := range text {
		s.DrawGlyph(x, y, r, c)
		x += int(s.font.GlyphWidth)
	}
}

// DrawBitmapArt draws a textual bitmap of artWidth x artHeight cells with
// its top-left corner at (x, y). Cells are stored in row-major order; a '@'
// cell sets the pixel and any other character leaves it untouched.
func (s *Surface) DrawBitmapArt(x, y int, art string, artWidth, artHeight int, c color.RGBA) {
	for ay := 0; ay < artHeight; ay++ {
		for ax := 0; ax < artWidth; ax++ {
			index := ay*artWidth + ax
			if index >= len(art) {
				return
			}

			if art[index] == logo.SetCell {
				s.PutPixel(x+ax, y+ay, c)
			}
		}
	}
}

// DrawArt draws a logo.Art bitmap with its top-left corner at (x, y).
func (s *Surface) DrawArt(x, y int, art *logo.Art, c color.RGBA) {
	s.DrawBitmapArt(x, y, art.Rows, int(art.Width), int(art.Height), c)
}

// ColorModel implements image.Image.
func (s *Surface) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// At implements image.Image by decoding the pixel stored at (x, y). Pixels
// outside the surface are reported as transparent black.
func (s *Surface) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return color.RGBA{}
	}

	off := s.offset(x, y)
	return color.RGBA{R: s.mem[off+s.rOff], G: s.mem[off+s.gOff], B: s.mem[off+s.bOff], A: 0xff}
}
