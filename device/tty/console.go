// Package tty implements a line console on top of a framebuffer surface.
package tty

import (
	"image/color"
	"unicode/utf8"
)

const (
	// DefaultWidth and DefaultHeight define the console size in cells.
	DefaultWidth  = 80
	DefaultHeight = 25

	// DefaultTabWidth defines the number of spaces that tabs expand to.
	DefaultTabWidth = 4

	// CellWidth and CellHeight define the size of a console cell in
	// pixels: an 8x16 glyph plus 4 pixels of line spacing.
	CellWidth  = 8
	CellHeight = 20
)

// Surface is implemented by the drawing targets a Console can write to.
type Surface interface {
	Dimensions() (uint32, uint32)
	DrawGlyph(x, y int, r rune, c color.RGBA)
	DrawRect(x, y, w, h int, c color.RGBA)
}

// Console is a write-only text console. It interprets the following special
// characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \t (tab; expanded to DefaultTabWidth spaces)
//
// Lines longer than the console width wrap to the next line. Once output
// passes the last line, the cursor returns to the first line and each line is
// cleared before it is reused; framebuffer contents are never read back to
// scroll.
type Console struct {
	surface Surface

	// pixel offset of the top-left cell.
	originX, originY int

	width, height int

	cursorX, cursorY int

	// wrapped is set once output has passed the last line.
	wrapped bool

	fg, bg color.RGBA

	// partial UTF-8 sequence carried between writes.
	pending    [utf8.UTFMax]byte
	pendingLen int
}

// NewConsole creates a console that draws on surface starting offsetY pixels
// below its top edge. The console size is DefaultWidth x DefaultHeight cells
// clipped to the surface.
func NewConsole(surface Surface, offsetY int, fg, bg color.RGBA) *Console {
	pxW, pxH := surface.Dimensions()
	if offsetY < 0 || offsetY > int(pxH) {
		offsetY = 0
	}

	return &Console{
		surface: surface,
		originY: offsetY,
		width:   min(DefaultWidth, int(pxW)/CellWidth),
		height:  min(DefaultHeight, (int(pxH)-offsetY)/CellHeight),
		fg:      fg,
		bg:      bg,
	}
}

// Dimensions returns the console width and height in cells.
func (c *Console) Dimensions() (int, int) {
	return c.width, c.height
}

// CursorPosition returns the current cursor cell coordinates. Both
// coordinates are 0-based.
func (c *Console) CursorPosition() (int, int) {
	return c.cursorX, c.cursorY
}

// SetColors sets the foreground color for text and the background color used
// when clearing lines.
func (c *Console) SetColors(fg, bg color.RGBA) {
	c.fg, c.bg = fg, bg
}

// Clear fills the console area with the background color and moves the
// cursor to the top-left cell.
func (c *Console) Clear() {
	c.surface.DrawRect(c.originX, c.originY, c.width*CellWidth, c.height*CellHeight, c.bg)
	c.cursorX, c.cursorY, c.wrapped = 0, 0, false
}

// Write implements io.Writer. UTF-8 sequences may be split across calls.
func (c *Console) Write(data []byte) (int, error) {
	for _, b := range data {
		c.WriteByte(b)
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (c *Console) WriteByte(b byte) error {
	if c.pendingLen == 0 && b < utf8.RuneSelf {
		c.WriteRune(rune(b))
		return nil
	}

	c.pending[c.pendingLen] = b
	c.pendingLen++

	if !utf8.FullRune(c.pending[:c.pendingLen]) {
		return nil
	}

	r, size := utf8.DecodeRune(c.pending[:c.pendingLen])
	c.WriteRune(r)

	// An invalid sequence consumes a single byte; replay the rest.
	rest := c.pending[size:c.pendingLen]
	c.pendingLen = 0
	for _, b := range rest {
		c.WriteByte(b)
	}

	return nil
}

// WriteRune outputs a single character at the cursor position and advances
// the cursor.
func (c *Console) WriteRune(r rune) {
	if c.width == 0 || c.height == 0 {
		return
	}

	switch r {
	case '\r':
		c.cursorX = 0
	case '\n':
		c.lf()
	case '\t':
		for i := 0; i < DefaultTabWidth; i++ {
			c.WriteRune(' ')
		}
	default:
		if c.cursorX >= c.width {
			c.lf()
		}

		c.surface.DrawGlyph(c.originX+c.cursorX*CellWidth, c.originY+c.cursorY*CellHeight, r, c.fg)
		c.cursorX++
	}
}

// lf moves the cursor to the beginning of the next line, wrapping around to
// the first line after the last one.
func (c *Console) lf() {
	c.cursorX = 0
	c.cursorY++

	if c.cursorY >= c.height {
		c.cursorY = 0
		c.wrapped = true
	}

	if c.wrapped {
		c.surface.DrawRect(c.originX, c.originY+c.cursorY*CellHeight, c.width*CellWidth, CellHeight, c.bg)
	}
}
