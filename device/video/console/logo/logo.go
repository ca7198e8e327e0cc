// Package logo contains monochrome bitmaps ("art") that the kernel draws on
// the framebuffer. Each art cell is a character: '@' marks a set pixel and any
// other character an unset one.
package logo

var (
	// The list of available banner art.
	availableArt []*Art
)

// SetCell is the character that marks a set pixel.
const SetCell = '@'

// Art describes a monochrome bitmap.
type Art struct {
	// The width and height of the art in pixels.
	Width  uint32
	Height uint32

	// Rows holds Width*Height cells in row-major order.
	Rows string
}

// Set returns true if the pixel at (x, y) is set. Coordinates outside the
// art or beyond the end of Rows are reported as unset.
func (a *Art) Set(x, y uint32) bool {
	if x >= a.Width || y >= a.Height {
		return false
	}

	index := y*a.Width + x
	return index < uint32(len(a.Rows)) && a.Rows[index] == SetCell
}

// BestFit returns the banner art whose height is closest to a tenth of the
// console height.
func BestFit(consoleWidth, consoleHeight uint32) *Art {
	var (
		best                *Art
		bestDelta, absDelta uint32
		threshold           = consoleHeight / 10
	)

	for _, a := range availableArt {
		if a.Width > consoleWidth {
			continue
		}

		if a.Height > threshold {
			absDelta = a.Height - threshold
		} else {
			absDelta = threshold - a.Height
		}

		if best == nil || absDelta < bestDelta {
			best = a
			bestDelta = absDelta
		}
	}

	return best
}
