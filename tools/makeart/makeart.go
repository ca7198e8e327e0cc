package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/parser"
	"go/printer"
	"go/token"
	"image"
	"image/color"
	"os"

	"github.com/pkg/errors"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// The number of cells emitted per line of generated source.
const cellsPerLine = 64

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[makeart] error: %s\n", err.Error())
	os.Exit(1)
}

// pixelSet returns true if the pixel at (x, y) is opaque and differs from
// the transparent color.
func pixelSet(img image.Image, x, y int, transColor color.RGBA) bool {
	r, g, b, a := img.At(x, y).RGBA()
	if a < 0x8000 {
		return false
	}

	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)} != transColor
}

func genArtFile(img image.Image, transColor color.RGBA, artVar string, banner bool) (string, error) {
	var (
		buf        bytes.Buffer
		bounds     = img.Bounds()
		artVarName = fmt.Sprintf("%s%dx%d", artVar, bounds.Size().X, bounds.Size().Y)
		cells      int
	)

	if bounds.Empty() {
		return "", errors.New("image has no pixels")
	}

	// Output header
	fmt.Fprintf(&buf, `
package logo

var %s = Art{
Width: %d,
Height: %d,
Rows: "" +
`, artVarName, bounds.Size().X, bounds.Size().Y)

	// Output image data
	buf.WriteByte('"')
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x, cells = x+1, cells+1 {
			if cells != 0 && cells%cellsPerLine == 0 {
				buf.WriteString("\" +\n\"")
			}

			if pixelSet(img, x, y, transColor) {
				buf.WriteByte('@')
			} else {
				buf.WriteByte('.')
			}
		}
	}
	fmt.Fprint(&buf, "\",\n}\n")

	// Footer
	if banner {
		fmt.Fprintf(&buf, "func init(){\navailableArt = append(availableArt, &%s)\n}\n", artVarName)
	}

	return buf.String(), nil
}

func runTool() error {
	transR := flag.Uint("trans-r", 255, "the red component value for the transparent color")
	transG := flag.Uint("trans-g", 255, "the green component value for the transparent color")
	transB := flag.Uint("trans-b", 255, "the blue component value for the transparent color")
	artVar := flag.String("var-name", "Art", "the name prefix of the variable containing the art")
	banner := flag.Bool("banner", true, "register the art as a banner candidate")
	output := flag.String("out", "-", "a file to write the generated art or - to output to STDOUT")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "makeart: convert a png/jpg/gif or bmp image to monochrome kernel art\n\n")
		fmt.Fprint(os.Stderr, "Usage: makeart [options] image\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		exit(errors.New("missing image file argument"))
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", flag.Arg(0))
	}

	artData, err := genArtFile(
		img,
		color.RGBA{R: uint8(*transR), G: uint8(*transG), B: uint8(*transB)},
		*artVar,
		*banner,
	)
	if err != nil {
		return err
	}

	// Pretty-print generated file using go/printer
	fSet := token.NewFileSet()
	astFile, err := parser.ParseFile(fSet, "", artData, parser.ParseComments)
	if err != nil {
		return errors.Wrap(err, "parsing generated source")
	}

	switch *output {
	case "-":
		printer.Fprint(os.Stdout, fSet, astFile)
	default:
		fOut, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer fOut.Close()

		printer.Fprint(fOut, fSet, astFile)
	}

	return nil
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
