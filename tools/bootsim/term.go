package main

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

var (
	prefixColor = ansi.ColorCode("cyan+b")
	errorColor  = ansi.ColorCode("red+b")
)

// termWriter forwards kfmt output to a terminal one line at a time. When
// color is enabled, the "[component]" prefix of each line is highlighted and
// lines reporting failures are shown in red.
type termWriter struct {
	w     io.Writer
	color bool
	line  []byte
}

// newTermWriter returns a termWriter for f that only emits color codes when f
// is a terminal.
func newTermWriter(f *os.File) *termWriter {
	fd := f.Fd()
	return &termWriter{
		w:     f,
		color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// Write implements io.Writer.
func (tw *termWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		tw.line = append(tw.line, b)
		if b != '\n' {
			continue
		}

		if err := tw.Flush(); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Flush writes out any buffered partial line.
func (tw *termWriter) Flush() error {
	if len(tw.line) == 0 {
		return nil
	}

	_, err := tw.w.Write(tw.colorize(tw.line))
	tw.line = tw.line[:0]
	return err
}

func (tw *termWriter) colorize(line []byte) []byte {
	if !tw.color {
		return line
	}

	if bytes.Contains(line, []byte("unrecoverable")) || bytes.Contains(line, []byte("failed")) {
		return []byte(errorColor + string(bytes.TrimRight(line, "\n")) + ansi.Reset + "\n")
	}

	if len(line) == 0 || line[0] != '[' {
		return line
	}

	end := bytes.IndexByte(line, ']')
	if end < 0 {
		return line
	}

	return []byte(prefixColor + string(line[:end+1]) + ansi.Reset + string(line[end+1:]))
}
