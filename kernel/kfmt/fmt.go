// Package kfmt provides formatted output for the loader and the kernel. The
// formatting code never allocates so it can be used before the Go allocator
// is available and after the firmware boot services are gone.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize defines the buffer size for formatting numbers.
const numBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numBuf [numBufSize]byte

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer is a ring buffer that stores Printf output before an
	// output sink is registered.
	earlyPrintBuffer ringBuffer

	// outputSink is a io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the default target for calls to Printf.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf provides a minimal Printf implementation that does not allocate.
//
// The supported verbs are:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%d base 10 integer
//	%o base 8 integer
//	%x base 16 integer, lower-case a-f
//	%t "true" or "false"
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes. Pointers (%p) are not supported as they require
// reflection.
//
// Output goes to the registered output sink or, if none is registered yet,
// to a ring buffer that is flushed by SetOutputSink.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		i        int
	)

	for i < len(format) {
		if format[i] != '%' {
			writeByte(w, format[i])
			i++
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		i++

		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'o', 'x', 's', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch verb {
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'o':
			fmtInt(w, args[argIndex], 8, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 's':
			fmtString(w, args[argIndex], width)
		case 't':
			fmtBool(w, args[argIndex])
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

// fmtString prints a formatted version of string or []byte value v, applying
// the padding specified by width.
func fmtString(w io.Writer, v interface{}, width int) {
	switch sVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', width-len(sVal))
		// converting the string to a byte slice triggers a memory
		// allocation so it is written one byte at a time.
		for i := 0; i < len(sVal); i++ {
			writeByte(w, sVal[i])
		}
	case []byte:
		fmtRepeat(w, ' ', width-len(sVal))
		doWrite(w, sVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by width. All built-in integer types are supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval     uint64
		negative bool
		padCh    byte = '0'
		pos      = numBufSize
	)

	switch iVal := v.(type) {
	case uint8:
		uval = uint64(iVal)
	case uint16:
		uval = uint64(iVal)
	case uint32:
		uval = uint64(iVal)
	case uint64:
		uval = iVal
	case uint:
		uval = uint64(iVal)
	case uintptr:
		uval = uint64(iVal)
	case int8:
		uval, negative = abs(int64(iVal))
	case int16:
		uval, negative = abs(int64(iVal))
	case int32:
		uval, negative = abs(int64(iVal))
	case int64:
		uval, negative = abs(iVal)
	case int:
		uval, negative = abs(int64(iVal))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if base == 10 {
		padCh = ' '
	}

	if width > numBufSize-1 {
		width = numBufSize - 1
	}

	// Digits are written right to left
	for {
		pos--
		numBuf[pos] = "0123456789abcdef"[uval%base]
		uval /= base
		if uval == 0 {
			break
		}
	}

	switch padCh {
	case '0':
		// the sign goes in front of the zero padding
		for numBufSize-pos < width-signWidth(negative) {
			pos--
			numBuf[pos] = '0'
		}
		if negative {
			pos--
			numBuf[pos] = '-'
		}
	default:
		if negative {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = ' '
		}
	}

	doWrite(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func signWidth(negative bool) int {
	if negative {
		return 1
	}
	return 0
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

// doWrite is a proxy that uses the runtime.noescape hack to hide p from the
// compiler's escape analysis. Without this hack, the compiler flags p as
// escaping (the output sink is an unknown io.Writer) and every Printf call
// ends up allocating.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
