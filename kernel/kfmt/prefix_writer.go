package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to. If nil, writes go to the
	// output sink registered with SetOutputSink at the time of the write.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	bytesAfterPrefix int
}

// Write writes len(p) bytes from p to the underlying data stream and returns
// back the number of bytes written. The injected prefix is not included in
// the number of written bytes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var (
		written    int
		lineStart  int
		sinkFailed error
	)

	for i := 0; i < len(p) && sinkFailed == nil; i++ {
		if w.bytesAfterPrefix == 0 && i == lineStart {
			w.sinkWrite(w.Prefix)
		}

		if p[i] != '\n' {
			continue
		}

		n, err := w.sinkWrite(p[lineStart : i+1])
		written += n
		sinkFailed = err
		w.bytesAfterPrefix = 0
		lineStart = i + 1
	}

	if sinkFailed != nil {
		return written, sinkFailed
	}

	if lineStart < len(p) {
		n, err := w.sinkWrite(p[lineStart:])
		written += n
		w.bytesAfterPrefix += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func (w *PrefixWriter) sinkWrite(p []byte) (int, error) {
	switch {
	case w.Sink != nil:
		return w.Sink.Write(p)
	case outputSink != nil:
		return outputSink.Write(p)
	default:
		return earlyPrintBuffer.Write(p)
	}
}
