package kfmt

import "io"

// PrefixWriter is an io.Writer that injects Prefix at the start of every line
// it forwards to Sink. Trap reporting uses it to tag register dumps.
type PrefixWriter struct {
	// Sink receives the prefixed output.
	Sink io.Writer

	// Prefix is written before the first byte of each line.
	Prefix []byte

	midLine bool
}

// Write forwards p to Sink, inserting Prefix after every line feed that is
// followed by more data. The returned count excludes the injected prefixes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, lineStart int

	for i := 0; i < len(p); i++ {
		if !w.midLine {
			w.Sink.Write(w.Prefix)
			w.midLine = true
		}

		if p[i] != '\n' {
			continue
		}

		n, err := w.Sink.Write(p[lineStart : i+1])
		written += n
		if err != nil {
			return written, err
		}
		lineStart = i + 1
		w.midLine = false
	}

	if lineStart < len(p) {
		n, err := w.Sink.Write(p[lineStart:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
