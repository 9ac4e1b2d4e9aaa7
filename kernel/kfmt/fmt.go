// Package kfmt is the allocation-free formatter used by code that runs in
// trap context or before the runtime is fully initialized.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize bounds the number of digits and of padding characters that a
// single integer verb can produce.
const numBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")
	hexDigits       = "0123456789abcdef"

	numBuf [numBufSize]byte

	// oneByte is the shared buffer for single-character writes.
	oneByte = []byte{0}

	// earlyBuffer collects output until SetOutputSink attaches a device.
	earlyBuffer ringBuffer

	// outputSink receives Printf output. A nil sink means earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink redirects Printf output to w and flushes anything collected
// by the early buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

// GetOutputSink returns the active output sink, or the early buffer if no
// sink has been attached yet.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyBuffer
	}
	return outputSink
}

// Printf writes formatted output to the active output sink. It supports the
// following subset of the fmt verbs, each with an optional decimal width:
//
//	%s  string or []byte, left-padded with spaces
//	%d  base 10 integer, left-padded with spaces
//	%x  base 16 integer, lower-case, left-padded with zeroes
//	%t  bool
//
// Printf never allocates, which makes it usable from a trap handler before
// the Go allocator is available. Arguments are not checked for fmt.Stringer.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		i        int
		n        = len(format)
	)

	for i < n {
		if format[i] != '%' {
			writeByte(w, format[i])
			i++
			continue
		}

		width = 0
		for i++; i < n && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == n {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		i++

		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 's', 'd', 'x', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch verb {
		case 's':
			fmtString(w, args[argIndex], width)
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 't':
			fmtBool(w, args[argIndex])
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		pad(w, ' ', width-len(s))
		// string to []byte conversion allocates.
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		pad(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

func pad(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt formats v in the requested base, padding the output to width
// characters. Padding never exceeds numBufSize characters.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		val uint64
		neg bool
	)

	switch t := v.(type) {
	case uint8:
		val = uint64(t)
	case uint16:
		val = uint64(t)
	case uint32:
		val = uint64(t)
	case uint64:
		val = t
	case uintptr:
		val = uint64(t)
	case uint:
		val = uint64(t)
	case int8:
		val, neg = abs(int64(t))
	case int16:
		val, neg = abs(int64(t))
	case int32:
		val, neg = abs(int64(t))
	case int64:
		val, neg = abs(t)
	case int:
		val, neg = abs(int64(t))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	// Digits are produced right to left.
	start := numBufSize
	for {
		start--
		numBuf[start] = hexDigits[val%base]
		val /= base
		if val == 0 {
			break
		}
	}

	padLen := width - (numBufSize - start)
	if neg {
		padLen--
	}
	if padLen > numBufSize {
		padLen = numBufSize
	}

	// Space padding goes in front of the sign, zero padding after it.
	if base == 10 {
		pad(w, ' ', padLen)
		if neg {
			writeByte(w, '-')
		}
	} else {
		if neg {
			writeByte(w, '-')
		}
		pad(w, '0', padLen)
	}

	doWrite(w, numBuf[start:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func writeByte(w io.Writer, b byte) {
	oneByte[0] = b
	doWrite(w, oneByte)
}

// doWrite hides p from escape analysis. Without it the call through the
// io.Writer interface makes every argument slice escape, and each Printf
// would allocate.
func doWrite(w io.Writer, p []byte) {
	realWrite(w, noEscape(unsafe.Pointer(&p)))
}

func realWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
		return
	}
	earlyBuffer.Write(p)
}

// noEscape is runtime.noescape.
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
