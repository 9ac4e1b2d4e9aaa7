package mem

import (
	"testing"
	"unsafe"
)

func TestMemset(t *testing.T) {
	// memset with a 0 size should be a no-op
	Memset(uintptr(0), 0x00, 0)

	for _, size := range []Size{1, 3, 96, 97, Kb, 4*Kb + 5} {
		// Guard bytes on both sides must survive.
		buf := make([]byte, size+2)
		for i := range buf {
			buf[i] = 0xFE
		}

		Memset(uintptr(unsafe.Pointer(&buf[1])), 0x00, size)

		if buf[0] != 0xFE || buf[len(buf)-1] != 0xFE {
			t.Errorf("[size %d] expected guard bytes to be untouched; got 0x%x 0x%x", size, buf[0], buf[len(buf)-1])
		}
		for i := 1; i <= int(size); i++ {
			if got := buf[i]; got != 0x00 {
				t.Errorf("[size %d] expected byte: %d to be 0x00; got 0x%x", size, i, got)
				break
			}
		}
	}
}
