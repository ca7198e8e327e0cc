package kernel

import "testing"

func TestMemset(t *testing.T) {
	for _, size := range []int{0, 1, 7, 4096, 4097} {
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = 0xaa
		}

		Memset(buf, 0)
		for i, b := range buf {
			if b != 0 {
				t.Fatalf("[size %d] expected byte %d to be 0; got 0x%x", size, i, b)
			}
		}
	}
}

func TestMemcopy(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 8)

	if got := Memcopy(src, dst); got != len(src) {
		t.Fatalf("expected Memcopy to copy %d bytes; got %d", len(src), got)
	}

	for i, exp := range []byte{1, 2, 3, 4, 0, 0, 0, 0} {
		if dst[i] != exp {
			t.Errorf("expected dst[%d] to be %d; got %d", i, exp, dst[i])
		}
	}
}
