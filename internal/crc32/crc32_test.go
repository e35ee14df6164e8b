package crc32

import (
	stdcrc32 "hash/crc32"
	"math/rand"
	"testing"
)

func TestUpdateCheckValue(t *testing.T) {
	if got := Update(0, []byte("123456789")); got != 0xcbf43926 {
		t.Errorf("CRC-32 check value: got %#08x, want 0xcbf43926", got)
	}
}

func TestUpdateMatchesStdlib(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, size := range []int{0, 1, 7, 8, 15, 16, 64, 1023, 65536} {
		p := make([]byte, size)
		for i := range p {
			p[i] = byte(rng.Intn(256))
		}
		if got, want := Update(0, p), stdcrc32.ChecksumIEEE(p); got != want {
			t.Errorf("size %d: got %#08x, want %#08x", size, got, want)
		}
	}
}

func TestUpdateIncremental(t *testing.T) {
	p := []byte("the quick brown fox jumps over the lazy dog, twice over")
	whole := Update(0, p)
	split := Update(Update(0, p[:13]), p[13:])
	if whole != split {
		t.Errorf("incremental CRC mismatch: %#08x vs %#08x", whole, split)
	}

	h := New()
	_, _ = h.Write(p[:20])
	_, _ = h.Write(p[20:])
	if h.Sum32() != whole {
		t.Errorf("Hash wrapper mismatch: %#08x vs %#08x", h.Sum32(), whole)
	}
}
