package blake2

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"lukechampine.com/uint128"
)

const (
	// BlockSize2b Size of a BLAKE2b message block in bytes
	BlockSize2b = 128
	// MaxSize2b Largest BLAKE2b digest size in bytes
	MaxSize2b = 64

	rounds2b = 12
)

var iv2b = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

// digest64 BLAKE2b hasher state. The byte counter is a true 128-bit
// value, bytes hashed so far, fed into the compression function split
// into low/high words.
type digest64 struct {
	h   [8]uint64
	t   uint128.Uint128
	buf [BlockSize2b]byte
	off int

	size int
	done bool
}

func newDigest64(size int) (*digest64, error) {
	if size < 1 || size > MaxSize2b {
		return nil, fmt.Errorf("%w: blake2b digest size %d out of range", ErrInvalidParameter, size)
	}

	d := &digest64{
		h:    iv2b,
		size: size,
	}
	// parameter block word 0: digest size, no key, fan-out 1, depth 1
	d.h[0] ^= uint64(size) | (1 << 16) | (1 << 24)
	return d, nil
}

func (d *digest64) Update(data []byte) error {
	if d.done {
		return fmt.Errorf("%w: update after finalize", ErrInvalidState)
	}

	for len(data) > 0 {
		if d.off == BlockSize2b {
			// more input follows, so the buffered block cannot be the
			// last one and is safe to compress
			d.t = d.t.Add64(BlockSize2b)
			d.compress(false)
			d.off = 0
		}
		n := copy(d.buf[d.off:], data)
		d.off += n
		data = data[n:]
	}

	return nil
}

func (d *digest64) Write(p []byte) (n int, err error) {
	if err = d.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *digest64) Finalize() ([]byte, error) {
	if d.done {
		return nil, fmt.Errorf("%w: already finalized", ErrInvalidState)
	}

	d.t = d.t.Add64(uint64(d.off))
	for i := d.off; i < BlockSize2b; i++ {
		d.buf[i] = 0
	}
	d.compress(true)
	d.done = true

	var out [MaxSize2b]byte
	for i, w := range d.h {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out[:d.size], nil
}

func (d *digest64) Size() int {
	return d.size
}

func (d *digest64) BlockSize() int {
	return BlockSize2b
}

func (d *digest64) compress(last bool) {
	var m [16]uint64
	for i := range m {
		m[i] = binary.LittleEndian.Uint64(d.buf[i*8:])
	}

	var v [16]uint64
	copy(v[:8], d.h[:])
	copy(v[8:], iv2b[:])
	v[12] ^= d.t.Lo
	v[13] ^= d.t.Hi
	if last {
		v[14] ^= math.MaxUint64
	}

	for r := 0; r < rounds2b; r++ {
		s := &sigma[r%10]
		g64(&v, 0, 4, 8, 12, m[s[0]], m[s[1]])
		g64(&v, 1, 5, 9, 13, m[s[2]], m[s[3]])
		g64(&v, 2, 6, 10, 14, m[s[4]], m[s[5]])
		g64(&v, 3, 7, 11, 15, m[s[6]], m[s[7]])
		g64(&v, 0, 5, 10, 15, m[s[8]], m[s[9]])
		g64(&v, 1, 6, 11, 12, m[s[10]], m[s[11]])
		g64(&v, 2, 7, 8, 13, m[s[12]], m[s[13]])
		g64(&v, 3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := range d.h {
		d.h[i] ^= v[i] ^ v[i+8]
	}
}

func g64(v *[16]uint64, a, b, c, d int, x, y uint64) {
	v[a] += v[b] + x
	v[d] = bits.RotateLeft64(v[d]^v[a], -32)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -24)
	v[a] += v[b] + y
	v[d] = bits.RotateLeft64(v[d]^v[a], -16)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -63)
}
