package blake2

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

const (
	// BlockSize2s Size of a BLAKE2s message block in bytes
	BlockSize2s = 64
	// MaxSize2s Largest BLAKE2s digest size in bytes
	MaxSize2s = 32

	rounds2s = 10
)

var iv2s = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// digest32 BLAKE2s hasher state. The byte counter is 64-bit, kept as
// the low/high uint32 pair the compression function consumes.
type digest32 struct {
	h      [8]uint32
	t0, t1 uint32
	buf    [BlockSize2s]byte
	off    int

	size int
	done bool
}

func newDigest32(size int) (*digest32, error) {
	if size < 1 || size > MaxSize2s {
		return nil, fmt.Errorf("%w: blake2s digest size %d out of range", ErrInvalidParameter, size)
	}

	d := &digest32{
		h:    iv2s,
		size: size,
	}
	// parameter block word 0: digest size, no key, fan-out 1, depth 1
	d.h[0] ^= uint32(size) | (1 << 16) | (1 << 24)
	return d, nil
}

func (d *digest32) advance(n uint32) {
	d.t0 += n
	if d.t0 < n {
		d.t1++
	}
}

func (d *digest32) Update(data []byte) error {
	if d.done {
		return fmt.Errorf("%w: update after finalize", ErrInvalidState)
	}

	for len(data) > 0 {
		if d.off == BlockSize2s {
			// more input follows, so the buffered block cannot be the
			// last one and is safe to compress
			d.advance(BlockSize2s)
			d.compress(false)
			d.off = 0
		}
		n := copy(d.buf[d.off:], data)
		d.off += n
		data = data[n:]
	}

	return nil
}

func (d *digest32) Write(p []byte) (n int, err error) {
	if err = d.Update(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *digest32) Finalize() ([]byte, error) {
	if d.done {
		return nil, fmt.Errorf("%w: already finalized", ErrInvalidState)
	}

	d.advance(uint32(d.off))
	for i := d.off; i < BlockSize2s; i++ {
		d.buf[i] = 0
	}
	d.compress(true)
	d.done = true

	var out [MaxSize2s]byte
	for i, w := range d.h {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out[:d.size], nil
}

func (d *digest32) Size() int {
	return d.size
}

func (d *digest32) BlockSize() int {
	return BlockSize2s
}

func (d *digest32) compress(last bool) {
	var m [16]uint32
	for i := range m {
		m[i] = binary.LittleEndian.Uint32(d.buf[i*4:])
	}

	var v [16]uint32
	copy(v[:8], d.h[:])
	copy(v[8:], iv2s[:])
	v[12] ^= d.t0
	v[13] ^= d.t1
	if last {
		v[14] ^= math.MaxUint32
	}

	for r := 0; r < rounds2s; r++ {
		s := &sigma[r]
		g32(&v, 0, 4, 8, 12, m[s[0]], m[s[1]])
		g32(&v, 1, 5, 9, 13, m[s[2]], m[s[3]])
		g32(&v, 2, 6, 10, 14, m[s[4]], m[s[5]])
		g32(&v, 3, 7, 11, 15, m[s[6]], m[s[7]])
		g32(&v, 0, 5, 10, 15, m[s[8]], m[s[9]])
		g32(&v, 1, 6, 11, 12, m[s[10]], m[s[11]])
		g32(&v, 2, 7, 8, 13, m[s[12]], m[s[13]])
		g32(&v, 3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := range d.h {
		d.h[i] ^= v[i] ^ v[i+8]
	}
}

func g32(v *[16]uint32, a, b, c, d int, x, y uint32) {
	v[a] += v[b] + x
	v[d] = bits.RotateLeft32(v[d]^v[a], -16)
	v[c] += v[d]
	v[b] = bits.RotateLeft32(v[b]^v[c], -12)
	v[a] += v[b] + y
	v[d] = bits.RotateLeft32(v[d]^v[a], -8)
	v[c] += v[d]
	v[b] = bits.RotateLeft32(v[b]^v[c], -7)
}
