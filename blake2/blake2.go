// Package blake2 implements the BLAKE2b and BLAKE2s hash functions in
// unkeyed sequential mode, with digest sizes from one byte up to the
// variant maximum.
package blake2

import (
	"errors"
	"fmt"
	"io"

	"git.gammaspectra.live/P2Pool/b2sum/types"
)

var (
	ErrInvalidParameter = errors.New("blake2: invalid parameter")
	ErrInvalidState     = errors.New("blake2: invalid state")
)

//nolint:recvcheck
type Variant uint8

const (
	Blake2b = Variant(iota)
	Blake2s
)

func (v Variant) String() string {
	switch v {
	case Blake2b:
		return "blake2b"
	case Blake2s:
		return "blake2s"
	default:
		return "unknown"
	}
}

// Tag Algorithm name as printed in BSD-style tagged checksum lines
func (v Variant) Tag() string {
	switch v {
	case Blake2b:
		return "BLAKE2b"
	case Blake2s:
		return "BLAKE2s"
	default:
		return "unknown"
	}
}

// MaxSize Largest digest size in bytes the variant can produce
func (v Variant) MaxSize() int {
	if v == Blake2b {
		return 64
	}
	return 32
}

func (v Variant) BlockSize() int {
	if v == Blake2b {
		return BlockSize2b
	}
	return BlockSize2s
}

func (v Variant) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

func (v *Variant) UnmarshalJSON(buf []byte) error {
	if len(buf) < 2 || buf[0] != '"' || buf[len(buf)-1] != '"' {
		return fmt.Errorf("%w: invalid variant", ErrInvalidParameter)
	}
	parsed, err := VariantFromString(string(buf[1 : len(buf)-1]))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func VariantFromString(s string) (Variant, error) {
	switch s {
	case "blake2b":
		return Blake2b, nil
	case "blake2s":
		return Blake2s, nil
	default:
		return 0, fmt.Errorf("%w: unknown variant %q", ErrInvalidParameter, s)
	}
}

// Hasher Incremental digest state. Single owner, not safe for
// concurrent use. After Finalize the state is dead and further calls
// return ErrInvalidState.
type Hasher interface {
	io.Writer

	// Update Feeds more input into the running hash
	Update(data []byte) error
	// Finalize Consumes the buffered tail, compresses it as the last
	// block and returns the digest. Can only be called once.
	Finalize() ([]byte, error)
	// Size Digest size in bytes chosen at construction
	Size() int
	BlockSize() int
}

// New Creates a Hasher for the given variant. size is the digest size
// in bytes, 1 up to the variant maximum.
func New(v Variant, size int) (Hasher, error) {
	switch v {
	case Blake2b:
		return newDigest64(size)
	case Blake2s:
		return newDigest32(size)
	default:
		return nil, fmt.Errorf("%w: unknown variant %d", ErrInvalidParameter, v)
	}
}

// Sum One-shot digest of data
func Sum[T ~string | ~[]byte](v Variant, size int, data T) (types.Bytes, error) {
	h, err := New(v, size)
	if err != nil {
		return nil, err
	}
	if err = h.Update([]byte(data)); err != nil {
		return nil, err
	}
	out, err := h.Finalize()
	if err != nil {
		return nil, err
	}
	return types.Bytes(out), nil
}

// Message word schedule shared by both variants. Rounds past the tenth
// wrap around to the start of the table.
var sigma = [10][16]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}
