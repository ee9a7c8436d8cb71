// Package checksum streams inputs through a BLAKE2 hasher and formats
// the resulting digests as checksum lines.
package checksum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.gammaspectra.live/P2Pool/b2sum/blake2"
	"git.gammaspectra.live/P2Pool/b2sum/types"
)

// ErrInputUnavailable An input source could not be opened or read
var ErrInputUnavailable = errors.New("checksum: input unavailable")

func inputError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInputUnavailable, name, err)
}

type Mode uint8

const (
	// Plain "{digest}  {name}", two spaces, coreutils style
	Plain = Mode(iota)
	// Tagged BSD-style "{ALGO} ({name}) = {digest}"
	Tagged
)

type Result struct {
	Algorithm blake2.Variant `json:"algorithm"`
	Size      int            `json:"size"`
	Name      string         `json:"name"`
	Digest    types.Bytes    `json:"digest"`
}

func (r Result) Line(m Mode) string {
	if m == Tagged {
		return fmt.Sprintf("%s (%s) = %s", r.Algorithm.Tag(), r.Name, r.Digest.String())
	}
	return fmt.Sprintf("%s  %s", r.Digest.String(), r.Name)
}

// SizeFromBits Resolves a requested digest length in bits to a size in
// bytes. Zero selects the variant maximum.
func SizeFromBits(v blake2.Variant, bits int) (int, error) {
	if bits == 0 {
		return v.MaxSize(), nil
	}
	if bits < 0 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: digest length %d is not a positive multiple of 8 bits", blake2.ErrInvalidParameter, bits)
	}
	size := bits / 8
	if size > v.MaxSize() {
		return 0, fmt.Errorf("%w: digest length %d exceeds %s maximum of %d bits", blake2.ErrInvalidParameter, bits, v.String(), v.MaxSize()*8)
	}
	return size, nil
}

// SumReader Streams r to completion through a fresh hasher
func SumReader(v blake2.Variant, size int, r io.Reader) (types.Bytes, error) {
	h, err := blake2.New(v, size)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(h, r); err != nil {
		return nil, err
	}
	out, err := h.Finalize()
	if err != nil {
		return nil, err
	}
	return types.Bytes(out), nil
}

// SumFile Digests the contents of the file at path
func SumFile(v blake2.Variant, size int, path string) (types.Bytes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputError(path, err)
	}
	defer f.Close()

	d, err := SumReader(v, size, f)
	if err != nil {
		return nil, inputError(path, err)
	}
	return d, nil
}

// canonicalPath Resolves symlinks and makes path absolute, so repeated
// references to the same file hash once
func canonicalPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}
