package checksum

import (
	"fmt"
	"io"
	"os"

	"git.gammaspectra.live/P2Pool/b2sum/blake2"
	"git.gammaspectra.live/P2Pool/b2sum/types"
	"git.gammaspectra.live/P2Pool/b2sum/utils"
	"github.com/dolthub/swiss"
	"github.com/floatdrop/lru"
)

// Input One item to digest. Path inputs are deduplicated by canonical
// path within a batch; Reader inputs are always digested directly.
type Input struct {
	Name   string
	Path   string
	Reader io.Reader
}

// Batch Digests a set of inputs in parallel, collecting results in
// input order. The first failed input aborts the whole batch.
type Batch struct {
	Algorithm blake2.Variant
	Size      int
	// Routines Number of hashing goroutines, <= 0 picks from CPU count
	Routines int
}

const digestCacheEntries = 4096

// Bounded cross-batch digest cache. Entries are keyed on the file
// fingerprint as well, so a changed file never serves a stale digest.
var digestCache = lru.New[string, types.Bytes](digestCacheEntries)

func (b *Batch) cacheKey(canonical string, info os.FileInfo) string {
	return fmt.Sprintf("%s:%d:%s:%d:%d", b.Algorithm.String(), b.Size, canonical, info.ModTime().UnixNano(), info.Size())
}

func (b *Batch) sumCanonical(canonical string) (types.Bytes, error) {
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, inputError(canonical, err)
	}

	key := b.cacheKey(canonical, info)
	if d := digestCache.Get(key); d != nil {
		utils.Debugf("checksum", "cache hit for %s", canonical)
		return *d, nil
	}

	d, err := SumFile(b.Algorithm, b.Size, canonical)
	if err != nil {
		return nil, err
	}
	digestCache.Set(key, d)
	return d, nil
}

// Run Digests all inputs and returns one Result per input, in input
// order. On the first unavailable or failed input the batch stops and
// only the error is returned.
func (b *Batch) Run(inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))

	// resolve paths up front so identical files hash once, and so a
	// missing input fails the batch before any hashing starts
	seen := swiss.NewMap[string, int](uint32(len(inputs)))

	// duplicate[i] >= 0 points at the input that owns the digest
	duplicate := make([]int, len(inputs))
	work := make([]int, 0, len(inputs))
	canonical := make([]string, len(inputs))

	for i, in := range inputs {
		duplicate[i] = -1

		if in.Path == "" {
			if in.Reader == nil {
				return nil, inputError(in.Name, os.ErrInvalid)
			}
			work = append(work, i)
			continue
		}

		resolved, err := canonicalPath(in.Path)
		if err != nil {
			return nil, inputError(in.Name, err)
		}
		canonical[i] = resolved

		if first, ok := seen.Get(resolved); ok {
			duplicate[i] = first
			continue
		}
		seen.Put(resolved, i)
		work = append(work, i)
	}

	err := utils.SplitWork(b.Routines, uint64(len(work)), func(workIndex uint64, _ int) error {
		i := work[workIndex]
		in := inputs[i]

		var digest types.Bytes
		var err error
		if in.Path == "" {
			if digest, err = SumReader(b.Algorithm, b.Size, in.Reader); err != nil {
				return inputError(in.Name, err)
			}
		} else if digest, err = b.sumCanonical(canonical[i]); err != nil {
			return err
		}

		results[i] = Result{
			Algorithm: b.Algorithm,
			Size:      b.Size,
			Name:      in.Name,
			Digest:    digest,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, first := range duplicate {
		if first < 0 {
			continue
		}
		results[i] = Result{
			Algorithm: b.Algorithm,
			Size:      b.Size,
			Name:      inputs[i].Name,
			Digest:    results[first].Digest,
		}
	}

	return results, nil
}
