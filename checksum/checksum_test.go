package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.gammaspectra.live/P2Pool/b2sum/blake2"
	"git.gammaspectra.live/P2Pool/b2sum/checksum"
	"git.gammaspectra.live/P2Pool/b2sum/utils"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/require"
)

func TestSizeFromBits(t *testing.T) {
	size, err := checksum.SizeFromBits(blake2.Blake2b, 0)
	require.NoError(t, err)
	require.Equal(t, 64, size)

	size, err = checksum.SizeFromBits(blake2.Blake2s, 0)
	require.NoError(t, err)
	require.Equal(t, 32, size)

	size, err = checksum.SizeFromBits(blake2.Blake2b, 256)
	require.NoError(t, err)
	require.Equal(t, 32, size)

	_, err = checksum.SizeFromBits(blake2.Blake2b, 9)
	require.ErrorIs(t, err, blake2.ErrInvalidParameter)

	_, err = checksum.SizeFromBits(blake2.Blake2b, 520)
	require.ErrorIs(t, err, blake2.ErrInvalidParameter)

	_, err = checksum.SizeFromBits(blake2.Blake2s, 264)
	require.ErrorIs(t, err, blake2.ErrInvalidParameter)
}

//nolint:funlen
func TestBatch(t *testing.T) {
	spec.Run(t, "Batch", func(t *testing.T, when spec.G, it spec.S) {
		var dir string

		writeFile := func(name, content string) string {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			return path
		}

		newBatch := func(v blake2.Variant) *checksum.Batch {
			return &checksum.Batch{Algorithm: v, Size: v.MaxSize()}
		}

		it.Before(func() {
			dir = t.TempDir()
		})

		when("formatting lines", func() {
			it("prints plain and tagged formats", func() {
				path := writeFile("a.txt", "hello world\n")

				results, err := newBatch(blake2.Blake2b).Run([]checksum.Input{{Name: path, Path: path}})
				require.NoError(t, err)
				require.Len(t, results, 1)

				expected, err := blake2.Sum(blake2.Blake2b, 64, "hello world\n")
				require.NoError(t, err)

				require.Equal(t, expected.String()+"  "+path, results[0].Line(checksum.Plain))
				require.Equal(t, "BLAKE2b ("+path+") = "+expected.String(), results[0].Line(checksum.Tagged))
			})

			it("marshals results as hex JSON", func() {
				path := writeFile("a.txt", "payload")

				results, err := newBatch(blake2.Blake2s).Run([]checksum.Input{{Name: path, Path: path}})
				require.NoError(t, err)

				buf, err := utils.MarshalJSON(results)
				require.NoError(t, err)
				require.Contains(t, string(buf), `"algorithm":"blake2s"`)
				require.Contains(t, string(buf), `"digest":"`+results[0].Digest.String()+`"`)
			})
		})

		when("digesting inputs", func() {
			it("hashes an empty file to the known empty digest", func() {
				path := writeFile("empty", "")

				results, err := newBatch(blake2.Blake2b).Run([]checksum.Input{{Name: path, Path: path}})
				require.NoError(t, err)
				require.Equal(t, "786a02f742015903c6c6fd852552d272912f4740e15847618a86e217f71f5419d25e1031afee585313896444934eb04b903a685b1448b755d56f701afe9be2ce", results[0].Digest.String())
			})

			it("hashes readers the same as files", func() {
				path := writeFile("data", "some data here")

				results, err := newBatch(blake2.Blake2s).Run([]checksum.Input{
					{Name: path, Path: path},
					{Name: "-", Reader: strings.NewReader("some data here")},
				})
				require.NoError(t, err)
				require.Equal(t, results[0].Digest.String(), results[1].Digest.String())
			})

			it("keeps results in input order", func() {
				names := []string{"e", "a", "c", "b", "d"}
				inputs := make([]checksum.Input, 0, len(names))
				for _, name := range names {
					path := writeFile(name, "content of "+name)
					inputs = append(inputs, checksum.Input{Name: name, Path: path})
				}

				results, err := newBatch(blake2.Blake2b).Run(inputs)
				require.NoError(t, err)
				require.Len(t, results, len(names))
				for i, name := range names {
					require.Equal(t, name, results[i].Name)
				}
			})

			it("produces one digest but distinct lines for identical content", func() {
				first := writeFile("first", "same content")
				second := writeFile("second", "same content")

				results, err := newBatch(blake2.Blake2b).Run([]checksum.Input{
					{Name: first, Path: first},
					{Name: second, Path: second},
				})
				require.NoError(t, err)
				require.Equal(t, results[0].Digest.String(), results[1].Digest.String())
				require.NotEqual(t, results[0].Line(checksum.Plain), results[1].Line(checksum.Plain))
			})

			it("reuses the digest for repeated paths", func() {
				path := writeFile("repeat", "digest me once")

				results, err := newBatch(blake2.Blake2b).Run([]checksum.Input{
					{Name: "one", Path: path},
					{Name: "two", Path: path},
				})
				require.NoError(t, err)
				require.Equal(t, results[0].Digest.String(), results[1].Digest.String())
				require.Equal(t, "one", results[0].Name)
				require.Equal(t, "two", results[1].Name)
			})

			it("resolves symlinks to the same canonical file", func() {
				path := writeFile("target", "linked content")
				link := filepath.Join(dir, "alias")
				require.NoError(t, os.Symlink(path, link))

				results, err := newBatch(blake2.Blake2s).Run([]checksum.Input{
					{Name: "target", Path: path},
					{Name: "alias", Path: link},
				})
				require.NoError(t, err)
				require.Equal(t, results[0].Digest.String(), results[1].Digest.String())
			})
		})

		when("inputs fail", func() {
			it("aborts the whole batch on a missing file", func() {
				path := writeFile("ok", "fine")

				results, err := newBatch(blake2.Blake2b).Run([]checksum.Input{
					{Name: path, Path: path},
					{Name: "gone", Path: filepath.Join(dir, "does-not-exist")},
				})
				require.ErrorIs(t, err, checksum.ErrInputUnavailable)
				require.Nil(t, results)
			})

			it("rejects inputs with neither path nor reader", func() {
				_, err := newBatch(blake2.Blake2b).Run([]checksum.Input{{Name: "bad"}})
				require.ErrorIs(t, err, checksum.ErrInputUnavailable)
			})
		})
	}, spec.Report(report.Terminal{}))
}

func TestSumReaderMatchesSum(t *testing.T) {
	payload := strings.Repeat("0123456789abcdef", 100)

	for _, variant := range []blake2.Variant{blake2.Blake2b, blake2.Blake2s} {
		expected, err := blake2.Sum(variant, variant.MaxSize(), payload)
		require.NoError(t, err)

		got, err := checksum.SumReader(variant, variant.MaxSize(), strings.NewReader(payload))
		require.NoError(t, err)
		require.Equal(t, expected.String(), got.String())
	}
}
