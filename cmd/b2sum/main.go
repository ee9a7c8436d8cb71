package main

import (
	"flag"
	"fmt"
	"os"

	"git.gammaspectra.live/P2Pool/b2sum/blake2"
	"git.gammaspectra.live/P2Pool/b2sum/checksum"
	"git.gammaspectra.live/P2Pool/b2sum/utils"
)

func main() {
	algorithm := flag.String("a", "blake2b", "hash variant: blake2b or blake2s")
	lengthBits := flag.Int("l", 0, "digest length in bits, 0 selects the variant maximum")
	tagged := flag.Bool("tag", false, "print BSD-style tagged checksum lines")
	jsonOut := flag.Bool("json", false, "print results as a JSON array")
	routines := flag.Int("routines", 0, "number of parallel hashing routines, <= 0 picks from CPU count")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		utils.GlobalLogLevel |= utils.LogLevelDebug
	}

	variant, err := blake2.VariantFromString(*algorithm)
	if err != nil {
		utils.Fatalf("%s", err)
	}

	size, err := checksum.SizeFromBits(variant, *lengthBits)
	if err != nil {
		utils.Fatalf("%s", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}

	inputs := make([]checksum.Input, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			inputs = append(inputs, checksum.Input{Name: "-", Reader: os.Stdin})
		} else {
			inputs = append(inputs, checksum.Input{Name: arg, Path: arg})
		}
	}

	batch := checksum.Batch{
		Algorithm: variant,
		Size:      size,
		Routines:  *routines,
	}

	results, err := batch.Run(inputs)
	if err != nil {
		utils.Fatalf("%s", err)
	}

	if *jsonOut {
		buf, err := utils.MarshalJSONIndent(results, "    ")
		if err != nil {
			utils.Fatalf("%s", err)
		}
		_, _ = os.Stdout.Write(append(buf, '\n'))
		return
	}

	mode := checksum.Plain
	if *tagged {
		mode = checksum.Tagged
	}
	for _, r := range results {
		fmt.Println(r.Line(mode))
	}
}
