// gensample writes the deterministic sample dataset that mock-mode
// connectors serve. Equal seeds produce byte-identical files.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/omniverse/omnimarket/internal/sample"
)

func main() {
	seed := flag.Uint64("seed", sample.DefaultSeed, "generator seed")
	hours := flag.Int("hours", sample.DefaultHours, "hours of series points and events per market")
	out := flag.String("out", "data/sample_data.json", "output path")
	flag.Parse()

	encoded, err := sample.Encode(sample.Generate(*seed, *hours))
	if err != nil {
		log.Fatalf("Couldn't encode dataset: %v", err)
	}

	if err := os.WriteFile(*out, encoded, 0o644); err != nil {
		log.Fatalf("Couldn't write %s: %v", *out, err)
	}
	log.Printf("Wrote %s (%d bytes)", *out, len(encoded))
}
