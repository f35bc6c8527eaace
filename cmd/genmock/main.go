// Command genmock writes a reproducible YAML fixture of assessments and
// health signals for cmd/correlate and local testing.
//
// Usage:
//
//	go run ./cmd/genmock -areas 20 -seed 7 -out data/fixtures/sample.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/fixture"
)

// baseNow pins the fixture clock so regenerated files diff cleanly.
var baseNow = time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	areas := flag.Int("areas", 8, "number of areas to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	now := flag.String("now", baseNow.Format(time.RFC3339), "fixture clock (RFC 3339)")
	out := flag.String("out", "-", "output path, or - for stdout")
	flag.Parse()

	if *areas < 1 {
		flag.Usage()
		return fmt.Errorf("-areas must be at least 1")
	}
	at, err := time.Parse(time.RFC3339, *now)
	if err != nil {
		return fmt.Errorf("parse -now: %w", err)
	}

	fx := fixture.Generate(*seed, *areas, at)

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := fixture.Encode(w, fx); err != nil {
		return err
	}
	log.Printf("%d areas: %d assessments, %d signals", *areas, len(fx.Assessments), len(fx.Signals))
	return nil
}
