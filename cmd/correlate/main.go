// Command correlate runs one correlation pass over a YAML fixture and prints
// the ranked areas. It uses the same service and in-memory store as the
// server, so the output matches what /api/v1/stats/correlations would return
// for the same data.
//
// Usage:
//
//	go run ./cmd/correlate -fixture data/fixtures/sample.yaml
//	go run ./cmd/genmock -areas 20 | go run ./cmd/correlate -fixture - -format yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/fixture"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
	"github.com/couchcryptid/healthmap-risk-service/internal/service"
	"github.com/couchcryptid/healthmap-risk-service/internal/store/memory"
	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"
)

func main() {
	path := flag.String("fixture", "", "path to a YAML fixture, or - for stdin")
	window := flag.Duration("window", 30*24*time.Hour, "health-signal correlation window")
	unifyGrid := flag.Bool("unify-grid", false, "group signals by the grid cell of their coordinates")
	format := flag.String("format", "json", "output format: json or yaml")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}
	opts := domain.CorrelationOptions{Window: *window, UnifyGrid: *unifyGrid}
	os.Exit(run(*path, *format, opts, os.Stdin, os.Stdout))
}

func run(path, format string, opts domain.CorrelationOptions, stdin io.Reader, out io.Writer) int {
	var (
		fx  fixture.Fixture
		err error
	)
	if path == "-" {
		fx, err = fixture.Decode(stdin)
	} else {
		fx, err = fixture.Load(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	if !fx.Now.IsZero() {
		domain.SetClock(clockwork.NewFakeClockAt(fx.Now))
		defer domain.SetClock(nil)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := memory.New()
	svc := service.New(store, store, nil, opts, logger, observability.NewMetricsForTesting())

	ctx := context.Background()
	if err := fx.Seed(ctx, svc); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: seed fixture: %v\n", err)
		return 1
	}

	result, err := svc.Correlate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: correlate: %v\n", err)
		return 1
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	case "yaml":
		err = writeYAML(out, result)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write result: %v\n", err)
		return 1
	}
	return 0
}

// writeYAML emits v with its JSON field names. Keys come out sorted.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
