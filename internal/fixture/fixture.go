// Package fixture reads and writes YAML seed files of assessments and health
// signals for offline correlation runs.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Fixture is a self-contained data set. Now pins the domain clock so signal
// windows resolve the same way on every run; zero means the wall clock.
type Fixture struct {
	Now         time.Time                    `yaml:"now,omitempty"`
	Assessments []domain.AssessmentRequest   `yaml:"assessments"`
	Signals     []domain.HealthSignalRequest `yaml:"signals"`
}

// Seeder accepts fixture records.
type Seeder interface {
	ScoreAndPersist(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error)
	RecordSignal(ctx context.Context, req domain.HealthSignalRequest) (domain.HealthSignal, error)
}

// Load reads a fixture file.
func Load(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML fixture. Unknown fields are rejected.
func Decode(r io.Reader) (Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, nil
}

// Encode writes fx as YAML.
func Encode(w io.Writer, fx Fixture) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fx); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}

// Seed feeds every record through s. The first rejected record stops seeding
// and is reported by position.
func (fx Fixture) Seed(ctx context.Context, s Seeder) error {
	for i, req := range fx.Assessments {
		if _, err := s.ScoreAndPersist(ctx, req); err != nil {
			return fmt.Errorf("assessment %d: %w", i, err)
		}
	}
	for i, req := range fx.Signals {
		if _, err := s.RecordSignal(ctx, req); err != nil {
			return fmt.Errorf("signal %d: %w", i, err)
		}
	}
	return nil
}
