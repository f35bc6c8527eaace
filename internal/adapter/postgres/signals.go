package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

const signalsTable = "health_signals"

var signalColumns = []string{
	"id", "area_id", "area_name", "signal_date", "signal_type", "signal_level",
	"source", "notes", "latitude", "longitude", "reported_by", "created_at", "updated_at",
}

// Dates travel as YYYY-MM-DD text so the server never shifts them by its time zone.
func dateParam(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func signalValues(sig domain.HealthSignal) []any {
	return []any{
		sig.ID, sig.AreaID, sig.AreaName, dateParam(sig.SignalDate), string(sig.SignalType), string(sig.SignalLevel),
		string(sig.Source), sig.Notes, sig.Latitude, sig.Longitude, sig.ReportedBy, sig.CreatedAt.UTC(), sig.UpdatedAt.UTC(),
	}
}

func scanSignal(row scanner) (domain.HealthSignal, error) {
	var (
		sig  domain.HealthSignal
		date time.Time
	)
	err := row.Scan(
		&sig.ID, &sig.AreaID, &sig.AreaName, &date, &sig.SignalType, &sig.SignalLevel,
		&sig.Source, &sig.Notes, &sig.Latitude, &sig.Longitude, &sig.ReportedBy, &sig.CreatedAt, &sig.UpdatedAt,
	)
	sig.SignalDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	sig.CreatedAt, sig.UpdatedAt = sig.CreatedAt.UTC(), sig.UpdatedAt.UTC()
	return sig, err
}

func selectSignals() sq.SelectBuilder {
	return psql.Select(signalColumns...).From(signalsTable)
}

func (s *Store) ListSignals(ctx context.Context) ([]domain.HealthSignal, error) {
	return queryAll(ctx, s.db, selectSignals().OrderBy("seq"), scanSignal)
}

func (s *Store) GetSignal(ctx context.Context, id string) (domain.HealthSignal, error) {
	return queryOne(ctx, s.db, selectSignals().Where(sq.Eq{"id": id}), scanSignal, "health signal", id)
}

func (s *Store) SaveSignal(ctx context.Context, sig domain.HealthSignal) (domain.HealthSignal, error) {
	if sig.ID == "" {
		sig.ID = s.newID()
	}
	q := psql.Insert(signalsTable).
		Columns(signalColumns...).
		Values(signalValues(sig)...).
		Suffix(upsertSuffix(signalColumns))
	if _, err := exec(ctx, s.db, q); err != nil {
		return domain.HealthSignal{}, fmt.Errorf("save health signal %s: %w", sig.ID, err)
	}
	return sig, nil
}

func (s *Store) DeleteSignal(ctx context.Context, id string) error {
	n, err := exec(ctx, s.db, psql.Delete(signalsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete health signal %s: %w", id, err)
	}
	if n == 0 {
		return domain.NotFoundError("health signal", id)
	}
	return nil
}

// SignalsByArea returns the signals of one area, newest SignalDate first.
func (s *Store) SignalsByArea(ctx context.Context, areaID string) ([]domain.HealthSignal, error) {
	q := selectSignals().Where(sq.Eq{"area_id": areaID}).OrderBy("signal_date DESC", "seq")
	return queryAll(ctx, s.db, q, scanSignal)
}

// SignalsSince returns signals dated on or after since, newest SignalDate
// first; equal dates keep insertion order.
func (s *Store) SignalsSince(ctx context.Context, since time.Time) ([]domain.HealthSignal, error) {
	q := selectSignals().Where(sq.GtOrEq{"signal_date": dateParam(since)}).OrderBy("signal_date DESC", "seq")
	return queryAll(ctx, s.db, q, scanSignal)
}

// SignalsBetween returns signals dated within [from, to], newest first.
func (s *Store) SignalsBetween(ctx context.Context, from, to time.Time) ([]domain.HealthSignal, error) {
	q := selectSignals().
		Where(sq.GtOrEq{"signal_date": dateParam(from)}).
		Where(sq.LtOrEq{"signal_date": dateParam(to)}).
		OrderBy("signal_date DESC", "seq")
	return queryAll(ctx, s.db, q, scanSignal)
}

// AreasWithElevatedSignals returns the sorted, distinct area ids with an
// elevated signal of any date.
func (s *Store) AreasWithElevatedSignals(ctx context.Context) ([]string, error) {
	q := psql.Select("area_id").Distinct().From(signalsTable).
		Where(sq.Eq{"signal_level": string(domain.LevelElevated)}).
		OrderBy("area_id")
	return queryAll(ctx, s.db, q, func(row scanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}
