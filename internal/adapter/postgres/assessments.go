package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

const assessmentsTable = "assessments"

var assessmentColumns = []string{
	"id", "latitude", "longitude", "image_path", "site_type", "building_age",
	"dust_present", "old_materials", "near_population", "sewage_visible", "standing_water",
	"material_type", "asbestos_risk", "water_risk", "overall_risk", "priority",
	"notes", "created_by", "created_at", "updated_at",
}

func assessmentValues(a domain.Assessment) []any {
	return []any{
		a.ID, a.Latitude, a.Longitude, a.ImagePath, string(a.SiteType), string(a.BuildingAge),
		a.DustPresent, a.OldMaterials, a.NearPopulation, a.SewageVisible, a.StandingWater,
		a.MaterialType, a.AsbestosRisk, a.WaterRisk, a.OverallRisk, string(a.Priority),
		a.Notes, a.CreatedBy, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	}
}

func scanAssessment(row scanner) (domain.Assessment, error) {
	var a domain.Assessment
	err := row.Scan(
		&a.ID, &a.Latitude, &a.Longitude, &a.ImagePath, &a.SiteType, &a.BuildingAge,
		&a.DustPresent, &a.OldMaterials, &a.NearPopulation, &a.SewageVisible, &a.StandingWater,
		&a.MaterialType, &a.AsbestosRisk, &a.WaterRisk, &a.OverallRisk, &a.Priority,
		&a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, err
}

func selectAssessments() sq.SelectBuilder {
	return psql.Select(assessmentColumns...).From(assessmentsTable)
}

func (s *Store) ListAssessments(ctx context.Context) ([]domain.Assessment, error) {
	return queryAll(ctx, s.db, selectAssessments().OrderBy("seq"), scanAssessment)
}

func (s *Store) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	return queryOne(ctx, s.db, selectAssessments().Where(sq.Eq{"id": id}), scanAssessment, "assessment", id)
}

// SaveAssessment inserts a, assigning an id when empty, or overwrites the row
// with the same id.
func (s *Store) SaveAssessment(ctx context.Context, a domain.Assessment) (domain.Assessment, error) {
	if a.ID == "" {
		a.ID = s.newID()
	}
	q := psql.Insert(assessmentsTable).
		Columns(assessmentColumns...).
		Values(assessmentValues(a)...).
		Suffix(upsertSuffix(assessmentColumns))
	if _, err := exec(ctx, s.db, q); err != nil {
		return domain.Assessment{}, fmt.Errorf("save assessment %s: %w", a.ID, err)
	}
	return a, nil
}

// UpdateAssessment locks the row with SELECT ... FOR UPDATE, applies fn, and
// writes the result in one transaction.
func (s *Store) UpdateAssessment(ctx context.Context, id string, fn func(domain.Assessment) (domain.Assessment, error)) (domain.Assessment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	current, err := queryOne(ctx, tx, selectAssessments().Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"), scanAssessment, "assessment", id)
	if err != nil {
		return domain.Assessment{}, err
	}
	next, err := fn(current)
	if err != nil {
		return domain.Assessment{}, err
	}
	next.ID = id

	if _, err := exec(ctx, tx, updateAssessmentQuery(next)); err != nil {
		return domain.Assessment{}, fmt.Errorf("update assessment %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Assessment{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func updateAssessmentQuery(a domain.Assessment) sq.UpdateBuilder {
	values := assessmentValues(a)
	q := psql.Update(assessmentsTable)
	for i, c := range assessmentColumns {
		if c == "id" || c == "created_at" {
			continue
		}
		q = q.Set(c, values[i])
	}
	return q.Where(sq.Eq{"id": a.ID})
}

func (s *Store) DeleteAssessment(ctx context.Context, id string) error {
	n, err := exec(ctx, s.db, psql.Delete(assessmentsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete assessment %s: %w", id, err)
	}
	if n == 0 {
		return domain.NotFoundError("assessment", id)
	}
	return nil
}

// ListAssessmentsByRisk orders by overall risk descending; ties keep insertion order.
func (s *Store) ListAssessmentsByRisk(ctx context.Context) ([]domain.Assessment, error) {
	return queryAll(ctx, s.db, selectAssessments().OrderBy("overall_risk DESC", "seq"), scanAssessment)
}

func (s *Store) CountAssessmentsByPriority(ctx context.Context, p domain.Priority) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(assessmentsTable).Where(sq.Eq{"priority": string(p)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s assessments: %w", p, err)
	}
	return n, nil
}

// ListRecentAssessments returns up to limit assessments, newest CreatedAt first.
func (s *Store) ListRecentAssessments(ctx context.Context, limit int) ([]domain.Assessment, error) {
	q := selectAssessments().OrderBy("created_at DESC", "seq DESC")
	if limit >= 0 {
		q = q.Limit(uint64(limit))
	}
	return queryAll(ctx, s.db, q, scanAssessment)
}

// ListHighRiskAssessments returns assessments with OverallRisk >= minRisk,
// highest first.
func (s *Store) ListHighRiskAssessments(ctx context.Context, minRisk int) ([]domain.Assessment, error) {
	q := selectAssessments().Where(sq.GtOrEq{"overall_risk": minRisk}).OrderBy("overall_risk DESC", "seq")
	return queryAll(ctx, s.db, q, scanAssessment)
}
