// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/geo"
)

var ErrInvalidInput = errors.New("invalid input")

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const reportColumns = `id, created_at, lat, lon, species, ml_confidence, is_invasive,
	notes, reporter, status, ml_score, density_score, density_count,
	satellite_score, ndvi_recent, ndvi_baseline, ndvi_change, ndvi_anomaly,
	landcover_shift, fused_risk, reasons, triage_action, scored_at`

// SaveReport stores a newly submitted report.
func (r *SQLRepository) SaveReport(ctx context.Context, report *domain.Report) error {
	if report.ID == "" {
		return fmt.Errorf("%w: report ID is required", ErrInvalidInput)
	}

	reasons, _ := json.Marshal(report.Reasons)

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		report.ID, report.CreatedAt, report.Lat, report.Lon, report.Species,
		report.MLConfidence, report.IsInvasive,
		report.Notes, report.Reporter, report.Status,
		report.MLScore, report.DensityScore, report.DensityCount,
		report.SatelliteScore, report.NDVIRecent, report.NDVIBaseline,
		report.NDVIChange, report.NDVIAnomaly, report.LandcoverShift,
		report.FusedRisk, string(reasons), report.TriageAction, report.ScoredAt,
	)
	return err
}

// UpdateReportScores writes the derived score fields of a report; the
// submitted fields are never part of the update.
func (r *SQLRepository) UpdateReportScores(ctx context.Context, report *domain.Report) error {
	reasons, _ := json.Marshal(report.Reasons)

	query := `
		UPDATE reports SET
			ml_score = ?, density_score = ?, density_count = ?,
			satellite_score = ?, ndvi_recent = ?, ndvi_baseline = ?,
			ndvi_change = ?, ndvi_anomaly = ?, landcover_shift = ?,
			fused_risk = ?, reasons = ?, triage_action = ?, scored_at = ?,
			status = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		report.MLScore, report.DensityScore, report.DensityCount,
		report.SatelliteScore, report.NDVIRecent, report.NDVIBaseline,
		report.NDVIChange, report.NDVIAnomaly, report.LandcoverShift,
		report.FusedRisk, string(reasons), report.TriageAction, report.ScoredAt,
		report.Status, report.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateReportStatus projects a review outcome onto the report.
func (r *SQLRepository) UpdateReportStatus(ctx context.Context, reportID, status string) error {
	query := `UPDATE reports SET status = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), status, reportID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetReport retrieves a report by ID.
func (r *SQLRepository) GetReport(ctx context.Context, reportID string) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	report, err := scanReport(r.db.QueryRowContext(ctx, r.rebind(query), reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return report, err
}

// ListNearbyReports returns reports within radiusKm of a point created
// at or after since, closest first. The bounding box narrows the scan;
// the exact great-circle distance decides membership.
func (r *SQLRepository) ListNearbyReports(ctx context.Context, lat, lon, radiusKm float64, since time.Time, limit int) ([]*domain.Report, error) {
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(lat, lon, radiusKm)

	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE lat BETWEEN ? AND ?
		  AND lon BETWEEN ? AND ?
		  AND created_at >= ?
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), minLat, maxLat, minLon, maxLon, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type withDist struct {
		report *domain.Report
		dist   float64
	}
	var candidates []withDist
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		d := geo.DistanceKm(lat, lon, report.Lat, report.Lon)
		if d <= radiusKm {
			candidates = append(candidates, withDist{report, d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].report.ID < candidates[j].report.ID
	})

	reports := make([]*domain.Report, 0, len(candidates))
	for _, c := range candidates {
		if limit > 0 && len(reports) >= limit {
			break
		}
		reports = append(reports, c.report)
	}
	return reports, nil
}

// ListReportsBBox returns reports inside a bounding box, newest first.
func (r *SQLRepository) ListReportsBBox(ctx context.Context, bbox *domain.BBox, limit int) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE lat BETWEEN ? AND ?
		  AND lon BETWEEN ? AND ?
		ORDER BY created_at DESC
	`
	args := []any{bbox.MinLat, bbox.MaxLat, bbox.MinLon, bbox.MaxLon}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListReviewQueue returns reports awaiting review: scored reports at or
// above minRisk, highest fused risk first, then reports still awaiting
// analysis. Unscored reports bypass the risk filter since they have no
// risk to compare.
func (r *SQLRepository) ListReviewQueue(ctx context.Context, minRisk float64, limit int) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE (status = ? AND fused_risk >= ?)
		   OR (status = ? AND fused_risk IS NULL)
		ORDER BY (fused_risk IS NULL), fused_risk DESC, id ASC
	`
	args := []any{domain.StatusPendingReview, minRisk, domain.StatusPendingAnalysis}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListUnscoredReports returns reports the engine has not scored yet,
// oldest first so the longest-stranded report is retried first.
func (r *SQLRepository) ListUnscoredReports(ctx context.Context, limit int) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE status = ? AND fused_risk IS NULL
		ORDER BY created_at ASC, id ASC
	`
	args := []any{domain.StatusPendingAnalysis}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

// NearbyCount counts other same-species reports within radiusKm of a
// point since a cutoff, excluding the report being scored.
func (r *SQLRepository) NearbyCount(ctx context.Context, lat, lon, radiusKm float64, since time.Time, species, excludeID string) (int, error) {
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(lat, lon, radiusKm)

	query := `
		SELECT lat, lon FROM reports
		WHERE species = ?
		  AND id <> ?
		  AND created_at >= ?
		  AND lat BETWEEN ? AND ?
		  AND lon BETWEEN ? AND ?
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), species, excludeID, since, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var candLat, candLon float64
		if err := rows.Scan(&candLat, &candLon); err != nil {
			return 0, err
		}
		if geo.DistanceKm(lat, lon, candLat, candLon) <= radiusKm {
			count++
		}
	}
	return count, rows.Err()
}

// HighRiskSnapshot returns all reports at or above minRisk created at
// or after since, in ascending ID order for deterministic clustering.
func (r *SQLRepository) HighRiskSnapshot(ctx context.Context, minRisk float64, since time.Time) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE fused_risk IS NOT NULL AND fused_risk >= ? AND created_at >= ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), minRisk, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

const outbreakColumns = `id, species, centroid_lat, centroid_lon, radius_km,
	report_count, mean_risk, status, created_at, updated_at, last_member_at`

// GetOutbreak retrieves an outbreak with its member report IDs.
func (r *SQLRepository) GetOutbreak(ctx context.Context, outbreakID string) (*domain.Outbreak, error) {
	query := `SELECT ` + outbreakColumns + ` FROM outbreaks WHERE id = ?`
	ob, err := scanOutbreak(r.db.QueryRowContext(ctx, r.rebind(query), outbreakID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, []*domain.Outbreak{ob}); err != nil {
		return nil, err
	}
	return ob, nil
}

// ListOutbreaks returns outbreaks filtered by status; an empty filter
// returns everything. Results are ordered by ID for stable iteration.
func (r *SQLRepository) ListOutbreaks(ctx context.Context, statuses []string) ([]*domain.Outbreak, error) {
	query := `SELECT ` + outbreakColumns + ` FROM outbreaks`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (`
		for i, s := range statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, s)
		}
		query += `)`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outbreaks []*domain.Outbreak
	for rows.Next() {
		ob, err := scanOutbreak(rows)
		if err != nil {
			return nil, err
		}
		outbreaks = append(outbreaks, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, outbreaks); err != nil {
		return nil, err
	}
	return outbreaks, nil
}

// OutbreakForReport returns the unresolved outbreak the report belongs
// to, or nil when it is not a member of any.
func (r *SQLRepository) OutbreakForReport(ctx context.Context, reportID string) (*domain.Outbreak, error) {
	query := `
		SELECT o.id FROM outbreaks o
		JOIN outbreak_members m ON m.outbreak_id = o.id
		WHERE m.report_id = ? AND o.status <> ?
		ORDER BY o.updated_at DESC
		LIMIT 1
	`
	var id string
	err := r.db.QueryRowContext(ctx, r.rebind(query), reportID, domain.OutbreakResolved).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetOutbreak(ctx, id)
}

// CommitOutbreaks applies one clustering pass atomically. Upserts that
// carry an expected updated_at token fail the whole batch with
// ErrConcurrentModification when the stored row has moved on, so a
// half-applied pass is never observable.
func (r *SQLRepository) CommitOutbreaks(ctx context.Context, upserts []domain.OutbreakUpsert) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range upserts {
		ob := u.Outbreak
		if u.ExpectedUpdatedAt != nil {
			query := `
				UPDATE outbreaks SET
					species = ?, centroid_lat = ?, centroid_lon = ?, radius_km = ?,
					report_count = ?, mean_risk = ?, status = ?, updated_at = ?,
					last_member_at = ?
				WHERE id = ? AND updated_at = ?
			`
			result, err := tx.ExecContext(ctx, r.rebind(query),
				ob.Species, ob.CentroidLat, ob.CentroidLon, ob.RadiusKm,
				ob.ReportCount, ob.MeanRisk, ob.Status, ob.UpdatedAt,
				ob.LastMemberAt, ob.ID, *u.ExpectedUpdatedAt,
			)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: outbreak %s changed during pass", domain.ErrConcurrentModification, ob.ID)
			}
		} else {
			query := `
				INSERT INTO outbreaks (` + outbreakColumns + `)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			if _, err := tx.ExecContext(ctx, r.rebind(query),
				ob.ID, ob.Species, ob.CentroidLat, ob.CentroidLon, ob.RadiusKm,
				ob.ReportCount, ob.MeanRisk, ob.Status, ob.CreatedAt,
				ob.UpdatedAt, ob.LastMemberAt,
			); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM outbreak_members WHERE outbreak_id = ?`), ob.ID); err != nil {
			return err
		}
		for _, member := range ob.MemberIDs {
			if _, err := tx.ExecContext(ctx,
				r.rebind(`INSERT INTO outbreak_members (outbreak_id, report_id) VALUES (?, ?)`),
				ob.ID, member,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// UpdateOutbreakStatus sets an outbreak's status.
func (r *SQLRepository) UpdateOutbreakStatus(ctx context.Context, outbreakID, status string) error {
	query := `UPDATE outbreaks SET status = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), outbreakID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SaveDecision appends a review decision. Decisions are never updated
// or deleted.
func (r *SQLRepository) SaveDecision(ctx context.Context, d *domain.ReviewDecision) error {
	query := `
		INSERT INTO review_decisions (id, report_id, outbreak_id, decision, reviewer, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		d.ID, d.ReportID, d.OutbreakID, d.Decision, d.Reviewer, d.Notes, d.CreatedAt,
	)
	return err
}

// ListDecisions returns the decision log for a report, oldest first.
func (r *SQLRepository) ListDecisions(ctx context.Context, reportID string) ([]*domain.ReviewDecision, error) {
	query := `
		SELECT id, report_id, outbreak_id, decision, reviewer, notes, created_at
		FROM review_decisions
		WHERE report_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*domain.ReviewDecision
	for rows.Next() {
		var d domain.ReviewDecision
		if err := rows.Scan(&d.ID, &d.ReportID, &d.OutbreakID, &d.Decision, &d.Reviewer, &d.Notes, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// SaveTriageRule inserts or replaces a triage rule.
func (r *SQLRepository) SaveTriageRule(ctx context.Context, rule *domain.TriageRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}
	query := `
		INSERT INTO triage_rules (id, name, expression, action, priority, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			expression = excluded.expression,
			action = excluded.action,
			priority = excluded.priority,
			enabled = excluded.enabled
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Expression, rule.Action, rule.Priority, rule.Enabled,
	)
	return err
}

// ListTriageRules returns all rules in evaluation order.
func (r *SQLRepository) ListTriageRules(ctx context.Context) ([]*domain.TriageRule, error) {
	query := `
		SELECT id, name, expression, action, priority, enabled
		FROM triage_rules
		ORDER BY priority ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.TriageRule
	for rows.Next() {
		var rule domain.TriageRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Expression, &rule.Action, &rule.Priority, &rule.Enabled); err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// loadMembers fills MemberIDs for the given outbreaks in one query.
func (r *SQLRepository) loadMembers(ctx context.Context, outbreaks []*domain.Outbreak) error {
	if len(outbreaks) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Outbreak, len(outbreaks))
	query := `SELECT outbreak_id, report_id FROM outbreak_members WHERE outbreak_id IN (`
	var args []any
	for i, ob := range outbreaks {
		if i > 0 {
			query += `, `
		}
		query += `?`
		args = append(args, ob.ID)
		byID[ob.ID] = ob
	}
	query += `) ORDER BY report_id ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var outbreakID, reportID string
		if err := rows.Scan(&outbreakID, &reportID); err != nil {
			return err
		}
		if ob := byID[outbreakID]; ob != nil {
			ob.MemberIDs = append(ob.MemberIDs, reportID)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var r domain.Report
	var mlConfidence, mlScore, densityScore, satelliteScore sql.NullFloat64
	var ndviRecent, ndviBaseline, ndviChange, landcoverShift, fusedRisk sql.NullFloat64
	var isInvasive, ndviAnomaly sql.NullBool
	var densityCount sql.NullInt64
	var notes, reporter, reasons, triageAction sql.NullString
	var scoredAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.Lat, &r.Lon, &r.Species,
		&mlConfidence, &isInvasive, &notes, &reporter, &r.Status,
		&mlScore, &densityScore, &densityCount, &satelliteScore,
		&ndviRecent, &ndviBaseline, &ndviChange, &ndviAnomaly,
		&landcoverShift, &fusedRisk, &reasons, &triageAction, &scoredAt,
	)
	if err != nil {
		return nil, err
	}

	r.MLConfidence = nullFloat(mlConfidence)
	r.IsInvasive = nullBool(isInvasive)
	r.Notes = notes.String
	r.Reporter = reporter.String
	r.MLScore = nullFloat(mlScore)
	r.DensityScore = nullFloat(densityScore)
	if densityCount.Valid {
		n := int(densityCount.Int64)
		r.DensityCount = &n
	}
	r.SatelliteScore = nullFloat(satelliteScore)
	r.NDVIRecent = nullFloat(ndviRecent)
	r.NDVIBaseline = nullFloat(ndviBaseline)
	r.NDVIChange = nullFloat(ndviChange)
	r.NDVIAnomaly = nullBool(ndviAnomaly)
	r.LandcoverShift = nullFloat(landcoverShift)
	r.FusedRisk = nullFloat(fusedRisk)
	r.TriageAction = triageAction.String
	if scoredAt.Valid {
		t := scoredAt.Time
		r.ScoredAt = &t
	}
	if reasons.Valid && reasons.String != "" && reasons.String != "null" {
		json.Unmarshal([]byte(reasons.String), &r.Reasons)
	}

	return &r, nil
}

func scanOutbreak(row rowScanner) (*domain.Outbreak, error) {
	var ob domain.Outbreak
	err := row.Scan(
		&ob.ID, &ob.Species, &ob.CentroidLat, &ob.CentroidLon, &ob.RadiusKm,
		&ob.ReportCount, &ob.MeanRisk, &ob.Status, &ob.CreatedAt,
		&ob.UpdatedAt, &ob.LastMemberAt,
	)
	if err != nil {
		return nil, err
	}
	return &ob, nil
}

func collectReports(rows *sql.Rows) ([]*domain.Report, error) {
	var reports []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
