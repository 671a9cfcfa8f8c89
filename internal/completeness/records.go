package completeness

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned when no report exists for an entity.
var ErrRecordNotFound = errors.New("completeness record not found")

// Records persists completeness reports. Each analysis run replaces the
// previous reports for the entity types it covered, so the table always
// reflects the most recent run.
type Records struct {
	db *sql.DB
}

// NewRecords creates a records store.
func NewRecords(db *sql.DB) *Records {
	return &Records{db: db}
}

// Replace swaps in a fresh set of reports for the given entity type.
func (r *Records) Replace(ctx context.Context, entityType string, reports []Report) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completeness_records WHERE entity_type = ?`, entityType); err != nil {
		return fmt.Errorf("failed to clear old reports: %w", err)
	}

	for _, report := range reports {
		missing, err := json.Marshal(report.Missing)
		if err != nil {
			return fmt.Errorf("failed to marshal missing list: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO completeness_records
				(entity_type, entity_key, entity_name, total, owned, percent, status, missing, analyzed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.EntityType, report.EntityKey, report.Name,
			report.Total, report.Owned, report.Percent, string(report.Status),
			string(missing), report.AnalyzedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert report for %s %s: %w", report.EntityType, report.EntityKey, err)
		}
	}

	return tx.Commit()
}

// RecordFilter narrows List results.
type RecordFilter struct {
	EntityType string
	Status     Status
	// Excluded holds dismissed catalog keys per entity type. Matching
	// entries are removed from each report's missing list before it is
	// returned; the report itself and its counts are untouched.
	Excluded map[string]map[string]struct{}
}

// List returns stored reports, newest percent-gap first.
func (r *Records) List(ctx context.Context, filter RecordFilter) ([]Report, error) {
	query := `
		SELECT entity_type, entity_key, entity_name, total, owned, percent, status, missing, analyzed_at
		FROM completeness_records WHERE 1=1`
	var args []interface{}
	if filter.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, filter.EntityType)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY percent ASC, entity_name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		report.FilterExcluded(filter.Excluded[report.EntityType])
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// Get returns the stored report for one entity.
func (r *Records) Get(ctx context.Context, entityType, entityKey string) (*Report, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT entity_type, entity_key, entity_name, total, owned, percent, status, missing, analyzed_at
		FROM completeness_records WHERE entity_type = ? AND entity_key = ?`,
		entityType, entityKey)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return report, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*Report, error) {
	var report Report
	var status, missing string
	err := row.Scan(&report.EntityType, &report.EntityKey, &report.Name,
		&report.Total, &report.Owned, &report.Percent, &status, &missing, &report.AnalyzedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	report.Status = Status(status)
	if err := json.Unmarshal([]byte(missing), &report.Missing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal missing list: %w", err)
	}
	return &report, nil
}
