package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sitepulse/api/models"
)

// ReportStore persists the dashboard's stored query definitions: custom
// reports, funnels and custom event definitions. Structured fields (metric
// lists, steps, rules, filters) live in JSONB columns.
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) CreateReport(ctx context.Context, r *models.CustomReport) error {
	metricsJSON, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal report metrics: %w", err)
	}
	filtersJSON, err := json.Marshal(r.Filters)
	if err != nil {
		return fmt.Errorf("failed to marshal report filters: %w", err)
	}

	query := `
		INSERT INTO custom_reports (id, project_id, name, chart_type, metrics, dimension, date_range, filters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at;
	`
	err = s.db.QueryRowContext(ctx, query,
		r.ID, r.ProjectID, r.Name, r.ChartType, metricsJSON, r.Dimension, r.DateRange, filtersJSON,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create custom report: %w", err)
	}
	return nil
}

func (s *ReportStore) GetReport(ctx context.Context, id string) (*models.CustomReport, error) {
	r := &models.CustomReport{}
	var metricsJSON, filtersJSON []byte
	query := `
		SELECT id, project_id, name, chart_type, metrics, dimension, date_range, filters, created_at
		FROM custom_reports
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.ProjectID, &r.Name, &r.ChartType, &metricsJSON, &r.Dimension, &r.DateRange, &filtersJSON, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get custom report: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report metrics: %w", err)
	}
	if len(filtersJSON) > 0 && string(filtersJSON) != "null" {
		r.Filters = &models.ReportFilters{}
		if err := json.Unmarshal(filtersJSON, r.Filters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report filters: %w", err)
		}
	}
	return r, nil
}

func (s *ReportStore) ListReports(ctx context.Context, projectID string) ([]models.CustomReport, error) {
	query := `
		SELECT id, project_id, name, chart_type, metrics, dimension, date_range, filters, created_at
		FROM custom_reports
		WHERE project_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.CustomReport, 0)
	for rows.Next() {
		var r models.CustomReport
		var metricsJSON, filtersJSON []byte
		err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.ChartType, &metricsJSON, &r.Dimension, &r.DateRange, &filtersJSON, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custom report: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report metrics: %w", err)
		}
		if len(filtersJSON) > 0 && string(filtersJSON) != "null" {
			r.Filters = &models.ReportFilters{}
			if err := json.Unmarshal(filtersJSON, r.Filters); err != nil {
				return nil, fmt.Errorf("failed to unmarshal report filters: %w", err)
			}
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *ReportStore) DeleteReport(ctx context.Context, projectID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM custom_reports WHERE id = $1 AND project_id = $2;`, id, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete custom report: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ReportStore) CreateFunnel(ctx context.Context, f *models.Funnel) error {
	stepsJSON, err := json.Marshal(f.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal funnel steps: %w", err)
	}
	query := `
		INSERT INTO funnels (id, project_id, name, steps)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at;
	`
	err = s.db.QueryRowContext(ctx, query, f.ID, f.ProjectID, f.Name, stepsJSON).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create funnel: %w", err)
	}
	return nil
}

func (s *ReportStore) GetFunnel(ctx context.Context, id string) (*models.Funnel, error) {
	f := &models.Funnel{}
	var stepsJSON []byte
	query := `SELECT id, project_id, name, steps, created_at FROM funnels WHERE id = $1;`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.ProjectID, &f.Name, &stepsJSON, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get funnel: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &f.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal funnel steps: %w", err)
	}
	return f, nil
}

func (s *ReportStore) ListFunnels(ctx context.Context, projectID string) ([]models.Funnel, error) {
	query := `SELECT id, project_id, name, steps, created_at FROM funnels WHERE project_id = $1 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	defer rows.Close()

	funnels := make([]models.Funnel, 0)
	for rows.Next() {
		var f models.Funnel
		var stepsJSON []byte
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &stepsJSON, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan funnel: %w", err)
		}
		if err := json.Unmarshal(stepsJSON, &f.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal funnel steps: %w", err)
		}
		funnels = append(funnels, f)
	}
	return funnels, rows.Err()
}

func (s *ReportStore) DeleteFunnel(ctx context.Context, projectID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM funnels WHERE id = $1 AND project_id = $2;`, id, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete funnel: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ReportStore) CreateCustomEventDefinition(ctx context.Context, d *models.CustomEventDefinition) error {
	rulesJSON, err := json.Marshal(d.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal definition rules: %w", err)
	}
	query := `
		INSERT INTO custom_event_definitions (id, project_id, name, rules)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at;
	`
	err = s.db.QueryRowContext(ctx, query, d.ID, d.ProjectID, d.Name, rulesJSON).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create custom event definition: %w", err)
	}
	return nil
}

func (s *ReportStore) GetCustomEventDefinition(ctx context.Context, id string) (*models.CustomEventDefinition, error) {
	d := &models.CustomEventDefinition{}
	var rulesJSON []byte
	query := `SELECT id, project_id, name, rules, created_at FROM custom_event_definitions WHERE id = $1;`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.ProjectID, &d.Name, &rulesJSON, &d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get custom event definition: %w", err)
	}
	if err := json.Unmarshal(rulesJSON, &d.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition rules: %w", err)
	}
	return d, nil
}

func (s *ReportStore) ListCustomEventDefinitions(ctx context.Context, projectID string) ([]models.CustomEventDefinition, error) {
	query := `SELECT id, project_id, name, rules, created_at FROM custom_event_definitions WHERE project_id = $1 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom event definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]models.CustomEventDefinition, 0)
	for rows.Next() {
		var d models.CustomEventDefinition
		var rulesJSON []byte
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Name, &rulesJSON, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom event definition: %w", err)
		}
		if err := json.Unmarshal(rulesJSON, &d.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition rules: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *ReportStore) DeleteCustomEventDefinition(ctx context.Context, projectID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM custom_event_definitions WHERE id = $1 AND project_id = $2;`, id, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete custom event definition: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
