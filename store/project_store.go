package store

import (
	"context"
	"database/sql"
	"fmt"

	"sitepulse/api/models"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = fmt.Errorf("not found")

// ProjectStore persists projects, consent settings and internal IP rules.
type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (id, owner_id, name, domain, public_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`
	err := s.db.QueryRowContext(ctx, query, p.ID, p.OwnerID, p.Name, p.Domain, p.PublicKey).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *ProjectStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	query := `
		SELECT id, owner_id, name, domain, public_key, created_at
		FROM projects
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Domain, &p.PublicKey, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (s *ProjectStore) ListProjectsByOwner(ctx context.Context, ownerID int) ([]models.Project, error) {
	query := `
		SELECT id, owner_id, name, domain, public_key, created_at
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Domain, &p.PublicKey, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListAllProjects feeds the retention sweeper.
func (s *ProjectStore) ListAllProjects(ctx context.Context) ([]models.Project, error) {
	query := `SELECT id, owner_id, name, domain, public_key, created_at FROM projects;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Domain, &p.PublicKey, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *ProjectStore) DeleteProject(ctx context.Context, id string, ownerID int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2;`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetConsentSettings returns the project's settings, or the defaults when
// the owner never saved any.
func (s *ProjectStore) GetConsentSettings(ctx context.Context, projectID string) (models.ConsentSettings, error) {
	cs := models.ConsentSettings{}
	query := `
		SELECT project_id, consent_mode, respect_dnt, anonymize_ip, cookieless, retention_days, updated_at
		FROM consent_settings
		WHERE project_id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(
		&cs.ProjectID, &cs.ConsentMode, &cs.RespectDNT, &cs.AnonymizeIP,
		&cs.Cookieless, &cs.RetentionDays, &cs.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DefaultConsentSettings(projectID), nil
		}
		return cs, fmt.Errorf("failed to get consent settings: %w", err)
	}
	return cs, nil
}

func (s *ProjectStore) UpsertConsentSettings(ctx context.Context, cs *models.ConsentSettings) error {
	query := `
		INSERT INTO consent_settings (project_id, consent_mode, respect_dnt, anonymize_ip, cookieless, retention_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (project_id) DO UPDATE SET
			consent_mode = EXCLUDED.consent_mode,
			respect_dnt = EXCLUDED.respect_dnt,
			anonymize_ip = EXCLUDED.anonymize_ip,
			cookieless = EXCLUDED.cookieless,
			retention_days = EXCLUDED.retention_days,
			updated_at = NOW()
		RETURNING updated_at;
	`
	err := s.db.QueryRowContext(ctx, query,
		cs.ProjectID, cs.ConsentMode, cs.RespectDNT, cs.AnonymizeIP, cs.Cookieless, cs.RetentionDays,
	).Scan(&cs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert consent settings: %w", err)
	}
	return nil
}

func (s *ProjectStore) ListInternalIPRules(ctx context.Context, projectID string) ([]models.InternalIPRule, error) {
	query := `
		SELECT id, project_id, rule_type, value, label, created_at
		FROM internal_ip_rules
		WHERE project_id = $1
		ORDER BY id;
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list internal IP rules: %w", err)
	}
	defer rows.Close()

	rules := make([]models.InternalIPRule, 0)
	for rows.Next() {
		var r models.InternalIPRule
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.RuleType, &r.Value, &r.Label, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan internal IP rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *ProjectStore) CreateInternalIPRule(ctx context.Context, r *models.InternalIPRule) error {
	query := `
		INSERT INTO internal_ip_rules (project_id, rule_type, value, label)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`
	err := s.db.QueryRowContext(ctx, query, r.ProjectID, r.RuleType, r.Value, r.Label).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create internal IP rule: %w", err)
	}
	return nil
}

func (s *ProjectStore) DeleteInternalIPRule(ctx context.Context, projectID string, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM internal_ip_rules WHERE id = $1 AND project_id = $2;`, id, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete internal IP rule: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
