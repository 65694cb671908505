package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TemplateStore = (*TemplateRepo)(nil)

// TemplateRepo is the SQLite implementation of the TemplateStore port interface.
type TemplateRepo struct {
	db *DB
}

// NewTemplateRepo creates a new TemplateRepo backed by the given DB.
func NewTemplateRepo(db *DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

// Create inserts a template and returns it with ID and CreatedAt populated.
func (r *TemplateRepo) Create(ctx context.Context, tmpl model.CertificateTemplate) (model.CertificateTemplate, error) {
	const query = `INSERT INTO certificate_templates (title, description, course_id, created_at) VALUES (?, ?, ?, ?)`

	createdAt := tmpl.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query, tmpl.Title, tmpl.Description, tmpl.CourseID, formatTime(createdAt))
	if err != nil {
		return model.CertificateTemplate{}, fmt.Errorf("create template %q: %w", tmpl.Title, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.CertificateTemplate{}, fmt.Errorf("get template id: %w", err)
	}

	tmpl.ID = id
	tmpl.CreatedAt = createdAt
	return tmpl, nil
}

// GetByID retrieves a template by primary key. Returns nil, nil if not found.
func (r *TemplateRepo) GetByID(ctx context.Context, id int64) (*model.CertificateTemplate, error) {
	const query = `SELECT id, title, description, course_id, created_at FROM certificate_templates WHERE id = ?`

	tmpl, err := scanTemplate(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	return tmpl, nil
}

// GetForCourse returns the newest template bound to courseID, or the newest
// global template when the course has none. Returns nil, nil if neither exists.
func (r *TemplateRepo) GetForCourse(ctx context.Context, courseID string) (*model.CertificateTemplate, error) {
	const query = `SELECT id, title, description, course_id, created_at FROM certificate_templates
		WHERE course_id = ? OR course_id = ''
		ORDER BY (course_id = '') ASC, created_at DESC, id DESC
		LIMIT 1`

	tmpl, err := scanTemplate(r.db.Reader.QueryRowContext(ctx, query, courseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template for course %s: %w", courseID, err)
	}
	return tmpl, nil
}

// ListAll returns every template, newest first.
func (r *TemplateRepo) ListAll(ctx context.Context) ([]model.CertificateTemplate, error) {
	const query = `SELECT id, title, description, course_id, created_at FROM certificate_templates ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []model.CertificateTemplate{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *tmpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	return templates, nil
}

// Delete removes a template. Certificates that referenced it keep their data
// and lose the link.
func (r *TemplateRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM certificate_templates WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete template %d: %w", id, driven.ErrTemplateNotFound)
	}

	return nil
}

func scanTemplate(s scanner) (*model.CertificateTemplate, error) {
	var tmpl model.CertificateTemplate
	var createdAt string

	if err := s.Scan(&tmpl.ID, &tmpl.Title, &tmpl.Description, &tmpl.CourseID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	tmpl.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &tmpl, nil
}
