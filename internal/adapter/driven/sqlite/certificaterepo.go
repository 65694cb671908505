package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CertificateStore = (*CertificateRepo)(nil)

const certificateColumns = `id, credential_id, student_id, student_name, course_id, course_name, title,
	instructor_name, grade, status, template_id, image_path, issued_at, created_at`

// CertificateRepo is the SQLite implementation of the CertificateStore port interface.
type CertificateRepo struct {
	db *DB
}

// NewCertificateRepo creates a new CertificateRepo backed by the given DB.
func NewCertificateRepo(db *DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

// Create inserts a certificate and returns it with its ID and CreatedAt set.
// Returns ErrCertificateAlreadyExists if the credential id is taken or the
// student already holds an issued certificate for the course.
func (r *CertificateRepo) Create(ctx context.Context, cert model.Certificate) (model.Certificate, error) {
	const query = `INSERT INTO certificates
		(credential_id, student_id, student_name, course_id, course_name, title,
		 instructor_name, grade, status, template_id, image_path, issued_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	status := cert.Status
	if status == "" {
		status = model.CertificateStatusIssued
	}
	createdAt := cert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		cert.CredentialID,
		cert.StudentID,
		cert.StudentName,
		cert.CourseID,
		cert.CourseName,
		cert.Title,
		cert.InstructorName,
		cert.Grade,
		string(status),
		nullableID(cert.TemplateID),
		cert.ImagePath,
		formatTime(cert.IssuedAt),
		formatTime(createdAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Certificate{}, fmt.Errorf("create certificate %s: %w", cert.CredentialID, driven.ErrCertificateAlreadyExists)
		}
		return model.Certificate{}, fmt.Errorf("create certificate %s: %w", cert.CredentialID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Certificate{}, fmt.Errorf("get certificate id: %w", err)
	}

	cert.ID = id
	cert.Status = status
	cert.CreatedAt = createdAt
	return cert, nil
}

// GetByID retrieves a certificate by primary key. Returns nil, nil if not found.
func (r *CertificateRepo) GetByID(ctx context.Context, id int64) (*model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = ?`

	cert, err := scanCertificate(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate %d: %w", id, err)
	}
	return cert, nil
}

// GetByCredentialID retrieves a certificate by credential id. Returns nil, nil if not found.
func (r *CertificateRepo) GetByCredentialID(ctx context.Context, credentialID string) (*model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE credential_id = ?`

	cert, err := scanCertificate(r.db.Reader.QueryRowContext(ctx, query, credentialID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate %s: %w", credentialID, err)
	}
	return cert, nil
}

// ListAll returns every certificate, newest issue first.
func (r *CertificateRepo) ListAll(ctx context.Context) ([]model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates ORDER BY issued_at DESC, id DESC`
	return r.list(ctx, "list certificates", query)
}

// ListByCourse returns the certificates issued for a course, newest issue first.
func (r *CertificateRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE course_id = ? ORDER BY issued_at DESC, id DESC`
	return r.list(ctx, "list certificates for course "+courseID, query, courseID)
}

// ListByStudent returns the certificates issued to a student, newest issue first.
func (r *CertificateRepo) ListByStudent(ctx context.Context, studentID string) ([]model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE student_id = ? ORDER BY issued_at DESC, id DESC`
	return r.list(ctx, "list certificates for student "+studentID, query, studentID)
}

// FindIssued returns the issued certificate for the student and course, or nil, nil.
func (r *CertificateRepo) FindIssued(ctx context.Context, studentID, courseID string) (*model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates
		WHERE student_id = ? AND course_id = ? AND status = ?
		ORDER BY issued_at DESC, id DESC LIMIT 1`

	cert, err := scanCertificate(r.db.Reader.QueryRowContext(ctx, query, studentID, courseID, string(model.CertificateStatusIssued)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find issued certificate for %s in %s: %w", studentID, courseID, err)
	}
	return cert, nil
}

// UpdateStatus changes the status of a certificate.
func (r *CertificateRepo) UpdateStatus(ctx context.Context, id int64, status model.CertificateStatus) error {
	const query = `UPDATE certificates SET status = ? WHERE id = ?`
	return r.exec(ctx, fmt.Sprintf("update status of certificate %d", id), query, string(status), id)
}

// UpdateImagePath records a new image location for a certificate.
func (r *CertificateRepo) UpdateImagePath(ctx context.Context, id int64, imagePath string) error {
	const query = `UPDATE certificates SET image_path = ? WHERE id = ?`
	return r.exec(ctx, fmt.Sprintf("update image of certificate %d", id), query, imagePath, id)
}

// Delete removes a certificate record.
func (r *CertificateRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM certificates WHERE id = ?`
	return r.exec(ctx, fmt.Sprintf("delete certificate %d", id), query, id)
}

// exec runs a single-row write and maps zero affected rows to ErrCertificateNotFound.
func (r *CertificateRepo) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, driven.ErrCertificateNotFound)
	}
	return nil
}

func (r *CertificateRepo) list(ctx context.Context, op, query string, args ...any) ([]model.Certificate, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	certs := []model.Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, *cert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}

	return certs, nil
}

func scanCertificate(s scanner) (*model.Certificate, error) {
	var cert model.Certificate
	var status string
	var templateID sql.NullInt64
	var issuedAt, createdAt string

	err := s.Scan(
		&cert.ID,
		&cert.CredentialID,
		&cert.StudentID,
		&cert.StudentName,
		&cert.CourseID,
		&cert.CourseName,
		&cert.Title,
		&cert.InstructorName,
		&cert.Grade,
		&status,
		&templateID,
		&cert.ImagePath,
		&issuedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	cert.Status = model.CertificateStatus(status)
	if templateID.Valid {
		cert.TemplateID = templateID.Int64
	}

	cert.IssuedAt, err = parseTime(issuedAt)
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}
	cert.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &cert, nil
}
