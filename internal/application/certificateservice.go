package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// DefaultCertificateTitle is used when neither the request nor a template names the certificate.
const DefaultCertificateTitle = "Certificate of Achievement"

// ErrInvalidIssueRequest indicates an issue request missing a required field.
var ErrInvalidIssueRequest = errors.New("invalid issue request")

// IssueRequest carries everything needed to issue a certificate. Title and
// IssuedAt are optional; the service fills them from the course template and
// the current time.
type IssueRequest struct {
	StudentID      string
	StudentName    string
	CourseID       string
	CourseName     string
	InstructorName string
	Title          string
	Grade          string
	IssuedAt       time.Time
}

func (r IssueRequest) validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"student_id", r.StudentID},
		{"student_name", r.StudentName},
		{"course_id", r.CourseID},
		{"course_name", r.CourseName},
		{"instructor_name", r.InstructorName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidIssueRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Verification is the public view of a certificate looked up by credential id.
// Template is nil when the certificate was issued without one.
type Verification struct {
	Certificate model.Certificate
	Template    *model.CertificateTemplate
}

// CertificateService issues, renders and manages certificates. It depends only
// on port interfaces.
type CertificateService struct {
	certStore     driven.CertificateStore
	templateStore driven.TemplateStore
	renderer      driven.CertificateRenderer
	logger        *slog.Logger

	now           func() time.Time
	newCredential func() string
}

// NewCertificateService creates a CertificateService with the required dependencies.
func NewCertificateService(
	certStore driven.CertificateStore,
	templateStore driven.TemplateStore,
	renderer driven.CertificateRenderer,
	logger *slog.Logger,
) *CertificateService {
	return &CertificateService{
		certStore:     certStore,
		templateStore: templateStore,
		renderer:      renderer,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newCredential: uuid.NewString,
	}
}

// Issue validates the request, renders the certificate image and stores the
// record. A student holds at most one issued certificate per course; a second
// request returns ErrCertificateAlreadyExists.
func (s *CertificateService) Issue(ctx context.Context, req IssueRequest) (model.Certificate, error) {
	if err := req.validate(); err != nil {
		return model.Certificate{}, err
	}

	existing, err := s.certStore.FindIssued(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return model.Certificate{}, err
	}
	if existing != nil {
		return model.Certificate{}, fmt.Errorf("student %s in course %s holds %s: %w",
			req.StudentID, req.CourseID, existing.CredentialID, driven.ErrCertificateAlreadyExists)
	}

	tmpl, err := s.templateStore.GetForCourse(ctx, req.CourseID)
	if err != nil {
		return model.Certificate{}, err
	}

	cert := model.Certificate{
		CredentialID:   s.newCredential(),
		StudentID:      req.StudentID,
		StudentName:    strings.TrimSpace(req.StudentName),
		CourseID:       req.CourseID,
		CourseName:     strings.TrimSpace(req.CourseName),
		Title:          strings.TrimSpace(req.Title),
		InstructorName: strings.TrimSpace(req.InstructorName),
		Grade:          strings.TrimSpace(req.Grade),
		Status:         model.CertificateStatusIssued,
		IssuedAt:       req.IssuedAt,
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = s.now()
	}
	if tmpl != nil {
		cert.TemplateID = tmpl.ID
		if cert.Title == "" {
			cert.Title = tmpl.Title
		}
	}
	if cert.Title == "" {
		cert.Title = DefaultCertificateTitle
	}

	imagePath, err := s.renderer.Generate(ctx, cert.Content())
	if err != nil {
		return model.Certificate{}, fmt.Errorf("render certificate %s: %w", cert.CredentialID, err)
	}
	cert.ImagePath = imagePath

	created, err := s.certStore.Create(ctx, cert)
	if err != nil {
		if rmErr := s.renderer.Remove(imagePath); rmErr != nil {
			s.logger.Error("failed to remove orphaned certificate image", "path", imagePath, "error", rmErr)
		}
		return model.Certificate{}, err
	}

	s.logger.Info("certificate issued",
		"credential_id", created.CredentialID,
		"student_id", created.StudentID,
		"course_id", created.CourseID,
	)
	return created, nil
}

// Get returns the certificate with the given id or ErrCertificateNotFound.
func (s *CertificateService) Get(ctx context.Context, id int64) (model.Certificate, error) {
	cert, err := s.certStore.GetByID(ctx, id)
	if err != nil {
		return model.Certificate{}, err
	}
	if cert == nil {
		return model.Certificate{}, fmt.Errorf("certificate %d: %w", id, driven.ErrCertificateNotFound)
	}
	return *cert, nil
}

// Verify looks up a certificate by credential id together with its template.
func (s *CertificateService) Verify(ctx context.Context, credentialID string) (*Verification, error) {
	cert, err := s.certStore.GetByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, fmt.Errorf("credential %s: %w", credentialID, driven.ErrCertificateNotFound)
	}

	v := &Verification{Certificate: *cert}
	if cert.TemplateID != 0 {
		tmpl, err := s.templateStore.GetByID(ctx, cert.TemplateID)
		if err != nil {
			return nil, err
		}
		v.Template = tmpl
	}
	return v, nil
}

// ListAll returns every certificate.
func (s *CertificateService) ListAll(ctx context.Context) ([]model.Certificate, error) {
	return s.certStore.ListAll(ctx)
}

// ListByCourse returns the certificates issued for a course.
func (s *CertificateService) ListByCourse(ctx context.Context, courseID string) ([]model.Certificate, error) {
	return s.certStore.ListByCourse(ctx, courseID)
}

// ListByStudent returns the certificates issued to a student.
func (s *CertificateService) ListByStudent(ctx context.Context, studentID string) ([]model.Certificate, error) {
	return s.certStore.ListByStudent(ctx, studentID)
}

// Search returns certificates whose student name, course name, id or
// credential id contains query, ignoring case. An empty query matches all.
func (s *CertificateService) Search(ctx context.Context, query string) ([]model.Certificate, error) {
	certs, err := s.certStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCertificates(certs, query), nil
}

// FilterCertificates applies the Search matching rules to certs.
func FilterCertificates(certs []model.Certificate, query string) []model.Certificate {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return certs
	}

	matched := make([]model.Certificate, 0, len(certs))
	for _, c := range certs {
		if strings.Contains(strings.ToLower(c.StudentName), q) ||
			strings.Contains(strings.ToLower(c.CourseName), q) ||
			strings.Contains(strconv.FormatInt(c.ID, 10), q) ||
			strings.Contains(strings.ToLower(c.CredentialID), q) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Stats counts all certificates, the active ones, and those issued in the
// calendar month of now.
func (s *CertificateService) Stats(ctx context.Context) (model.CertificateStats, error) {
	certs, err := s.certStore.ListAll(ctx)
	if err != nil {
		return model.CertificateStats{}, err
	}
	return ComputeStats(certs, s.now()), nil
}

// ComputeStats summarises certs relative to now.
func ComputeStats(certs []model.Certificate, now time.Time) model.CertificateStats {
	stats := model.CertificateStats{Total: len(certs)}
	year, month, _ := now.Date()

	for _, c := range certs {
		if c.IsActive() {
			stats.Active++
		}
		y, m, _ := c.IssuedAt.In(now.Location()).Date()
		if y == year && m == month {
			stats.ThisMonth++
		}
	}
	return stats
}

// Revoke marks a certificate as no longer valid. The image is kept.
func (s *CertificateService) Revoke(ctx context.Context, id int64) (model.Certificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return model.Certificate{}, err
	}

	if err := s.certStore.UpdateStatus(ctx, id, model.CertificateStatusRevoked); err != nil {
		return model.Certificate{}, err
	}
	cert.Status = model.CertificateStatusRevoked

	s.logger.Info("certificate revoked", "credential_id", cert.CredentialID)
	return cert, nil
}

// Regenerate re-renders a certificate image from its stored data, for example
// after a new default template was uploaded.
func (s *CertificateService) Regenerate(ctx context.Context, id int64) (model.Certificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return model.Certificate{}, err
	}

	imagePath, err := s.renderer.Generate(ctx, cert.Content())
	if err != nil {
		return model.Certificate{}, fmt.Errorf("render certificate %s: %w", cert.CredentialID, err)
	}

	if imagePath != cert.ImagePath {
		if err := s.certStore.UpdateImagePath(ctx, id, imagePath); err != nil {
			return model.Certificate{}, err
		}
		cert.ImagePath = imagePath
	}

	s.logger.Info("certificate regenerated", "credential_id", cert.CredentialID)
	return cert, nil
}

// Delete removes the certificate record and then its image. A failure to
// remove the image is logged; the record is already gone.
func (s *CertificateService) Delete(ctx context.Context, id int64) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.certStore.Delete(ctx, id); err != nil {
		return err
	}

	if cert.ImagePath != "" {
		if err := s.renderer.Remove(cert.ImagePath); err != nil {
			s.logger.Error("failed to remove certificate image",
				"credential_id", cert.CredentialID,
				"path", cert.ImagePath,
				"error", err,
			)
		}
	}

	s.logger.Info("certificate deleted", "credential_id", cert.CredentialID)
	return nil
}
