package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// ErrInvalidTemplate indicates a template request without a title.
var ErrInvalidTemplate = errors.New("invalid certificate template")

// TemplateService manages certificate templates and the default background image.
type TemplateService struct {
	templateStore driven.TemplateStore
	renderer      driven.CertificateRenderer
	logger        *slog.Logger
}

// NewTemplateService creates a TemplateService with the required dependencies.
func NewTemplateService(templateStore driven.TemplateStore, renderer driven.CertificateRenderer, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		templateStore: templateStore,
		renderer:      renderer,
		logger:        logger,
	}
}

// Create stores a new template. An empty courseID makes it apply to all courses.
func (s *TemplateService) Create(ctx context.Context, title, description, courseID string) (model.CertificateTemplate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.CertificateTemplate{}, fmt.Errorf("%w: title is required", ErrInvalidTemplate)
	}

	tmpl, err := s.templateStore.Create(ctx, model.CertificateTemplate{
		Title:       title,
		Description: description,
		CourseID:    strings.TrimSpace(courseID),
	})
	if err != nil {
		return model.CertificateTemplate{}, err
	}

	s.logger.Info("certificate template created", "id", tmpl.ID, "title", tmpl.Title, "course_id", tmpl.CourseID)
	return tmpl, nil
}

// Get returns the template with the given id or ErrTemplateNotFound.
func (s *TemplateService) Get(ctx context.Context, id int64) (model.CertificateTemplate, error) {
	tmpl, err := s.templateStore.GetByID(ctx, id)
	if err != nil {
		return model.CertificateTemplate{}, err
	}
	if tmpl == nil {
		return model.CertificateTemplate{}, fmt.Errorf("template %d: %w", id, driven.ErrTemplateNotFound)
	}
	return *tmpl, nil
}

// List returns all templates, newest first.
func (s *TemplateService) List(ctx context.Context) ([]model.CertificateTemplate, error) {
	return s.templateStore.ListAll(ctx)
}

// Delete removes a template. Certificates issued with it are kept.
func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	if err := s.templateStore.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("certificate template deleted", "id", id)
	return nil
}

// UploadDefaultImage installs a new background image for all certificates
// rendered from now on.
func (s *TemplateService) UploadDefaultImage(ctx context.Context, r io.Reader) error {
	return s.renderer.StoreDefaultTemplate(ctx, r)
}

// HasDefaultImage reports whether a background image is installed.
func (s *TemplateService) HasDefaultImage() bool {
	return s.renderer.HasDefaultTemplate()
}
