package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
)

// ErrTemplateNotFound indicates the requested certificate template does not exist.
var ErrTemplateNotFound = errors.New("certificate template not found")

// TemplateStore defines the driven port for certificate template persistence.
type TemplateStore interface {
	Create(ctx context.Context, tmpl model.CertificateTemplate) (model.CertificateTemplate, error)
	// GetByID returns (nil, nil) if the template does not exist.
	GetByID(ctx context.Context, id int64) (*model.CertificateTemplate, error)
	// GetForCourse returns the newest template bound to courseID, falling back to
	// the newest global template. Returns (nil, nil) if neither exists.
	GetForCourse(ctx context.Context, courseID string) (*model.CertificateTemplate, error)
	ListAll(ctx context.Context) ([]model.CertificateTemplate, error)
	// Delete returns ErrTemplateNotFound if the template does not exist.
	Delete(ctx context.Context, id int64) error
}
