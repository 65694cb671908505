// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
)

// Sentinel errors returned by CertificateStore implementations.
var (
	// ErrCertificateNotFound indicates the requested certificate does not exist.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrCertificateAlreadyExists indicates a certificate with the same credential id,
	// or an issued certificate for the same student and course, already exists.
	ErrCertificateAlreadyExists = errors.New("certificate already exists")
)

// CertificateStore defines the driven port for certificate persistence.
// Lookups return (nil, nil) when nothing matches. UpdateStatus, UpdateImagePath
// and Delete return ErrCertificateNotFound for unknown ids.
type CertificateStore interface {
	// Create inserts the certificate and returns it with ID and CreatedAt populated.
	// Returns ErrCertificateAlreadyExists on a duplicate credential id.
	Create(ctx context.Context, cert model.Certificate) (model.Certificate, error)
	GetByID(ctx context.Context, id int64) (*model.Certificate, error)
	GetByCredentialID(ctx context.Context, credentialID string) (*model.Certificate, error)
	ListAll(ctx context.Context) ([]model.Certificate, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Certificate, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Certificate, error)
	// FindIssued returns the issued (not revoked) certificate for the student and course, if any.
	FindIssued(ctx context.Context, studentID, courseID string) (*model.Certificate, error)
	UpdateStatus(ctx context.Context, id int64, status model.CertificateStatus) error
	UpdateImagePath(ctx context.Context, id int64, imagePath string) error
	Delete(ctx context.Context, id int64) error
}
