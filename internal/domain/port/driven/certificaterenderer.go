package driven

import (
	"context"
	"errors"
	"io"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
)

// CertificateRenderer defines the driven port that turns certificate content
// into an image file under the upload folder.
type CertificateRenderer interface {
	// Generate renders the certificate and returns the image path relative to
	// the upload folder. Rendering the same credential id twice overwrites the file.
	Generate(ctx context.Context, content model.CertificateContent) (string, error)

	// Remove deletes a previously rendered image. A missing file is not an error.
	Remove(relPath string) error

	// StoreDefaultTemplate replaces the background image used for every certificate.
	StoreDefaultTemplate(ctx context.Context, r io.Reader) error

	// HasDefaultTemplate reports whether a default background image is installed.
	HasDefaultTemplate() bool
}

// Sentinel errors returned by CertificateRenderer implementations.
var (
	// ErrInvalidCredentialID indicates a credential id that cannot be used as a file name.
	ErrInvalidCredentialID = errors.New("invalid credential id")

	// ErrInvalidTemplateImage indicates an uploaded template that is not a decodable PNG.
	ErrInvalidTemplateImage = errors.New("template image is not a valid PNG")

	// ErrTemplateImageTooLarge indicates an uploaded template over the configured size limit.
	ErrTemplateImageTooLarge = errors.New("template image too large")
)
