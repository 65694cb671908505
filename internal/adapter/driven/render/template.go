package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// StoreDefaultTemplate validates that r holds a PNG image within the size limit
// and installs it as the default certificate background. Certificates rendered
// afterwards are drawn on top of it.
func (g *Generator) StoreDefaultTemplate(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, g.maxTemplateBytes+1))
	if err != nil {
		return fmt.Errorf("read template upload: %w", err)
	}
	if int64(len(data)) > g.maxTemplateBytes {
		return fmt.Errorf("%w: limit is %d bytes", driven.ErrTemplateImageTooLarge, g.maxTemplateBytes)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrInvalidTemplateImage, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(g.uploadFolder, TemplatesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create templates folder: %w", err)
	}

	if err := atomic.WriteFile(g.defaultTemplatePath(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save default template: %w", err)
	}

	bounds := img.Bounds()
	g.logger.Info("default certificate template stored",
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"bytes", len(data),
	)
	return nil
}

// HasDefaultTemplate reports whether a default template image is installed.
func (g *Generator) HasDefaultTemplate() bool {
	info, err := os.Stat(g.defaultTemplatePath())
	return err == nil && !info.IsDir()
}
