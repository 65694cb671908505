// Package render implements the CertificateRenderer port by drawing certificate
// text onto a template image (or a blank bordered canvas) and saving it as PNG.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/natefinch/atomic"
	"golang.org/x/image/font"
	"golang.org/x/text/unicode/norm"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CertificateRenderer = (*Generator)(nil)

const (
	// CertificatesDir is the folder under the upload folder holding rendered certificates.
	CertificatesDir = "certificates"

	// TemplatesDir is the folder under the upload folder holding template images.
	TemplatesDir = "certificate_templates"

	// DefaultTemplateFile is the background image used for every certificate when present.
	DefaultTemplateFile = "default_template.png"

	canvasWidth  = 1200
	canvasHeight = 900

	issueDateLayout = "January 02, 2006"
)

var (
	brandColor = color.RGBA{R: 25, G: 164, B: 219, A: 255}
	textColor  = color.RGBA{A: 255}
)

// Generator renders certificates into <uploadFolder>/certificates.
type Generator struct {
	uploadFolder     string
	fontPaths        []string
	maxTemplateBytes int64
	logger           *slog.Logger
}

// NewGenerator creates a Generator writing below uploadFolder. fontPaths lists
// candidate TrueType/OpenType files tried in order before the embedded fallback.
// maxTemplateBytes bounds uploads accepted by StoreDefaultTemplate.
func NewGenerator(uploadFolder string, fontPaths []string, maxTemplateBytes int64, logger *slog.Logger) *Generator {
	return &Generator{
		uploadFolder:     uploadFolder,
		fontPaths:        fontPaths,
		maxTemplateBytes: maxTemplateBytes,
		logger:           logger,
	}
}

// Generate renders the certificate and writes it to
// <uploadFolder>/certificates/<credential id>.png, returning the path relative
// to the upload folder. Any failure is logged and returned as is.
func (g *Generator) Generate(ctx context.Context, content model.CertificateContent) (string, error) {
	relPath, err := g.generate(ctx, content)
	if err != nil {
		g.logger.Error("error generating certificate",
			"credential_id", content.CredentialID,
			"error", err,
		)
		return "", err
	}

	g.logger.Info("certificate generated",
		"credential_id", content.CredentialID,
		"path", relPath,
	)
	return relPath, nil
}

func (g *Generator) generate(ctx context.Context, content model.CertificateContent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := validateCredentialID(content.CredentialID); err != nil {
		return "", err
	}

	certDir := filepath.Join(g.uploadFolder, CertificatesDir)
	if err := os.MkdirAll(certDir, 0o755); err != nil {
		return "", fmt.Errorf("create certificates folder: %w", err)
	}

	filename := content.CredentialID + ".png"
	filePath := filepath.Join(certDir, filename)

	dc, err := g.canvas()
	if err != nil {
		return "", err
	}

	fonts, err := loadFonts(g.fontPaths, g.logger)
	if err != nil {
		return "", err
	}
	defer fonts.Close()
	g.logger.Debug("certificate fonts loaded", "source", fonts.source)

	drawCertificate(dc, fonts, content)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("encode certificate png: %w", err)
	}
	if err := atomic.WriteFile(filePath, &buf); err != nil {
		return "", fmt.Errorf("save certificate %s: %w", filePath, err)
	}

	return path.Join(CertificatesDir, filename), nil
}

// canvas returns a drawing context over the default template when one is
// installed, or over a blank white canvas with a brand-coloured border.
func (g *Generator) canvas() (*gg.Context, error) {
	tmplPath := g.defaultTemplatePath()
	if _, err := os.Stat(tmplPath); err == nil {
		img, err := gg.LoadImage(tmplPath)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", tmplPath, err)
		}
		return gg.NewContextForImage(img), nil
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)
	dc.SetColor(color.White)
	dc.Clear()

	// Stroke is centred on the path; this covers the box (20,20)-(1180,880) inwards by 5px.
	dc.SetColor(brandColor)
	dc.SetLineWidth(5)
	dc.DrawRectangle(22.5, 22.5, 1156, 856)
	dc.Stroke()

	return dc, nil
}

type textLine struct {
	text  string
	x, y  float64
	face  font.Face
	color color.Color
}

func drawCertificate(dc *gg.Context, fonts *fontSet, content model.CertificateContent) {
	lines := []textLine{
		{"Certificate of Completion", 600, 100, fonts.header, brandColor},
		{content.Title, 600, 200, fonts.title, textColor},
		{content.StudentName, 600, 350, fonts.name, textColor},
		{"has successfully completed the course", 600, 450, fonts.course, textColor},
		{content.CourseName, 600, 500, fonts.course, textColor},
		{"Issue Date: " + content.IssueDate.Format(issueDateLayout), 300, 650, fonts.details, textColor},
		{"Instructor: " + content.InstructorName, 900, 650, fonts.details, textColor},
		{"Credential ID: " + content.CredentialID, 600, 800, fonts.id, textColor},
	}

	for _, l := range lines {
		dc.SetFontFace(l.face)
		dc.SetColor(l.color)
		dc.DrawStringAnchored(norm.NFC.String(l.text), l.x, l.y, 0.5, 0.5)
	}
}

// validateCredentialID rejects ids that would escape the certificates folder
// or collide with another id once used as a file name.
func validateCredentialID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", driven.ErrInvalidCredentialID)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", driven.ErrInvalidCredentialID, id)
	}
	return nil
}

// Remove deletes a rendered image given its path relative to the upload folder.
func (g *Generator) Remove(relPath string) error {
	full, err := g.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove certificate image %s: %w", relPath, err)
	}
	return nil
}

// resolve maps a slash-separated relative path to a file inside the upload folder.
func (g *Generator) resolve(relPath string) (string, error) {
	if relPath == "" || !fs.ValidPath(relPath) {
		return "", fmt.Errorf("invalid image path %q", relPath)
	}
	return filepath.Join(g.uploadFolder, filepath.FromSlash(relPath)), nil
}

func (g *Generator) defaultTemplatePath() string {
	return filepath.Join(g.uploadFolder, TemplatesDir, DefaultTemplateFile)
}
