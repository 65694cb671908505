// Command certrender renders a single certificate image without touching the
// database. It is useful for previewing a new default template.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	renderadapter "github.com/ericfisherdev/certpanel/internal/adapter/driven/render"
	"github.com/ericfisherdev/certpanel/internal/application"
	"github.com/ericfisherdev/certpanel/internal/config"
	"github.com/ericfisherdev/certpanel/internal/domain/model"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	content, uploadFolder, fontPaths, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	generator := renderadapter.NewGenerator(uploadFolder, fontPaths, cfg.MaxTemplateBytes, logger)

	relPath, err := generator.Generate(ctx, content)
	if err != nil {
		return err
	}

	fmt.Println(relPath)
	return nil
}

// parseFlags builds the certificate content from command-line flags. Upload
// folder and font paths default to the CERTPANEL_* configuration.
func parseFlags(args []string, cfg *config.Config) (model.CertificateContent, string, []string, error) {
	fs := flag.NewFlagSet("certrender", flag.ContinueOnError)

	uploadFolder := fs.String("upload", cfg.UploadFolder, "upload folder holding certificates/ and certificate_templates/")
	fonts := fs.String("fonts", strings.Join(cfg.FontPaths, ","), "comma-separated font files tried before the embedded font")
	credentialID := fs.String("credential", "", "credential id; a random UUID when empty")
	student := fs.String("student", "", "student name (required)")
	course := fs.String("course", "", "course name (required)")
	title := fs.String("title", application.DefaultCertificateTitle, "certificate title")
	instructor := fs.String("instructor", "", "instructor name")
	date := fs.String("date", "", "issue date as YYYY-MM-DD; today when empty")

	if err := fs.Parse(args); err != nil {
		return model.CertificateContent{}, "", nil, err
	}

	if strings.TrimSpace(*student) == "" || strings.TrimSpace(*course) == "" {
		return model.CertificateContent{}, "", nil, fmt.Errorf("-student and -course are required")
	}

	issued := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse(time.DateOnly, *date)
		if err != nil {
			return model.CertificateContent{}, "", nil, fmt.Errorf("invalid -date %q: %w", *date, err)
		}
		issued = parsed
	}

	id := *credentialID
	if id == "" {
		id = uuid.NewString()
	}

	var fontPaths []string
	for _, p := range strings.Split(*fonts, ",") {
		if p = strings.TrimSpace(p); p != "" {
			fontPaths = append(fontPaths, p)
		}
	}

	return model.CertificateContent{
		StudentName:    *student,
		CourseName:     *course,
		Title:          *title,
		InstructorName: *instructor,
		IssueDate:      issued,
		CredentialID:   id,
	}, *uploadFolder, fontPaths, nil
}
