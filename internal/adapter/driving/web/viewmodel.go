package web

import (
	"html/template"
	"net/url"
	"path"
	"strings"

	vm "github.com/ericfisherdev/certpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/certpanel/internal/application"
)

const issueDateLayout = "January 02, 2006"

// toVerificationViewModel converts a verification result into its page view model.
func toVerificationViewModel(v application.Verification) vm.VerificationViewModel {
	cert := v.Certificate

	page := vm.VerificationViewModel{
		CredentialID:   cert.CredentialID,
		Title:          cert.Title,
		StudentName:    cert.StudentName,
		CourseName:     cert.CourseName,
		InstructorName: cert.InstructorName,
		Grade:          cert.Grade,
		IssueDate:      cert.IssuedAt.Format(issueDateLayout),
		Valid:          cert.IsActive(),
		StatusLabel:    "Valid",
		ImageURL:       imageURL(cert.ImagePath),
	}
	if !page.Valid {
		page.StatusLabel = "Revoked"
	}

	if v.Template != nil {
		page.TemplateTitle = v.Template.Title
		page.TemplateDescription = template.HTML(RenderMarkdown(v.Template.Description)) //nolint:gosec // RenderMarkdown output is sanitized.
	}

	return page
}

// imageURL turns a path relative to the upload folder into an absolute,
// escaped URL path.
func imageURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	segments := strings.Split(path.Clean(relPath), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

func verifyPath(credentialID string) string {
	return "/verify/" + url.PathEscape(credentialID)
}
