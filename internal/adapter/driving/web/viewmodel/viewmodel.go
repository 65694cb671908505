// Package viewmodel defines presentation-ready structs for the web pages.
// View models decouple page rendering from domain model types.
package viewmodel

import "html/template"

// VerificationViewModel holds presentation-ready data for the public
// certificate verification page.
type VerificationViewModel struct {
	CredentialID   string
	Title          string
	StudentName    string
	CourseName     string
	InstructorName string
	Grade          string
	IssueDate      string

	// Valid is false once the certificate has been revoked.
	Valid       bool
	StatusLabel string

	// ImageURL is empty when no image was rendered.
	ImageURL string

	TemplateTitle string
	// TemplateDescription is sanitized HTML rendered from the template's markdown.
	TemplateDescription template.HTML
}

// LookupViewModel holds the state of the credential lookup form.
type LookupViewModel struct {
	CredentialID string
	NotFound     bool
}
