package model

import "time"

// CertificateStatus represents the lifecycle state of an issued certificate.
type CertificateStatus string

const (
	CertificateStatusIssued  CertificateStatus = "issued"
	CertificateStatusRevoked CertificateStatus = "revoked"
)

// Certificate is a completion certificate issued to a student for a course.
// ImagePath is relative to the upload folder, e.g. "certificates/<credential id>.png".
type Certificate struct {
	ID             int64
	CredentialID   string
	StudentID      string
	StudentName    string
	CourseID       string
	CourseName     string
	Title          string
	InstructorName string
	Grade          string
	Status         CertificateStatus
	TemplateID     int64 // 0 when no template applied.
	ImagePath      string
	IssuedAt       time.Time
	CreatedAt      time.Time
}

// Content returns the subset of the certificate that is burned into the image.
func (c Certificate) Content() CertificateContent {
	return CertificateContent{
		StudentName:    c.StudentName,
		CourseName:     c.CourseName,
		Title:          c.Title,
		InstructorName: c.InstructorName,
		IssueDate:      c.IssuedAt,
		CredentialID:   c.CredentialID,
	}
}

// IsActive reports whether the certificate is currently valid.
func (c Certificate) IsActive() bool {
	return c.Status == CertificateStatusIssued
}

// CertificateContent holds the text rendered onto a certificate image.
type CertificateContent struct {
	StudentName    string
	CourseName     string
	Title          string
	InstructorName string
	IssueDate      time.Time
	CredentialID   string
}

// CertificateStats summarises the certificate population for dashboards.
type CertificateStats struct {
	Total     int
	Active    int
	ThisMonth int
}
