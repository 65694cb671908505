package model

import "time"

// CertificateTemplate describes a named certificate design. A template with an
// empty CourseID applies to every course without a course-specific template.
// Description is markdown shown on the public verification page.
type CertificateTemplate struct {
	ID          int64
	Title       string
	Description string
	CourseID    string
	CreatedAt   time.Time
}

// IsGlobal reports whether the template is not bound to a course.
func (t CertificateTemplate) IsGlobal() bool {
	return t.CourseID == ""
}
