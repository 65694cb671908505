package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CertificateResponse is the JSON representation of a certificate.
// CertificateURL is relative to the server root, e.g. "certificates/<credential id>.png".
type CertificateResponse struct {
	ID             int64  `json:"id"`
	CredentialID   string `json:"credential_id"`
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	CourseID       string `json:"course_id"`
	CourseName     string `json:"course_name"`
	Title          string `json:"title"`
	InstructorName string `json:"instructor_name"`
	Grade          string `json:"grade"`
	Status         string `json:"status"`
	TemplateID     int64  `json:"template_id,omitempty"`
	CertificateURL string `json:"certificate_url"`
	IssueDate      string `json:"issue_date"`
	CreatedAt      string `json:"created_at"`
}

// IssueCertificateRequest is the JSON body for the issue endpoint. IssueDate
// accepts RFC 3339 or YYYY-MM-DD and defaults to now.
type IssueCertificateRequest struct {
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	CourseID       string `json:"course_id"`
	CourseName     string `json:"course_name"`
	InstructorName string `json:"instructor_name"`
	Title          string `json:"title"`
	Grade          string `json:"grade"`
	IssueDate      string `json:"issue_date"`
}

// StatsResponse is the JSON representation of the certificate dashboard counters.
type StatsResponse struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	ThisMonth int `json:"this_month"`
}

// TemplateResponse is the JSON representation of a certificate template.
type TemplateResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CourseID    string `json:"course_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreateTemplateRequest is the JSON body for the create template endpoint.
type CreateTemplateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CourseID    string `json:"course_id"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status          string `json:"status"`
	Time            string `json:"time"`
	DefaultTemplate bool   `json:"default_template"`
}

// toCertificateResponse converts a domain Certificate to its JSON representation.
func toCertificateResponse(c model.Certificate) CertificateResponse {
	return CertificateResponse{
		ID:             c.ID,
		CredentialID:   c.CredentialID,
		StudentID:      c.StudentID,
		StudentName:    c.StudentName,
		CourseID:       c.CourseID,
		CourseName:     c.CourseName,
		Title:          c.Title,
		InstructorName: c.InstructorName,
		Grade:          c.Grade,
		Status:         string(c.Status),
		TemplateID:     c.TemplateID,
		CertificateURL: c.ImagePath,
		IssueDate:      c.IssuedAt.UTC().Format(time.RFC3339),
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCertificateResponses(certs []model.Certificate) []CertificateResponse {
	resp := make([]CertificateResponse, 0, len(certs))
	for _, c := range certs {
		resp = append(resp, toCertificateResponse(c))
	}
	return resp
}

// toTemplateResponse converts a domain CertificateTemplate to its JSON representation.
func toTemplateResponse(t model.CertificateTemplate) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CourseID:    t.CourseID,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
