// Package httphandler implements the REST API driving adapter for certificates
// and certificate templates.
package httphandler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/certpanel/internal/application"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	certSvc     *application.CertificateService
	templateSvc *application.TemplateService
	images      fs.FS // rooted at the upload folder
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. images must be
// rooted at the upload folder so certificate image paths resolve inside it.
func NewHandler(
	certSvc *application.CertificateService,
	templateSvc *application.TemplateService,
	images fs.FS,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		certSvc:     certSvc,
		templateSvc: templateSvc,
		images:      images,
		logger:      logger,
	}
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/certificates", h.ListCertificates)
	mux.HandleFunc("POST /api/v1/certificates", h.IssueCertificate)
	mux.HandleFunc("GET /api/v1/certificates/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/certificates/export.csv", h.ExportCSV)
	mux.HandleFunc("GET /api/v1/certificates/{id}", h.GetCertificate)
	mux.HandleFunc("DELETE /api/v1/certificates/{id}", h.DeleteCertificate)
	mux.HandleFunc("POST /api/v1/certificates/{id}/revoke", h.RevokeCertificate)
	mux.HandleFunc("POST /api/v1/certificates/{id}/regenerate", h.RegenerateCertificate)
	mux.HandleFunc("GET /api/v1/certificates/{id}/image", h.CertificateImage)
	mux.HandleFunc("GET /api/v1/courses/{courseID}/certificates", h.ListCourseCertificates)
	mux.HandleFunc("GET /api/v1/students/{studentID}/certificates", h.ListStudentCertificates)

	mux.HandleFunc("GET /api/v1/templates", h.ListTemplates)
	mux.HandleFunc("POST /api/v1/templates", h.CreateTemplate)
	mux.HandleFunc("PUT /api/v1/templates/default/image", h.UploadDefaultTemplateImage)
	mux.HandleFunc("GET /api/v1/templates/{id}", h.GetTemplate)
	mux.HandleFunc("DELETE /api/v1/templates/{id}", h.DeleteTemplate)

	// Rendered images are addressable by the relative path returned as certificate_url.
	mux.HandleFunc("GET /certificates/{file}", h.ServeCertificateFile)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		Time:            time.Now().UTC().Format(time.RFC3339),
		DefaultTemplate: h.templateSvc.HasDefaultImage(),
	})
}

// ListCertificates returns all certificates, optionally filtered by the q query parameter.
func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certSvc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, "failed to list certificates", err)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponses(certs))
}

// ListCourseCertificates returns the certificates issued for one course.
func (h *Handler) ListCourseCertificates(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseID")

	certs, err := h.certSvc.ListByCourse(r.Context(), courseID)
	if err != nil {
		h.writeServiceError(w, "failed to list course certificates", err, "course_id", courseID)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponses(certs))
}

// ListStudentCertificates returns the certificates issued to one student.
func (h *Handler) ListStudentCertificates(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")

	certs, err := h.certSvc.ListByStudent(r.Context(), studentID)
	if err != nil {
		h.writeServiceError(w, "failed to list student certificates", err, "student_id", studentID)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponses(certs))
}

// IssueCertificate renders and stores a new certificate.
func (h *Handler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req IssueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issuedAt, err := parseIssueDate(req.IssueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid issue_date: expected RFC 3339 or YYYY-MM-DD")
		return
	}

	cert, err := h.certSvc.Issue(r.Context(), application.IssueRequest{
		StudentID:      req.StudentID,
		StudentName:    req.StudentName,
		CourseID:       req.CourseID,
		CourseName:     req.CourseName,
		InstructorName: req.InstructorName,
		Title:          req.Title,
		Grade:          req.Grade,
		IssuedAt:       issuedAt,
	})
	if err != nil {
		h.writeServiceError(w, "failed to issue certificate", err,
			"student_id", req.StudentID,
			"course_id", req.CourseID,
		)
		return
	}

	writeJSON(w, http.StatusCreated, toCertificateResponse(cert))
}

// GetCertificate returns a single certificate by id.
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cert, err := h.certSvc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to get certificate", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponse(cert))
}

// DeleteCertificate removes a certificate and its image.
func (h *Handler) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.certSvc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "failed to delete certificate", err, "id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeCertificate marks a certificate as revoked.
func (h *Handler) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cert, err := h.certSvc.Revoke(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to revoke certificate", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponse(cert))
}

// RegenerateCertificate re-renders the certificate image from stored data.
func (h *Handler) RegenerateCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cert, err := h.certSvc.Regenerate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to regenerate certificate", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponse(cert))
}

// CertificateImage serves the rendered PNG for a certificate.
func (h *Handler) CertificateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cert, err := h.certSvc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to get certificate", err, "id", id)
		return
	}

	h.serveImage(w, r, cert.ImagePath)
}

// ServeCertificateFile serves a rendered image by file name.
func (h *Handler) ServeCertificateFile(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if path.Ext(file) != ".png" {
		writeError(w, http.StatusNotFound, "certificate image not found")
		return
	}

	h.serveImage(w, r, path.Join("certificates", file))
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request, relPath string) {
	if relPath == "" || !fs.ValidPath(relPath) {
		writeError(w, http.StatusNotFound, "certificate image not found")
		return
	}

	if _, err := fs.Stat(h.images, relPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to stat certificate image", "path", relPath, "error", err)
		}
		writeError(w, http.StatusNotFound, "certificate image not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFileFS(w, r, h.images, relPath)
}

// Stats returns the dashboard counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.certSvc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to compute certificate stats", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Total:     stats.Total,
		Active:    stats.Active,
		ThisMonth: stats.ThisMonth,
	})
}

// ExportCSV streams all certificates as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certSvc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, "failed to export certificates", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="certificates.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Credential ID", "Student Name", "Student ID", "Course Name", "Issue Date", "Status"})
	for _, c := range certs {
		_ = cw.Write([]string{
			strconv.FormatInt(c.ID, 10),
			c.CredentialID,
			c.StudentName,
			c.StudentID,
			c.CourseName,
			c.IssuedAt.UTC().Format(time.RFC3339),
			string(c.Status),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("failed to write certificate export", "error", err)
	}
}

// ListTemplates returns all certificate templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateSvc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to list templates", err)
		return
	}

	resp := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, toTemplateResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateTemplate stores a new certificate template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tmpl, err := h.templateSvc.Create(r.Context(), req.Title, req.Description, req.CourseID)
	if err != nil {
		h.writeServiceError(w, "failed to create template", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTemplateResponse(tmpl))
}

// GetTemplate returns a single template by id.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tmpl, err := h.templateSvc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to get template", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

// DeleteTemplate removes a template.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.templateSvc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "failed to delete template", err, "id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadDefaultTemplateImage replaces the default certificate background with
// the PNG in the request body.
func (h *Handler) UploadDefaultTemplateImage(w http.ResponseWriter, r *http.Request) {
	if err := h.templateSvc.UploadDefaultImage(r.Context(), r.Body); err != nil {
		h.writeServiceError(w, "failed to store default template image", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps domain and application errors to HTTP status codes.
// Unrecognised errors are logged with attrs and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	switch {
	case errors.Is(err, application.ErrInvalidIssueRequest),
		errors.Is(err, application.ErrInvalidTemplate),
		errors.Is(err, driven.ErrInvalidCredentialID),
		errors.Is(err, driven.ErrInvalidTemplateImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrTemplateImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, driven.ErrCertificateNotFound):
		writeError(w, http.StatusNotFound, "certificate not found")
	case errors.Is(err, driven.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template not found")
	case errors.Is(err, driven.ErrCertificateAlreadyExists):
		writeError(w, http.StatusConflict, "certificate already issued for this student and course")
	default:
		h.logger.Error(msg, append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {id} path value, writing a 400 response when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// parseIssueDate accepts an empty string, RFC 3339, or a YYYY-MM-DD date.
func parseIssueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse issue date %q: %w", s, err)
	}
	return t, nil
}
