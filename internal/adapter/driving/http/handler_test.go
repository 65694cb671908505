package httphandler_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/certpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/certpanel/internal/application"
	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockCertStore struct {
	certs   []model.Certificate
	err     error
	deleted []int64
}

func (m *mockCertStore) Create(_ context.Context, cert model.Certificate) (model.Certificate, error) {
	if m.err != nil {
		return model.Certificate{}, m.err
	}
	cert.ID = int64(len(m.certs) + 1)
	cert.CreatedAt = testTime
	m.certs = append(m.certs, cert)
	return cert, nil
}

func (m *mockCertStore) GetByID(_ context.Context, id int64) (*model.Certificate, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.certs {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCertStore) GetByCredentialID(_ context.Context, credentialID string) (*model.Certificate, error) {
	for _, c := range m.certs {
		if c.CredentialID == credentialID {
			return &c, nil
		}
	}
	return nil, m.err
}

func (m *mockCertStore) ListAll(_ context.Context) ([]model.Certificate, error) {
	return m.certs, m.err
}

func (m *mockCertStore) ListByCourse(_ context.Context, courseID string) ([]model.Certificate, error) {
	var out []model.Certificate
	for _, c := range m.certs {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out, m.err
}

func (m *mockCertStore) ListByStudent(_ context.Context, studentID string) ([]model.Certificate, error) {
	var out []model.Certificate
	for _, c := range m.certs {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, m.err
}

func (m *mockCertStore) FindIssued(_ context.Context, studentID, courseID string) (*model.Certificate, error) {
	for _, c := range m.certs {
		if c.StudentID == studentID && c.CourseID == courseID && c.Status == model.CertificateStatusIssued {
			return &c, nil
		}
	}
	return nil, m.err
}

func (m *mockCertStore) UpdateStatus(_ context.Context, id int64, status model.CertificateStatus) error {
	for i := range m.certs {
		if m.certs[i].ID == id {
			m.certs[i].Status = status
			return nil
		}
	}
	return driven.ErrCertificateNotFound
}

func (m *mockCertStore) UpdateImagePath(_ context.Context, id int64, imagePath string) error {
	for i := range m.certs {
		if m.certs[i].ID == id {
			m.certs[i].ImagePath = imagePath
			return nil
		}
	}
	return driven.ErrCertificateNotFound
}

func (m *mockCertStore) Delete(_ context.Context, id int64) error {
	for i := range m.certs {
		if m.certs[i].ID == id {
			m.certs = append(m.certs[:i], m.certs[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return driven.ErrCertificateNotFound
}

type mockTemplateStore struct {
	templates []model.CertificateTemplate
	err       error
}

func (m *mockTemplateStore) Create(_ context.Context, tmpl model.CertificateTemplate) (model.CertificateTemplate, error) {
	if m.err != nil {
		return model.CertificateTemplate{}, m.err
	}
	tmpl.ID = int64(len(m.templates) + 1)
	tmpl.CreatedAt = testTime
	m.templates = append(m.templates, tmpl)
	return tmpl, nil
}

func (m *mockTemplateStore) GetByID(_ context.Context, id int64) (*model.CertificateTemplate, error) {
	for _, t := range m.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, m.err
}

func (m *mockTemplateStore) GetForCourse(_ context.Context, _ string) (*model.CertificateTemplate, error) {
	return nil, m.err
}

func (m *mockTemplateStore) ListAll(_ context.Context) ([]model.CertificateTemplate, error) {
	return m.templates, m.err
}

func (m *mockTemplateStore) Delete(_ context.Context, id int64) error {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return driven.ErrTemplateNotFound
}

type mockRenderer struct {
	err         error
	uploadErr   error
	uploaded    []byte
	hasTemplate bool
}

func (m *mockRenderer) Generate(_ context.Context, content model.CertificateContent) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "certificates/" + content.CredentialID + ".png", nil
}

func (m *mockRenderer) Remove(_ string) error { return nil }

func (m *mockRenderer) StoreDefaultTemplate(_ context.Context, r io.Reader) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(r)
	m.uploaded = data
	return err
}

func (m *mockRenderer) HasDefaultTemplate() bool { return m.hasTemplate }

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

type testEnv struct {
	certs     *mockCertStore
	templates *mockTemplateStore
	renderer  *mockRenderer
	images    fstest.MapFS
	handler   http.Handler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		certs:     &mockCertStore{},
		templates: &mockTemplateStore{},
		renderer:  &mockRenderer{},
		images:    fstest.MapFS{},
	}

	certSvc := application.NewCertificateService(env.certs, env.templates, env.renderer, slog.Default())
	templateSvc := application.NewTemplateService(env.templates, env.renderer, slog.Default())
	h := httphandler.NewHandler(certSvc, templateSvc, env.images, slog.Default())

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	env.handler = httphandler.ApplyMiddleware(mux, slog.Default())

	return env
}

func (e *testEnv) seed(certs ...model.Certificate) {
	e.certs.certs = append(e.certs.certs, certs...)
	for _, c := range certs {
		if c.ImagePath != "" {
			e.images[c.ImagePath] = &fstest.MapFile{Data: pngBytes}
		}
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func sampleCert(id int64, credentialID, studentID, courseID string) model.Certificate {
	return model.Certificate{
		ID:             id,
		CredentialID:   credentialID,
		StudentID:      studentID,
		StudentName:    "Student " + studentID,
		CourseID:       courseID,
		CourseName:     "Course " + courseID,
		Title:          "Certificate of Achievement",
		InstructorName: "Dr. Who",
		Status:         model.CertificateStatusIssued,
		ImagePath:      "certificates/" + credentialID + ".png",
		IssuedAt:       testTime,
		CreatedAt:      testTime,
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	env := setupEnv(t)
	env.renderer.hasTemplate = true

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.DefaultTemplate)
}

func TestListCertificates(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"), sampleCert(2, "cred-b", "s2", "c2"))

	rec := env.do(t, http.MethodGet, "/api/v1/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]httphandler.CertificateResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "cred-a", resp[0].CredentialID)
	assert.Equal(t, "certificates/cred-a.png", resp[0].CertificateURL)
	assert.Equal(t, "2026-02-10T12:00:00Z", resp[0].IssueDate)
	assert.Equal(t, "issued", resp[0].Status)
}

func TestListCertificates_Empty(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListCertificates_Search(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"), sampleCert(2, "cred-b", "s2", "c2"))

	rec := env.do(t, http.MethodGet, "/api/v1/certificates?q=CRED-B", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[[]httphandler.CertificateResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, int64(2), resp[0].ID)
}

func TestListCertificates_StoreError(t *testing.T) {
	env := setupEnv(t)
	env.certs.err = errors.New("db down")

	rec := env.do(t, http.MethodGet, "/api/v1/certificates", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestListCourseAndStudentCertificates(t *testing.T) {
	env := setupEnv(t)
	env.seed(
		sampleCert(1, "cred-a", "s1", "c1"),
		sampleCert(2, "cred-b", "s2", "c1"),
		sampleCert(3, "cred-c", "s1", "c2"),
	)

	rec := env.do(t, http.MethodGet, "/api/v1/courses/c1/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httphandler.CertificateResponse](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/v1/students/s1/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httphandler.CertificateResponse](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/v1/courses/none/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestIssueCertificate(t *testing.T) {
	env := setupEnv(t)

	body := `{"student_id":"s1","student_name":"Ada Lovelace","course_id":"c1","course_name":"Engines",
		"instructor_name":"Charles Babbage","grade":"A","issue_date":"2026-01-31"}`
	rec := env.do(t, http.MethodPost, "/api/v1/certificates", strings.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[httphandler.CertificateResponse](t, rec)
	assert.Equal(t, int64(1), resp.ID)
	assert.NotEmpty(t, resp.CredentialID)
	assert.Equal(t, "certificates/"+resp.CredentialID+".png", resp.CertificateURL)
	assert.Equal(t, "Ada Lovelace", resp.StudentName)
	assert.Equal(t, application.DefaultCertificateTitle, resp.Title)
	assert.Equal(t, "2026-01-31T00:00:00Z", resp.IssueDate)
}

func TestIssueCertificate_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing fields", body: `{"student_id":"s1"}`},
		{name: "bad date", body: `{"student_id":"s1","student_name":"A","course_id":"c1","course_name":"C","instructor_name":"I","issue_date":"31/01/2026"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)

			rec := env.do(t, http.MethodPost, "/api/v1/certificates", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIssueCertificate_Duplicate(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"))

	body := `{"student_id":"s1","student_name":"A","course_id":"c1","course_name":"C","instructor_name":"I"}`
	rec := env.do(t, http.MethodPost, "/api/v1/certificates", strings.NewReader(body))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIssueCertificate_RenderFailure(t *testing.T) {
	env := setupEnv(t)
	env.renderer.err = errors.New("mkdir uploads/certificates: permission denied")

	body := `{"student_id":"s1","student_name":"A","course_id":"c1","course_name":"C","instructor_name":"I"}`
	rec := env.do(t, http.MethodPost, "/api/v1/certificates", strings.NewReader(body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, env.certs.certs)
}

func TestGetCertificate(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(7, "cred-a", "s1", "c1"))

	rec := env.do(t, http.MethodGet, "/api/v1/certificates/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cred-a", decode[httphandler.CertificateResponse](t, rec).CredentialID)

	rec = env.do(t, http.MethodGet, "/api/v1/certificates/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/certificates/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/certificates/-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCertificate(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"))

	rec := env.do(t, http.MethodDelete, "/api/v1/certificates/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{1}, env.certs.deleted)

	rec = env.do(t, http.MethodDelete, "/api/v1/certificates/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeCertificate(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"))

	rec := env.do(t, http.MethodPost, "/api/v1/certificates/1/revoke", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "revoked", decode[httphandler.CertificateResponse](t, rec).Status)
	assert.Equal(t, model.CertificateStatusRevoked, env.certs.certs[0].Status)
}

func TestRegenerateCertificate(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"))

	rec := env.do(t, http.MethodPost, "/api/v1/certificates/1/regenerate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "certificates/cred-a.png", decode[httphandler.CertificateResponse](t, rec).CertificateURL)

	env.renderer.err = errors.New("boom")
	rec = env.do(t, http.MethodPost, "/api/v1/certificates/1/regenerate", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCertificateImage(t *testing.T) {
	env := setupEnv(t)
	env.seed(sampleCert(1, "cred-a", "s1", "c1"))

	rec := env.do(t, http.MethodGet, "/api/v1/certificates/1/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = env.do(t, http.MethodGet, "/certificates/cred-a.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestCertificateImage_Missing(t *testing.T) {
	env := setupEnv(t)
	cert := sampleCert(1, "cred-a", "s1", "c1")
	env.certs.certs = append(env.certs.certs, cert) // no image file

	rec := env.do(t, http.MethodGet, "/api/v1/certificates/1/image", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/certificates/other.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/certificates/cred-a.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	env := setupEnv(t)
	revoked := sampleCert(2, "cred-b", "s2", "c1")
	revoked.Status = model.CertificateStatusRevoked
	env.seed(sampleCert(1, "cred-a", "s1", "c1"), revoked)

	rec := env.do(t, http.MethodGet, "/api/v1/certificates/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[httphandler.StatsResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Active)
}

func TestExportCSV(t *testing.T) {
	env := setupEnv(t)
	c := sampleCert(1, "cred-a", "s1", "c1")
	c.StudentName = `Ada "Countess" Lovelace`
	env.seed(c)

	rec := env.do(t, http.MethodGet, "/api/v1/certificates/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificates.csv")

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"ID", "Credential ID", "Student Name", "Student ID", "Course Name", "Issue Date", "Status"}, records[0])
	assert.Equal(t, []string{"1", "cred-a", `Ada "Countess" Lovelace`, "s1", "Course c1", "2026-02-10T12:00:00Z", "issued"}, records[1])
}

func TestTemplates_CRUD(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/templates",
		strings.NewReader(`{"title":"Spring Cohort","description":"Default certificate template","course_id":"c1"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[httphandler.TemplateResponse](t, rec)
	assert.Equal(t, "Spring Cohort", created.Title)
	assert.Equal(t, "c1", created.CourseID)

	rec = env.do(t, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httphandler.TemplateResponse](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/v1/templates/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/templates/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/templates/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/templates/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTemplate_Invalid(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/templates", strings.NewReader(`{"title":"  "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/templates", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDefaultTemplateImage(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/templates/default/image", bytes.NewReader(pngBytes))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, pngBytes, env.renderer.uploaded)
}

func TestUploadDefaultTemplateImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not a png", err: driven.ErrInvalidTemplateImage, want: http.StatusBadRequest},
		{name: "too large", err: driven.ErrTemplateImageTooLarge, want: http.StatusRequestEntityTooLarge},
		{name: "disk error", err: errors.New("read-only file system"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)
			env.renderer.uploadErr = tt.err

			rec := env.do(t, http.MethodPut, "/api/v1/templates/default/image", strings.NewReader("x"))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
