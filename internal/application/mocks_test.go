package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ericfisherdev/certpanel/internal/domain/model"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// --- mockCertStore ---

type mockCertStore struct {
	mu        sync.Mutex
	certs     map[int64]model.Certificate
	nextID    int64
	createErr error
	listErr   error
}

func newMockCertStore() *mockCertStore {
	return &mockCertStore{certs: make(map[int64]model.Certificate)}
}

func (m *mockCertStore) Create(_ context.Context, cert model.Certificate) (model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return model.Certificate{}, m.createErr
	}
	for _, c := range m.certs {
		if c.CredentialID == cert.CredentialID {
			return model.Certificate{}, driven.ErrCertificateAlreadyExists
		}
	}
	m.nextID++
	cert.ID = m.nextID
	m.certs[cert.ID] = cert
	return cert, nil
}

func (m *mockCertStore) GetByID(_ context.Context, id int64) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCertStore) GetByCredentialID(_ context.Context, credentialID string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.certs {
		if c.CredentialID == credentialID {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCertStore) ListAll(_ context.Context) ([]model.Certificate, error) {
	return m.filter(func(model.Certificate) bool { return true })
}

func (m *mockCertStore) ListByCourse(_ context.Context, courseID string) ([]model.Certificate, error) {
	return m.filter(func(c model.Certificate) bool { return c.CourseID == courseID })
}

func (m *mockCertStore) ListByStudent(_ context.Context, studentID string) ([]model.Certificate, error) {
	return m.filter(func(c model.Certificate) bool { return c.StudentID == studentID })
}

func (m *mockCertStore) FindIssued(_ context.Context, studentID, courseID string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.certs {
		if c.StudentID == studentID && c.CourseID == courseID && c.Status == model.CertificateStatusIssued {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockCertStore) UpdateStatus(_ context.Context, id int64, status model.CertificateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return driven.ErrCertificateNotFound
	}
	c.Status = status
	m.certs[id] = c
	return nil
}

func (m *mockCertStore) UpdateImagePath(_ context.Context, id int64, imagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return driven.ErrCertificateNotFound
	}
	c.ImagePath = imagePath
	m.certs[id] = c
	return nil
}

func (m *mockCertStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.certs[id]; !ok {
		return driven.ErrCertificateNotFound
	}
	delete(m.certs, id)
	return nil
}

func (m *mockCertStore) filter(keep func(model.Certificate) bool) ([]model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []model.Certificate{}
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.certs[id]; ok && keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- mockTemplateStore ---

type mockTemplateStore struct {
	templates []model.CertificateTemplate
	err       error
}

func (m *mockTemplateStore) Create(_ context.Context, tmpl model.CertificateTemplate) (model.CertificateTemplate, error) {
	if m.err != nil {
		return model.CertificateTemplate{}, m.err
	}
	tmpl.ID = int64(len(m.templates) + 1)
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

func (m *mockTemplateStore) GetForCourse(_ context.Context, courseID string) (*model.CertificateTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	var global *model.CertificateTemplate
	for i := len(m.templates) - 1; i >= 0; i-- {
		t := m.templates[i]
		if t.CourseID == courseID {
			return &t, nil
		}
		if t.CourseID == "" && global == nil {
			global = &t
		}
	}
	return global, nil
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

// --- mockRenderer ---

type mockRenderer struct {
	generated   []model.CertificateContent
	removed     []string
	generateErr error
	removeErr   error
	stored      string
	hasTemplate bool
}

func (m *mockRenderer) Generate(_ context.Context, content model.CertificateContent) (string, error) {
	if m.generateErr != nil {
		return "", m.generateErr
	}
	m.generated = append(m.generated, content)
	return "certificates/" + content.CredentialID + ".png", nil
}

func (m *mockRenderer) Remove(relPath string) error {
	m.removed = append(m.removed, relPath)
	return m.removeErr
}

func (m *mockRenderer) StoreDefaultTemplate(_ context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		return fmt.Errorf("%w: bad magic", driven.ErrInvalidTemplateImage)
	}
	m.stored = string(data)
	m.hasTemplate = true
	return nil
}

func (m *mockRenderer) HasDefaultTemplate() bool { return m.hasTemplate }

var errStore = errors.New("store unavailable")
