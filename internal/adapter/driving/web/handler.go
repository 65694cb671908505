// Package web implements the public HTML driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/certpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/certpanel/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/certpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/certpanel/internal/application"
	"github.com/ericfisherdev/certpanel/internal/domain/port/driven"
)

// Handler is the web driving adapter that serves the certificate verification pages.
type Handler struct {
	certSvc *application.CertificateService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(certSvc *application.CertificateService, logger *slog.Logger) *Handler {
	return &Handler{
		certSvc: certSvc,
		logger:  logger,
	}
}

// Lookup renders the credential lookup form. A credential_id query parameter
// redirects to that credential's verification page.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("credential_id")); id != "" {
		http.Redirect(w, r, verifyPath(id), http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, "Verify a certificate", pages.Lookup(vm.LookupViewModel{}))
}

// Verify renders the public verification page for a credential id.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	credentialID := r.PathValue("credentialID")

	v, err := h.certSvc.Verify(r.Context(), credentialID)
	if errors.Is(err, driven.ErrCertificateNotFound) {
		h.render(w, r, http.StatusNotFound, "Certificate not found",
			pages.Lookup(vm.LookupViewModel{CredentialID: credentialID, NotFound: true}))
		return
	}
	if err != nil {
		h.logger.Error("failed to verify certificate", "credential_id", credentialID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := toVerificationViewModel(*v)
	h.render(w, r, http.StatusOK, page.Title, pages.Verify(page))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.Layout(title, body).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "title", title, "error", err)
	}
}
