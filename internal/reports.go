package internal

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/ledger"
	"project-ledger-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, ledger.BuildDashboard(projects, s.Formatter))
}

// listRequest resolves the {mode} and as_of parameters shared by the list and export routes.
// "history" selects the whole ledger in creation order.
func (s *Server) listRequest(w http.ResponseWriter, r *http.Request) (ledger.Mode, time.Time, bool) {
	raw := chi.URLParam(r, "mode")
	mode := ledger.ModeHistory
	if !strings.EqualFold(raw, string(ledger.ModeHistory)) {
		var err error
		mode, err = ledger.ParseMode(raw)
		if err != nil {
			auth.SendErrorResponse(w, err.Error(), "INVALID_MODE", http.StatusBadRequest)
			return "", time.Time{}, false
		}
	}

	asOf, err := parseAsOf(r, s.now(), s.location)
	if err != nil {
		writeError(w, r, err)
		return "", time.Time{}, false
	}
	return mode, asOf, true
}

// selectProjects returns the rows of mode as of asOf in display order.
func selectProjects(projects []models.Project, mode ledger.Mode, asOf time.Time) []models.Project {
	if mode == ledger.ModeHistory {
		return ledger.History(projects)
	}
	return ledger.Partition(projects, mode, asOf)
}

func (s *Server) getList(w http.ResponseWriter, r *http.Request) {
	mode, asOf, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	projects, err := s.Projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	viewer := auth.PrincipalFromContext(r.Context())
	if mode == ledger.ModeHistory {
		auth.WriteJSON(w, http.StatusOK, ledger.BuildHistory(projects, asOf, viewer, s.Formatter))
		return
	}
	auth.WriteJSON(w, http.StatusOK, ledger.BuildList(projects, mode, asOf, viewer, s.Formatter))
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", "text/csv; charset=utf-8", func(buf *bytes.Buffer, projects []models.Project, _ ledger.Mode) error {
		return ledger.WriteCSV(buf, projects, s.Formatter.Currency)
	})
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(buf *bytes.Buffer, projects []models.Project, mode ledger.Mode) error {
		return ledger.WriteXLSX(buf, projects, strings.ToUpper(string(mode[:1]))+string(mode[1:]), s.Formatter.Currency)
	})
}

// export renders the whole document before answering so a failure still gets an error status.
func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(*bytes.Buffer, []models.Project, ledger.Mode) error) {
	mode, asOf, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	projects, err := s.Projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, selectProjects(projects, mode, asOf), mode); err != nil {
		writeError(w, r, fmt.Errorf("export %s: %w", ext, err))
		return
	}

	filename := ledger.ExportFilename(s.Config.OrgName, mode, asOf, ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	s.Metrics.RecordExport(ext, string(mode))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	p, err := s.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := parseAsOf(r, s.now(), s.location)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, ledger.BuildAudit(p, auth.PrincipalFromContext(r.Context()), s.Formatter, asOf))
}

// getAttachment serves the raw bytes of one of a project's attachment slots.
func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	kind := models.AttachmentKind(chi.URLParam(r, "kind"))
	if kind != models.AttachmentBillTopSheet && kind != models.AttachmentBudgetCopy {
		auth.SendErrorResponse(w, fmt.Sprintf("unknown attachment %q", kind), "NOT_FOUND", http.StatusNotFound)
		return
	}

	p, err := s.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	a := p.Attachment(kind)
	if a == nil {
		auth.SendErrorResponse(w, "attachment not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	contentType, disposition := attachmentHeaders(a.MimeType)
	name := a.Name
	if name == "" {
		name = string(kind)
	}
	w.Header().Set("Content-Type", contentType)
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": name}); v != "" {
		disposition = v
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Security-Policy", "sandbox; default-src 'none'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}

// inlineAttachmentTypes are the stored media types a browser may render in place.
var inlineAttachmentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// attachmentHeaders picks the served content type and disposition for a stored MIME
// type. Anything outside inlineAttachmentTypes is sent as an octet-stream download.
func attachmentHeaders(stored string) (contentType, disposition string) {
	mediaType, _, err := mime.ParseMediaType(stored)
	if err != nil || !inlineAttachmentTypes[mediaType] {
		return "application/octet-stream", "attachment"
	}
	return mediaType, "inline"
}
