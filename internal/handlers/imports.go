package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"
	"project-ledger-api/pkg/importer"
)

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	Gateway  importer.Gateway
	MaxBytes int64
	Mapping  *importer.MappingConfig
	Logger   *log.Logger
	// OnImport, when set, is called with the number of stored projects after a committed import.
	OnImport func(inserted int)
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(gw importer.Gateway, mapping *importer.MappingConfig, logger *log.Logger) *ImportsHandler {
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportsHandler{
		Gateway:  gw,
		MaxBytes: 20 << 20, // 20 MB
		Mapping:  mapping,
		Logger:   logger.WithComponent(log.ComponentImport),
	}
}

// UploadExcel imports projects from an uploaded .xlsx workbook. With dry_run=true the
// workbook is only parsed and checked.
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	// Require multipart
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		auth.SendErrorResponse(w, "content-type must be multipart/form-data", "INVALID_CONTENT_TYPE", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		auth.SendErrorResponse(w, "invalid multipart form: "+err.Error(), "INVALID_FORM", http.StatusBadRequest)
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	// File
	file, header, err := r.FormFile("file")
	if err != nil {
		auth.SendErrorResponse(w, "file is required: "+err.Error(), "FILE_REQUIRED", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		auth.SendErrorResponse(w, "only .xlsx files are accepted", "UNSUPPORTED_FILE", http.StatusBadRequest)
		return
	}

	username := ""
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		username = p.Username
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.Gateway, file, importer.ImportOptions{
		Mapping:   h.Mapping,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})
	if impErr != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(impErr, models.ErrGatewayUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.Logger.WarnContext(r.Context(), "import failed",
			log.FieldUsername, username,
			log.FieldError, impErr,
		)
		auth.WriteJSON(w, status, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum, // parse results, nothing was stored
		})
		return
	}

	h.Logger.InfoContext(r.Context(), "import completed",
		log.FieldUsername, username,
		log.FieldCount, sum.Inserted,
		"dry_run", dryRun,
	)
	if !dryRun && h.OnImport != nil {
		h.OnImport(sum.Inserted)
	}

	auth.WriteJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	name := strings.ToLower(h.Filename)
	return strings.HasSuffix(name, ".xlsx")
}
