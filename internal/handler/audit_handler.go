package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderaudit/internal/csvexport"
	"orderaudit/internal/domain"
	"orderaudit/internal/service"
)

// uploadFolderPrefix namespaces run keys of ad hoc uploads away from source folders.
const uploadFolderPrefix = "upload:"

// AuditHandler handles audit run and history endpoints.
type AuditHandler struct {
	auditService service.AuditService
	maxUpload    int64
}

// NewAuditHandler creates a new AuditHandler. maxUploadMB bounds each uploaded export.
func NewAuditHandler(auditService service.AuditService, maxUploadMB int64) *AuditHandler {
	return &AuditHandler{auditService: auditService, maxUpload: maxUploadMB << 20}
}

// RunRequest triggers an audit of one source folder.
type RunRequest struct {
	FolderID    string     `json:"folder_id" binding:"required" example:"luna-vista"`
	TriggeredAt *time.Time `json:"triggered_at" example:"2025-01-21T09:00:00Z"`
}

// BatchRequest triggers audits of several source folders.
type BatchRequest struct {
	FolderIDs   []string   `json:"folder_ids" example:"luna-vista,acme-home"`
	TriggeredAt *time.Time `json:"triggered_at" example:"2025-01-21T09:00:00Z"`
}

func triggeredAt(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}

// Run handles POST /api/v1/audits
// @Summary Run an audit of a source folder
// @Description Fetches the folder's order exports and records one audit run. The same folder and trigger time always map to the same audit id.
// @Tags audits
// @Accept json
// @Produce json
// @Param body body RunRequest true "Folder to audit"
// @Success 201 {object} Response{data=domain.AuditRecord}
// @Failure 400 {object} ErrorResponseBody "Validation error or empty folder"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 409 {object} ErrorResponseBody "Run already recorded"
// @Security BearerAuth
// @Router /audits [post]
func (h *AuditHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	rec, err := h.auditService.RunFolder(c.Request.Context(), req.FolderID, triggeredAt(req.TriggeredAt))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}

// Upload handles POST /api/v1/audits/upload
// @Summary Audit uploaded exports
// @Description Audits CSV or XLSX order exports uploaded directly, without a source folder
// @Tags audits
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Order exports (repeatable)"
// @Param agency formData string false "Agency name; inferred from file names when empty"
// @Param ehr formData string false "EHR name; inferred from file names when empty"
// @Param triggered_at formData string false "RFC 3339 trigger time"
// @Success 201 {object} Response{data=domain.AuditRecord}
// @Failure 400 {object} ErrorResponseBody "Missing or unsupported files"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Security BearerAuth
// @Router /audits/upload [post]
func (h *AuditHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "multipart form with files is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "files field is required")
		return
	}

	at := time.Now().UTC()
	if raw := c.PostForm("triggered_at"); raw != "" {
		at, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "triggered_at must be RFC 3339")
			return
		}
	}

	files := make([]domain.ExportFile, 0, len(headers))
	for _, fh := range headers {
		data, err := h.readUpload(fh)
		if err != nil {
			HandleError(c, err)
			return
		}
		files = append(files, domain.ExportFile{FileMeta: domain.FileMeta{Name: filepath.Base(fh.Filename)}, Data: data})
	}

	agency := strings.TrimSpace(c.PostForm("agency"))
	rec, err := h.auditService.Run(c.Request.Context(), domain.AgencyInput{
		FolderID:    uploadFolderPrefix + agency,
		Agency:      agency,
		EHR:         strings.TrimSpace(c.PostForm("ehr")),
		TriggeredAt: at,
		Files:       files,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}

func (h *AuditHandler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFormat
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, domain.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// Batch handles POST /api/v1/audits/batch
// @Summary Run audits for several folders
// @Description Runs each folder in order; one folder's failure does not stop the rest. An empty list audits the configured default folders.
// @Tags audits
// @Accept json
// @Produce json
// @Param body body BatchRequest false "Folders to audit"
// @Success 200 {object} Response{data=[]service.BatchResult}
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /audits/batch [post]
func (h *AuditHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	RespondOK(c, h.auditService.RunBatch(c.Request.Context(), req.FolderIDs, triggeredAt(req.TriggeredAt)))
}

// List handles GET /api/v1/audits
// @Summary List audit history
// @Tags audits
// @Produce json
// @Param from query string false "RFC 3339 lower bound on run time"
// @Param to query string false "RFC 3339 upper bound on run time"
// @Param agency query string false "Agency filter"
// @Param limit query int false "Maximum records (max 200)"
// @Success 200 {object} Response{data=[]domain.AuditRecord,meta=PagMeta}
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	records, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, records, PagMeta{Total: len(records), Limit: filter.Limit})
}

func parseFilter(c *gin.Context) (domain.RecordFilter, error) {
	filter := domain.RecordFilter{Agency: strings.TrimSpace(c.Query("agency"))}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return filter, fmt.Errorf("%s must be RFC 3339", bound.name)
		}
		*bound.dst = &t
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, errors.New("to must not be before from")
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(limit, 200)
	}
	return filter, nil
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid audit ID")
		return uuid.Nil, false
	}
	return id, true
}

// GetByID handles GET /api/v1/audits/:id
// @Summary Get an audit record
// @Tags audits
// @Produce json
// @Param id path string true "Audit ID (UUID)"
// @Success 200 {object} Response{data=domain.AuditRecord}
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /audits/{id} [get]
func (h *AuditHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.auditService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// ExportCSV handles GET /api/v1/audits/:id/export
// @Summary Export scored orders as CSV
// @Description One row per scored order; failures_only=true keeps failed orders only
// @Tags audits
// @Produce text/csv
// @Param id path string true "Audit ID (UUID)"
// @Param failures_only query bool false "Only failed orders"
// @Success 200 {file} file "CSV file"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /audits/{id}/export [get]
func (h *AuditHandler) ExportCSV(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	failuresOnly, _ := strconv.ParseBool(c.Query("failures_only"))

	rec, err := h.auditService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvexport.BuildFilename(rec)))
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteRecord(rec, failuresOnly); err != nil {
		return
	}
	w.Flush()
}

// Archive handles GET /api/v1/audits/:id/archive
// @Summary Get a download URL for an archived record
// @Tags audits
// @Produce json
// @Param id path string true "Audit ID (UUID)"
// @Success 200 {object} Response{data=ArchiveResponse}
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Not found or archive disabled"
// @Security BearerAuth
// @Router /audits/{id}/archive [get]
func (h *AuditHandler) Archive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	url, err := h.auditService.ArchiveURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, ArchiveResponse{AuditID: id, DownloadURL: url})
}

// ListExports handles GET /api/v1/exports/:folder_id
// @Summary List the exports in a source folder
// @Tags exports
// @Produce json
// @Param folder_id path string true "Source folder ID"
// @Success 200 {object} Response{data=ExportListResponse}
// @Failure 400 {object} ErrorResponseBody "Missing folder ID"
// @Failure 500 {object} ErrorResponseBody "Source unavailable"
// @Security BearerAuth
// @Router /exports/{folder_id} [get]
func (h *AuditHandler) ListExports(c *gin.Context) {
	folderID := strings.TrimSpace(c.Param("folder_id"))
	if folderID == "" {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "folder_id is required")
		return
	}

	exports, err := h.auditService.ListExports(c.Request.Context(), folderID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, ExportListResponse{FolderID: folderID, Exports: exports})
}
