package handler_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orderaudit/internal/domain"
	"orderaudit/internal/handler"
	"orderaudit/internal/port"
	"orderaudit/internal/service"
	"orderaudit/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuditRouter() (*gin.Engine, *mocks.MockAuditService) {
	svc := new(mocks.MockAuditService)
	h := handler.NewAuditHandler(svc, 1)
	r := gin.New()
	r.POST("/audits", h.Run)
	r.POST("/audits/upload", h.Upload)
	r.POST("/audits/batch", h.Batch)
	r.GET("/audits", h.List)
	r.GET("/audits/:id", h.GetByID)
	r.GET("/audits/:id/export", h.ExportCSV)
	r.GET("/audits/:id/archive", h.Archive)
	r.GET("/exports/:folder_id", h.ListExports)
	return r, svc
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleRecord() *domain.AuditRecord {
	return &domain.AuditRecord{
		ID:        uuid.New(),
		FolderID:  "luna",
		Agency:    "Luna Vista",
		Status:    domain.RunStatusFailed,
		Timestamp: time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC),
		AuditResults: []domain.FileScoreResult{{
			FileName:  "Axxess-Luna_SignedOrderTemplate.csv",
			Cohort:    domain.CohortSigned,
			CohortKey: "Axxess-Luna",
			Agency:    "Luna Vista",
			Orders: []domain.ScoredOrder{
				{OrderID: "A", Status: domain.OrderStatusSigned, Outcome: domain.OutcomeSuccess, RowIndex: 2},
				{OrderID: "B", Status: domain.OrderStatusUnsigned, Outcome: domain.OutcomeFailed, Reason: "Missing signature date", RowIndex: 3},
			},
		}},
	}
}

func TestAuditHandler_Run_Success(t *testing.T) {
	r, svc := newAuditRouter()
	rec := sampleRecord()
	at := time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC)
	svc.On("RunFolder", mock.Anything, "luna", at).Return(rec, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/audits", strings.NewReader(`{"folder_id":"luna","triggered_at":"2025-01-21T09:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestAuditHandler_Run_MissingFolder(t *testing.T) {
	r, svc := newAuditRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/audits", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
	svc.AssertNotCalled(t, "RunFolder", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuditHandler_Run_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", &domain.DuplicateRunError{RunKey: uuid.New()}, http.StatusConflict, "DUPLICATE_RUN"},
		{"empty", domain.ErrEmptyRun, http.StatusBadRequest, "EMPTY_RUN"},
		{"bad folder", domain.ErrInvalidFolderID, http.StatusBadRequest, "INVALID_FOLDER_ID"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := newAuditRouter()
			svc.On("RunFolder", mock.Anything, "luna", mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/audits", strings.NewReader(`{"folder_id":"luna"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAuditHandler_Upload_Success(t *testing.T) {
	r, svc := newAuditRouter()
	rec := sampleRecord()
	svc.On("Run", mock.Anything, mock.MatchedBy(func(in domain.AgencyInput) bool {
		return in.Agency == "Luna Vista" &&
			in.FolderID == "upload:Luna Vista" &&
			len(in.Files) == 1 &&
			in.Files[0].Name == "Axxess-Luna_SignedOrderTemplate.csv" &&
			in.TriggeredAt.Equal(time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC))
	})).Return(rec, nil)

	body, ct := multipartBody(t,
		map[string]string{"agency": "Luna Vista", "triggered_at": "2025-01-21T09:00:00Z"},
		map[string]string{"Axxess-Luna_SignedOrderTemplate.csv": "Order Number,Status\nA,Signed\n"},
	)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/audits/upload", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestAuditHandler_Upload_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		fields map[string]string
		status int
		code   string
	}{
		{"no files", map[string]string{}, nil, http.StatusBadRequest, "MISSING_FILE"},
		{"bad extension", map[string]string{"orders.pdf": "x"}, nil, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
		{"too large", map[string]string{"orders.csv": strings.Repeat("x", 2<<20)}, nil, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"bad time", map[string]string{"orders.csv": "x"}, map[string]string{"triggered_at": "yesterday"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := newAuditRouter()
			body, ct := multipartBody(t, tt.fields, tt.files)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/audits/upload", body)
			req.Header.Set("Content-Type", ct)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
			svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestAuditHandler_Batch(t *testing.T) {
	r, svc := newAuditRouter()
	id := uuid.New()
	status := domain.RunStatusSuccess
	svc.On("RunBatch", mock.Anything, []string{"a", "b"}, mock.Anything).Return([]service.BatchResult{
		{FolderID: "a", AuditID: &id, Status: &status},
		{FolderID: "b", Error: "invalid folder id"},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/audits/batch", strings.NewReader(`{"folder_ids":["a","b"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.([]interface{})
	assert.Len(t, data, 2)
}

func TestAuditHandler_Batch_EmptyBodyUsesDefaults(t *testing.T) {
	r, svc := newAuditRouter()
	svc.On("RunBatch", mock.Anything, []string(nil), mock.Anything).Return([]service.BatchResult{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/audits/batch", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAuditHandler_List(t *testing.T) {
	r, svc := newAuditRouter()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f domain.RecordFilter) bool {
		return f.From != nil && f.From.Equal(from) && f.To == nil && f.Agency == "Luna" && f.Limit == 200
	})).Return([]domain.AuditRecord{*sampleRecord()}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits?from=2025-01-01T00:00:00Z&agency=Luna&limit=500", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 200, resp.Meta.Limit)
}

func TestAuditHandler_List_InvalidFilter(t *testing.T) {
	for _, q := range []string{"from=yesterday", "limit=0", "limit=abc", "from=2025-02-01T00:00:00Z&to=2025-01-01T00:00:00Z"} {
		t.Run(q, func(t *testing.T) {
			r, _ := newAuditRouter()
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/audits?"+q, http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuditHandler_GetByID(t *testing.T) {
	r, svc := newAuditRouter()
	rec := sampleRecord()
	svc.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits/"+rec.ID.String(), http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, rec.ID.String(), data["id"])
	assert.Equal(t, "Failed", data["status"])
}

func TestAuditHandler_GetByID_NotFoundAndInvalid(t *testing.T) {
	r, svc := newAuditRouter()
	id := uuid.New()
	svc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits/"+id.String(), http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/audits/not-a-uuid", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
}

func TestAuditHandler_ExportCSV(t *testing.T) {
	r, svc := newAuditRouter()
	rec := sampleRecord()
	svc.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits/"+rec.ID.String()+"/export?failures_only=true", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Luna_Vista_audit_2025-01-21.csv")

	body := w.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	rows, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Agency", rows[0][0])
	assert.Equal(t, "B", rows[1][5])
	assert.Equal(t, "Missing signature date", rows[1][8])
}

func TestAuditHandler_Archive(t *testing.T) {
	r, svc := newAuditRouter()
	id := uuid.New()
	svc.On("ArchiveURL", mock.Anything, id).Return("https://example.test/a.json", nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits/"+id.String()+"/archive", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "https://example.test/a.json", data["download_url"])
}

func TestAuditHandler_Archive_Disabled(t *testing.T) {
	r, svc := newAuditRouter()
	id := uuid.New()
	svc.On("ArchiveURL", mock.Anything, id).Return("", domain.ErrArchiveDisabled)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/audits/"+id.String()+"/archive", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ARCHIVE_DISABLED", decode(t, w).Error.Code)
}

func TestAuditHandler_ListExports(t *testing.T) {
	r, svc := newAuditRouter()
	modified := time.Date(2025, 1, 21, 8, 0, 0, 0, time.UTC)
	svc.On("ListExports", mock.Anything, "luna").Return([]port.ExportObject{
		{Name: "Axxess-Luna_SignedOrderTemplate.csv", Size: 512, LastModified: modified},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/luna", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "luna", data["folder_id"])
	exports := data["exports"].([]interface{})
	require.Len(t, exports, 1)
	first := exports[0].(map[string]interface{})
	assert.Equal(t, "Axxess-Luna_SignedOrderTemplate.csv", first["name"])
	assert.Equal(t, float64(512), first["size"])
	assert.Equal(t, "2025-01-21T08:00:00Z", first["last_modified"])
}

func TestAuditHandler_ListExports_SourceError(t *testing.T) {
	r, svc := newAuditRouter()
	svc.On("ListExports", mock.Anything, "luna").Return(nil, errors.New("bucket unreachable"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exports/luna", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
