package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func adminContext(ctx context.Context) context.Context {
	return auth.WithSession(ctx, auth.Session{
		ID:        "s1",
		Principal: models.Principal{Username: "alice", Role: models.RoleAdmin},
	})
}

func sampleWorkbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Projects")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		fw, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/imports/excel", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req.WithContext(adminContext(req.Context()))
}

type downGateway struct{}

func (downGateway) CreateProjects(context.Context, []models.Project) ([]models.Project, error) {
	return nil, fmt.Errorf("bulk insert: %w", models.ErrGatewayUnavailable)
}

func TestImportsHandler_UploadExcel(t *testing.T) {
	valid := sampleWorkbook(t,
		[]string{"Project Name", "Start Date", "End Date", "Budget Amount (BDT)"},
		[]string{"Site A", "2024-01-01", "2024-01-31", "100000"},
		[]string{"Site B", "2024-02-01", "2024-12-31", "50000"},
	)

	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		handler := NewImportsHandler(store.NewMemory(), nil, nil)
		req := httptest.NewRequest("POST", "/imports/excel", nil)
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "content-type must be multipart/form-data")
	})

	t.Run("Rejects missing file", func(t *testing.T) {
		handler := NewImportsHandler(store.NewMemory(), nil, nil)
		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "", nil, map[string]string{"dry_run": "true"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("Rejects non-xlsx file", func(t *testing.T) {
		handler := NewImportsHandler(store.NewMemory(), nil, nil)
		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "test.xls", []byte("fake excel content"), nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only .xlsx files are accepted")
	})

	t.Run("Reports unreadable workbook", func(t *testing.T) {
		handler := NewImportsHandler(store.NewMemory(), nil, nil)
		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "test.xlsx", []byte("fake excel content"), nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "IMPORT_FAILED")
	})

	t.Run("Dry run stores nothing", func(t *testing.T) {
		gw := store.NewMemory()
		handler := NewImportsHandler(gw, nil, nil)
		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "ledger.xlsx", valid, map[string]string{"dry_run": "true"}))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Data struct {
				Parsed   int  `json:"parsed"`
				Inserted int  `json:"inserted"`
				DryRun   bool `json:"dry_run"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.Parsed)
		assert.Zero(t, resp.Data.Inserted)
		assert.True(t, resp.Data.DryRun)

		projects, _ := gw.ListProjects(context.Background())
		assert.Empty(t, projects)
	})

	t.Run("Stores every row", func(t *testing.T) {
		gw := store.NewMemory()
		handler := NewImportsHandler(gw, nil, nil)
		var reported int
		handler.OnImport = func(n int) { reported = n }

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "ledger.xlsx", valid, nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		projects, _ := gw.ListProjects(context.Background())
		assert.Len(t, projects, 2)
		assert.Equal(t, 2, reported)
	})

	t.Run("Row errors store nothing", func(t *testing.T) {
		gw := store.NewMemory()
		handler := NewImportsHandler(gw, nil, nil)
		bad := sampleWorkbook(t,
			[]string{"Project Name", "Start Date", "End Date"},
			[]string{"Site A", "2024-01-01", "2024-01-31"},
			[]string{"Site B", "soon", "2024-01-31"},
		)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "ledger.xlsx", bad, nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid date format")
		projects, _ := gw.ListProjects(context.Background())
		assert.Empty(t, projects)
	})

	t.Run("Gateway outage is 503", func(t *testing.T) {
		handler := NewImportsHandler(downGateway{}, nil, nil)
		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, "ledger.xlsx", valid, nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestIsXLSX(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"Valid xlsx", "test.xlsx", true},
		{"Valid xlsx uppercase", "TEST.XLSX", true},
		{"Valid xlsx mixed case", "Test.XlSx", true},
		{"Invalid xls", "test.xls", false},
		{"Invalid xlsm", "test.xlsm", false},
		{"Invalid txt", "test.txt", false},
		{"No extension", "test", false},
		{"Empty filename", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := &multipart.FileHeader{
				Filename: tt.filename,
			}
			result := isXLSX(header)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestImportsHandler_ErrorShape(t *testing.T) {
	handler := NewImportsHandler(store.NewMemory(), nil, nil)

	req := httptest.NewRequest("POST", "/imports/excel", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.UploadExcel(w, req.WithContext(adminContext(req.Context())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp auth.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_CONTENT_TYPE", resp.Code)
	assert.NotEmpty(t, resp.Error)
}
