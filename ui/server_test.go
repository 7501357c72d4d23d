package ui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/app"
	"datalens/internal/charts"
	"datalens/internal/config"
	"datalens/internal/render"
	"datalens/internal/session"
	"datalens/internal/tabs"
	"datalens/internal/testkit"
	"datalens/internal/transfer"
)

// newTestServer wires the full stack against the embedded fake backend
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	backend := httptest.NewServer(testkit.NewBackend().Router())
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: "test"},
		Upload: config.UploadConfig{
			MaxSizeBytes:      10 << 20,
			AllowedExtensions: []string{".csv", ".xlsx", ".xls", ".json"},
		},
	}
	client := transfer.NewClient(backend.URL)
	store := session.NewStore()
	registry := charts.NewRegistry()
	registry.RegisterSurface(charts.SlotDistribution, "distribution-chart")
	registry.RegisterSurface(charts.SlotHistogram, "histogram-chart")
	registry.RegisterSurface(charts.SlotScatter, "scatter-chart")
	pipeline := render.NewPipeline(registry)
	controller := tabs.NewController(store, client, pipeline)
	service := app.NewAnalysisService(client, store, registry, pipeline, controller, cfg)

	server, err := NewServer(service, controller, registry, store, cfg)
	require.NoError(t, err)
	return server, backend
}

func multipartUpload(t *testing.T, filename string, contents []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(contents)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func uploadSyntheticCSV(t *testing.T, server *Server) {
	t.Helper()
	csv := testkit.NewGenerator(testkit.DefaultGeneratorConfig()).Generate().CSV()
	body, contentType := multipartUpload(t, "sales.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadEndpointReturnsDatasetJSON(t *testing.T) {
	server, _ := newTestServer(t)
	csv := testkit.NewGenerator(testkit.DefaultGeneratorConfig()).Generate().CSV()
	body, contentType := multipartUpload(t, "sales.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Success          bool     `json:"success"`
		Filename         string   `json:"filename"`
		FileID           string   `json:"file_id"`
		AvailableColumns []string `json:"available_columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sales.csv", resp.Filename)
	assert.NotEmpty(t, resp.FileID)
	assert.Equal(t, "order_id", resp.AvailableColumns[0], "column order must survive end to end")
}

func TestUploadEndpointRejectsUnsupportedType(t *testing.T) {
	server, _ := newTestServer(t)
	body, contentType := multipartUpload(t, "notes.txt", []byte("hello"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_FILE_TYPE")
}

func TestTabEndpointWithoutDataset(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tabs/basic-stats", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_DATASET_LOADED")
}

func TestTabEndpointServesHTMLFragmentForHTMX(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	req := httptest.NewRequest(http.MethodGet, "/tabs/basic-stats", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "stats-overview")
}

func TestUnknownTabIs404(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tabs/volcano", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChartSpecEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	// The upload's default render draws the distribution doughnut
	req := httptest.NewRequest(http.MethodGet, "/api/charts/distribution", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		CanvasID string `json:"canvas_id"`
		Spec     struct {
			Type string `json:"type"`
		} `json:"spec"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "distribution-chart", resp.CanvasID)
	assert.Equal(t, "doughnut", resp.Spec.Type)
}

func TestHistogramColumnSwitchEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	req := httptest.NewRequest(http.MethodPost, "/histogram/column?column=rating", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "histogram-controls")

	spec, ok := server.registry.Spec(charts.SlotHistogram)
	require.True(t, ok, "switch should leave a live histogram chart")
	assert.Equal(t, "rating", spec.Datasets[0].Label)
}

func TestFilterEndpointAppliesValueBounds(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	form := "active_tab=basic-stats&column=rating&min_value=2&max_value=4"
	req := httptest.NewRequest(http.MethodPost, "/filter", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	desc := server.store.Get()
	require.NotNil(t, desc)
	assert.Less(t, desc.RowCount, 250, "bounded filter must shrink the row count")
	assert.Greater(t, desc.RowCount, 0)
}

func TestFilterEndpointRejectsBoundWithoutColumn(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)
	before := server.store.Get().RowCount

	form := "active_tab=basic-stats&min_value=2"
	req := httptest.NewRequest(http.MethodPost, "/filter", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_DATA")
	assert.Equal(t, before, server.store.Get().RowCount, "rejected filter must not touch the session")
}

func TestFilterEndpointRejectsUnknownActiveTab(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	form := "active_tab=volcano&columns=price"
	req := httptest.NewRequest(http.MethodPost, "/filter", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown tab")
}

func TestNotificationLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	uploadSyntheticCSV(t, server)

	// Force a failure: the backend rejects unknown operations via the error
	// envelope, which lands in the notification tray.
	server.store.Get().FileID = "gone"
	req := httptest.NewRequest(http.MethodGet, "/tabs/outliers", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	var resp struct {
		Notifications []tabs.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/notifications/"+resp.Notifications[0].ID, nil)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
