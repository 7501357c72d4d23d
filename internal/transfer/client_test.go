package transfer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/errors"
	"datalens/ports"
)

func TestUploadDecodesColumnsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err, "multipart field must be named file")
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "a,b\n1,2\n", string(body))
		assert.Equal(t, "data.csv", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"filename": "data.csv",
			"file_id": "f-123",
			"available_columns": ["zeta", "alpha", "mid"]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Upload(context.Background(), "data.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, "f-123", res.FileID)
	// Order is the backend's: no sorting, no dedup
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, res.Columns)
}

func TestUploadFallsBackToFilenameID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "filename": "legacy.csv", "available_columns": ["a"]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Upload(context.Background(), "legacy.csv", strings.NewReader("a\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, "legacy.csv", res.FileID)
}

func TestSendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeouts(10*time.Millisecond, 10*time.Millisecond))
	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{Operation: ports.OpBasicStats, FileID: "f"})

	require.Error(t, err)
	assert.Equal(t, errors.CodeTimeout, errors.GetCode(err))
}

func TestErrorFieldWinsOverHTTP200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success": false, "error": "File not found. Please upload a file first."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{Operation: ports.OpOutliers, FileID: "gone"})

	require.Error(t, err)
	assert.Equal(t, errors.CodeServerReported, errors.GetCode(err))
	assert.Contains(t, err.Error(), "File not found")
}

func TestErrorFieldWinsOverNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "File type not allowed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Upload(context.Background(), "x.csv", strings.NewReader("a\n"))

	require.Error(t, err)
	assert.Equal(t, errors.CodeServerReported, errors.GetCode(err))
}

func TestNon2xxWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{Operation: ports.OpInsights, FileID: "f"})

	require.Error(t, err)
	assert.Equal(t, errors.CodeHTTPStatus, errors.GetCode(err))
}

func TestMalformed2xxBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "result":`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{Operation: ports.OpHistogram, FileID: "f"})

	require.Error(t, err)
	assert.Equal(t, errors.CodeDecode, errors.GetCode(err))
}

func TestAnalyzeRejectsUploadOperation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Analyze(context.Background(), ports.AnalyzeRequest{Operation: ports.OpUpload}); err == nil {
		t.Fatal("expected error for upload operation on analyze endpoint")
	}
	if _, err := client.Analyze(context.Background(), ports.AnalyzeRequest{}); err == nil {
		t.Fatal("expected error for empty operation")
	}
	assert.Zero(t, calls, "rejected operations must not reach the network")
}

func TestAnalyzeRequestBody(t *testing.T) {
	var got ports.AnalyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success": true, "result": {}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{
		Operation: ports.OpHistogram,
		FileID:    "f-9",
		Columns:   []string{"price"},
		Column:    "price",
	})
	require.NoError(t, err)

	assert.Equal(t, ports.OpHistogram, got.Operation)
	assert.Equal(t, "f-9", got.FileID)
	assert.Equal(t, []string{"price"}, got.Columns)
	assert.Equal(t, "price", got.Column)
}
