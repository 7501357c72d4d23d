package testkit

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"datalens/internal"
	"datalens/internal/preview"
)

// Backend is an in-process fake of the analysis service. It speaks the same
// envelope contract as the real backend: column lists come from the uploaded
// file, while analysis payloads are computed from a canned synthetic dataset.
type Backend struct {
	mu     sync.Mutex
	files  map[string]*storedFile
	engine *Engine
	log    *internal.Logger
}

type storedFile struct {
	filename string
	columns  []string
}

var allowedUploadExts = map[string]bool{
	".csv": true, ".xlsx": true, ".xls": true, ".json": true,
}

// NewBackend creates a backend over a freshly generated dataset
func NewBackend() *Backend {
	ds := NewGenerator(DefaultGeneratorConfig()).Generate()
	return &Backend{
		files:  make(map[string]*storedFile),
		engine: NewEngine(ds),
		log:    internal.DefaultLogger.WithTag("testkit"),
	}
}

// Router mounts the upload and analyze endpoints
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/upload", b.handleUpload)
	r.Post("/analyze", b.handleAnalyze)
	return r
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		writeError(w, http.StatusBadRequest, "File type not allowed")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read file")
		return
	}
	columns, err := preview.Columns(header.Filename, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not parse file: "+err.Error())
		return
	}

	fileID := uuid.NewString()
	b.mu.Lock()
	b.files[fileID] = &storedFile{filename: header.Filename, columns: columns}
	b.mu.Unlock()
	b.log.Info("stored upload %s as %s (%d columns)", header.Filename, fileID, len(columns))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"filename":          header.Filename,
		"file_id":           fileID,
		"available_columns": columns,
		"analysis":          b.engine.Report(),
	})
}

type analyzeRequest struct {
	Operation string   `json:"operation"`
	FileID    string   `json:"file_id"`
	Columns   []string `json:"columns,omitempty"`
	Column    string   `json:"column,omitempty"`
	MinValue  string   `json:"min_value,omitempty"`
	MaxValue  string   `json:"max_value,omitempty"`
}

func (b *Backend) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	stored, ok := b.files[req.FileID]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusOK, "File not found. Please upload a file first.")
		return
	}

	var result interface{}
	switch req.Operation {
	case "basic_stats":
		result = b.engine.BasicStats()
	case "outliers":
		result = b.engine.Outliers()
	case "correlations":
		result = b.engine.Correlations()
	case "histogram":
		result = b.engine.Histogram()
	case "scatter_plot":
		result = b.engine.Scatter("price", "total")
	case "data_quality":
		result = b.engine.DataQuality()
	case "insights":
		result = b.engine.Insights()
	case "filter":
		result = b.filterResult(stored, req)
	default:
		writeError(w, http.StatusOK, "Unknown operation: "+req.Operation)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// filterResult mimics a re-analysis under a column subset and optional value
// bounds: a refreshed descriptor payload the client swaps in wholesale.
func (b *Backend) filterResult(stored *storedFile, req analyzeRequest) interface{} {
	kept := stored.columns
	if len(req.Columns) > 0 {
		allowed := make(map[string]bool, len(req.Columns))
		for _, c := range req.Columns {
			allowed[c] = true
		}
		kept = make([]string, 0, len(req.Columns))
		for _, c := range stored.columns {
			if allowed[c] {
				kept = append(kept, c)
			}
		}
	}
	return map[string]interface{}{
		"available_columns": kept,
		"row_count":         b.boundedRowCount(req.Column, req.MinValue, req.MaxValue),
		"column_count":      len(kept),
		"analysis":          b.engine.Report(),
	}
}

// boundedRowCount counts the rows surviving value bounds on one numeric
// column. Unparseable or absent bounds leave that side open.
func (b *Backend) boundedRowCount(column, minValue, maxValue string) int {
	values, ok := b.engine.numeric[column]
	if column == "" || !ok {
		return len(b.engine.ds.Rows)
	}
	min, minErr := strconv.ParseFloat(minValue, 64)
	max, maxErr := strconv.ParseFloat(maxValue, 64)
	count := 0
	for _, v := range values {
		if minErr == nil && v < min {
			continue
		}
		if maxErr == nil && v > max {
			continue
		}
		count++
	}
	return count
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError answers with the backend's error envelope. Some failure modes
// ride on a 200 status with only the error field set, matching the upstream
// service's behavior.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
