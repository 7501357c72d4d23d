package ports

import (
	"context"
	"encoding/json"
	"io"

	"datalens/domain/dataset"
)

// Operation tags an analysis request. Values match the backend contract.
type Operation string

const (
	OpUpload       Operation = "upload"
	OpBasicStats   Operation = "basic_stats"
	OpOutliers     Operation = "outliers"
	OpCorrelations Operation = "correlations"
	OpHistogram    Operation = "histogram"
	OpScatterPlot  Operation = "scatter_plot"
	OpDataQuality  Operation = "data_quality"
	OpInsights     Operation = "insights"
	OpFilter       Operation = "filter"
)

// AnalyzeRequest is the JSON body for POST /analyze
type AnalyzeRequest struct {
	Operation Operation `json:"operation"`
	FileID    string    `json:"file_id"`
	Columns   []string  `json:"columns,omitempty"`
	Column    string    `json:"column,omitempty"`
	MinValue  string    `json:"min_value,omitempty"`
	MaxValue  string    `json:"max_value,omitempty"`
}

// UploadResult is the decoded successful upload response
type UploadResult struct {
	Filename string
	FileID   string
	Columns  []string
	Analysis *dataset.AnalysisReport
}

// UploadPort forwards a dataset file to the analysis backend
type UploadPort interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error)
}

// AnalyzePort runs one analysis operation against the backend and returns the
// raw result payload. Implementations produce exactly one of payload or error.
type AnalyzePort interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (json.RawMessage, error)
}

// TransferPort is the full outbound contract to the analysis backend
type TransferPort interface {
	UploadPort
	AnalyzePort
}
