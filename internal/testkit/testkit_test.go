package testkit

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"datalens/domain/dataset"
	"datalens/internal/errors"
	"datalens/internal/transfer"
	"datalens/ports"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	a := NewGenerator(cfg).Generate()
	b := NewGenerator(cfg).Generate()

	if !bytes.Equal(a.CSV(), b.CSV()) {
		t.Error("same seed must produce identical datasets")
	}
	if len(a.Rows) != cfg.RowCount {
		t.Errorf("row count = %d, want %d", len(a.Rows), cfg.RowCount)
	}
}

func TestEngineOutliersWithinBounds(t *testing.T) {
	ds := NewGenerator(DefaultGeneratorConfig()).Generate()
	rep := NewEngine(ds).Outliers()

	price, ok := rep["price"]
	if !ok {
		t.Fatal("price column missing from outlier report")
	}
	o := price.IQROutliers
	if o.Count == 0 {
		t.Error("generator plants price outliers; none detected")
	}
	if o.Percentage < 0 || o.Percentage > 100 {
		t.Errorf("percentage out of range: %v", o.Percentage)
	}
	if len(o.Values) > outlierSampleSize {
		t.Errorf("sample exceeds bound: %d", len(o.Values))
	}
}

func TestEngineCorrelationFindsPlantedRelationship(t *testing.T) {
	ds := NewGenerator(DefaultGeneratorConfig()).Generate()
	rep := NewEngine(ds).Correlations()

	// total = price * quantity, so price/total must correlate strongly
	var found bool
	for _, c := range rep.StrongCorrelations {
		if c.Column1 == "price" && c.Column2 == "total" {
			found = true
			if !c.Strength.AtLeastModerate() {
				t.Errorf("price/total strength = %s, want at least Moderate", c.Strength)
			}
		}
	}
	if !found {
		t.Error("price/total pair missing from correlation report")
	}
}

func TestEngineHistogramBinShapes(t *testing.T) {
	ds := NewGenerator(DefaultGeneratorConfig()).Generate()
	data := NewEngine(ds).Histogram()

	bins, ok := data["rating"]
	if !ok {
		t.Fatal("rating column missing from histogram data")
	}
	if len(bins.Labels) != len(bins.Counts) {
		t.Errorf("labels (%d) and counts (%d) must align", len(bins.Labels), len(bins.Counts))
	}
	total := 0
	for _, c := range bins.Counts {
		total += c
	}
	if total != len(ds.Rows) {
		t.Errorf("binned %d values, want %d", total, len(ds.Rows))
	}
}

func TestBackendUploadAnalyzeRoundTrip(t *testing.T) {
	server := httptest.NewServer(NewBackend().Router())
	defer server.Close()
	client := transfer.NewClient(server.URL)

	ds := NewGenerator(DefaultGeneratorConfig()).Generate()
	res, err := client.Upload(context.Background(), "sales.csv", bytes.NewReader(ds.CSV()))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.FileID == "" {
		t.Fatal("upload returned no file id")
	}
	// Header order survives the round trip
	wantCols := ds.Columns()
	for i, c := range wantCols {
		if res.Columns[i] != c {
			t.Fatalf("column %d = %q, want %q", i, res.Columns[i], c)
		}
	}
	if res.Analysis == nil || res.Analysis.BasicStatistics == nil {
		t.Fatal("upload response missing initial analysis report")
	}

	raw, err := client.Analyze(context.Background(), ports.AnalyzeRequest{
		Operation: ports.OpBasicStats,
		FileID:    res.FileID,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var stats dataset.BasicStats
	if err := dataset.DecodeResult(raw, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := stats.NumericSummary["price"]; !ok {
		t.Error("basic stats missing price summary")
	}
}

func TestBackendRejectsUnknownFileID(t *testing.T) {
	server := httptest.NewServer(NewBackend().Router())
	defer server.Close()
	client := transfer.NewClient(server.URL)

	_, err := client.Analyze(context.Background(), ports.AnalyzeRequest{
		Operation: ports.OpOutliers,
		FileID:    "missing",
	})
	if !errors.HasCode(err, errors.CodeServerReported) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeServerReported)
	}
}

func TestBackendRejectsDisallowedExtension(t *testing.T) {
	server := httptest.NewServer(NewBackend().Router())
	defer server.Close()
	client := transfer.NewClient(server.URL)

	_, err := client.Upload(context.Background(), "notes.txt", bytes.NewReader([]byte("hello")))
	if !errors.HasCode(err, errors.CodeServerReported) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeServerReported)
	}
}
