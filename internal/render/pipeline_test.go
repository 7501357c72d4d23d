package render

import (
	"strings"
	"testing"

	"datalens/domain/dataset"
	"datalens/internal/charts"
)

func newTestPipeline(t *testing.T) (*Pipeline, *charts.Registry) {
	t.Helper()
	registry := charts.NewRegistry()
	registry.RegisterSurface(charts.SlotDistribution, "distribution-chart")
	registry.RegisterSurface(charts.SlotHistogram, "histogram-chart")
	registry.RegisterSurface(charts.SlotScatter, "scatter-chart")
	return NewPipeline(registry), registry
}

func TestOutliersSummaryFormatting(t *testing.T) {
	p, _ := newTestPipeline(t)
	rep := dataset.OutlierReport{
		"price": {IQROutliers: dataset.OutlierSample{
			Count:      3,
			Percentage: 12.345,
			Values:     []float64{812.5, 934.0, 1020.75},
		}},
	}

	out := p.Outliers(rep)
	if !strings.Contains(out, "3 outliers (12.35%)") {
		t.Errorf("outlier summary missing rounded percentage, got:\n%s", out)
	}
}

func TestOutliersSkipsZeroCountColumns(t *testing.T) {
	p, _ := newTestPipeline(t)
	rep := dataset.OutlierReport{
		"quantity": {IQROutliers: dataset.OutlierSample{Count: 0, Percentage: 0}},
		"price":    {IQROutliers: dataset.OutlierSample{Count: 2, Percentage: 1.0, Values: []float64{9, 10}}},
	}

	out := p.Outliers(rep)
	if strings.Contains(out, "quantity") {
		t.Errorf("zero-count column should be omitted, got:\n%s", out)
	}
	if !strings.Contains(out, "price") {
		t.Errorf("non-zero column missing, got:\n%s", out)
	}
}

func TestInsightsEmptyReportRendersPlaceholder(t *testing.T) {
	p, _ := newTestPipeline(t)

	out := p.Insights(&dataset.InsightsReport{})
	if !strings.Contains(strings.ToLower(out), "no insights") {
		t.Errorf("empty report should render a distinct no-insights state, got:\n%s", out)
	}
}

func TestInsightsSanitizesNarrative(t *testing.T) {
	p, _ := newTestPipeline(t)
	rep := &dataset.InsightsReport{
		AIResponse: "## Findings\n\n<script>alert(1)</script>Strong **seasonality** detected.",
	}

	out := p.Insights(rep)
	if strings.Contains(out, "<script>") {
		t.Errorf("narrative not sanitized:\n%s", out)
	}
	if !strings.Contains(out, "<strong>seasonality</strong>") {
		t.Errorf("markdown emphasis not rendered:\n%s", out)
	}
}

func TestInsightsDefaultSeverity(t *testing.T) {
	p, _ := newTestPipeline(t)
	rep := &dataset.InsightsReport{
		Insights: []dataset.Insight{{Title: "Untyped", Description: "No severity set."}},
	}

	out := p.Insights(rep)
	if !strings.Contains(out, "severity-info") {
		t.Errorf("missing severity should default to info, got:\n%s", out)
	}
}

func TestScatterIncompletePayloadSkipsCharts(t *testing.T) {
	p, registry := newTestPipeline(t)

	out, err := p.Scatter(&dataset.ScatterData{XColumn: "price"})
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	if !strings.Contains(out, "Not enough numeric data") {
		t.Errorf("expected insufficient-data placeholder, got:\n%s", out)
	}
	if _, ok := registry.Live(charts.SlotScatter); ok {
		t.Error("charting layer touched for incomplete payload")
	}
}

func TestScatterFiltersNullCoordinates(t *testing.T) {
	p, registry := newTestPipeline(t)
	x1, y1, x2 := 1.0, 2.0, 3.0
	sc := &dataset.ScatterData{
		XColumn: "price",
		YColumn: "total",
		Data: []map[string]*float64{
			{"price": &x1, "total": &y1},
			{"price": &x2, "total": nil},
		},
	}

	if _, err := p.Scatter(sc); err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	spec, ok := registry.Spec(charts.SlotScatter)
	if !ok {
		t.Fatal("no live scatter chart")
	}
	if got := len(spec.Datasets[0].Points); got != 1 {
		t.Errorf("null-coordinate point not filtered, got %d points", got)
	}
}

func TestHistogramDefaultsToFirstColumn(t *testing.T) {
	p, registry := newTestPipeline(t)
	data := dataset.HistogramData{
		"quantity": {Labels: []string{"0-1"}, Counts: []int{5}},
		"price":    {Labels: []string{"0-10"}, Counts: []int{3}},
	}

	out, err := p.Histogram(data, "")
	if err != nil {
		t.Fatalf("Histogram returned error: %v", err)
	}
	spec, ok := registry.Spec(charts.SlotHistogram)
	if !ok {
		t.Fatal("no live histogram chart")
	}
	if spec.Datasets[0].Label != "price" {
		t.Errorf("default column = %q, want first available %q", spec.Datasets[0].Label, "price")
	}
	if !strings.Contains(out, "quantity") || !strings.Contains(out, "price") {
		t.Errorf("switcher should list every column, got:\n%s", out)
	}
}

func TestHistogramSwitchReplacesLiveChart(t *testing.T) {
	p, registry := newTestPipeline(t)
	data := dataset.HistogramData{
		"price":    {Labels: []string{"0-10"}, Counts: []int{3}},
		"quantity": {Labels: []string{"0-1"}, Counts: []int{5}},
	}

	if _, err := p.Histogram(data, "price"); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if _, err := p.Histogram(data, "quantity"); err != nil {
		t.Fatalf("second render: %v", err)
	}

	spec, _ := registry.Spec(charts.SlotHistogram)
	if spec.Datasets[0].Label != "quantity" {
		t.Errorf("live chart = %q, want %q after switch", spec.Datasets[0].Label, "quantity")
	}
}

func TestStatisticsHandlesAbsentSections(t *testing.T) {
	p, _ := newTestPipeline(t)
	stats := &dataset.BasicStats{
		NumericSummary: map[string]dataset.NumericSummary{
			"price": {Mean: 10, Median: 9, Std: 2, Min: 1, Max: 20},
		},
		Shape: []int{100, 4},
	}

	out := p.Statistics(stats, &dataset.Descriptor{RowCount: 1, ColumnCount: 1})
	if !strings.Contains(out, "100") {
		t.Errorf("shape row count should win over descriptor, got:\n%s", out)
	}
	if !strings.Contains(out, Placeholder) {
		t.Errorf("absent quartiles should render the placeholder, got:\n%s", out)
	}
}
