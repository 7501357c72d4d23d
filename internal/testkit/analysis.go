package testkit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datalens/domain/dataset"
)

const (
	histogramBins     = 10
	outlierSampleSize = 10
)

// Engine computes analysis payloads from a synthetic dataset. It mirrors the
// shape of the backend's responses so tests and standalone mode exercise the
// same decoding paths as production.
type Engine struct {
	ds      *Dataset
	numeric map[string][]float64
}

// NewEngine creates an engine over a generated dataset
func NewEngine(ds *Dataset) *Engine {
	return &Engine{ds: ds, numeric: ds.NumericColumns()}
}

// ColumnTypes classifies the dataset's columns
func (e *Engine) ColumnTypes() *dataset.ColumnTypes {
	return &dataset.ColumnTypes{
		Numeric:     []string{"price", "quantity", "rating", "total"},
		Categorical: []string{"category", "region"},
		Datetime:    []string{"order_date"},
		Text:        []string{"order_id", "notes"},
	}
}

// BasicStats computes per-column summaries
func (e *Engine) BasicStats() *dataset.BasicStats {
	out := &dataset.BasicStats{
		NumericSummary:     make(map[string]dataset.NumericSummary),
		CategoricalSummary: make(map[string]dataset.CategoricalSummary),
		TextSummary:        make(map[string]dataset.TextSummary),
		DatetimeSummary:    make(map[string]dataset.DatetimeSummary),
		DataTypes:          e.ColumnTypes(),
		Shape:              []int{len(e.ds.Rows), len(e.ds.Columns())},
	}

	for col, values := range e.numeric {
		out.NumericSummary[col] = numericSummary(values)
	}
	for col, values := range e.ds.CategoricalColumns() {
		out.CategoricalSummary[col] = categoricalSummary(values)
	}

	notes := make([]string, 0, len(e.ds.Rows))
	dates := make([]time.Time, 0, len(e.ds.Rows))
	for _, r := range e.ds.Rows {
		notes = append(notes, r.Notes)
		dates = append(dates, r.OrderDate)
	}
	out.TextSummary["notes"] = textSummary(notes)
	out.DatetimeSummary["order_date"] = datetimeSummary(dates)
	return out
}

func numericSummary(values []float64) dataset.NumericSummary {
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	std, _ := stats.StandardDeviationSample(values)
	q, _ := stats.Quartile(values)
	skew := stat.Skew(sortedCopy(values), nil)
	kurt := stat.ExKurtosis(sortedCopy(values), nil)
	return dataset.NumericSummary{
		Mean:     mean,
		Median:   median,
		Std:      std,
		Min:      floats.Min(values),
		Max:      floats.Max(values),
		Q25:      &q.Q1,
		Q75:      &q.Q3,
		Skewness: &skew,
		Kurtosis: &kurt,
	}
}

func categoricalSummary(values []string) dataset.CategoricalSummary {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	most, freq := "", 0
	for v, n := range counts {
		if n > freq || (n == freq && v < most) {
			most, freq = v, n
		}
	}
	probs := make([]float64, 0, len(counts))
	for _, n := range counts {
		probs = append(probs, float64(n)/float64(len(values)))
	}
	entropy := stat.Entropy(probs)
	return dataset.CategoricalSummary{
		UniqueValues: len(counts),
		MostFrequent: most,
		Frequency:    freq,
		TopValues:    counts,
		Entropy:      &entropy,
	}
}

func textSummary(values []string) dataset.TextSummary {
	counts := make(map[string]int)
	var totalLen, totalWords int
	for _, v := range values {
		counts[v]++
		totalLen += len(v)
		totalWords += len(strings.Fields(v))
	}
	most, freq := "", 0
	for v, n := range counts {
		if v != "" && (n > freq || (n == freq && v < most)) {
			most, freq = v, n
		}
	}
	samples := make([]string, 0, 3)
	for v := range counts {
		if v != "" && len(samples) < 3 {
			samples = append(samples, v)
		}
	}
	sort.Strings(samples)
	avgWords := float64(totalWords) / float64(len(values))
	return dataset.TextSummary{
		AvgLength:       float64(totalLen) / float64(len(values)),
		AvgWordCount:    &avgWords,
		MostCommonValue: most,
		UniqueValues:    len(counts),
		SampleValues:    samples,
	}
}

func datetimeSummary(dates []time.Time) dataset.DatetimeSummary {
	min, max := dates[0], dates[0]
	unique := make(map[string]bool)
	dow := make(map[string]int)
	for _, d := range dates {
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
		unique[d.Format("2006-01-02")] = true
		dow[d.Weekday().String()]++
	}
	return dataset.DatetimeSummary{
		MinDate:       min.Format("2006-01-02"),
		MaxDate:       max.Format("2006-01-02"),
		UniqueDates:   len(unique),
		TimeSpanDays:  int(max.Sub(min).Hours() / 24),
		DayOfWeekDist: dow,
	}
}

// Outliers runs IQR detection over every numeric column
func (e *Engine) Outliers() dataset.OutlierReport {
	out := make(dataset.OutlierReport)
	for col, values := range e.numeric {
		q, err := stats.Quartile(values)
		if err != nil {
			continue
		}
		iqr := q.Q3 - q.Q1
		lower, upper := q.Q1-1.5*iqr, q.Q3+1.5*iqr
		var found []float64
		for _, v := range values {
			if v < lower || v > upper {
				found = append(found, v)
			}
		}
		sample := found
		if len(sample) > outlierSampleSize {
			sample = sample[:outlierSampleSize]
		}
		out[col] = dataset.ColumnOutliers{IQROutliers: dataset.OutlierSample{
			Count:      len(found),
			Percentage: float64(len(found)) / float64(len(values)) * 100,
			Values:     sample,
		}}
	}
	return out
}

// Correlations computes the pairwise Pearson matrix and labels each pair
func (e *Engine) Correlations() *dataset.CorrelationReport {
	cols := make([]string, 0, len(e.numeric))
	for col := range e.numeric {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	matrix := make([][]float64, len(cols))
	var strong []dataset.Correlation
	for i, a := range cols {
		matrix[i] = make([]float64, len(cols))
		for j, b := range cols {
			r := stat.Correlation(e.numeric[a], e.numeric[b], nil)
			matrix[i][j] = r
			if j <= i {
				continue
			}
			strong = append(strong, dataset.Correlation{
				Column1:     a,
				Column2:     b,
				Correlation: r,
				Strength:    labelStrength(r),
			})
		}
	}
	return &dataset.CorrelationReport{
		StrongCorrelations: strong,
		HeatmapData:        &dataset.HeatmapData{Columns: cols, Values: matrix},
	}
}

func labelStrength(r float64) dataset.Strength {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 0.8:
		return dataset.StrengthVeryStrong
	case abs >= 0.6:
		return dataset.StrengthStrong
	case abs >= 0.4:
		return dataset.StrengthModerate
	}
	return dataset.StrengthWeak
}

// Histogram bins every numeric column into fixed-width buckets
func (e *Engine) Histogram() dataset.HistogramData {
	out := make(dataset.HistogramData)
	for col, values := range e.numeric {
		sorted := sortedCopy(values)
		min, max := sorted[0], sorted[len(sorted)-1]
		if min == max {
			max = min + 1
		}
		dividers := make([]float64, histogramBins+1)
		floats.Span(dividers, min, max)
		// stat.Histogram treats the last divider as inclusive only when the
		// max value equals it exactly, which Span guarantees here
		dividers[len(dividers)-1] = max + 1e-9
		counts := stat.Histogram(nil, dividers, sorted, nil)

		bins := dataset.HistogramBins{
			Labels:   make([]string, len(counts)),
			Counts:   make([]int, len(counts)),
			BinEdges: dividers,
			Density:  make([]float64, len(counts)),
		}
		for i, c := range counts {
			bins.Labels[i] = fmt.Sprintf("%.1f-%.1f", dividers[i], dividers[i+1])
			bins.Counts[i] = int(c)
			bins.Density[i] = c / float64(len(values))
		}
		out[col] = bins
	}
	return out
}

// Scatter pairs two numeric columns point by point
func (e *Engine) Scatter(xCol, yCol string) *dataset.ScatterData {
	xs, xok := e.numeric[xCol]
	ys, yok := e.numeric[yCol]
	if !xok || !yok {
		return &dataset.ScatterData{XColumn: xCol, YColumn: yCol}
	}
	data := make([]map[string]*float64, 0, len(xs))
	for i := range xs {
		x, y := xs[i], ys[i]
		data = append(data, map[string]*float64{xCol: &x, yCol: &y})
	}
	r := stat.Correlation(xs, ys, nil)
	return &dataset.ScatterData{XColumn: xCol, YColumn: yCol, Data: data, Correlation: &r}
}

// DataQuality reports missingness, duplicates and cardinality
func (e *Engine) DataQuality() *dataset.DataQualityReport {
	missing := make(map[string]int)
	types := make(map[string]string)
	cardinality := make(map[string]int)
	for _, col := range e.ds.Columns() {
		missing[col] = 0
	}
	ct := e.ColumnTypes()
	for _, c := range ct.Numeric {
		types[c] = "float64"
	}
	for _, c := range append(append([]string{}, ct.Categorical...), ct.Text...) {
		types[c] = "object"
	}
	for _, c := range ct.Datetime {
		types[c] = "datetime64"
	}

	var emptyNotes int
	for _, r := range e.ds.Rows {
		if r.Notes == "" {
			emptyNotes++
		}
	}
	missing["notes"] = emptyNotes

	for col, values := range e.ds.CategoricalColumns() {
		seen := make(map[string]bool)
		for _, v := range values {
			seen[v] = true
		}
		cardinality[col] = len(seen)
	}
	cardinality["order_id"] = len(e.ds.Rows)

	cells := len(e.ds.Rows) * len(e.ds.Columns())
	return &dataset.DataQualityReport{
		MissingValues:      missing,
		TotalMissingValues: emptyNotes,
		MissingPercentage:  float64(emptyNotes) / float64(cells) * 100,
		Duplicates:         0,
		ColumnTypes:        types,
		EmptyColumns:       []string{},
		ConstantColumns:    []string{},
		Cardinality:        cardinality,
	}
}

// Insights assembles heuristic findings plus a Markdown narrative
func (e *Engine) Insights() *dataset.InsightsReport {
	basic := e.BasicStats()
	outliers := e.Outliers()
	correlations := e.Correlations()

	counts := make(map[string]int)
	var findings []dataset.Insight
	for col, o := range outliers {
		counts[col] = o.IQROutliers.Count
		if o.IQROutliers.Percentage > 5 {
			findings = append(findings, dataset.Insight{
				Title:       fmt.Sprintf("High outlier rate in %s", col),
				Description: fmt.Sprintf("%d values fall outside the IQR bounds.", o.IQROutliers.Count),
				Severity:    dataset.SeverityWarning,
			})
		}
	}
	for _, c := range correlations.StrongCorrelations {
		if c.Strength == dataset.StrengthVeryStrong {
			findings = append(findings, dataset.Insight{
				Title:       fmt.Sprintf("%s tracks %s", c.Column1, c.Column2),
				Description: fmt.Sprintf("Pearson correlation of %.2f suggests a strong linear relationship.", c.Correlation),
				Severity:    dataset.SeverityInfo,
			})
		}
	}
	if len(findings) == 0 {
		findings = append(findings, dataset.Insight{
			Title:       "No anomalies detected",
			Description: "Distributions look regular and no strong pairwise relationships stand out.",
			Severity:    dataset.SeverityInfo,
		})
	}

	var md strings.Builder
	md.WriteString(fmt.Sprintf("## Dataset overview\n\nThe dataset holds **%d rows** across **%d columns**.\n\n", len(e.ds.Rows), len(e.ds.Columns())))
	md.WriteString("### Highlights\n\n")
	for _, f := range findings {
		md.WriteString(fmt.Sprintf("- **%s**: %s\n", f.Title, f.Description))
	}

	return &dataset.InsightsReport{
		Insights:          findings,
		SummaryStatistics: basic.NumericSummary,
		Correlations:      correlations.StrongCorrelations,
		Outliers:          counts,
		AIResponse:        md.String(),
		SuggestedVisualizations: []dataset.Visualization{
			{Type: "histogram", Reason: "Numeric columns show varied spread worth inspecting."},
			{Type: "scatter", Reason: "Strongly correlated pairs merit a pointwise view."},
		},
		FollowUpQuestions: []string{
			"Which category drives the highest order totals?",
			"Do outlier prices cluster in a single region?",
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Report builds the full upload-time analysis report
func (e *Engine) Report() *dataset.AnalysisReport {
	return &dataset.AnalysisReport{
		BasicStatistics: e.BasicStats(),
		DataQuality:     e.DataQuality(),
		Outliers:        e.Outliers(),
		Correlations:    e.Correlations(),
		HistogramData:   e.Histogram(),
		ScatterData:     e.Scatter("price", "total"),
	}
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}
