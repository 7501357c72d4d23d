package render

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/microcosm-cc/bluemonday"

	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/charts"
)

// Pipeline renders typed analysis payloads into HTML fragments and chart
// specs. One method per analysis kind; each is total over its declared input
// shape and renders placeholders for absent optional fields instead of
// failing. Renderers never mutate their inputs.
type Pipeline struct {
	registry  *charts.Registry
	sanitizer *bluemonday.Policy
	log       *internal.Logger
}

// NewPipeline creates a render pipeline drawing through the given registry
func NewPipeline(registry *charts.Registry) *Pipeline {
	return &Pipeline{
		registry:  registry,
		sanitizer: bluemonday.UGCPolicy(),
		log:       internal.DefaultLogger.WithTag("render"),
	}
}

func (p *Pipeline) execute(name string, data interface{}) string {
	var buf strings.Builder
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		p.log.Error("failed to render %s fragment: %v", name, err)
		return `<div class="render-error">Error rendering content</div>`
	}
	return buf.String()
}

func (p *Pipeline) placeholder(message string) string {
	return p.execute("placeholder", message)
}

type numericRow struct {
	Column, Mean, Median, Std, Min, Max, Q25, Q75 string
}

type categoricalRow struct {
	Column, MostFrequent, TopValues string
	Unique                          int
}

type textRow struct {
	Column, AvgLength, MostCommon string
}

type datetimeRow struct {
	Column, MinDate, MaxDate string
	SpanDays                 int
}

type statisticsView struct {
	RowCount, ColumnCount                                    int
	NumericCount, CategoricalCount, TextCount, DatetimeCount int
	NumericRows                                              []numericRow
	CategoricalRows                                          []categoricalRow
	TextRows                                                 []textRow
	DatetimeRows                                             []datetimeRow
}

// Statistics renders row/column counts, per-type column counts, and the four
// per-column summary tables.
func (p *Pipeline) Statistics(stats *dataset.BasicStats, desc *dataset.Descriptor) string {
	view := statisticsView{}
	if desc != nil {
		view.RowCount = desc.RowCount
		view.ColumnCount = desc.ColumnCount
	}
	if stats == nil {
		return p.execute("statistics", view)
	}

	view.NumericCount = len(stats.NumericSummary)
	view.CategoricalCount = len(stats.CategoricalSummary)
	view.TextCount = len(stats.TextSummary)
	view.DatetimeCount = len(stats.DatetimeSummary)
	if stats.DataTypes != nil {
		view.NumericCount = len(stats.DataTypes.Numeric)
		view.CategoricalCount = len(stats.DataTypes.Categorical)
		view.TextCount = len(stats.DataTypes.Text)
		view.DatetimeCount = len(stats.DataTypes.Datetime)
	}
	if len(stats.Shape) == 2 {
		view.RowCount = stats.Shape[0]
		view.ColumnCount = stats.Shape[1]
	}

	for _, col := range sortedKeys(stats.NumericSummary) {
		s := stats.NumericSummary[col]
		view.NumericRows = append(view.NumericRows, numericRow{
			Column: col,
			Mean:   FormatFloat(s.Mean),
			Median: FormatFloat(s.Median),
			Std:    FormatFloat(s.Std),
			Min:    FormatFloat(s.Min),
			Max:    FormatFloat(s.Max),
			Q25:    FormatOptFloat(s.Q25),
			Q75:    FormatOptFloat(s.Q75),
		})
	}
	for _, col := range sortedKeys(stats.CategoricalSummary) {
		s := stats.CategoricalSummary[col]
		view.CategoricalRows = append(view.CategoricalRows, categoricalRow{
			Column:       col,
			Unique:       s.UniqueValues,
			MostFrequent: orPlaceholder(s.MostFrequent),
			TopValues:    topValues(s.TopValues, 5),
		})
	}
	for _, col := range sortedKeys(stats.TextSummary) {
		s := stats.TextSummary[col]
		view.TextRows = append(view.TextRows, textRow{
			Column:     col,
			AvgLength:  FormatFloat(s.AvgLength),
			MostCommon: orPlaceholder(s.MostCommonValue),
		})
	}
	for _, col := range sortedKeys(stats.DatetimeSummary) {
		s := stats.DatetimeSummary[col]
		view.DatetimeRows = append(view.DatetimeRows, datetimeRow{
			Column:   col,
			MinDate:  orPlaceholder(s.MinDate),
			MaxDate:  orPlaceholder(s.MaxDate),
			SpanDays: s.TimeSpanDays,
		})
	}

	return p.execute("statistics", view)
}

type insightsView struct {
	Empty          bool
	Cards          []dataset.Insight
	Narrative      template.HTML
	Visualizations []dataset.Visualization
	FollowUps      []string
}

// Insights renders a titled card per insight styled by severity plus the AI
// narrative. An empty report renders an explicit "no insights" placeholder,
// distinct from an error state.
func (p *Pipeline) Insights(rep *dataset.InsightsReport) string {
	if rep == nil || (len(rep.Insights) == 0 && rep.AIResponse == "") {
		return p.execute("insights", insightsView{Empty: true})
	}

	view := insightsView{
		Cards:          rep.Insights,
		Visualizations: rep.SuggestedVisualizations,
		FollowUps:      rep.FollowUpQuestions,
	}
	for i, card := range view.Cards {
		if card.Severity == "" {
			view.Cards[i].Severity = dataset.SeverityInfo
		}
	}
	if rep.AIResponse != "" {
		html := markdown.ToHTML([]byte(rep.AIResponse), nil, nil)
		view.Narrative = template.HTML(p.sanitizer.SanitizeBytes(html))
	}
	return p.execute("insights", view)
}

type outlierRow struct {
	Column  string
	Summary string
	Sample  string
}

// maxOutlierSample bounds how many raw outlier values a row shows
const maxOutlierSample = 5

// Outliers renders per-column outlier counts with two-decimal percentages and
// a bounded sample of raw values.
func (p *Pipeline) Outliers(rep dataset.OutlierReport) string {
	var rows []outlierRow
	for _, col := range sortedKeys(rep) {
		o := rep[col].IQROutliers
		if o.Count == 0 {
			continue
		}
		rows = append(rows, outlierRow{
			Column:  col,
			Summary: fmt.Sprintf("%d outliers (%s%%)", o.Count, FormatPercent(o.Percentage)),
			Sample:  sampleValues(o.Values, maxOutlierSample),
		})
	}
	return p.execute("outliers", struct{ Rows []outlierRow }{rows})
}

type correlationRow struct {
	Column1, Column2, R, Strength, PValue string
}

// Correlations renders entries labeled Moderate or stronger by the backend;
// the renderer trusts the label. An empty list renders a distinct placeholder.
func (p *Pipeline) Correlations(rep *dataset.CorrelationReport) string {
	var rows []correlationRow
	if rep != nil {
		for _, c := range rep.StrongCorrelations {
			if !c.Strength.AtLeastModerate() {
				continue
			}
			rows = append(rows, correlationRow{
				Column1:  c.Column1,
				Column2:  c.Column2,
				R:        FormatFloat(c.Correlation),
				Strength: string(c.Strength),
				PValue:   FormatOptFloat(c.PValue),
			})
		}
	}
	return p.execute("correlations", struct{ Rows []correlationRow }{rows})
}

type cardinalityRow struct {
	Column      string
	Missing     int
	Cardinality string
}

type qualityView struct {
	TotalMissing    int
	MissingPct      string
	Duplicates      int
	EmptyColumns    string
	ConstantColumns string
	CardinalityRows []cardinalityRow
}

// DataQuality renders the quality report. The missing-value percentage is
// recomputed locally as totalMissing / (columns x rows) x 100.
func (p *Pipeline) DataQuality(rep *dataset.DataQualityReport, rowCount int) string {
	if rep == nil {
		return p.placeholder("No data quality report available.")
	}

	columnCount := len(rep.MissingValues)
	if columnCount == 0 {
		columnCount = len(rep.ColumnTypes)
	}
	missingPct := 0.0
	if totalCells := rowCount * columnCount; totalCells > 0 {
		missingPct = float64(rep.TotalMissingValues) / float64(totalCells) * 100
	}

	view := qualityView{
		TotalMissing:    rep.TotalMissingValues,
		MissingPct:      FormatPercent(missingPct),
		Duplicates:      rep.Duplicates,
		EmptyColumns:    strings.Join(rep.EmptyColumns, ", "),
		ConstantColumns: strings.Join(rep.ConstantColumns, ", "),
	}
	for _, col := range sortedKeys(rep.MissingValues) {
		card := Placeholder
		if n, ok := rep.Cardinality[col]; ok {
			card = fmt.Sprintf("%d", n)
		}
		view.CardinalityRows = append(view.CardinalityRows, cardinalityRow{
			Column:      col,
			Missing:     rep.MissingValues[col],
			Cardinality: card,
		})
	}
	return p.execute("quality", view)
}

// Histogram renders the bins for the chosen column into the histogram chart
// slot and returns the column switcher fragment. An empty column picks the
// first available one. Switching re-renders the same slot; the registry
// guarantees the prior instance is released first.
func (p *Pipeline) Histogram(data dataset.HistogramData, column string) (string, error) {
	columns := sortedKeys(data)
	if len(columns) == 0 {
		return p.placeholder("No numeric columns to plot."), nil
	}
	if column == "" {
		column = columns[0]
	}
	bins, ok := data[column]
	if !ok {
		return p.placeholder(fmt.Sprintf("No histogram data for column %s.", column)), nil
	}

	err := p.registry.Render(charts.SlotHistogram, func() (charts.Handle, error) {
		counts := make([]float64, len(bins.Counts))
		for i, c := range bins.Counts {
			counts[i] = float64(c)
		}
		return charts.NewHandle(charts.Spec{
			Type:     "bar",
			Title:    fmt.Sprintf("Distribution of %s", column),
			Labels:   bins.Labels,
			Datasets: []charts.Dataset{{Label: column, Data: counts}},
		}), nil
	})
	if err != nil {
		return "", err
	}

	fragment := p.execute("histogram_switcher", struct {
		Columns []string
		Current string
	}{columns, column})
	return fragment, nil
}

// Scatter renders the point cloud into the scatter slot, or an insufficient-
// data placeholder when the payload is incomplete. Points with null
// coordinates are filtered out; the charting layer is never touched for an
// incomplete payload.
func (p *Pipeline) Scatter(sc *dataset.ScatterData) (string, error) {
	if sc == nil || sc.XColumn == "" || sc.YColumn == "" || len(sc.Data) == 0 {
		return p.placeholder("Not enough numeric data for a scatter plot."), nil
	}

	var points []charts.Point
	for _, row := range sc.Data {
		x, okX := row[sc.XColumn]
		y, okY := row[sc.YColumn]
		if !okX || !okY || x == nil || y == nil {
			continue
		}
		points = append(points, charts.Point{X: *x, Y: *y})
	}
	if len(points) == 0 {
		return p.placeholder("Not enough numeric data for a scatter plot."), nil
	}

	err := p.registry.Render(charts.SlotScatter, func() (charts.Handle, error) {
		return charts.NewHandle(charts.Spec{
			Type:  "scatter",
			Title: fmt.Sprintf("%s vs %s", sc.XColumn, sc.YColumn),
			Datasets: []charts.Dataset{{
				Label:  fmt.Sprintf("%s / %s", sc.XColumn, sc.YColumn),
				Points: points,
			}},
		}), nil
	})
	if err != nil {
		return "", err
	}

	caption := p.execute("scatter_caption", struct {
		XColumn, YColumn, Correlation string
	}{sc.XColumn, sc.YColumn, correlationCaption(sc.Correlation)})
	return caption, nil
}

// Distribution renders the column-type doughnut into the distribution slot
func (p *Pipeline) Distribution(types *dataset.ColumnTypes) error {
	if types == nil {
		types = &dataset.ColumnTypes{}
	}
	return p.registry.Render(charts.SlotDistribution, func() (charts.Handle, error) {
		return charts.NewHandle(charts.Spec{
			Type:   "doughnut",
			Title:  "Column Types",
			Labels: []string{"Numeric", "Categorical", "Text", "Datetime"},
			Datasets: []charts.Dataset{{
				Data: []float64{
					float64(len(types.Numeric)),
					float64(len(types.Categorical)),
					float64(len(types.Text)),
					float64(len(types.Datetime)),
				},
			}},
		}), nil
	})
}

func correlationCaption(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func topValues(values map[string]int, limit int) string {
	if len(values) == 0 {
		return Placeholder
	}
	keys := sortedKeys(values)
	sort.SliceStable(keys, func(i, j int) bool {
		return values[keys[i]] > values[keys[j]]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%d)", k, values[k])
	}
	return strings.Join(parts, ", ")
}

func sampleValues(values []float64, limit int) string {
	if len(values) == 0 {
		return Placeholder
	}
	if len(values) > limit {
		values = values[:limit]
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
