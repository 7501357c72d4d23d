package dataset

import "encoding/json"

// Descriptor is the client-held identity and schema summary of the currently
// loaded upload. It is created on successful upload, replaced wholesale on
// filter/re-analyze, and destroyed when a new upload begins.
type Descriptor struct {
	FileID      string          `json:"file_id"`
	Filename    string          `json:"filename"`
	Columns     []string        `json:"columns"`
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Analysis    *AnalysisReport `json:"analysis,omitempty"`
}

// ColumnTypes categorizes columns by detected data type
type ColumnTypes struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Datetime    []string `json:"datetime"`
	Text        []string `json:"text"`
}

// NumericSummary holds per-column numeric statistics
type NumericSummary struct {
	Mean     float64  `json:"mean"`
	Median   float64  `json:"median"`
	Std      float64  `json:"std"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Q25      *float64 `json:"q25,omitempty"`
	Q75      *float64 `json:"q75,omitempty"`
	Skewness *float64 `json:"skewness,omitempty"`
	Kurtosis *float64 `json:"kurtosis,omitempty"`
}

// CategoricalSummary holds per-column categorical statistics
type CategoricalSummary struct {
	UniqueValues int            `json:"unique_values"`
	MostFrequent string         `json:"most_frequent"`
	Frequency    int            `json:"frequency"`
	TopValues    map[string]int `json:"top_values"`
	Entropy      *float64       `json:"entropy,omitempty"`
}

// TextSummary holds per-column free-text statistics
type TextSummary struct {
	AvgLength       float64  `json:"avg_length"`
	AvgWordCount    *float64 `json:"avg_word_count,omitempty"`
	MostCommonValue string   `json:"most_common_value"`
	UniqueValues    int      `json:"unique_values"`
	SampleValues    []string `json:"sample_values,omitempty"`
}

// DatetimeSummary holds per-column datetime statistics
type DatetimeSummary struct {
	MinDate       string         `json:"min_date"`
	MaxDate       string         `json:"max_date"`
	UniqueDates   int            `json:"unique_dates"`
	MissingValues int            `json:"missing_values"`
	TimeSpanDays  int            `json:"time_span_days"`
	DayOfWeekDist map[string]int `json:"day_of_week_dist,omitempty"`
}

// BasicStats is the basic_stats operation result. A column appears in at most
// one of the four summary maps.
type BasicStats struct {
	NumericSummary     map[string]NumericSummary     `json:"numeric_summary"`
	CategoricalSummary map[string]CategoricalSummary `json:"categorical_summary"`
	TextSummary        map[string]TextSummary        `json:"text_summary"`
	DatetimeSummary    map[string]DatetimeSummary    `json:"datetime_summary"`
	DataTypes          *ColumnTypes                  `json:"data_types,omitempty"`
	Shape              []int                         `json:"shape,omitempty"`
}

// OutlierSample is an IQR outlier summary for one column. Values is a bounded
// sample of the raw outlier values.
type OutlierSample struct {
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
	Values     []float64 `json:"values"`
}

// ColumnOutliers wraps the per-column outlier detail
type ColumnOutliers struct {
	IQROutliers OutlierSample `json:"iqr_outliers"`
}

// OutlierReport maps column name to its outlier detail
type OutlierReport map[string]ColumnOutliers

// Strength labels a correlation. The backend decides the label; the client
// trusts it.
type Strength string

const (
	StrengthWeak       Strength = "Weak"
	StrengthModerate   Strength = "Moderate"
	StrengthStrong     Strength = "Strong"
	StrengthVeryStrong Strength = "Very Strong"
)

// AtLeastModerate reports whether the label meets the rendering threshold
func (s Strength) AtLeastModerate() bool {
	switch s {
	case StrengthModerate, StrengthStrong, StrengthVeryStrong:
		return true
	}
	return false
}

// Correlation is one pairwise correlation entry
type Correlation struct {
	Column1     string   `json:"column1"`
	Column2     string   `json:"column2"`
	Correlation float64  `json:"correlation"`
	Strength    Strength `json:"strength"`
	PValue      *float64 `json:"p_value,omitempty"`
}

// CorrelationReport is the correlations operation result
type CorrelationReport struct {
	StrongCorrelations []Correlation `json:"strong_correlations"`
	HeatmapData        *HeatmapData  `json:"heatmap_data,omitempty"`
}

// HeatmapData carries the full correlation matrix for heatmap rendering
type HeatmapData struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// HistogramBins holds binned values for one column. Labels and Counts have
// the same length.
type HistogramBins struct {
	Labels   []string  `json:"labels"`
	Counts   []int     `json:"counts"`
	BinEdges []float64 `json:"bin_edges,omitempty"`
	Density  []float64 `json:"density,omitempty"`
}

// HistogramData maps column name to its binned distribution
type HistogramData map[string]HistogramBins

// ScatterData is the scatter_plot operation result. Points may carry null
// coordinates; renderers filter those out.
type ScatterData struct {
	XColumn     string                `json:"x_column"`
	YColumn     string                `json:"y_column"`
	Data        []map[string]*float64 `json:"data"`
	Correlation *float64              `json:"correlation,omitempty"`
}

// DataQualityReport is the data_quality operation result
type DataQualityReport struct {
	MissingValues      map[string]int    `json:"missing_values"`
	TotalMissingValues int               `json:"total_missing_values"`
	MissingPercentage  float64           `json:"missing_percentage"`
	Duplicates         int               `json:"duplicates"`
	ColumnTypes        map[string]string `json:"column_types"`
	EmptyColumns       []string          `json:"empty_columns"`
	ConstantColumns    []string          `json:"constant_columns"`
	Cardinality        map[string]int    `json:"cardinality,omitempty"`
}

// Severity classifies an insight card
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight is one AI-produced finding, rendered read-only
type Insight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Visualization is a chart suggestion extracted from the AI narrative
type Visualization struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// InsightsReport is the insights operation result. AIResponse is Markdown.
type InsightsReport struct {
	Insights                 []Insight                 `json:"insights"`
	SummaryStatistics        map[string]NumericSummary `json:"summary_statistics,omitempty"`
	Correlations             []Correlation             `json:"correlations,omitempty"`
	Outliers                 map[string]int            `json:"outliers,omitempty"`
	AIResponse               string                    `json:"ai_response,omitempty"`
	SuggestedVisualizations  []Visualization           `json:"suggested_visualizations,omitempty"`
	FollowUpQuestions        []string                  `json:"follow_up_questions,omitempty"`
	Timestamp                string                    `json:"timestamp,omitempty"`
}

// AnalysisReport is the full report returned with a successful upload
type AnalysisReport struct {
	BasicStatistics *BasicStats        `json:"basic_statistics,omitempty"`
	DataQuality     *DataQualityReport `json:"data_quality,omitempty"`
	Outliers        OutlierReport      `json:"outliers,omitempty"`
	Correlations    *CorrelationReport `json:"correlations,omitempty"`
	Insights        *InsightsReport    `json:"insights,omitempty"`
	HistogramData   HistogramData      `json:"histogram_data,omitempty"`
	ScatterData     *ScatterData       `json:"scatter_data,omitempty"`
}

// DecodeResult unmarshals an operation result payload into out
func DecodeResult(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}
