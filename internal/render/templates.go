package render

import "html/template"

// Fragment templates are parsed once at package init. Each renderer feeds a
// fully prepared view model, so the templates stay free of logic beyond
// iteration and presence checks.
const fragmentTemplates = `
{{define "statistics"}}
<div class="stats-overview" id="stats-overview">
  <div class="stat-card"><span class="stat-value">{{.RowCount}}</span><span class="stat-label">Rows</span></div>
  <div class="stat-card"><span class="stat-value">{{.ColumnCount}}</span><span class="stat-label">Columns</span></div>
  <div class="stat-card"><span class="stat-value">{{.NumericCount}}</span><span class="stat-label">Numeric</span></div>
  <div class="stat-card"><span class="stat-value">{{.CategoricalCount}}</span><span class="stat-label">Categorical</span></div>
  <div class="stat-card"><span class="stat-value">{{.TextCount}}</span><span class="stat-label">Text</span></div>
  <div class="stat-card"><span class="stat-value">{{.DatetimeCount}}</span><span class="stat-label">Datetime</span></div>
</div>
{{if .NumericRows}}
<table class="summary-table" id="numeric-summary">
  <tr><th>Column</th><th>Mean</th><th>Median</th><th>Std</th><th>Min</th><th>Max</th><th>Q25</th><th>Q75</th></tr>
  {{range .NumericRows}}<tr><td>{{.Column}}</td><td>{{.Mean}}</td><td>{{.Median}}</td><td>{{.Std}}</td><td>{{.Min}}</td><td>{{.Max}}</td><td>{{.Q25}}</td><td>{{.Q75}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .CategoricalRows}}
<table class="summary-table" id="categorical-summary">
  <tr><th>Column</th><th>Unique</th><th>Most Frequent</th><th>Top Values</th></tr>
  {{range .CategoricalRows}}<tr><td>{{.Column}}</td><td>{{.Unique}}</td><td>{{.MostFrequent}}</td><td>{{.TopValues}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .TextRows}}
<table class="summary-table" id="text-summary">
  <tr><th>Column</th><th>Avg Length</th><th>Most Common</th></tr>
  {{range .TextRows}}<tr><td>{{.Column}}</td><td>{{.AvgLength}}</td><td>{{.MostCommon}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .DatetimeRows}}
<table class="summary-table" id="datetime-summary">
  <tr><th>Column</th><th>From</th><th>To</th><th>Span (days)</th></tr>
  {{range .DatetimeRows}}<tr><td>{{.Column}}</td><td>{{.MinDate}}</td><td>{{.MaxDate}}</td><td>{{.SpanDays}}</td></tr>
  {{end}}
</table>
{{end}}
{{end}}

{{define "insights"}}
{{if .Empty}}
<div class="placeholder" id="insights-empty">No insights available for this dataset.</div>
{{else}}
<div class="insight-cards" id="insight-cards">
  {{range .Cards}}
  <div class="insight-card severity-{{.Severity}}">
    <h4>{{.Title}}</h4>
    <p>{{.Description}}</p>
  </div>
  {{end}}
</div>
{{if .Narrative}}<div class="insight-narrative">{{.Narrative}}</div>{{end}}
{{if .Visualizations}}
<ul class="suggested-visualizations">
  {{range .Visualizations}}<li><strong>{{.Type}}</strong>: {{.Reason}}</li>{{end}}
</ul>
{{end}}
{{if .FollowUps}}
<ul class="follow-up-questions">
  {{range .FollowUps}}<li>{{.}}</li>{{end}}
</ul>
{{end}}
{{end}}
{{end}}

{{define "outliers"}}
{{if .Rows}}
<table class="summary-table" id="outlier-table">
  <tr><th>Column</th><th>Outliers</th><th>Sample Values</th></tr>
  {{range .Rows}}<tr><td>{{.Column}}</td><td>{{.Summary}}</td><td>{{.Sample}}</td></tr>
  {{end}}
</table>
{{else}}
<div class="placeholder" id="outliers-empty">No outliers detected.</div>
{{end}}
{{end}}

{{define "correlations"}}
{{if .Rows}}
<table class="summary-table" id="correlation-table">
  <tr><th>Column A</th><th>Column B</th><th>r</th><th>Strength</th><th>p-value</th></tr>
  {{range .Rows}}<tr><td>{{.Column1}}</td><td>{{.Column2}}</td><td>{{.R}}</td><td>{{.Strength}}</td><td>{{.PValue}}</td></tr>
  {{end}}
</table>
{{else}}
<div class="placeholder" id="correlations-empty">No strong correlations found.</div>
{{end}}
{{end}}

{{define "quality"}}
<div class="quality-report" id="quality-report">
  <p>Missing values: {{.TotalMissing}} ({{.MissingPct}}%)</p>
  <p>Duplicate rows: {{.Duplicates}}</p>
  {{if .EmptyColumns}}<p>Empty columns: {{.EmptyColumns}}</p>{{end}}
  {{if .ConstantColumns}}<p>Constant columns: {{.ConstantColumns}}</p>{{end}}
  {{if .CardinalityRows}}
  <table class="summary-table">
    <tr><th>Column</th><th>Missing</th><th>Cardinality</th></tr>
    {{range .CardinalityRows}}<tr><td>{{.Column}}</td><td>{{.Missing}}</td><td>{{.Cardinality}}</td></tr>
    {{end}}
  </table>
  {{end}}
</div>
{{end}}

{{define "histogram_switcher"}}
<div class="histogram-controls" id="histogram-controls">
  <select id="histogram-column" name="column">
    {{$current := .Current}}
    {{range .Columns}}<option value="{{.}}"{{if eq . $current}} selected{{end}}>{{.}}</option>{{end}}
  </select>
</div>
{{end}}

{{define "scatter_caption"}}
<div class="scatter-caption" id="scatter-caption">{{.XColumn}} vs {{.YColumn}}{{if .Correlation}} (r = {{.Correlation}}){{end}}</div>
{{end}}

{{define "placeholder"}}
<div class="placeholder">{{.}}</div>
{{end}}
`

var fragments = template.Must(template.New("fragments").Parse(fragmentTemplates))
