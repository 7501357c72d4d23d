// Package testkit provides synthetic datasets, a local analysis engine and an
// embeddable fake analysis backend. It backs tests and the standalone mode
// used when no external backend is configured.
package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// GeneratorConfig configures the synthetic sales dataset generator
type GeneratorConfig struct {
	RowCount    int       `json:"row_count"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	OutlierRate float64   `json:"outlier_rate"`
	Seed        int64     `json:"seed"`
}

// DefaultGeneratorConfig returns sensible defaults for synthetic sales data
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		RowCount:    250,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		OutlierRate: 0.04,
		Seed:        42,
	}
}

// Row is one synthetic sales record
type Row struct {
	OrderID   string
	Price     float64
	Quantity  float64
	Total     float64
	Rating    float64
	Category  string
	Region    string
	OrderDate time.Time
	Notes     string
}

// Dataset is a generated tabular dataset with typed column access
type Dataset struct {
	Rows []Row
}

// Columns lists the dataset's column names in file order
func (d *Dataset) Columns() []string {
	return []string{"order_id", "price", "quantity", "total", "rating", "category", "region", "order_date", "notes"}
}

// NumericColumns maps numeric column names to their values
func (d *Dataset) NumericColumns() map[string][]float64 {
	out := map[string][]float64{
		"price":    make([]float64, 0, len(d.Rows)),
		"quantity": make([]float64, 0, len(d.Rows)),
		"total":    make([]float64, 0, len(d.Rows)),
		"rating":   make([]float64, 0, len(d.Rows)),
	}
	for _, r := range d.Rows {
		out["price"] = append(out["price"], r.Price)
		out["quantity"] = append(out["quantity"], r.Quantity)
		out["total"] = append(out["total"], r.Total)
		out["rating"] = append(out["rating"], r.Rating)
	}
	return out
}

// CategoricalColumns maps categorical column names to their values
func (d *Dataset) CategoricalColumns() map[string][]string {
	out := map[string][]string{
		"category": make([]string, 0, len(d.Rows)),
		"region":   make([]string, 0, len(d.Rows)),
	}
	for _, r := range d.Rows {
		out["category"] = append(out["category"], r.Category)
		out["region"] = append(out["region"], r.Region)
	}
	return out
}

// Generator produces deterministic synthetic sales data
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a seeded generator
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{config: config, rng: rand.New(rand.NewSource(config.Seed))}
}

var (
	categories = []string{"Electronics", "Clothing", "Home", "Books", "Toys"}
	regions    = []string{"North", "South", "East", "West"}
	noteStems  = []string{
		"repeat customer", "gift order", "expedited shipping requested",
		"discount code applied", "first purchase", "",
	}
)

// Generate builds the dataset. Totals track price*quantity so numeric columns
// carry a real correlation; a configurable fraction of prices are inflated to
// plant IQR outliers.
func (g *Generator) Generate() *Dataset {
	span := g.config.EndDate.Sub(g.config.StartDate)
	rows := make([]Row, 0, g.config.RowCount)
	for i := 0; i < g.config.RowCount; i++ {
		price := 20 + g.rng.Float64()*80
		if g.rng.Float64() < g.config.OutlierRate {
			price *= 8 + g.rng.Float64()*4
		}
		quantity := float64(1 + g.rng.Intn(9))
		row := Row{
			OrderID:   fmt.Sprintf("ord_%05d", i+1),
			Price:     round2(price),
			Quantity:  quantity,
			Total:     round2(price * quantity),
			Rating:    round2(1 + g.rng.Float64()*4),
			Category:  categories[g.rng.Intn(len(categories))],
			Region:    regions[g.rng.Intn(len(regions))],
			OrderDate: g.config.StartDate.Add(time.Duration(g.rng.Int63n(int64(span)))),
			Notes:     noteStems[g.rng.Intn(len(noteStems))],
		}
		rows = append(rows, row)
	}
	return &Dataset{Rows: rows}
}

// CSV serializes the dataset as an uploadable CSV file
func (d *Dataset) CSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(d.Columns())
	for _, r := range d.Rows {
		_ = w.Write([]string{
			r.OrderID,
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.FormatFloat(r.Quantity, 'f', 0, 64),
			strconv.FormatFloat(r.Total, 'f', 2, 64),
			strconv.FormatFloat(r.Rating, 'f', 2, 64),
			r.Category,
			r.Region,
			r.OrderDate.Format("2006-01-02"),
			r.Notes,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
