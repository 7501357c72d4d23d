package charts

// Point is one x/y pair for scatter datasets
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is one series within a chart spec
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data,omitempty"`
	Points          []Point   `json:"points,omitempty"`
	BackgroundColor []string  `json:"background_color,omitempty"`
	BorderColor     string    `json:"border_color,omitempty"`
}

// Spec is a renderer-agnostic chart description delivered to the browser as
// JSON and drawn there. Type is one of "bar", "doughnut", "scatter".
type Spec struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title,omitempty"`
	Labels   []string               `json:"labels,omitempty"`
	Datasets []Dataset              `json:"datasets"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// Handle is an owned live chart instance. Release frees the underlying
// drawing resources; only the registry calls it.
type Handle interface {
	Spec() Spec
	Release()
}

// NewHandle wraps a spec in a basic handle
func NewHandle(spec Spec) Handle {
	return &specHandle{spec: spec}
}

type specHandle struct {
	spec     Spec
	released bool
}

func (h *specHandle) Spec() Spec {
	return h.spec
}

// Release is idempotent: a second call is a no-op, never a double-free.
func (h *specHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.spec = Spec{}
}
