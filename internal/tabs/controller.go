package tabs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/errors"
	"datalens/internal/render"
	"datalens/internal/session"
	"datalens/ports"
)

// Tab identifies one analysis view
type Tab string

const (
	TabBasicStats   Tab = "basic-stats"
	TabOutliers     Tab = "outliers"
	TabCorrelations Tab = "correlations"
	TabHistogram    Tab = "histogram"
	TabScatter      Tab = "scatter"
	TabDataQuality  Tab = "data-quality"
	TabInsights     Tab = "insights"
)

var allTabs = []Tab{
	TabBasicStats, TabOutliers, TabCorrelations, TabHistogram,
	TabScatter, TabDataQuality, TabInsights,
}

var tabOperations = map[Tab]ports.Operation{
	TabBasicStats:   ports.OpBasicStats,
	TabOutliers:     ports.OpOutliers,
	TabCorrelations: ports.OpCorrelations,
	TabHistogram:    ports.OpHistogram,
	TabScatter:      ports.OpScatterPlot,
	TabDataQuality:  ports.OpDataQuality,
	TabInsights:     ports.OpInsights,
}

// ParseTab validates a tab name
func ParseTab(name string) (Tab, error) {
	t := Tab(name)
	if _, ok := tabOperations[t]; !ok {
		return "", errors.New(errors.CodeInternal, fmt.Sprintf("unknown tab %q", name))
	}
	return t, nil
}

// State is the lifecycle state of one tab
type State string

const (
	StateInactive State = "inactive"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateError    State = "error"
)

// Notification is a transient, dismissible user-facing error notice. It is
// never persisted.
type Notification struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// View is the rendered outcome of a tab activation
type View struct {
	Tab      Tab    `json:"tab"`
	State    State  `json:"state"`
	Fragment string `json:"fragment"`
	// Stale marks a response discarded because a newer request for the same
	// tab was issued while it was in flight.
	Stale bool `json:"stale,omitempty"`
}

type tabState struct {
	state    State
	gen      uint64
	fragment string
}

// Controller maps user-selected views to the analysis operations they need,
// lazily fetching through the transfer port and feeding the render pipeline.
// Generation tokens guard against out-of-order responses: a response is
// applied only when its token is still the latest issued for that tab.
type Controller struct {
	mu       sync.Mutex
	store    *session.Store
	analyzer ports.AnalyzePort
	pipeline *render.Pipeline
	tabs     map[Tab]*tabState

	// active column filter, sent with every analysis request
	filter []string
	// currently selected histogram column; empty means first available
	histogramColumn string

	notifications []Notification
	log           *internal.Logger
}

// NewController creates a controller with every tab inactive
func NewController(store *session.Store, analyzer ports.AnalyzePort, pipeline *render.Pipeline) *Controller {
	tabs := make(map[Tab]*tabState, len(allTabs))
	for _, t := range allTabs {
		tabs[t] = &tabState{state: StateInactive}
	}
	return &Controller{
		store:    store,
		analyzer: analyzer,
		pipeline: pipeline,
		tabs:     tabs,
		log:      internal.DefaultLogger.WithTag("tabs"),
	}
}

// State returns the current state of a tab
func (c *Controller) State(tab Tab) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tabs[tab].state
}

// Activate serves the tab's view, fetching lazily on first activation.
// Re-activating an already loaded tab serves the cached fragment without a
// network call.
func (c *Controller) Activate(ctx context.Context, tab Tab) (*View, error) {
	c.mu.Lock()
	ts, ok := c.tabs[tab]
	if !ok {
		c.mu.Unlock()
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("unknown tab %q", tab))
	}
	if ts.state == StateLoaded {
		view := &View{Tab: tab, State: StateLoaded, Fragment: ts.fragment}
		c.mu.Unlock()
		return view, nil
	}
	c.mu.Unlock()
	return c.load(ctx, tab)
}

// Refresh forces a re-fetch regardless of current state
func (c *Controller) Refresh(ctx context.Context, tab Tab) (*View, error) {
	return c.load(ctx, tab)
}

// load runs one guarded fetch/render cycle for a tab
func (c *Controller) load(ctx context.Context, tab Tab) (*View, error) {
	// Presence check comes first: a missing dataset must not trigger any
	// network call or state transition.
	desc, err := c.store.Require()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	ts := c.tabs[tab]
	prior := ts.state
	if prior == StateLoading {
		// The newer request supersedes the in-flight one; its response will
		// be discarded by the token check below.
		prior = StateInactive
	}
	ts.state = StateLoading
	ts.gen++
	token := ts.gen
	filter := append([]string(nil), c.filter...)
	histColumn := c.histogramColumn
	c.mu.Unlock()

	req := ports.AnalyzeRequest{
		Operation: tabOperations[tab],
		FileID:    desc.FileID,
		Columns:   filter,
	}
	raw, fetchErr := c.analyzer.Analyze(ctx, req)

	// The token check must precede rendering: a stale response must not touch
	// the chart registry, only the winning response draws.
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != ts.gen {
		c.log.Debug("discarding stale response for tab %s (token %d, latest %d)", tab, token, ts.gen)
		return &View{Tab: tab, State: ts.state, Stale: true}, nil
	}
	var fragment string
	if fetchErr == nil {
		fragment, fetchErr = c.renderPayload(tab, raw, desc, histColumn)
	}
	if fetchErr != nil {
		// The tab reverts to its prior usable state; the failure surfaces only
		// as a transient notification.
		ts.state = prior
		if prior != StateLoaded {
			ts.state = StateInactive
		}
		c.notifyLocked(fetchErr)
		return &View{Tab: tab, State: ts.state, Fragment: ts.fragment}, fetchErr
	}
	ts.state = StateLoaded
	ts.fragment = fragment
	return &View{Tab: tab, State: StateLoaded, Fragment: fragment}, nil
}

func (c *Controller) renderPayload(tab Tab, raw json.RawMessage, desc *dataset.Descriptor, histColumn string) (string, error) {
	switch tab {
	case TabBasicStats:
		var stats dataset.BasicStats
		if err := json.Unmarshal(raw, &stats); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Statistics(&stats, desc), nil
	case TabOutliers:
		var rep dataset.OutlierReport
		if err := json.Unmarshal(raw, &rep); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Outliers(rep), nil
	case TabCorrelations:
		var rep dataset.CorrelationReport
		if err := json.Unmarshal(raw, &rep); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Correlations(&rep), nil
	case TabHistogram:
		var data dataset.HistogramData
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Histogram(data, histColumn)
	case TabScatter:
		var sc dataset.ScatterData
		if err := json.Unmarshal(raw, &sc); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Scatter(&sc)
	case TabDataQuality:
		var rep dataset.DataQualityReport
		if err := json.Unmarshal(raw, &rep); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.DataQuality(&rep, desc.RowCount), nil
	case TabInsights:
		var rep dataset.InsightsReport
		if err := json.Unmarshal(raw, &rep); err != nil {
			return "", errors.Decode(err)
		}
		return c.pipeline.Insights(&rep), nil
	}
	return "", errors.New(errors.CodeInternal, fmt.Sprintf("no renderer for tab %q", tab))
}

// SwitchHistogramColumn re-fetches the histogram for one column and renders
// it into the same chart slot. Rapid switches are serialized by the histogram
// tab's generation token: only the latest switch is applied.
func (c *Controller) SwitchHistogramColumn(ctx context.Context, column string) (*View, error) {
	desc, err := c.store.Require()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	ts := c.tabs[TabHistogram]
	prior := ts.state
	if prior == StateLoading {
		prior = StateInactive
	}
	ts.state = StateLoading
	ts.gen++
	token := ts.gen
	c.histogramColumn = column
	filter := append([]string(nil), c.filter...)
	c.mu.Unlock()

	req := ports.AnalyzeRequest{
		Operation: ports.OpHistogram,
		FileID:    desc.FileID,
		Columns:   filter,
		Column:    column,
	}
	raw, fetchErr := c.analyzer.Analyze(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != ts.gen {
		c.log.Debug("discarding stale histogram switch to %q", column)
		return &View{Tab: TabHistogram, State: ts.state, Stale: true}, nil
	}
	var fragment string
	if fetchErr == nil {
		fragment, fetchErr = c.renderPayload(TabHistogram, raw, desc, column)
	}
	if fetchErr != nil {
		ts.state = prior
		if prior != StateLoaded {
			ts.state = StateInactive
		}
		c.notifyLocked(fetchErr)
		return &View{Tab: TabHistogram, State: ts.state, Fragment: ts.fragment}, fetchErr
	}
	ts.state = StateLoaded
	ts.fragment = fragment
	return &View{Tab: TabHistogram, State: StateLoaded, Fragment: fragment}, nil
}

// SetFilter records the active column subset sent with every analysis
// request. Loaded tabs are invalidated so their next activation re-fetches
// under the new filter.
func (c *Controller) SetFilter(columns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = append([]string(nil), columns...)
	for _, ts := range c.tabs {
		if ts.state == StateLoaded {
			ts.state = StateInactive
			ts.fragment = ""
		}
		ts.gen++
	}
}

// Reset returns every tab to inactive and invalidates in-flight requests.
// Called when a new upload begins.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = nil
	c.histogramColumn = ""
	for _, ts := range c.tabs {
		ts.state = StateInactive
		ts.fragment = ""
		ts.gen++
	}
}

// notifyLocked records a transient notification. Caller holds the lock.
func (c *Controller) notifyLocked(err error) {
	n := Notification{
		ID:        uuid.NewString(),
		Code:      errors.GetCode(err),
		Message:   err.Error(),
		CreatedAt: time.Now(),
	}
	c.notifications = append(c.notifications, n)
	c.log.Warn("analysis failed (%s): %v", n.Code, err)
}

// Notifications returns a snapshot of pending notifications
func (c *Controller) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notifications...)
}

// Dismiss removes one notification by id
func (c *Controller) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.notifications {
		if n.ID == id {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			return
		}
	}
}
