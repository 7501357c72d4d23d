package charts

import (
	"sync"

	"datalens/internal"
	"datalens/internal/errors"
)

// Well-known chart slots
const (
	SlotDistribution = "distribution"
	SlotHistogram    = "histogram"
	SlotScatter      = "scatter"
)

// Registry maps a logical chart slot name to its live chart instance. It
// enforces at-most-one live instance per slot: a render releases the prior
// instance for that slot before the builder runs.
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]string
	live     map[string]Handle
	log      *internal.Logger
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		surfaces: make(map[string]string),
		live:     make(map[string]Handle),
		log:      internal.DefaultLogger.WithTag("charts"),
	}
}

// RegisterSurface binds a slot to its drawing surface (canvas element id).
// Rendering into an unregistered slot fails with SurfaceNotFound.
func (r *Registry) RegisterSurface(slot, canvasID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaces[slot] = canvasID
}

// Render replaces the live instance for slot with the handle produced by
// build. The prior instance is released strictly before build runs; when
// build fails the slot is left empty, never half-replaced.
func (r *Registry) Render(slot string, build func() (Handle, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surfaces[slot]; !ok {
		return errors.SurfaceNotFound(slot)
	}

	if prior, ok := r.live[slot]; ok {
		prior.Release()
		delete(r.live, slot)
	}

	handle, err := build()
	if err != nil {
		return errors.Wrapf(err, "build chart for slot %q", slot)
	}
	r.live[slot] = handle
	r.log.Debug("rendered slot %q on surface %q", slot, r.surfaces[slot])
	return nil
}

// Live returns the live handle for slot, if any
func (r *Registry) Live(slot string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[slot]
	return h, ok
}

// Spec returns the live chart spec for slot
func (r *Registry) Spec(slot string) (Spec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[slot]
	if !ok {
		return Spec{}, false
	}
	return h.Spec(), true
}

// Surface returns the canvas id registered for slot
func (r *Registry) Surface(slot string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.surfaces[slot]
	return id, ok
}

// ReleaseAll releases every live instance. Called when a new upload begins so
// stale charts never outlive their dataset.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slot, h := range r.live {
		h.Release()
		delete(r.live, slot)
	}
}
