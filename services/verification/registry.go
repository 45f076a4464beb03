package verification

import "sync"

// Registry tracks the live selector per draft so HTTP handlers, the OAuth
// callback and the handoff confirmation all reach the same instance.
type Registry struct {
	mu        sync.Mutex
	selectors map[string]*Selector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{selectors: make(map[string]*Selector)}
}

// Get returns the selector for a draft, or nil.
func (r *Registry) Get(draftID string) *Selector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectors[draftID]
}

// Put registers the selector for its draft, replacing any previous one.
func (r *Registry) Put(sel *Selector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors[sel.Draft().DraftID] = sel
}

// Remove cancels and forgets the selector for a draft.
func (r *Registry) Remove(draftID string) {
	r.mu.Lock()
	sel := r.selectors[draftID]
	delete(r.selectors, draftID)
	r.mu.Unlock()
	if sel != nil {
		sel.Cancel()
	}
}
