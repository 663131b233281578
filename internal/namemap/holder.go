package namemap

import "sync/atomic"

// Holder publishes the current registry to concurrent readers.
// Writers replace the whole registry; readers never block.
type Holder struct {
	current atomic.Pointer[NameRegistry]
}

// NewHolder returns a Holder serving r.
func NewHolder(r *NameRegistry) *Holder {
	h := &Holder{}
	h.Store(r)
	return h
}

// Load returns the current registry. It never returns nil.
func (h *Holder) Load() *NameRegistry {
	if r := h.current.Load(); r != nil {
		return r
	}
	return emptyRegistry
}

// Store swaps in r and returns the registry it replaced.
func (h *Holder) Store(r *NameRegistry) *NameRegistry {
	if r == nil {
		r = emptyRegistry
	}
	prev := h.current.Swap(r)
	if prev == nil {
		return emptyRegistry
	}
	return prev
}

var emptyRegistry = NewNameRegistry("", nil)
