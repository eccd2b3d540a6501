package search

import "sync/atomic"

// Handle is the shared mount point for the currently published index.
// Readers pick up a rebuilt index atomically, without locking the search
// path.
type Handle struct {
	current atomic.Pointer[FlatIndex]
}

// NewHandle returns a handle, optionally pre-populated with an index.
func NewHandle(idx *FlatIndex) *Handle {
	h := &Handle{}
	if idx != nil {
		h.current.Store(idx)
	}
	return h
}

// Index returns the published index, or nil when none has been loaded.
func (h *Handle) Index() *FlatIndex {
	return h.current.Load()
}

// Publish swaps in a freshly built or loaded index. In-flight searches
// keep using the instance they already hold.
func (h *Handle) Publish(idx *FlatIndex) {
	h.current.Store(idx)
}

// Loaded reports whether a non-empty index is published.
func (h *Handle) Loaded() bool {
	idx := h.current.Load()
	return idx != nil && idx.Count() > 0
}
