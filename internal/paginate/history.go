package paginate

import (
	"maps"
	"sync/atomic"
)

// History records, per forward step, the query text each pruned branch had
// when that step was built. A step that pruned nothing is recorded as an
// empty entry so that pops stay aligned with pushes.
//
// A History belongs to one traversal. It is not safe to share between
// traversals.
type History struct {
	steps []map[string]string
	busy  atomic.Bool
}

// NewHistory returns an empty History.
func NewHistory() *History { return &History{} }

// Push records one forward step. saved maps branch keys to the query text
// before the branch was pruned; nil records a step that pruned nothing.
func (h *History) Push(saved map[string]string) {
	h.steps = append(h.steps, maps.Clone(saved))
}

// Pop removes and returns the most recent step. ok is false when the History
// is empty.
func (h *History) Pop() (saved map[string]string, ok bool) {
	if len(h.steps) == 0 {
		return nil, false
	}
	last := h.steps[len(h.steps)-1]
	h.steps = h.steps[:len(h.steps)-1]
	return last, true
}

// Len returns the number of recorded steps.
func (h *History) Len() int { return len(h.steps) }

// at returns the step recorded at depth i (0 is the oldest).
func (h *History) at(i int) map[string]string {
	if i < 0 || i >= len(h.steps) {
		return nil
	}
	return h.steps[i]
}

// truncate drops every step recorded at depth n or above.
func (h *History) truncate(n int) {
	if n < len(h.steps) {
		h.steps = h.steps[:max(n, 0)]
	}
}

func (h *History) acquire() error {
	if !h.busy.CompareAndSwap(false, true) {
		return ErrTraversalBusy
	}
	return nil
}

func (h *History) release() { h.busy.Store(false) }
