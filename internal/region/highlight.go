package region

import "slices"

// Sink receives highlight commands for the rendering layer.
type Sink interface {
	Highlight(ids []string)
	ClearHighlight()
}

// Highlighter tracks which regions one drawing surface emphasises. It is
// purely cosmetic and never influences lookups. Repeating the current state
// emits nothing.
type Highlighter struct {
	index  *Index
	sink   Sink
	active []string
}

// NewHighlighter binds highlight state to an index and a sink. Either may be
// nil: without an index every id is accepted, without a sink nothing is sent.
func NewHighlighter(ix *Index, sink Sink) *Highlighter {
	return &Highlighter{index: ix, sink: sink}
}

// Highlight emphasises exactly one region.
func (h *Highlighter) Highlight(id string) bool {
	return h.HighlightMany([]string{id})
}

// HighlightMany replaces the highlighted set. Unknown and empty ids are
// dropped. An empty input clears; an input made only of unknown ids leaves
// the current emphasis alone. Returns whether anything changed.
func (h *Highlighter) HighlightMany(ids []string) bool {
	if len(ids) == 0 {
		return h.ClearHighlight()
	}
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if h.index != nil && !h.index.Has(id) {
			continue
		}
		next = append(next, id)
	}
	slices.Sort(next)
	next = slices.Compact(next)
	if len(next) == 0 {
		return false
	}
	if slices.Equal(next, h.active) {
		return false
	}
	h.active = next
	if h.sink != nil {
		h.sink.Highlight(slices.Clone(next))
	}
	return true
}

// ClearHighlight removes all emphasis. Clearing nothing is a no-op.
func (h *Highlighter) ClearHighlight() bool {
	if len(h.active) == 0 {
		return false
	}
	h.active = nil
	if h.sink != nil {
		h.sink.ClearHighlight()
	}
	return true
}

// Highlighted returns the emphasised ids, sorted.
func (h *Highlighter) Highlighted() []string { return slices.Clone(h.active) }

// Command is one queued rendering instruction. An empty IDs list with Op
// "clear" removes all emphasis.
type Command struct {
	Op  string   `json:"op"`
	IDs []string `json:"ids,omitempty"`
}

// Recorder is a Sink that queues commands until drained, so a request
// handler can hand them to the UI with its response.
type Recorder struct {
	cmds []Command
}

func (r *Recorder) Highlight(ids []string) {
	r.cmds = append(r.cmds, Command{Op: "highlight", IDs: ids})
}
func (r *Recorder) ClearHighlight() { r.cmds = append(r.cmds, Command{Op: "clear"}) }

// Drain returns and forgets the queued commands.
func (r *Recorder) Drain() []Command {
	out := r.cmds
	r.cmds = nil
	return out
}
