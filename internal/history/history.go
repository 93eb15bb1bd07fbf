// Package history implements snapshot-diff undo/redo on top of the
// primitive registry. It observes registry changes, snapshots the
// pre-change state of every touched primitive, and turns each flush
// into a pair of replayable record sets.
package history

import (
	"fmt"
	"sort"

	"github.com/geometer/geometer/backend-go/internal/prim"
	"github.com/geometer/geometer/backend-go/internal/record"
)

// entry is one undo step: forward replays the change, backward reverts
// it.
type entry struct {
	forward  []record.Record
	backward []record.Record
}

// History accumulates registry changes between flushes and keeps the
// undo/redo stack. Install it with New before the first edit you want
// tracked; changes made while no history is attached are invisible to
// it.
//
// History is not safe for concurrent use, matching the registry it
// observes.
type History struct {
	reg *prim.Registry

	// Pre-change snapshots of primitives touched since the last flush,
	// keyed by id. Levels are captured alongside because a disposed
	// primitive can no longer report its own.
	before      map[int]record.Record
	beforeLevel map[int]int
	// Primitives created since the last flush. A creation followed by a
	// disposal in the same window cancels out.
	created map[int]prim.Primitive

	entries []entry
	latest  int // index of the last applied entry, -1 when none

	replaying bool
}

// New attaches a fresh history to the registry as its observer.
func New(reg *prim.Registry) *History {
	h := &History{
		reg:         reg,
		before:      make(map[int]record.Record),
		beforeLevel: make(map[int]int),
		created:     make(map[int]prim.Primitive),
		latest:      -1,
	}
	reg.SetObserver(h)
	return h
}

// PrimitiveCreated implements prim.Observer.
func (h *History) PrimitiveCreated(p prim.Primitive) {
	if h.replaying {
		return
	}
	h.created[p.ID()] = p
}

// PrimitiveChanged implements prim.Observer. It fires before the field
// mutation, so the snapshot captures the pre-change state. Only the
// first change of a primitive per window snapshots; later changes are
// already covered.
func (h *History) PrimitiveChanged(p prim.Primitive) {
	if h.replaying {
		return
	}
	h.snapshot(p)
}

// PrimitiveDisposed implements prim.Observer.
func (h *History) PrimitiveDisposed(p prim.Primitive) {
	if h.replaying {
		return
	}
	if _, ok := h.created[p.ID()]; ok {
		delete(h.created, p.ID())
		return
	}
	h.snapshot(p)
}

func (h *History) snapshot(p prim.Primitive) {
	id := p.ID()
	if _, ok := h.created[id]; ok {
		return
	}
	if _, ok := h.before[id]; ok {
		return
	}
	h.before[id] = record.Snapshot(p)
	h.beforeLevel[id] = p.Level()
}

// Flush closes the current change window. If anything effectively
// changed it appends a new undo entry, drops any redo tail, and reports
// true. A window whose changes cancel out records nothing.
func (h *History) Flush() bool {
	if len(h.before) == 0 && len(h.created) == 0 {
		return false
	}

	beforeRecs, afterRecs := h.collectWindow()

	h.before = make(map[int]record.Record)
	h.beforeLevel = make(map[int]int)
	h.created = make(map[int]prim.Primitive)

	forward, backward := record.MutualDiff(beforeRecs, afterRecs)
	if len(forward) == 0 && len(backward) == 0 {
		return false
	}

	h.entries = append(h.entries[:h.latest+1], entry{forward: forward, backward: backward})
	h.latest++
	return true
}

// collectWindow builds the sorted before and after snapshots of the
// open window without consuming it.
func (h *History) collectWindow() (beforeRecs, afterRecs []record.Record) {
	beforeRecs = make([]record.Record, 0, len(h.before))
	for _, rec := range h.before {
		beforeRecs = append(beforeRecs, rec)
	}
	sort.Slice(beforeRecs, func(i, j int) bool {
		return h.recLess(beforeRecs[i], beforeRecs[j])
	})

	touched := make(map[int]bool, len(h.before)+len(h.created))
	for id := range h.before {
		touched[id] = true
	}
	for id := range h.created {
		touched[id] = true
	}
	var afterPrims []prim.Primitive
	for id := range touched {
		if p, ok := h.reg.Get(id); ok {
			afterPrims = append(afterPrims, p)
		}
	}
	sort.Slice(afterPrims, func(i, j int) bool {
		if afterPrims[i].Level() != afterPrims[j].Level() {
			return afterPrims[i].Level() < afterPrims[j].Level()
		}
		return afterPrims[i].ID() < afterPrims[j].ID()
	})
	afterRecs = make([]record.Record, len(afterPrims))
	for i, p := range afterPrims {
		afterRecs[i] = record.Snapshot(p)
	}
	return beforeRecs, afterRecs
}

// pending reports whether flushing the open window would record an
// entry. Touched primitives whose changes cancelled out (a move back
// to the starting position, a creation already disposed) count as no
// pending change.
func (h *History) pending() bool {
	if len(h.before) == 0 && len(h.created) == 0 {
		return false
	}
	forward, backward := record.MutualDiff(h.collectWindow())
	return len(forward) > 0 || len(backward) > 0
}

func (h *History) recLess(a, b record.Record) bool {
	ida := mustID(a)
	idb := mustID(b)
	if h.beforeLevel[ida] != h.beforeLevel[idb] {
		return h.beforeLevel[ida] < h.beforeLevel[idb]
	}
	return ida < idb
}

func mustID(rec record.Record) int {
	id, err := rec.ID()
	if err != nil {
		panic(fmt.Sprintf("history: %v", err))
	}
	return id
}

// CanUndo reports whether TryUndo would step back: either an entry is
// applied or the open window holds changes that would flush into one.
func (h *History) CanUndo() bool {
	return h.latest >= 0 || h.pending()
}

// CanRedo reports whether TryRedo would step forward. A window with
// effective pending changes makes it false, as flushing them drops the
// redo tail; a window that would flush to nothing does not.
func (h *History) CanRedo() bool {
	if h.pending() {
		return false
	}
	return h.latest+1 < len(h.entries)
}

// TryUndo flushes pending changes, then reverts the latest entry.
// It reports false when there is nothing to undo. Must not be called
// from inside an edit transaction.
func (h *History) TryUndo() bool {
	h.Flush()
	if h.latest < 0 {
		return false
	}
	h.replay(h.entries[h.latest].backward)
	h.latest--
	return true
}

// TryRedo flushes pending changes, then reapplies the entry after the
// latest one. Flushing a non-empty window drops the redo tail, so a
// dirty window makes TryRedo report false.
func (h *History) TryRedo() bool {
	h.Flush()
	if h.latest+1 >= len(h.entries) {
		return false
	}
	h.replay(h.entries[h.latest+1].forward)
	h.latest++
	return true
}

// replay applies an entry's record set with observation suspended.
// Entries are built from states the registry actually held, so a replay
// failure means the registry diverged from the history; that is an
// internal inconsistency, not an input fault.
func (h *History) replay(recs []record.Record) {
	h.replaying = true
	defer func() { h.replaying = false }()
	if err := record.Apply(h.reg, recs); err != nil {
		panic(fmt.Sprintf("history: replay diverged: %v", err))
	}
}

// Reset discards all entries and pending changes. The registry contents
// are untouched; the current state becomes the new baseline.
func (h *History) Reset() {
	h.before = make(map[int]record.Record)
	h.beforeLevel = make(map[int]int)
	h.created = make(map[int]prim.Primitive)
	h.entries = nil
	h.latest = -1
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }
