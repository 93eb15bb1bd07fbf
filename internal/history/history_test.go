package history

import (
	"testing"

	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/prim"
)

func TestUndoRedoMove(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	var p *prim.FreePoint
	reg.Edit(func() { p = reg.CreatePoint(geom.V(1, 1)) })
	if !h.Flush() {
		t.Fatal("creation window should record an entry")
	}

	reg.Edit(func() { p.MoveTo(geom.V(2, 3)) })
	if !h.Flush() {
		t.Fatal("move window should record an entry")
	}

	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	if got := p.Position(); got != geom.V(1, 1) {
		t.Fatalf("position after undo = %v, want (1, 1)", got)
	}

	if !h.TryRedo() {
		t.Fatal("redo failed")
	}
	if got := p.Position(); got != geom.V(2, 3) {
		t.Fatalf("position after redo = %v, want (2, 3)", got)
	}
}

func TestUndoCreation(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		reg.CreateLine(p0, p1)
	})
	h.Flush()

	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry holds %d primitives after undo, want 0", reg.Len())
	}

	if !h.TryRedo() {
		t.Fatal("redo failed")
	}
	if reg.Len() != 3 {
		t.Fatalf("registry holds %d primitives after redo, want 3", reg.Len())
	}
	// Recreation reuses the recorded ids.
	for id := 0; id < 3; id++ {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("primitive %d not restored", id)
		}
	}
}

func TestUndoDisposalRestoresIntersection(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	var ip *prim.IntersectionPoint
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)
		ip, _ = reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)
	})
	h.Flush()
	wantHints := ip.Hints()

	reg.Edit(func() { reg.Dispose(ip) })
	h.Flush()

	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	restored, ok := reg.Get(ip.ID())
	if !ok {
		t.Fatal("intersection point not restored")
	}
	rip := restored.(*prim.IntersectionPoint)
	if got := rip.Position(); got != geom.V(4, 0) {
		t.Errorf("restored position = %v, want (4, 0)", got)
	}
	if got := rip.Hints(); len(got) != len(wantHints) || got[0] != wantHints[0] {
		t.Errorf("restored hints = %v, want %v", got, wantHints)
	}
}

func TestRedoTailDropsOnNewChange(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	var p *prim.FreePoint
	reg.Edit(func() { p = reg.CreatePoint(geom.V(0, 0)) })
	h.Flush()
	reg.Edit(func() { p.MoveTo(geom.V(1, 0)) })
	h.Flush()

	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	if !h.CanRedo() {
		t.Fatal("redo should be available after undo")
	}

	// A fresh change while undone truncates the redo tail.
	reg.Edit(func() { p.MoveTo(geom.V(0, 5)) })
	if h.CanRedo() {
		t.Fatal("pending changes must disable redo")
	}
	if h.TryRedo() {
		t.Fatal("redo must fail after a new change")
	}
	if got := p.Position(); got != geom.V(0, 5) {
		t.Fatalf("position = %v, want (0, 5)", got)
	}

	// Undo now reverts the new change, not the dropped tail.
	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	if got := p.Position(); got != geom.V(0, 0) {
		t.Fatalf("position after undo = %v, want (0, 0)", got)
	}
}

func TestEmptyWindowRecordsNothing(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	reg.Edit(func() {})
	if h.Flush() {
		t.Fatal("empty window must not record")
	}
	if h.CanUndo() {
		t.Fatal("nothing to undo")
	}
	if h.TryUndo() {
		t.Fatal("undo must fail on empty history")
	}
}

func TestCancelledWindowRecordsNothing(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	// Create and dispose within one window; the changes cancel out.
	reg.Edit(func() {
		p := reg.CreatePoint(geom.V(1, 1))
		reg.Dispose(p)
	})
	if h.Flush() {
		t.Fatal("cancelled window must not record")
	}
	if h.Len() != 0 {
		t.Fatalf("entries = %d, want 0", h.Len())
	}
}

func TestCanUndoIgnoresIneffectiveWindow(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	// A creation disposed in the same window flushes to nothing, so it
	// must not offer an undo step.
	reg.Edit(func() {
		p := reg.CreatePoint(geom.V(1, 1))
		reg.Dispose(p)
	})
	if h.CanUndo() {
		t.Fatal("cancelled window must not report undo")
	}
	if h.TryUndo() {
		t.Fatal("nothing to undo")
	}

	// Moving a point back to its starting position is equally
	// ineffective and must not hide the redo tail either.
	var p *prim.FreePoint
	reg.Edit(func() { p = reg.CreatePoint(geom.V(0, 0)) })
	h.Flush()
	reg.Edit(func() { p.MoveTo(geom.V(5, 5)) })
	h.Flush()
	if !h.TryUndo() {
		t.Fatal("undo failed")
	}

	reg.Edit(func() {
		p.MoveTo(geom.V(9, 9))
		p.MoveTo(geom.V(0, 0))
	})
	if !h.CanRedo() {
		t.Fatal("window that flushes to nothing must not block redo")
	}
	if !h.TryRedo() {
		t.Fatal("redo failed")
	}
	if got := p.Position(); got != geom.V(5, 5) {
		t.Fatalf("position after redo = %v, want (5, 5)", got)
	}
}

func TestUndoMoveRipplesThroughConstraints(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	var p1 *prim.FreePoint
	var ip *prim.IntersectionPoint
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 = reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)
		ip, _ = reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)
	})
	h.Flush()

	reg.Edit(func() { p1.MoveTo(geom.V(5, 0)) })
	h.Flush()
	if got := ip.Position(); got != geom.V(5, 0) {
		t.Fatalf("intersection after move = %v, want (5, 0)", got)
	}

	if !h.TryUndo() {
		t.Fatal("undo failed")
	}
	if got := ip.Position(); got != geom.V(4, 0) {
		t.Fatalf("intersection after undo = %v, want (4, 0)", got)
	}
	if !h.TryRedo() {
		t.Fatal("redo failed")
	}
	if got := ip.Position(); got != geom.V(5, 0) {
		t.Fatalf("intersection after redo = %v, want (5, 0)", got)
	}
}

func TestResetKeepsStateDropsEntries(t *testing.T) {
	reg := prim.NewRegistry()
	h := New(reg)

	reg.Edit(func() { reg.CreatePoint(geom.V(3, 3)) })
	h.Flush()

	h.Reset()
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("reset must clear both directions")
	}
	if reg.Len() != 1 {
		t.Fatalf("registry holds %d primitives, want 1", reg.Len())
	}
}
