package prim

import (
	"testing"

	"github.com/geometer/geometer/backend-go/internal/geom"
)

func TestLevels(t *testing.T) {
	reg := NewRegistry()
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)
		ip, _ := reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)

		for _, tc := range []struct {
			p    Primitive
			want int
		}{
			{p0, 0}, {p1, 0}, {l, 1}, {c, 1}, {ip, 2},
		} {
			if got := tc.p.Level(); got != tc.want {
				t.Errorf("level of %d = %d, want %d", tc.p.ID(), got, tc.want)
			}
		}
	})
}

func TestMovePropagatesToDescendants(t *testing.T) {
	reg := NewRegistry()
	var p1 *FreePoint
	var l *Line
	var c *Circle
	var ip *IntersectionPoint
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 = reg.CreatePoint(geom.V(4, 0))
		l = reg.CreateLine(p0, p1)
		c = reg.CreateCircle(p0, p1)
		ip, _ = reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)
	})

	reg.Edit(func() { p1.MoveTo(geom.V(0, 6)) })

	if got := l.Direction(); got != geom.V(0, 6) {
		t.Errorf("line direction = %v, want (0, 6)", got)
	}
	if got := c.Radius(); got != 6 {
		t.Errorf("circle radius = %v, want 6", got)
	}
	// The hint keeps the intersection on the branch near the moving
	// parent rather than snapping to (0, -6).
	if got := ip.Position(); got != geom.V(0, 6) {
		t.Errorf("intersection = %v, want (0, 6)", got)
	}
}

func TestIntersectionDeduplication(t *testing.T) {
	reg := NewRegistry()
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)

		first, existing := reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)
		if existing {
			t.Fatal("first request must create")
		}
		// Same resolved position, same unordered pair: returns the
		// existing point even with the curves swapped.
		again, existing := reg.TryGetOrCreateIntersectionPoint(c, l, geom.V(3, 1), nil)
		if !existing || again != first {
			t.Fatal("second request must return the existing point")
		}
		// The other branch is a distinct point.
		other, existing := reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(-4, 0), nil)
		if existing || other == first {
			t.Fatal("opposite branch must create a new point")
		}
		if got := other.Position(); got != geom.V(-4, 0) {
			t.Fatalf("opposite branch at %v, want (-4, 0)", got)
		}
	})
}

func TestNoIntersectionCreatesNothing(t *testing.T) {
	reg := NewRegistry()
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(1, 0))
		p2 := reg.CreatePoint(geom.V(10, 10))
		p3 := reg.CreatePoint(geom.V(11, 10))
		c0 := reg.CreateCircle(p0, p1)
		c1 := reg.CreateCircle(p2, p3)

		n := reg.Len()
		ip, ok := reg.TryGetOrCreateIntersectionPoint(c0, c1, geom.V(5, 5), nil)
		if ok || ip != nil {
			t.Fatal("disjoint circles must not intersect")
		}
		if reg.Len() != n {
			t.Fatal("failed intersection must not register anything")
		}
	})
}

func TestInvalidIntersectionRecovers(t *testing.T) {
	reg := NewRegistry()
	var e1 *FreePoint
	var ip *IntersectionPoint
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		e0 := reg.CreatePoint(geom.V(3, 0))
		e1 = reg.CreatePoint(geom.V(1, 0))
		c0 := reg.CreateCircle(p0, e0) // radius 3
		c1 := reg.CreateCircle(p1, e1) // radius 3 around (4, 0)
		ip, _ = reg.TryGetOrCreateIntersectionPoint(c0, c1, geom.V(2, 3), nil)
	})
	if ip.Invalid() {
		t.Fatal("intersection must start valid")
	}
	last := ip.Position()

	// Shrink the second circle away: the point turns invalid and
	// freezes at its last position.
	reg.Edit(func() { e1.MoveTo(geom.V(3.9, 0)) })
	if !ip.Invalid() {
		t.Fatal("intersection must turn invalid")
	}
	if got := ip.Position(); got != last {
		t.Fatalf("invalid intersection moved to %v, want %v", got, last)
	}

	// Grow it back: the point revives on the same branch.
	reg.Edit(func() { e1.MoveTo(geom.V(1, 0)) })
	if ip.Invalid() {
		t.Fatal("intersection must recover")
	}
	if got := ip.Position(); got != last {
		t.Fatalf("recovered intersection at %v, want %v", got, last)
	}
}

func TestDisposeRules(t *testing.T) {
	reg := NewRegistry()
	var p0, p1 *FreePoint
	var l *Line
	reg.Edit(func() {
		p0 = reg.CreatePoint(geom.V(0, 0))
		p1 = reg.CreatePoint(geom.V(4, 0))
		l = reg.CreateLine(p0, p1)
	})

	// Disposing a parent with a live child panics.
	func() {
		defer func() {
			if recover() == nil {
				t.Error("dispose with live children must panic")
			}
		}()
		reg.Edit(func() { reg.Dispose(p0) })
	}()

	reg.Edit(func() {
		reg.Dispose(l)
		reg.Dispose(l) // second dispose is a no-op
		reg.Dispose(p0)
	})
	if l.Alive() || p0.Alive() {
		t.Error("disposed primitives must not be alive")
	}
	if !p1.Alive() {
		t.Error("p1 must survive")
	}
	if _, ok := reg.Get(l.ID()); ok {
		t.Error("disposed primitive still resolvable")
	}
	if got := len(p1.Children()); got != 0 {
		t.Errorf("p1 has %d children, want 0", got)
	}
}

func TestDisposeAllOrdersChildrenFirst(t *testing.T) {
	reg := NewRegistry()
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)
		ip, _ := reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)

		// Unordered input; DisposeAll must sort children first.
		reg.DisposeAll([]Primitive{p0, l, ip, c, p1})
	})
	if reg.Len() != 0 {
		t.Fatalf("registry holds %d primitives, want 0", reg.Len())
	}
}

func TestEditRequired(t *testing.T) {
	reg := NewRegistry()
	var p *FreePoint
	reg.Edit(func() { p = reg.CreatePoint(geom.V(0, 0)) })

	func() {
		defer func() {
			if recover() == nil {
				t.Error("mutation outside a transaction must panic")
			}
		}()
		p.MoveTo(geom.V(1, 1))
	}()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("nested transactions must panic")
			}
		}()
		reg.Edit(func() { reg.Edit(func() {}) })
	}()
}

func TestEditReappliesAfterPanic(t *testing.T) {
	reg := NewRegistry()
	var p1 *FreePoint
	var c *Circle
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 = reg.CreatePoint(geom.V(4, 0))
		c = reg.CreateCircle(p0, p1)
	})

	func() {
		defer func() { recover() }()
		reg.Edit(func() {
			p1.MoveTo(geom.V(8, 0))
			panic("boom")
		})
	}()

	// The move is not rolled back and constraints still propagated.
	if got := c.Radius(); got != 8 {
		t.Errorf("radius after panicking edit = %v, want 8", got)
	}
	if reg.Editing() {
		t.Error("transaction left open")
	}
}

func TestRestoreCollision(t *testing.T) {
	reg := NewRegistry()
	reg.Edit(func() {
		p := reg.CreatePoint(geom.V(0, 0))
		if _, err := reg.RestorePoint(p.ID(), geom.V(1, 1)); err == nil {
			t.Error("restoring over a live id must fail")
		}
		if _, err := reg.RestorePoint(-1, geom.V(1, 1)); err == nil {
			t.Error("negative id must fail")
		}
	})
}
