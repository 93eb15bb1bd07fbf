package prim

import (
	"math"
	"testing"

	"github.com/geometer/geometer/backend-go/internal/geom"
)

// crossingIP builds two crossing lines from four free points and
// returns their intersection point.
func crossingIP(reg *Registry, at geom.Vec2) *IntersectionPoint {
	a := reg.CreatePoint(at.Add(geom.V(-1, 0)))
	b := reg.CreatePoint(at.Add(geom.V(1, 0)))
	c := reg.CreatePoint(at.Add(geom.V(0, -1)))
	d := reg.CreatePoint(at.Add(geom.V(0, 1)))
	l0 := reg.CreateLine(a, b)
	l1 := reg.CreateLine(c, d)
	ip, _ := reg.TryGetOrCreateIntersectionPoint(l0, l1, at, nil)
	return ip
}

func TestFreePointDragKeepsGrabOffset(t *testing.T) {
	reg := NewRegistry()
	var p *FreePoint
	reg.Edit(func() { p = reg.CreatePoint(geom.V(0, 0)) })

	d := p.TryDrag(geom.V(1, 1))
	if !d.CanDrag() {
		t.Fatal("free point must be draggable")
	}
	reg.Edit(func() { d.DragTo(geom.V(5, 5)) })
	if got := p.Position(); got != geom.V(4, 4) {
		t.Fatalf("position = %v, want (4, 4)", got)
	}
}

func TestIntersectionPointNotDraggable(t *testing.T) {
	reg := NewRegistry()
	var ip *IntersectionPoint
	reg.Edit(func() { ip = crossingIP(reg, geom.V(0, 0)) })

	d := ip.TryDrag(geom.V(0, 0))
	if d.CanDrag() {
		t.Fatal("intersection point must not be draggable")
	}
	off := d.Offenses()
	if len(off) != 1 || off[0] != Primitive(ip) {
		t.Fatalf("offenses = %v, want the point itself", off)
	}
	// DragTo on a blocked dragger is accepted and ignored.
	reg.Edit(func() { d.DragTo(geom.V(9, 9)) })
}

func TestLineBodyDragTranslates(t *testing.T) {
	reg := NewRegistry()
	var p0, p1 *FreePoint
	var l *Line
	reg.Edit(func() {
		p0 = reg.CreatePoint(geom.V(0, 0))
		p1 = reg.CreatePoint(geom.V(4, 0))
		l = reg.CreateLine(p0, p1)
	})

	d := l.TryDrag(geom.V(2, 0))
	if !d.CanDrag() {
		t.Fatal("line with two free endpoints must be draggable")
	}
	reg.Edit(func() { d.DragTo(geom.V(3, 2)) })
	if got := p0.Position(); got != geom.V(1, 2) {
		t.Errorf("p0 = %v, want (1, 2)", got)
	}
	if got := p1.Position(); got != geom.V(5, 2) {
		t.Errorf("p1 = %v, want (5, 2)", got)
	}
	if got := l.Direction(); got != geom.V(4, 0) {
		t.Errorf("direction = %v, want unchanged (4, 0)", got)
	}
}

func TestLinePivotDragKeepsDistance(t *testing.T) {
	reg := NewRegistry()
	var p *FreePoint
	var ip *IntersectionPoint
	var l *Line
	reg.Edit(func() {
		ip = crossingIP(reg, geom.V(0, 0))
		p = reg.CreatePoint(geom.V(3, 0))
		l = reg.CreateLine(p, ip)
	})
	want := geom.Dist(p.Position(), ip.Position())

	d := l.TryDrag(geom.V(2, 0))
	if !d.CanDrag() {
		t.Fatal("one free endpoint must allow a pivot drag")
	}
	for _, target := range []geom.Vec2{{X: 0, Y: 2}, {X: -5, Y: 1}, {X: 7, Y: -3}} {
		reg.Edit(func() { d.DragTo(target) })
		got := geom.Dist(p.Position(), ip.Position())
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("distance after drag to %v = %v, want %v", target, got, want)
		}
	}
}

func TestLineBothEndpointsBlocked(t *testing.T) {
	reg := NewRegistry()
	var l *Line
	reg.Edit(func() {
		ip0 := crossingIP(reg, geom.V(0, 0))
		ip1 := crossingIP(reg, geom.V(10, 0))
		l = reg.CreateLine(ip0, ip1)
	})

	d := l.TryDrag(geom.V(5, 0))
	if d.CanDrag() {
		t.Fatal("line between two intersection points must not drag")
	}
	if got := len(d.Offenses()); got != 2 {
		t.Fatalf("offenses = %d, want both endpoints", got)
	}
}

func TestLineDragBlockedByDependentPivot(t *testing.T) {
	reg := NewRegistry()
	var l *Line
	var p0 *FreePoint
	var ip *IntersectionPoint
	reg.Edit(func() {
		p0 = reg.CreatePoint(geom.V(-1, 0))
		p1 := reg.CreatePoint(geom.V(1, 0))
		c := reg.CreatePoint(geom.V(0, -1))
		d := reg.CreatePoint(geom.V(0, 1))
		l0 := reg.CreateLine(p0, p1)
		l1 := reg.CreateLine(c, d)
		ip, _ = reg.TryGetOrCreateIntersectionPoint(l0, l1, geom.V(0, 0), nil)
		// The second endpoint depends on the first through l0.
		l = reg.CreateLine(p0, ip)
	})

	d := l.TryDrag(geom.V(-0.5, 0))
	if d.CanDrag() {
		t.Fatal("pivot depending on the moving endpoint must block the drag")
	}
	off := d.Offenses()
	if len(off) != 2 || off[0] != Primitive(p0) || off[1] != Primitive(ip) {
		t.Fatalf("offenses = %v, want [p0 ip]", off)
	}
}

func TestCircleBodyDragTranslates(t *testing.T) {
	reg := NewRegistry()
	var center, edge *FreePoint
	var c *Circle
	reg.Edit(func() {
		center = reg.CreatePoint(geom.V(0, 0))
		edge = reg.CreatePoint(geom.V(2, 0))
		c = reg.CreateCircle(center, edge)
	})

	d := c.TryDrag(geom.V(0, 2))
	reg.Edit(func() { d.DragTo(geom.V(1, 3)) })
	if got := center.Position(); got != geom.V(1, 1) {
		t.Errorf("center = %v, want (1, 1)", got)
	}
	if got := c.Radius(); got != 2 {
		t.Errorf("radius = %v, want unchanged 2", got)
	}
}

func TestCircleCenterDragKeepsEdge(t *testing.T) {
	reg := NewRegistry()
	var center *FreePoint
	var ip *IntersectionPoint
	var c *Circle
	reg.Edit(func() {
		ip = crossingIP(reg, geom.V(4, 0))
		center = reg.CreatePoint(geom.V(0, 0))
		c = reg.CreateCircle(center, ip)
	})
	edge := ip.Position()

	d := c.TryDrag(geom.V(0, 0)) // grab at the center
	if !d.CanDrag() {
		t.Fatal("center must drag with a fixed edge")
	}
	reg.Edit(func() { d.DragTo(geom.V(2, 0)) })
	// The edge stays on the circle and the center-to-edge direction is
	// preserved, so the center stays on the segment toward the edge.
	if got := center.Position(); got != geom.V(2, 0) {
		t.Errorf("center = %v, want (2, 0)", got)
	}
	if got := c.Radius(); got != geom.Dist(geom.V(2, 0), edge) {
		t.Errorf("radius = %v, want distance to the fixed edge", got)
	}
}

func TestCircleRadiusDragProjectsOnRay(t *testing.T) {
	reg := NewRegistry()
	var edge *FreePoint
	var ip *IntersectionPoint
	var c *Circle
	reg.Edit(func() {
		ip = crossingIP(reg, geom.V(0, 0))
		edge = reg.CreatePoint(geom.V(3, 0))
		c = reg.CreateCircle(ip, edge)
	})

	d := c.TryDrag(geom.V(3, 0)) // grab at the edge
	if !d.CanDrag() {
		t.Fatal("edge must drag with a fixed center")
	}
	reg.Edit(func() { d.DragTo(geom.V(5, 4)) })
	// The grab projects onto the ray through the original edge: only
	// the radius changes.
	if got := edge.Position(); got != geom.V(5, 0) {
		t.Errorf("edge = %v, want (5, 0)", got)
	}
	if got := c.Center(); got != ip.Position() {
		t.Errorf("center = %v, want fixed at %v", got, ip.Position())
	}
	if got := c.Radius(); got != 5 {
		t.Errorf("radius = %v, want 5", got)
	}
}
