package prim

import "github.com/geometer/geometer/backend-go/internal/geom"

// Dragger translates continuous cursor motion into primitive-specific
// position updates. DragTo must be called inside an edit transaction;
// it mutates free points through the normal change-notification path,
// so constraint reapplication happens when the transaction completes.
type Dragger interface {
	DragTo(pos geom.Vec2)
	CanDrag() bool
	// Offenses lists the primitives preventing the drag. Empty when
	// CanDrag reports true.
	Offenses() []Primitive
}

// pointDragger moves a free point rigidly with the cursor.
type pointDragger struct {
	target *FreePoint
	offset geom.Vec2
}

func (d *pointDragger) DragTo(pos geom.Vec2) { d.target.MoveTo(pos.Add(d.offset)) }
func (d *pointDragger) CanDrag() bool        { return true }
func (d *pointDragger) Offenses() []Primitive {
	return nil
}

// blockedDragger is the non-dragging placeholder. It still tracks the
// raw cursor position for UI feedback.
type blockedDragger struct {
	offenses []Primitive
	last     geom.Vec2
}

func (d *blockedDragger) DragTo(pos geom.Vec2)  { d.last = pos }
func (d *blockedDragger) CanDrag() bool         { return false }
func (d *blockedDragger) Offenses() []Primitive { return d.offenses }

// compoundDragger forwards to several draggers, moving each endpoint
// independently. Grabbing a line body translates both endpoints.
type compoundDragger struct {
	parts []Dragger
}

func (d *compoundDragger) DragTo(pos geom.Vec2) {
	for _, p := range d.parts {
		p.DragTo(pos)
	}
}
func (d *compoundDragger) CanDrag() bool         { return true }
func (d *compoundDragger) Offenses() []Primitive { return nil }

// pivotDragger rotates a free point around a fixed point: the point
// follows the grab direction while its distance to the pivot is kept.
type pivotDragger struct {
	moving *FreePoint
	pivot  Point
	offset geom.Vec2
	dist   float64
}

func (d *pivotDragger) DragTo(pos geom.Vec2) {
	target := pos.Add(d.offset)
	dir := target.Sub(d.pivot.Position())
	if dir.LengthSq() == 0 {
		return
	}
	d.moving.MoveTo(d.pivot.Position().Add(dir.Normalized().Scale(d.dist)))
}
func (d *pivotDragger) CanDrag() bool         { return true }
func (d *pivotDragger) Offenses() []Primitive { return nil }

// centerPivotDragger drags a circle by its center with a fixed edge
// point: the edge's direction from the center is invariant and the
// radius follows the grab distance.
type centerPivotDragger struct {
	center *FreePoint
	edge   Point
	offset geom.Vec2
	dir    geom.Vec2 // unit center->edge at grab time
}

func (d *centerPivotDragger) DragTo(pos geom.Vec2) {
	target := pos.Add(d.offset)
	r := geom.Dist(target, d.edge.Position())
	d.center.MoveTo(d.edge.Position().Sub(d.dir.Scale(r)))
}
func (d *centerPivotDragger) CanDrag() bool         { return true }
func (d *centerPivotDragger) Offenses() []Primitive { return nil }

// radiusDragger drags a circle by its edge with a fixed center: the
// grab is projected onto the ray from the center through the edge,
// preserving direction and changing only the radius.
type radiusDragger struct {
	edge   *FreePoint
	center Point
	offset geom.Vec2
	dir    geom.Vec2 // unit center->edge at grab time
}

func (d *radiusDragger) DragTo(pos geom.Vec2) {
	target := pos.Add(d.offset)
	t := target.Sub(d.center.Position()).Dot(d.dir)
	d.edge.MoveTo(d.center.Position().Add(d.dir.Scale(t)))
}
func (d *radiusDragger) CanDrag() bool         { return true }
func (d *radiusDragger) Offenses() []Primitive { return nil }

// pivotFactory builds the dragger used when exactly one endpoint of a
// two-point primitive can move; moving is the draggable endpoint, fixed
// the other.
type pivotFactory func(moving *FreePoint, fixed Point, grab geom.Vec2) Dragger

// twoPointDrag is the shared drag resolution for primitives derived
// from two points (lines and circles). pivot0 is used when only the
// first parent can move, pivot1 when only the second can.
func twoPointDrag(p0, p1 Point, grab geom.Vec2, pivot0, pivot1 pivotFactory) Dragger {
	d0 := p0.TryDrag(grab)
	d1 := p1.TryDrag(grab)

	switch {
	case d0.CanDrag() && d1.CanDrag():
		return &compoundDragger{parts: []Dragger{d0, d1}}
	case d0.CanDrag():
		if dependsOn(p1, p0) {
			// Moving p0 would feed back into the pivot p1 through the
			// dependency chain; refuse and report the conflicting pair.
			return &blockedDragger{offenses: []Primitive{p0, p1}, last: grab}
		}
		return pivot0(mustFreePoint(p0), p1, grab)
	case d1.CanDrag():
		if dependsOn(p0, p1) {
			return &blockedDragger{offenses: []Primitive{p1, p0}, last: grab}
		}
		return pivot1(mustFreePoint(p1), p0, grab)
	default:
		offenses := append(d0.Offenses(), d1.Offenses()...)
		return &blockedDragger{offenses: offenses, last: grab}
	}
}

// mustFreePoint asserts that a draggable point is free. The only point
// variant whose dragger can drag is FreePoint.
func mustFreePoint(p Point) *FreePoint {
	f, ok := p.(*FreePoint)
	if !ok {
		panic("prim: draggable point is not a free point")
	}
	return f
}
