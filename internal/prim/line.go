package prim

import "github.com/geometer/geometer/backend-go/internal/geom"

// Line is the infinite line through its two parent points, stored as
// origin plus direction. Both fields are derived.
type Line struct {
	primBase
	origin geom.Vec2
	dir    geom.Vec2
}

func (l *Line) Origin() geom.Vec2    { return l.origin }
func (l *Line) Direction() geom.Vec2 { return l.dir }

func (l *Line) isCurve() {}

func (l *Line) applyConstraints() {
	p0 := l.parents[0].(Point)
	p1 := l.parents[1].(Point)
	l.origin = p0.Position()
	l.dir = p1.Position().Sub(p0.Position())
}

func (l *Line) DistSq(pos geom.Vec2) float64 {
	lenSq := l.dir.LengthSq()
	if lenSq == 0 {
		return geom.DistSq(pos, l.origin)
	}
	cr := l.dir.Cross(pos.Sub(l.origin))
	return cr * cr / lenSq
}

func (l *Line) TryDrag(grab geom.Vec2) Dragger {
	rotate := func(moving *FreePoint, fixed Point, grab geom.Vec2) Dragger {
		return &pivotDragger{
			moving: moving,
			pivot:  fixed,
			offset: moving.Position().Sub(grab),
			dist:   geom.Dist(moving.Position(), fixed.Position()),
		}
	}
	return twoPointDrag(l.parents[0].(Point), l.parents[1].(Point), grab, rotate, rotate)
}
