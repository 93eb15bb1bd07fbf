package prim

import (
	"math"

	"github.com/geometer/geometer/backend-go/internal/geom"
)

// Circle is defined by a center parent point and an edge parent point;
// the radius is the distance between them. Both fields are derived.
type Circle struct {
	primBase
	center geom.Vec2
	radius float64
}

func (c *Circle) Center() geom.Vec2 { return c.center }
func (c *Circle) Radius() float64   { return c.radius }

func (c *Circle) isCurve() {}

func (c *Circle) applyConstraints() {
	center := c.parents[0].(Point)
	edge := c.parents[1].(Point)
	c.center = center.Position()
	c.radius = geom.Dist(c.center, edge.Position())
}

func (c *Circle) DistSq(pos geom.Vec2) float64 {
	d := math.Abs(geom.Dist(pos, c.center) - c.radius)
	return d * d
}

func (c *Circle) TryDrag(grab geom.Vec2) Dragger {
	// Dragging the center while the edge is fixed: the center slides on
	// the ray opposite the edge direction so that direction stays put
	// while the radius follows the grab.
	centerPivot := func(moving *FreePoint, fixed Point, grab geom.Vec2) Dragger {
		return &centerPivotDragger{
			center: moving,
			edge:   fixed,
			offset: moving.Position().Sub(grab),
			dir:    fixed.Position().Sub(moving.Position()).Normalized(),
		}
	}
	// Dragging the edge while the center is fixed: the edge is projected
	// onto the ray from the center through the edge, changing only the
	// radius.
	radius := func(moving *FreePoint, fixed Point, grab geom.Vec2) Dragger {
		return &radiusDragger{
			edge:   moving,
			center: fixed,
			offset: moving.Position().Sub(grab),
			dir:    moving.Position().Sub(fixed.Position()).Normalized(),
		}
	}
	return twoPointDrag(c.parents[0].(Point), c.parents[1].(Point), grab, centerPivot, radius)
}
