// Package prim implements the primitive graph at the core of the
// construction engine: free and derived geometric objects, parent/child
// dependency tracking, transactional constraint propagation, and the
// dragging protocol.
package prim

import "github.com/geometer/geometer/backend-go/internal/geom"

// Hint remembers which branch of a multi-solution constraint was chosen
// for a given candidate count, so recomputation stays on the same branch
// as the parent curves move.
type Hint struct {
	Count int `json:"count"`
	Index int `json:"index"`
}

// Primitive is one geometric object in the graph. The set of
// implementations is closed: FreePoint, IntersectionPoint, Line, Circle.
type Primitive interface {
	// ID is the registry-assigned identifier, unique per registry.
	ID() int
	// Level is the longest dependency chain from a free primitive:
	// 0 for primitives without parents, else 1 + max parent level.
	// Fixed at construction.
	Level() int
	// Parents returns the ordered parent list. Empty for free primitives.
	Parents() []Primitive
	// Children returns the current back-references. Unordered, non-owning.
	Children() []Primitive
	// Invalid reports whether the primitive's constraint currently has
	// no solution.
	Invalid() bool
	Selectable() bool
	SetSelectable(bool)
	// Alive reports whether the primitive has not been disposed.
	Alive() bool
	// TryDrag returns a dragger for a grab at the given position.
	// Never nil; a non-draggable primitive returns a dragger whose
	// CanDrag reports false.
	TryDrag(grab geom.Vec2) Dragger
	// DistSq returns the squared picking distance from pos.
	DistSq(pos geom.Vec2) float64

	applyConstraints()
	base() *primBase
}

// Point is a primitive with a position: FreePoint or IntersectionPoint.
type Point interface {
	Primitive
	Position() geom.Vec2
}

// Curve is a primitive two curves can be intersected on: Line or Circle.
type Curve interface {
	Primitive
	isCurve()
}

type primBase struct {
	reg        *Registry
	id         int
	level      int
	parents    []Primitive
	children   []Primitive
	invalid    bool
	selectable bool
	alive      bool
}

func newPrimBase(reg *Registry, id int, parents []Primitive) primBase {
	level := 0
	for _, p := range parents {
		if p.Level()+1 > level {
			level = p.Level() + 1
		}
	}
	return primBase{
		reg:        reg,
		id:         id,
		level:      level,
		parents:    parents,
		selectable: true,
		alive:      true,
	}
}

func (b *primBase) ID() int    { return b.id }
func (b *primBase) Level() int { return b.level }

func (b *primBase) Parents() []Primitive {
	out := make([]Primitive, len(b.parents))
	copy(out, b.parents)
	return out
}

func (b *primBase) Children() []Primitive {
	out := make([]Primitive, len(b.children))
	copy(out, b.children)
	return out
}

func (b *primBase) Invalid() bool        { return b.invalid }
func (b *primBase) Selectable() bool     { return b.selectable }
func (b *primBase) SetSelectable(v bool) { b.selectable = v }
func (b *primBase) Alive() bool          { return b.alive }
func (b *primBase) base() *primBase      { return b }

func (b *primBase) removeChild(c Primitive) {
	for i, cur := range b.children {
		if cur.ID() == c.ID() {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

// dependsOn reports whether p transitively depends on q through its
// parent chain.
func dependsOn(p, q Primitive) bool {
	queue := p.Parents()
	seen := map[int]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.ID() == q.ID() {
			return true
		}
		if seen[cur.ID()] {
			continue
		}
		seen[cur.ID()] = true
		queue = append(queue, cur.Parents()...)
	}
	return false
}

// intersectCurves computes the intersection candidates of two curves.
// The result is independent of argument order.
func intersectCurves(a, b Curve) []geom.Vec2 {
	switch ca := a.(type) {
	case *Line:
		switch cb := b.(type) {
		case *Line:
			if pt, ok := geom.LineLine(ca.origin, ca.dir, cb.origin, cb.dir); ok {
				return []geom.Vec2{pt}
			}
			return nil
		case *Circle:
			return geom.LineCircle(ca.origin, ca.dir, cb.center, cb.radius)
		}
	case *Circle:
		switch cb := b.(type) {
		case *Line:
			return geom.LineCircle(cb.origin, cb.dir, ca.center, ca.radius)
		case *Circle:
			return geom.CircleCircle(ca.center, ca.radius, cb.center, cb.radius)
		}
	}
	return nil
}

// selectCandidate picks one intersection candidate. A hint recorded for
// the current candidate count wins (temporal stability); otherwise the
// candidate closest to approx is chosen and the second result is false.
func selectCandidate(cands []geom.Vec2, hints []Hint, approx geom.Vec2) (int, bool) {
	for _, h := range hints {
		if h.Count == len(cands) && h.Index >= 0 && h.Index < len(cands) {
			return h.Index, true
		}
	}
	best := 0
	bestD := geom.DistSq(cands[0], approx)
	for i := 1; i < len(cands); i++ {
		if d := geom.DistSq(cands[i], approx); d < bestD {
			best, bestD = i, d
		}
	}
	return best, false
}
