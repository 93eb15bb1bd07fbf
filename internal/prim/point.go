package prim

import "github.com/geometer/geometer/backend-go/internal/geom"

// FreePoint is a user-movable point without parents. It is the only
// primitive whose position is a source of truth rather than derived.
type FreePoint struct {
	primBase
	pos geom.Vec2
}

func (f *FreePoint) Position() geom.Vec2 { return f.pos }

// MoveTo sets the position and notifies the registry. Must be called
// inside an edit transaction.
func (f *FreePoint) MoveTo(pos geom.Vec2) {
	f.reg.notifyChange(f)
	f.pos = pos
}

func (f *FreePoint) applyConstraints() {}

func (f *FreePoint) DistSq(pos geom.Vec2) float64 {
	return geom.DistSq(pos, f.pos)
}

func (f *FreePoint) TryDrag(grab geom.Vec2) Dragger {
	return &pointDragger{target: f, offset: f.pos.Sub(grab)}
}

// IntersectionPoint is a point derived from the intersection of its two
// parent curves. When the curves stop intersecting the point turns
// invalid and keeps its last position, so it can snap back if the curves
// meet again.
type IntersectionPoint struct {
	primBase
	pos   geom.Vec2
	hints []Hint
}

func (ip *IntersectionPoint) Position() geom.Vec2 { return ip.pos }

// Hints returns a copy of the recorded branch choices.
func (ip *IntersectionPoint) Hints() []Hint {
	out := make([]Hint, len(ip.hints))
	copy(out, ip.hints)
	return out
}

func (ip *IntersectionPoint) applyConstraints() {
	a := ip.parents[0].(Curve)
	b := ip.parents[1].(Curve)

	cands := intersectCurves(a, b)
	if len(cands) == 0 {
		ip.invalid = true
		return
	}

	idx, hinted := selectCandidate(cands, ip.hints, ip.pos)
	if !hinted && len(cands) >= 2 {
		ip.hints = append(ip.hints, Hint{Count: len(cands), Index: idx})
	}
	ip.pos = cands[idx]
	ip.invalid = false
}

func (ip *IntersectionPoint) DistSq(pos geom.Vec2) float64 {
	return geom.DistSq(pos, ip.pos)
}

// An intersection point is never directly draggable; the returned
// dragger reports the point itself as the offense.
func (ip *IntersectionPoint) TryDrag(grab geom.Vec2) Dragger {
	return &blockedDragger{offenses: []Primitive{ip}, last: grab}
}

// SetPosition overwrites the position. Used by diff replay; regular
// movement goes through constraint reapplication.
func (ip *IntersectionPoint) SetPosition(pos geom.Vec2) {
	ip.reg.notifyChange(ip)
	ip.pos = pos
}

// SetHints replaces the recorded branch choices. Used by diff replay.
func (ip *IntersectionPoint) SetHints(hints []Hint) {
	ip.reg.notifyChange(ip)
	ip.hints = make([]Hint, len(hints))
	copy(ip.hints, hints)
}

// SetInvalid overwrites the invalid flag. Used by diff replay.
func (ip *IntersectionPoint) SetInvalid(v bool) {
	ip.reg.notifyChange(ip)
	ip.invalid = v
}
