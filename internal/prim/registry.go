package prim

import (
	"fmt"
	"sort"

	"github.com/geometer/geometer/backend-go/internal/geom"
)

// Observer receives change notifications from a registry. The history
// engine implements it to build before-snapshots and track creations.
// Changed fires before the field mutation is applied.
type Observer interface {
	PrimitiveCreated(p Primitive)
	PrimitiveChanged(p Primitive)
	PrimitiveDisposed(p Primitive)
}

// pairKey identifies an unordered parent pair for intersection-point
// deduplication.
type pairKey struct {
	lo, hi int
}

func pairKeyOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Registry owns all primitives of one document. It assigns ids, tracks
// parent/child edges, runs the invalidate/reapply protocol inside edit
// transactions, and deduplicates intersection points. It is the only
// component allowed to mutate the dependency structure.
//
// A registry is single-owner and not safe for concurrent use; all work
// runs to completion before control returns to the caller.
type Registry struct {
	byID   map[int]Primitive
	order  []Primitive // insertion order, compacted lazily
	dirty  bool        // disposed entries pending compaction in order
	nextID int

	pairs map[pairKey][]*IntersectionPoint

	editing     bool
	changed     map[int]Primitive
	invalidated map[int]Primitive

	observer Observer
}

func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[int]Primitive),
		pairs:       make(map[pairKey][]*IntersectionPoint),
		changed:     make(map[int]Primitive),
		invalidated: make(map[int]Primitive),
	}
}

// SetObserver installs the change observer. At most one observer is
// supported; passing nil detaches.
func (r *Registry) SetObserver(o Observer) {
	r.observer = o
}

// Len returns the number of alive primitives.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Get returns the alive primitive with the given id. Back-references to
// disposed primitives resolve as not found.
func (r *Registry) Get(id int) (Primitive, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Primitives returns all alive primitives in creation order. Disposed
// entries are compacted out on this traversal.
func (r *Registry) Primitives() []Primitive {
	if r.dirty {
		kept := r.order[:0]
		for _, p := range r.order {
			if p.Alive() {
				kept = append(kept, p)
			}
		}
		for i := len(kept); i < len(r.order); i++ {
			r.order[i] = nil
		}
		r.order = kept
		r.dirty = false
	}
	out := make([]Primitive, len(r.order))
	copy(out, r.order)
	return out
}

// Edit runs fn as an edit transaction: the only sanctioned way to
// mutate positions or parentage. When fn completes (even by panic), the
// registry closes over the children of every changed primitive, sorts
// the invalidated set by ascending level and reapplies constraints on
// each member that is still alive. Constraint propagation runs even
// when fn panics; partial position changes are not rolled back
// (best-effort consistency). Nested calls panic.
func (r *Registry) Edit(fn func()) {
	if r.editing {
		panic("prim: nested edit transaction")
	}
	r.editing = true
	defer func() {
		r.reapply()
		r.changed = make(map[int]Primitive)
		r.invalidated = make(map[int]Primitive)
		r.editing = false
	}()
	fn()
}

// Editing reports whether an edit transaction is currently open.
func (r *Registry) Editing() bool { return r.editing }

// notifyChange records p as changed in the current transaction and
// forwards to the observer. Callers invoke it before mutating fields so
// the observer can snapshot the pre-change state. A primitive scheduled
// for constraint reapplication must not be reported changed.
func (r *Registry) notifyChange(p Primitive) {
	if !r.editing {
		panic("prim: mutation outside edit transaction")
	}
	if _, ok := r.invalidated[p.ID()]; ok {
		panic(fmt.Sprintf("prim: primitive %d already invalidated in this transaction", p.ID()))
	}
	r.changed[p.ID()] = p
	if r.observer != nil {
		r.observer.PrimitiveChanged(p)
	}
}

// reapply performs the breadth-first closure over children edges from
// the changed set and reapplies constraints in ascending level order.
// Order among equal-level members is by id; constraints only read
// parents, so ties do not affect correctness.
func (r *Registry) reapply() {
	if len(r.changed) == 0 {
		return
	}

	seeds := make([]Primitive, 0, len(r.changed))
	for _, p := range r.changed {
		seeds = append(seeds, p)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].ID() < seeds[j].ID() })

	seen := make(map[int]bool, len(seeds))
	for _, p := range seeds {
		seen[p.ID()] = true
	}

	var pending []Primitive
	queue := seeds
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range cur.base().children {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			r.invalidated[c.ID()] = c
			pending = append(pending, c)
			queue = append(queue, c)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Level() != pending[j].Level() {
			return pending[i].Level() < pending[j].Level()
		}
		return pending[i].ID() < pending[j].ID()
	})

	for _, p := range pending {
		if p.Alive() {
			p.applyConstraints()
		}
	}
}

func (r *Registry) mustEdit(op string) {
	if !r.editing {
		panic("prim: " + op + " outside edit transaction")
	}
}

// allocID returns the next fresh id. Ids grow monotonically and are
// never reused within a session; restored primitives bump the counter
// past their declared ids.
func (r *Registry) allocID() int {
	return r.nextID
}

func (r *Registry) register(p Primitive) {
	b := p.base()
	r.byID[b.id] = p
	r.order = append(r.order, p)
	if b.id >= r.nextID {
		r.nextID = b.id + 1
	}
	for _, parent := range b.parents {
		pb := parent.base()
		pb.children = append(pb.children, p)
	}
	if r.observer != nil {
		r.observer.PrimitiveCreated(p)
	}
}

func (r *Registry) checkParent(p Primitive, op string) {
	if p == nil || p.base().reg != r || !p.Alive() {
		panic("prim: " + op + " with unregistered or disposed parent")
	}
}

// CreatePoint registers a new free point. Always succeeds.
func (r *Registry) CreatePoint(pos geom.Vec2) *FreePoint {
	r.mustEdit("CreatePoint")
	f := &FreePoint{primBase: newPrimBase(r, r.allocID(), nil), pos: pos}
	r.register(f)
	return f
}

// CreateLine registers a line through two already-registered points and
// applies its constraint immediately.
func (r *Registry) CreateLine(p0, p1 Point) *Line {
	r.mustEdit("CreateLine")
	r.checkParent(p0, "CreateLine")
	r.checkParent(p1, "CreateLine")
	l := &Line{primBase: newPrimBase(r, r.allocID(), []Primitive{p0, p1})}
	l.applyConstraints()
	r.register(l)
	return l
}

// CreateCircle registers a circle from a center point and an edge point
// and applies its constraint immediately.
func (r *Registry) CreateCircle(center, edge Point) *Circle {
	r.mustEdit("CreateCircle")
	r.checkParent(center, "CreateCircle")
	r.checkParent(edge, "CreateCircle")
	c := &Circle{primBase: newPrimBase(r, r.allocID(), []Primitive{center, edge})}
	c.applyConstraints()
	r.register(c)
	return c
}

// TryGetOrCreateIntersectionPoint computes the intersections of two
// curves and resolves one candidate near approx, honoring hints. If the
// curves do not intersect it returns (nil, false). If an intersection
// point for this unordered parent pair already sits at the resolved
// position, that point is returned with existing=true; otherwise a new
// point is created, indexed and returned with existing=false.
func (r *Registry) TryGetOrCreateIntersectionPoint(a, b Curve, approx geom.Vec2, hints []Hint) (*IntersectionPoint, bool) {
	r.mustEdit("TryGetOrCreateIntersectionPoint")
	r.checkParent(a, "TryGetOrCreateIntersectionPoint")
	r.checkParent(b, "TryGetOrCreateIntersectionPoint")

	cands := intersectCurves(a, b)
	if len(cands) == 0 {
		return nil, false
	}

	idx, hinted := selectCandidate(cands, hints, approx)
	pos := cands[idx]

	key := pairKeyOf(a.ID(), b.ID())
	for _, ip := range r.pairs[key] {
		if ip.Alive() && ip.pos == pos {
			return ip, true
		}
	}

	ip := &IntersectionPoint{
		primBase: newPrimBase(r, r.allocID(), []Primitive{a, b}),
		pos:      pos,
		hints:    append([]Hint(nil), hints...),
	}
	if !hinted && len(cands) >= 2 {
		ip.hints = append(ip.hints, Hint{Count: len(cands), Index: idx})
	}
	r.register(ip)
	r.pairs[key] = append(r.pairs[key], ip)
	return ip, false
}

// Dispose removes an alive primitive with no remaining children from
// the registry. Disposing a primitive with live children panics.
// Disposing an already-disposed primitive is a no-op.
func (r *Registry) Dispose(p Primitive) {
	r.mustEdit("Dispose")
	b := p.base()
	if !b.alive {
		return
	}
	if len(b.children) != 0 {
		panic(fmt.Sprintf("prim: dispose primitive %d with %d live children", b.id, len(b.children)))
	}

	if r.observer != nil {
		r.observer.PrimitiveDisposed(p)
	}

	for _, parent := range b.parents {
		parent.base().removeChild(p)
	}
	if ip, ok := p.(*IntersectionPoint); ok {
		key := pairKeyOf(b.parents[0].ID(), b.parents[1].ID())
		list := r.pairs[key]
		for i, cur := range list {
			if cur == ip {
				r.pairs[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(r.pairs[key]) == 0 {
			delete(r.pairs, key)
		}
	}

	b.alive = false
	delete(r.byID, b.id)
	r.dirty = true
}

// DisposeAll disposes a set of primitives in descending level order, so
// children are always removed before their parents.
func (r *Registry) DisposeAll(ps []Primitive) {
	sorted := make([]Primitive, len(ps))
	copy(sorted, ps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Level() != sorted[j].Level() {
			return sorted[i].Level() > sorted[j].Level()
		}
		return sorted[i].ID() > sorted[j].ID()
	})
	for _, p := range sorted {
		r.Dispose(p)
	}
}

// Restore methods register primitives under a declared id. They are the
// deserializer's creation path; replay must reproduce the exact ids a
// record declares, so the id is taken from the record and a collision
// with a live primitive is reported as an error rather than a panic.

func (r *Registry) claimID(id int) error {
	if id < 0 {
		return fmt.Errorf("invalid primitive id %d", id)
	}
	if _, taken := r.byID[id]; taken {
		return fmt.Errorf("primitive id %d already in use", id)
	}
	return nil
}

func (r *Registry) RestorePoint(id int, pos geom.Vec2) (*FreePoint, error) {
	r.mustEdit("RestorePoint")
	if err := r.claimID(id); err != nil {
		return nil, err
	}
	f := &FreePoint{primBase: newPrimBase(r, id, nil), pos: pos}
	r.register(f)
	return f, nil
}

func (r *Registry) RestoreLine(id int, p0, p1 Point) (*Line, error) {
	r.mustEdit("RestoreLine")
	if err := r.claimID(id); err != nil {
		return nil, err
	}
	r.checkParent(p0, "RestoreLine")
	r.checkParent(p1, "RestoreLine")
	l := &Line{primBase: newPrimBase(r, id, []Primitive{p0, p1})}
	l.applyConstraints()
	r.register(l)
	return l, nil
}

func (r *Registry) RestoreCircle(id int, center, edge Point) (*Circle, error) {
	r.mustEdit("RestoreCircle")
	if err := r.claimID(id); err != nil {
		return nil, err
	}
	r.checkParent(center, "RestoreCircle")
	r.checkParent(edge, "RestoreCircle")
	c := &Circle{primBase: newPrimBase(r, id, []Primitive{center, edge})}
	c.applyConstraints()
	r.register(c)
	return c, nil
}

// RestoreIntersection registers an intersection point with recorded
// position, hints and validity. Unlike TryGetOrCreateIntersectionPoint
// it succeeds even when the parent curves currently do not intersect:
// the point comes back invalid at its last recorded position.
func (r *Registry) RestoreIntersection(id int, a, b Curve, pos geom.Vec2, hints []Hint, invalid bool) (*IntersectionPoint, error) {
	r.mustEdit("RestoreIntersection")
	if err := r.claimID(id); err != nil {
		return nil, err
	}
	r.checkParent(a, "RestoreIntersection")
	r.checkParent(b, "RestoreIntersection")
	ip := &IntersectionPoint{
		primBase: newPrimBase(r, id, []Primitive{a, b}),
		pos:      pos,
		hints:    append([]Hint(nil), hints...),
	}
	ip.invalid = invalid
	ip.applyConstraints()
	r.register(ip)
	r.pairs[pairKeyOf(a.ID(), b.ID())] = append(r.pairs[pairKeyOf(a.ID(), b.ID())], ip)
	return ip, nil
}
