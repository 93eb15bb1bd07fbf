// Package board is the facade over the construction core. It owns the
// primitive registry and its history, maps frontend requests onto edit
// transactions, and groups changes into undo steps: one step per
// operation, one step per completed drag.
package board

import (
	"errors"
	"fmt"

	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/history"
	"github.com/geometer/geometer/backend-go/internal/prim"
	"github.com/geometer/geometer/backend-go/internal/record"
)

var (
	// ErrNotFound is returned when an operation names a primitive id
	// that is not alive on the board.
	ErrNotFound = errors.New("primitive not found")
	// ErrNoIntersection is returned when the requested curves do not
	// currently intersect.
	ErrNoIntersection = errors.New("curves do not intersect")
	// ErrNotAPoint and friends report a parent of the wrong kind.
	ErrNotAPoint = errors.New("primitive is not a point")
	ErrNotACurve = errors.New("primitive is not a curve")
)

// Board is one construction surface. Not safe for concurrent use; the
// collab layer serializes access to it.
type Board struct {
	reg  *prim.Registry
	hist *history.History

	// Active drag session, nil when idle.
	drag prim.Dragger
}

// New creates an empty board.
func New() *Board {
	reg := prim.NewRegistry()
	return &Board{reg: reg, hist: history.New(reg)}
}

// --- Commands (frontend → backend) ---

// AddPoint creates a free point.
func (b *Board) AddPoint(pos geom.Vec2) *prim.FreePoint {
	var p *prim.FreePoint
	b.reg.Edit(func() { p = b.reg.CreatePoint(pos) })
	b.hist.Flush()
	return p
}

// AddLine creates the line through two existing points.
func (b *Board) AddLine(p0ID, p1ID int) (*prim.Line, error) {
	p0, err := b.point(p0ID)
	if err != nil {
		return nil, err
	}
	p1, err := b.point(p1ID)
	if err != nil {
		return nil, err
	}
	var l *prim.Line
	b.reg.Edit(func() { l = b.reg.CreateLine(p0, p1) })
	b.hist.Flush()
	return l, nil
}

// AddCircle creates the circle around centerID through edgeID.
func (b *Board) AddCircle(centerID, edgeID int) (*prim.Circle, error) {
	center, err := b.point(centerID)
	if err != nil {
		return nil, err
	}
	edge, err := b.point(edgeID)
	if err != nil {
		return nil, err
	}
	var c *prim.Circle
	b.reg.Edit(func() { c = b.reg.CreateCircle(center, edge) })
	b.hist.Flush()
	return c, nil
}

// AddIntersection resolves the intersection of two curves closest to
// approx and returns the (possibly pre-existing) intersection point.
// Returns ErrNoIntersection when the curves do not meet.
func (b *Board) AddIntersection(aID, bID int, approx geom.Vec2) (*prim.IntersectionPoint, error) {
	a, err := b.curve(aID)
	if err != nil {
		return nil, err
	}
	c, err := b.curve(bID)
	if err != nil {
		return nil, err
	}
	var ip *prim.IntersectionPoint
	b.reg.Edit(func() { ip, _ = b.reg.TryGetOrCreateIntersectionPoint(a, c, approx, nil) })
	b.hist.Flush()
	if ip == nil {
		return nil, ErrNoIntersection
	}
	return ip, nil
}

// MovePoint moves a free point to an absolute position.
func (b *Board) MovePoint(id int, pos geom.Vec2) error {
	p, ok := b.reg.Get(id)
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrNotFound)
	}
	f, ok := p.(*prim.FreePoint)
	if !ok {
		return fmt.Errorf("move %d: only free points move directly", id)
	}
	b.reg.Edit(func() { f.MoveTo(pos) })
	b.hist.Flush()
	return nil
}

// Delete disposes a primitive together with everything that depends on
// it, as one undo step.
func (b *Board) Delete(id int) error {
	p, ok := b.reg.Get(id)
	if !ok {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	doomed := descendants(p)
	b.reg.Edit(func() { b.reg.DisposeAll(doomed) })
	b.hist.Flush()
	return nil
}

// SetSelectable toggles whether a primitive participates in picking and
// dragging. Selection state is not part of history.
func (b *Board) SetSelectable(id int, v bool) error {
	p, ok := b.reg.Get(id)
	if !ok {
		return fmt.Errorf("selectable %d: %w", id, ErrNotFound)
	}
	p.SetSelectable(v)
	return nil
}

// --- Drag session ---

// BeginDrag starts a drag on a primitive at the grab position and
// reports whether it can actually move. A blocked primitive still opens
// a session so the frontend can show the offending dependencies.
func (b *Board) BeginDrag(id int, grab geom.Vec2) (bool, error) {
	p, ok := b.reg.Get(id)
	if !ok {
		return false, fmt.Errorf("drag %d: %w", id, ErrNotFound)
	}
	b.drag = p.TryDrag(grab)
	return b.drag.CanDrag(), nil
}

// DragTo moves the active drag to the cursor position. Intermediate
// positions all land in the same pending history window.
func (b *Board) DragTo(pos geom.Vec2) {
	if b.drag == nil {
		return
	}
	b.reg.Edit(func() { b.drag.DragTo(pos) })
}

// DragOffenses lists the primitives blocking the active drag.
func (b *Board) DragOffenses() []prim.Primitive {
	if b.drag == nil {
		return nil
	}
	return b.drag.Offenses()
}

// EndDrag closes the drag session, folding the whole gesture into one
// undo step.
func (b *Board) EndDrag() {
	b.drag = nil
	b.hist.Flush()
}

// --- History ---

// Undo reverts the latest undo step. Reports false when there is
// nothing to undo. An open drag session is cut short.
func (b *Board) Undo() bool {
	b.drag = nil
	return b.hist.TryUndo()
}

// Redo reapplies the next undo step.
func (b *Board) Redo() bool {
	b.drag = nil
	return b.hist.TryRedo()
}

func (b *Board) CanUndo() bool { return b.hist.CanUndo() }
func (b *Board) CanRedo() bool { return b.hist.CanRedo() }

// --- Queries (frontend ← backend) ---

// Get returns the alive primitive with the given id.
func (b *Board) Get(id int) (prim.Primitive, bool) {
	return b.reg.Get(id)
}

// Primitives returns all alive primitives in creation order.
func (b *Board) Primitives() []prim.Primitive {
	return b.reg.Primitives()
}

// Len returns the number of alive primitives.
func (b *Board) Len() int { return b.reg.Len() }

// PickAt returns the selectable primitive nearest to pos within the
// squared distance budget. Any point within the budget beats every
// curve, since a point always lies on the curves it was built from.
// Among equals the most recently created wins.
func (b *Board) PickAt(pos geom.Vec2, maxDistSq float64) (prim.Primitive, bool) {
	var bestPoint, bestCurve prim.Primitive
	pointD, curveD := maxDistSq, maxDistSq
	for _, p := range b.reg.Primitives() {
		if !p.Selectable() || p.Invalid() {
			continue
		}
		d := p.DistSq(pos)
		if _, isPoint := p.(prim.Point); isPoint {
			if d <= pointD {
				bestPoint, pointD = p, d
			}
		} else if d <= curveD {
			bestCurve, curveD = p, d
		}
	}
	if bestPoint != nil {
		return bestPoint, true
	}
	return bestCurve, bestCurve != nil
}

// --- Persistence ---

// Serialize encodes the full construction as a JSON record set.
func (b *Board) Serialize() ([]byte, error) {
	return record.Marshal(record.Recordify(b.reg))
}

// Load replaces the board contents with a serialized construction. The
// history baseline resets; loading is not undoable. On a malformed
// record set the board keeps its previous contents.
func (b *Board) Load(data []byte) error {
	recs, err := record.Unmarshal(data)
	if err != nil {
		return err
	}
	reg := prim.NewRegistry()
	if err := record.Apply(reg, recs); err != nil {
		return err
	}
	b.reg = reg
	b.hist = history.New(reg)
	b.drag = nil
	return nil
}

// descendants collects p and everything transitively depending on it.
func descendants(p prim.Primitive) []prim.Primitive {
	out := []prim.Primitive{p}
	seen := map[int]bool{p.ID(): true}
	queue := []prim.Primitive{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range cur.Children() {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

func (b *Board) point(id int) (prim.Point, error) {
	p, ok := b.reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("primitive %d: %w", id, ErrNotFound)
	}
	pt, ok := p.(prim.Point)
	if !ok {
		return nil, fmt.Errorf("primitive %d: %w", id, ErrNotAPoint)
	}
	return pt, nil
}

func (b *Board) curve(id int) (prim.Curve, error) {
	p, ok := b.reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("primitive %d: %w", id, ErrNotFound)
	}
	c, ok := p.(prim.Curve)
	if !ok {
		return nil, fmt.Errorf("primitive %d: %w", id, ErrNotACurve)
	}
	return c, nil
}
