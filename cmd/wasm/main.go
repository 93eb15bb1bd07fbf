//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/geometer/geometer/backend-go/internal/board"
	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/prim"
)

var brd *board.Board

func main() {
	brd = board.New()

	// Create the board API object
	geometerBoard := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	geometerBoard.Set("addPoint", js.FuncOf(addPoint))
	geometerBoard.Set("addLine", js.FuncOf(addLine))
	geometerBoard.Set("addCircle", js.FuncOf(addCircle))
	geometerBoard.Set("addIntersection", js.FuncOf(addIntersection))
	geometerBoard.Set("movePoint", js.FuncOf(movePoint))
	geometerBoard.Set("deletePrimitive", js.FuncOf(deletePrimitive))
	geometerBoard.Set("setSelectable", js.FuncOf(setSelectable))
	geometerBoard.Set("beginDrag", js.FuncOf(beginDrag))
	geometerBoard.Set("dragTo", js.FuncOf(dragTo))
	geometerBoard.Set("endDrag", js.FuncOf(endDrag))
	geometerBoard.Set("undo", js.FuncOf(undo))
	geometerBoard.Set("redo", js.FuncOf(redo))
	geometerBoard.Set("load", js.FuncOf(load))
	geometerBoard.Set("clear", js.FuncOf(clear))

	// --- Queries (frontend ← backend) ---
	geometerBoard.Set("render", js.FuncOf(render))
	geometerBoard.Set("pickAt", js.FuncOf(pickAt))
	geometerBoard.Set("dragOffenses", js.FuncOf(dragOffenses))
	geometerBoard.Set("canUndo", js.FuncOf(canUndo))
	geometerBoard.Set("canRedo", js.FuncOf(canRedo))
	geometerBoard.Set("serialize", js.FuncOf(serialize))

	// Register on global scope
	js.Global().Set("geometerBoard", geometerBoard)

	// Signal that WASM is ready
	js.Global().Set("geometerWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func idResult(id int) interface{} {
	return js.ValueOf(map[string]interface{}{"id": id})
}

// --- Command Handlers ---

func addPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing position"})
	}
	p := brd.AddPoint(geom.V(args[0].Float(), args[1].Float()))
	return idResult(p.ID())
}

func addLine(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing point ids"})
	}
	l, err := brd.AddLine(args[0].Int(), args[1].Int())
	if err != nil {
		return errResult(err)
	}
	return idResult(l.ID())
}

func addCircle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing point ids"})
	}
	c, err := brd.AddCircle(args[0].Int(), args[1].Int())
	if err != nil {
		return errResult(err)
	}
	return idResult(c.ID())
}

func addIntersection(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return js.ValueOf(map[string]interface{}{"error": "missing curves or approx position"})
	}
	approx := geom.V(args[2].Float(), args[3].Float())
	ip, err := brd.AddIntersection(args[0].Int(), args[1].Int(), approx)
	if err != nil {
		return errResult(err)
	}
	return idResult(ip.ID())
}

func movePoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or position"})
	}
	if err := brd.MovePoint(args[0].Int(), geom.V(args[1].Float(), args[2].Float())); err != nil {
		return errResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func deletePrimitive(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing id"})
	}
	if err := brd.Delete(args[0].Int()); err != nil {
		return errResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setSelectable(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or flag"})
	}
	if err := brd.SetSelectable(args[0].Int(), args[1].Bool()); err != nil {
		return errResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or grab position"})
	}
	can, err := brd.BeginDrag(args[0].Int(), geom.V(args[1].Float(), args[2].Float()))
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(map[string]interface{}{"canDrag": can})
}

func dragTo(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	brd.DragTo(geom.V(args[0].Float(), args[1].Float()))
	return nil
}

func endDrag(this js.Value, args []js.Value) interface{} {
	brd.EndDrag()
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(brd.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(brd.Redo())
}

func load(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing record JSON"})
	}
	if err := brd.Load([]byte(args[0].String())); err != nil {
		return errResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func clear(this js.Value, args []js.Value) interface{} {
	brd = board.New()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Query Handlers ---

// render returns the drawable state of every primitive as a JSON string:
// resolved positions for points, origin and direction for lines, center
// and radius for circles.
func render(this js.Value, args []js.Value) interface{} {
	type shape struct {
		ID         int         `json:"id"`
		Type       string      `json:"type"`
		Invalid    bool        `json:"invalid,omitempty"`
		Selectable bool        `json:"selectable"`
		Pos        *[2]float64 `json:"pos,omitempty"`
		Origin     *[2]float64 `json:"origin,omitempty"`
		Dir        *[2]float64 `json:"dir,omitempty"`
		Center     *[2]float64 `json:"center,omitempty"`
		Radius     float64     `json:"radius,omitempty"`
	}
	vec := func(v geom.Vec2) *[2]float64 { return &[2]float64{v.X, v.Y} }

	shapes := make([]shape, 0, brd.Len())
	for _, p := range brd.Primitives() {
		s := shape{ID: p.ID(), Invalid: p.Invalid(), Selectable: p.Selectable()}
		switch t := p.(type) {
		case *prim.FreePoint:
			s.Type = "free"
			s.Pos = vec(t.Position())
		case *prim.IntersectionPoint:
			s.Type = "intersection"
			s.Pos = vec(t.Position())
		case *prim.Line:
			s.Type = "line"
			s.Origin = vec(t.Origin())
			s.Dir = vec(t.Direction())
		case *prim.Circle:
			s.Type = "circle"
			s.Center = vec(t.Center())
			s.Radius = t.Radius()
		}
		shapes = append(shapes, s)
	}

	data, err := json.Marshal(shapes)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func pickAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(-1)
	}
	pos := geom.V(args[0].Float(), args[1].Float())
	p, ok := brd.PickAt(pos, args[2].Float())
	if !ok {
		return js.ValueOf(-1)
	}
	return js.ValueOf(p.ID())
}

func dragOffenses(this js.Value, args []js.Value) interface{} {
	offenses := brd.DragOffenses()
	ids := make([]interface{}, len(offenses))
	for i, p := range offenses {
		ids[i] = p.ID()
	}
	return js.ValueOf(ids)
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(brd.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(brd.CanRedo())
}

func serialize(this js.Value, args []js.Value) interface{} {
	data, err := brd.Serialize()
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(string(data))
}
