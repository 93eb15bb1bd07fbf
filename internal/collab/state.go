package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geometer/geometer/backend-go/internal/board"
	"github.com/geometer/geometer/backend-go/internal/geom"
)

// BoardState holds the authoritative board for a room and serializes
// all mutations onto it. The board itself is not concurrency-safe, so
// every access goes through the mutex here.
type BoardState struct {
	mu        sync.Mutex
	board     *board.Board
	serverSeq int64
	dirty     bool

	// Only one client drags at a time; the owner's drag.move and
	// drag.end are accepted, everyone else's drag.begin is refused
	// until the session closes.
	dragOwner string
}

var errDragBusy = errors.New("another client is dragging")

// NewBoardState wraps a loaded board.
func NewBoardState(b *board.Board) *BoardState {
	return &BoardState{board: b}
}

// Apply runs one operation against the board and returns its result
// together with the new server sequence. A rejected operation leaves
// the board unchanged.
func (bs *BoardState) Apply(clientID string, op Operation) (OpResult, int64, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	res, err := bs.applyLocked(clientID, op)
	if err != nil {
		return OpResult{}, 0, err
	}

	bs.serverSeq++
	bs.dirty = true
	return res, bs.serverSeq, nil
}

func (bs *BoardState) applyLocked(clientID string, op Operation) (OpResult, error) {
	switch op.Type {
	case OpCreatePoint:
		pos, err := opPos(op)
		if err != nil {
			return OpResult{}, err
		}
		p := bs.board.AddPoint(pos)
		return created(p.ID()), nil

	case OpCreateLine:
		p0, p1, err := opParents(op)
		if err != nil {
			return OpResult{}, err
		}
		l, err := bs.board.AddLine(p0, p1)
		if err != nil {
			return OpResult{}, err
		}
		return created(l.ID()), nil

	case OpCreateCircle:
		center, edge, err := opParents(op)
		if err != nil {
			return OpResult{}, err
		}
		c, err := bs.board.AddCircle(center, edge)
		if err != nil {
			return OpResult{}, err
		}
		return created(c.ID()), nil

	case OpCreateIntersection:
		a, b, err := opParents(op)
		if err != nil {
			return OpResult{}, err
		}
		approx, err := opPos(op)
		if err != nil {
			return OpResult{}, err
		}
		ip, err := bs.board.AddIntersection(a, b, approx)
		if err != nil {
			return OpResult{}, err
		}
		return created(ip.ID()), nil

	case OpMovePoint:
		pos, err := opPos(op)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{}, bs.board.MovePoint(op.Target, pos)

	case OpDelete:
		return OpResult{}, bs.board.Delete(op.Target)

	case OpSetSelectable:
		if op.Selectable == nil {
			return OpResult{}, fmt.Errorf("%s without selectable flag", op.Type)
		}
		return OpResult{}, bs.board.SetSelectable(op.Target, *op.Selectable)

	case OpDragBegin:
		if bs.dragOwner != "" && bs.dragOwner != clientID {
			return OpResult{}, errDragBusy
		}
		grab, err := opPos(op)
		if err != nil {
			return OpResult{}, err
		}
		can, err := bs.board.BeginDrag(op.Target, grab)
		if err != nil {
			return OpResult{}, err
		}
		bs.dragOwner = clientID
		res := OpResult{CanDrag: &can}
		for _, p := range bs.board.DragOffenses() {
			res.Offenses = append(res.Offenses, p.ID())
		}
		return res, nil

	case OpDragMove:
		if bs.dragOwner != clientID {
			return OpResult{}, errDragBusy
		}
		pos, err := opPos(op)
		if err != nil {
			return OpResult{}, err
		}
		bs.board.DragTo(pos)
		return OpResult{}, nil

	case OpDragEnd:
		if bs.dragOwner != clientID {
			return OpResult{}, errDragBusy
		}
		bs.board.EndDrag()
		bs.dragOwner = ""
		return OpResult{}, nil

	case OpUndo:
		applied := bs.board.Undo()
		bs.dragOwner = ""
		return OpResult{Applied: &applied}, nil

	case OpRedo:
		applied := bs.board.Redo()
		bs.dragOwner = ""
		return OpResult{Applied: &applied}, nil

	default:
		return OpResult{}, fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

// ReleaseDrag drops the drag session when its owner disconnects,
// flushing the partial gesture as one undo step.
func (bs *BoardState) ReleaseDrag(clientID string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.dragOwner == clientID {
		bs.board.EndDrag()
		bs.dragOwner = ""
	}
}

// Serialize returns the current record set and server sequence.
func (bs *BoardState) Serialize() ([]byte, int64, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	data, err := bs.board.Serialize()
	return data, bs.serverSeq, err
}

// Dirty reports whether the board changed since the last MarkSaved.
func (bs *BoardState) Dirty() bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.dirty
}

func (bs *BoardState) MarkSaved() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.dirty = false
}

// GetServerTimestamp returns the current server timestamp.
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}

func created(id int) OpResult {
	return OpResult{Created: &id}
}

func opPos(op Operation) (geom.Vec2, error) {
	if op.Pos == nil {
		return geom.Vec2{}, fmt.Errorf("%s without position", op.Type)
	}
	return geom.V(op.Pos.X, op.Pos.Y), nil
}

func opParents(op Operation) (int, int, error) {
	if len(op.Parents) != 2 {
		return 0, 0, fmt.Errorf("%s needs exactly 2 parents", op.Type)
	}
	return op.Parents[0], op.Parents[1], nil
}
