// Package record implements the flat snapshot format of the primitive
// graph: point-in-time records, JSON encoding, mutual diffs between two
// snapshots, and replay of records and diffs into a registry.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/prim"
)

// ErrBadRecord is the error kind wrapping every data fault raised while
// parsing or replaying records. Inspect with errors.Is.
var ErrBadRecord = errors.New("bad record")

// Type tags of full records.
const (
	TypeFree         = "free"
	TypeIntersection = "intersection"
	TypeLine         = "line"
	TypeCircle       = "circle"
)

// Record is one flat primitive snapshot. Keys carrying a ":v" suffix
// hold 2D vectors encoded as 2-element numeric arrays; every other
// value is a plain JSON scalar or list. A record with a "type" key is
// full (replay creates the primitive); without it the record patches
// fields of an existing primitive; "disposed": true disposes it.
//
// Canonical value types after parsing or snapshotting: int for "id",
// string for "type", []int for "parents", [2]float64 for vector keys,
// []prim.Hint for "hints", bool for "invalid" and "disposed".
type Record map[string]any

// Immutable identifying keys, excluded from field diffs.
func immutableKey(k string) bool {
	return k == "id" || k == "type" || k == "parents" || k == "disposed"
}

func vec(v geom.Vec2) [2]float64 {
	return [2]float64{v.X, v.Y}
}

// ID returns the mandatory id field.
func (r Record) ID() (int, error) {
	v, ok := r["id"]
	if !ok {
		return 0, fmt.Errorf("missing id: %w", ErrBadRecord)
	}
	id, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("id is not an integer: %w", ErrBadRecord)
	}
	return id, nil
}

// Type returns the type tag if present.
func (r Record) Type() (string, bool) {
	s, ok := r["type"].(string)
	return s, ok
}

// Disposed reports whether this is a disposal record.
func (r Record) Disposed() bool {
	d, _ := r["disposed"].(bool)
	return d
}

func (r Record) parents() ([]int, error) {
	v, ok := r["parents"]
	if !ok {
		return nil, fmt.Errorf("missing parents: %w", ErrBadRecord)
	}
	ids, ok := v.([]int)
	if !ok || len(ids) != 2 {
		return nil, fmt.Errorf("parents must list exactly 2 ids: %w", ErrBadRecord)
	}
	return ids, nil
}

func (r Record) vector(key string) (geom.Vec2, bool) {
	v, ok := r[key].([2]float64)
	if !ok {
		return geom.Vec2{}, false
	}
	return geom.V(v[0], v[1]), true
}

func (r Record) requireVector(key string) (geom.Vec2, error) {
	v, ok := r.vector(key)
	if !ok {
		return geom.Vec2{}, fmt.Errorf("missing vector field %q: %w", key, ErrBadRecord)
	}
	return v, nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...)
	case []prim.Hint:
		return append([]prim.Hint(nil), t...)
	default:
		return v
	}
}

// Snapshot builds the full record of one primitive. Derived fields of
// lines and circles (origin, direction, center, radius) are not
// recorded; replay recomputes them from the parents.
func Snapshot(p prim.Primitive) Record {
	rec := Record{"id": p.ID()}
	switch t := p.(type) {
	case *prim.FreePoint:
		rec["type"] = TypeFree
		rec["position:v"] = vec(t.Position())
	case *prim.IntersectionPoint:
		rec["type"] = TypeIntersection
		rec["parents"] = parentIDs(p)
		rec["position:v"] = vec(t.Position())
		rec["hints"] = t.Hints()
		rec["invalid"] = t.Invalid()
	case *prim.Line:
		rec["type"] = TypeLine
		rec["parents"] = parentIDs(p)
	case *prim.Circle:
		rec["type"] = TypeCircle
		rec["parents"] = parentIDs(p)
	default:
		panic(fmt.Sprintf("record: unknown primitive variant %T", p))
	}
	return rec
}

func parentIDs(p prim.Primitive) []int {
	parents := p.Parents()
	ids := make([]int, len(parents))
	for i, par := range parents {
		ids[i] = par.ID()
	}
	return ids
}

// Recordify snapshots every alive primitive of the registry, ordered by
// ascending level then id so parents always precede children. The
// resulting set is self-contained and replayable into an empty registry.
func Recordify(reg *prim.Registry) []Record {
	prims := reg.Primitives()
	sort.Slice(prims, func(i, j int) bool {
		if prims[i].Level() != prims[j].Level() {
			return prims[i].Level() < prims[j].Level()
		}
		return prims[i].ID() < prims[j].ID()
	})
	recs := make([]Record, len(prims))
	for i, p := range prims {
		recs[i] = Snapshot(p)
	}
	return recs
}

// Marshal encodes a record set as JSON.
func Marshal(recs []Record) ([]byte, error) {
	return json.Marshal(recs)
}

// Unmarshal decodes a record set from JSON, normalizing every field to
// its canonical in-memory type. Malformed input is reported as an
// ErrBadRecord data fault.
func Unmarshal(data []byte) ([]Record, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse records: %v: %w", err, ErrBadRecord)
	}
	recs := make([]Record, len(raw))
	for i, m := range raw {
		rec, err := normalize(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		recs[i] = rec
	}
	return recs, nil
}

func normalize(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, v := range m {
		if idx := strings.IndexByte(k, ':'); idx >= 0 {
			suffix := k[idx+1:]
			if suffix != "v" {
				return nil, fmt.Errorf("unknown tag suffix %q in field %q: %w", suffix, k, ErrBadRecord)
			}
			vv, err := normalizeVector(k, v)
			if err != nil {
				return nil, err
			}
			rec[k] = vv
			continue
		}
		switch k {
		case "id":
			n, ok := v.(float64)
			if !ok || n != float64(int(n)) {
				return nil, fmt.Errorf("id must be an integer: %w", ErrBadRecord)
			}
			rec[k] = int(n)
		case "type":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("type must be a string: %w", ErrBadRecord)
			}
			rec[k] = s
		case "parents":
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("parents must be a list: %w", ErrBadRecord)
			}
			ids := make([]int, len(list))
			for i, e := range list {
				n, ok := e.(float64)
				if !ok || n != float64(int(n)) {
					return nil, fmt.Errorf("parent id must be an integer: %w", ErrBadRecord)
				}
				ids[i] = int(n)
			}
			rec[k] = ids
		case "hints":
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("hints must be a list: %w", ErrBadRecord)
			}
			hints := make([]prim.Hint, len(list))
			for i, e := range list {
				obj, ok := e.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("hint must be an object: %w", ErrBadRecord)
				}
				count, cok := obj["count"].(float64)
				index, iok := obj["index"].(float64)
				if !cok || !iok {
					return nil, fmt.Errorf("hint needs numeric count and index: %w", ErrBadRecord)
				}
				hints[i] = prim.Hint{Count: int(count), Index: int(index)}
			}
			rec[k] = hints
		case "invalid", "disposed":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%s must be a boolean: %w", k, ErrBadRecord)
			}
			rec[k] = b
		default:
			return nil, fmt.Errorf("unknown field %q: %w", k, ErrBadRecord)
		}
	}
	return rec, nil
}

func normalizeVector(key string, v any) ([2]float64, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return [2]float64{}, fmt.Errorf("vector field %q must be a 2-element array: %w", key, ErrBadRecord)
	}
	var out [2]float64
	for i, e := range list {
		n, ok := e.(float64)
		if !ok {
			return [2]float64{}, fmt.Errorf("vector field %q must hold numbers: %w", key, ErrBadRecord)
		}
		out[i] = n
	}
	return out, nil
}
