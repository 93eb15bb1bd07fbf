package record

import (
	"fmt"
	"sort"

	"github.com/geometer/geometer/backend-go/internal/prim"
)

// Apply replays a record set into the registry inside one edit
// transaction. Full records create primitives under their declared ids,
// partial records patch fields of existing primitives, disposal records
// dispose. Records may reference ids created earlier in the same set or
// already live in the registry; parents must precede children, which
// both Recordify and MutualDiff guarantee.
//
// Any data fault (unknown type tag, duplicate id, unknown reference,
// parent mismatch, missing field) aborts the whole replay: primitives
// created by this pass are disposed in descending level order and an
// ErrBadRecord-wrapped error is returned. Field patches applied before
// the fault are not rolled back.
//
// Apply nests the work in Registry.Edit, so calling it from within an
// open transaction (including another Apply) faults immediately.
func Apply(reg *prim.Registry, recs []Record) (err error) {
	reg.Edit(func() {
		var created []prim.Primitive
		defer func() {
			if err == nil {
				return
			}
			sort.Slice(created, func(i, j int) bool {
				if created[i].Level() != created[j].Level() {
					return created[i].Level() > created[j].Level()
				}
				return created[i].ID() > created[j].ID()
			})
			for _, p := range created {
				reg.Dispose(p)
			}
		}()

		seen := make(map[int]bool, len(recs))
		for i, rec := range recs {
			id, e := rec.ID()
			if e != nil {
				err = fmt.Errorf("record %d: %w", i, e)
				return
			}
			if seen[id] {
				err = fmt.Errorf("record %d: duplicate id %d in replay pass: %w", i, id, ErrBadRecord)
				return
			}
			seen[id] = true

			switch {
			case rec.Disposed():
				e = applyDisposal(reg, id)
			case hasType(rec):
				var p prim.Primitive
				p, e = applyCreation(reg, rec, id)
				if p != nil {
					created = append(created, p)
				}
			default:
				e = applyPatch(reg, rec, id)
			}
			if e != nil {
				err = fmt.Errorf("record %d (id %d): %w", i, id, e)
				return
			}
		}
	})
	return err
}

func hasType(rec Record) bool {
	_, ok := rec.Type()
	return ok
}

func applyDisposal(reg *prim.Registry, id int) error {
	p, ok := reg.Get(id)
	if !ok {
		return fmt.Errorf("dispose unknown primitive: %w", ErrBadRecord)
	}
	if len(p.Children()) != 0 {
		return fmt.Errorf("dispose primitive with live children: %w", ErrBadRecord)
	}
	reg.Dispose(p)
	return nil
}

func applyCreation(reg *prim.Registry, rec Record, id int) (prim.Primitive, error) {
	typ, _ := rec.Type()
	switch typ {
	case TypeFree:
		pos, err := rec.requireVector("position:v")
		if err != nil {
			return nil, err
		}
		return restored(reg.RestorePoint(id, pos))

	case TypeLine:
		p0, p1, err := resolvePoints(reg, rec)
		if err != nil {
			return nil, err
		}
		return restored(reg.RestoreLine(id, p0, p1))

	case TypeCircle:
		p0, p1, err := resolvePoints(reg, rec)
		if err != nil {
			return nil, err
		}
		return restored(reg.RestoreCircle(id, p0, p1))

	case TypeIntersection:
		a, b, err := resolveCurves(reg, rec)
		if err != nil {
			return nil, err
		}
		pos, err := rec.requireVector("position:v")
		if err != nil {
			return nil, err
		}
		hints, _ := rec["hints"].([]prim.Hint)
		invalid, _ := rec["invalid"].(bool)
		return restored(reg.RestoreIntersection(id, a, b, pos, hints, invalid))

	default:
		return nil, fmt.Errorf("unknown primitive type %q: %w", typ, ErrBadRecord)
	}
}

// restored adapts a Restore* result, tagging registry-side failures
// (id collisions) as data faults.
func restored[P prim.Primitive](p P, err error) (prim.Primitive, error) {
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadRecord)
	}
	return p, nil
}

func resolveParents(reg *prim.Registry, rec Record) (prim.Primitive, prim.Primitive, error) {
	ids, err := rec.parents()
	if err != nil {
		return nil, nil, err
	}
	a, ok := reg.Get(ids[0])
	if !ok {
		return nil, nil, fmt.Errorf("unknown parent id %d: %w", ids[0], ErrBadRecord)
	}
	b, ok := reg.Get(ids[1])
	if !ok {
		return nil, nil, fmt.Errorf("unknown parent id %d: %w", ids[1], ErrBadRecord)
	}
	return a, b, nil
}

func resolvePoints(reg *prim.Registry, rec Record) (prim.Point, prim.Point, error) {
	a, b, err := resolveParents(reg, rec)
	if err != nil {
		return nil, nil, err
	}
	pa, ok := a.(prim.Point)
	if !ok {
		return nil, nil, fmt.Errorf("parent %d is not a point: %w", a.ID(), ErrBadRecord)
	}
	pb, ok := b.(prim.Point)
	if !ok {
		return nil, nil, fmt.Errorf("parent %d is not a point: %w", b.ID(), ErrBadRecord)
	}
	return pa, pb, nil
}

func resolveCurves(reg *prim.Registry, rec Record) (prim.Curve, prim.Curve, error) {
	a, b, err := resolveParents(reg, rec)
	if err != nil {
		return nil, nil, err
	}
	ca, ok := a.(prim.Curve)
	if !ok {
		return nil, nil, fmt.Errorf("parent %d is not a curve: %w", a.ID(), ErrBadRecord)
	}
	cb, ok := b.(prim.Curve)
	if !ok {
		return nil, nil, fmt.Errorf("parent %d is not a curve: %w", b.ID(), ErrBadRecord)
	}
	return ca, cb, nil
}

func applyPatch(reg *prim.Registry, rec Record, id int) error {
	p, ok := reg.Get(id)
	if !ok {
		return fmt.Errorf("patch unknown primitive: %w", ErrBadRecord)
	}

	for key := range rec {
		switch key {
		case "id":
		case "position:v":
			pos, err := rec.requireVector("position:v")
			if err != nil {
				return err
			}
			switch t := p.(type) {
			case *prim.FreePoint:
				t.MoveTo(pos)
			case *prim.IntersectionPoint:
				t.SetPosition(pos)
			default:
				return fmt.Errorf("position patch on %T: %w", p, ErrBadRecord)
			}
		case "hints":
			ip, ok := p.(*prim.IntersectionPoint)
			if !ok {
				return fmt.Errorf("hints patch on %T: %w", p, ErrBadRecord)
			}
			hints, ok := rec["hints"].([]prim.Hint)
			if !ok {
				return fmt.Errorf("malformed hints: %w", ErrBadRecord)
			}
			ip.SetHints(hints)
		case "invalid":
			ip, ok := p.(*prim.IntersectionPoint)
			if !ok {
				return fmt.Errorf("invalid patch on %T: %w", p, ErrBadRecord)
			}
			ip.SetInvalid(rec["invalid"].(bool))
		default:
			return fmt.Errorf("unpatchable field %q: %w", key, ErrBadRecord)
		}
	}
	return nil
}
