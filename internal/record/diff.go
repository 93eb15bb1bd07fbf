package record

import (
	"fmt"
	"reflect"
)

// MutualDiff compares two dependency-ordered snapshots of the same
// registry and returns the record sets that turn one into the other:
// replaying forward on the before state yields the after state, and
// replaying backward on the after state restores the before state.
//
// Primitives are paired by id; ids are never reused within a registry
// session, so a shared id always names the same primitive. A primitive
// present only in before produces a forward disposal and a backward
// recreation; one present only in after, the reverse. A primitive in
// both produces field patches for the mutable fields that differ.
//
// Both outputs keep the replay contract: disposals first, children
// before parents; then creations and patches in snapshot order, so
// parents of created primitives always precede them. Equal snapshots
// yield two empty diffs.
func MutualDiff(before, after []Record) (forward, backward []Record) {
	beforeByID := indexByID(before)
	afterByID := indexByID(after)

	var fwdDisp, fwdRest []Record
	var bwdDisp, bwdRest []Record

	// Input order is ascending (level, id), so reverse iteration
	// disposes children before their parents.
	for i := len(before) - 1; i >= 0; i-- {
		id := mustID(before[i])
		if _, ok := afterByID[id]; !ok {
			fwdDisp = append(fwdDisp, Record{"id": id, "disposed": true})
		}
	}
	for i := len(after) - 1; i >= 0; i-- {
		id := mustID(after[i])
		if _, ok := beforeByID[id]; !ok {
			bwdDisp = append(bwdDisp, Record{"id": id, "disposed": true})
		}
	}

	for _, rec := range after {
		id := mustID(rec)
		old, ok := beforeByID[id]
		if !ok {
			fwdRest = append(fwdRest, rec.Clone())
			continue
		}
		if patch := fieldPatch(id, old, rec); patch != nil {
			fwdRest = append(fwdRest, patch)
		}
	}
	for _, rec := range before {
		id := mustID(rec)
		cur, ok := afterByID[id]
		if !ok {
			bwdRest = append(bwdRest, rec.Clone())
			continue
		}
		if patch := fieldPatch(id, cur, rec); patch != nil {
			bwdRest = append(bwdRest, patch)
		}
	}

	return append(fwdDisp, fwdRest...), append(bwdDisp, bwdRest...)
}

func indexByID(recs []Record) map[int]Record {
	byID := make(map[int]Record, len(recs))
	for _, rec := range recs {
		byID[mustID(rec)] = rec
	}
	return byID
}

func mustID(rec Record) int {
	id, err := rec.ID()
	if err != nil {
		panic(fmt.Sprintf("record: diff input %v", err))
	}
	return id
}

// fieldPatch builds the partial record setting every mutable field of
// from to its value in to, or nil when nothing differs.
func fieldPatch(id int, from, to Record) Record {
	var patch Record
	for k, v := range to {
		if immutableKey(k) {
			continue
		}
		if reflect.DeepEqual(from[k], v) {
			continue
		}
		if patch == nil {
			patch = Record{"id": id}
		}
		patch[k] = cloneValue(v)
	}
	return patch
}
