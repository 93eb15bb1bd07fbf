package record

import (
	"reflect"
	"testing"

	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/prim"
)

func TestMutualDiffEqual(t *testing.T) {
	recs := Recordify(sampleRegistry(t))
	fwd, bwd := MutualDiff(recs, recs)
	if len(fwd) != 0 || len(bwd) != 0 {
		t.Fatalf("diff of equal snapshots = %v / %v, want empty", fwd, bwd)
	}
}

func TestMutualDiffMoveAndCreate(t *testing.T) {
	reg := sampleRegistry(t)
	before := Recordify(reg)

	reg.Edit(func() {
		p1, _ := reg.Get(1)
		p1.(*prim.FreePoint).MoveTo(geom.V(5, 0))
		reg.CreatePoint(geom.V(-2, 7))
	})
	after := Recordify(reg)

	fwd, bwd := MutualDiff(before, after)

	// The move ripples into the intersection point, so forward carries
	// two position patches plus the new point's full record.
	if len(fwd) != 3 {
		t.Fatalf("forward = %v, want 3 records", fwd)
	}
	if len(bwd) != 3 {
		t.Fatalf("backward = %v, want 3 records", bwd)
	}
	for _, rec := range bwd {
		if id, _ := rec.ID(); id == 5 && !rec.Disposed() {
			t.Errorf("backward record for the created point must dispose it: %v", rec)
		}
	}

	replica := prim.NewRegistry()
	if err := Apply(replica, before); err != nil {
		t.Fatal(err)
	}
	if err := Apply(replica, fwd); err != nil {
		t.Fatal(err)
	}
	if got := Recordify(replica); !reflect.DeepEqual(got, after) {
		t.Fatalf("forward replay:\n got %v\nwant %v", got, after)
	}
	if err := Apply(replica, bwd); err != nil {
		t.Fatal(err)
	}
	if got := Recordify(replica); !reflect.DeepEqual(got, before) {
		t.Fatalf("backward replay:\n got %v\nwant %v", got, before)
	}
}

func TestMutualDiffDisposalOrder(t *testing.T) {
	reg := sampleRegistry(t)
	before := Recordify(reg)

	reg.Edit(func() {
		ip, _ := reg.Get(4)
		line, _ := reg.Get(2)
		reg.DisposeAll([]prim.Primitive{line, ip})
	})
	after := Recordify(reg)

	fwd, bwd := MutualDiff(before, after)

	// Forward disposes the intersection point before the line it
	// depends on.
	var disposed []int
	for _, rec := range fwd {
		if !rec.Disposed() {
			t.Fatalf("unexpected non-disposal forward record %v", rec)
		}
		id, _ := rec.ID()
		disposed = append(disposed, id)
	}
	if want := []int{4, 2}; !reflect.DeepEqual(disposed, want) {
		t.Fatalf("forward disposal order %v, want %v", disposed, want)
	}

	// Backward recreates the line before the intersection point.
	var recreated []int
	for _, rec := range bwd {
		if _, ok := rec.Type(); !ok {
			t.Fatalf("backward record %v is not a full record", rec)
		}
		id, _ := rec.ID()
		recreated = append(recreated, id)
	}
	if want := []int{2, 4}; !reflect.DeepEqual(recreated, want) {
		t.Fatalf("backward recreation order %v, want %v", recreated, want)
	}

	replica := prim.NewRegistry()
	for _, step := range [][]Record{before, fwd} {
		if err := Apply(replica, step); err != nil {
			t.Fatal(err)
		}
	}
	if got := Recordify(replica); !reflect.DeepEqual(got, after) {
		t.Fatalf("forward replay:\n got %v\nwant %v", got, after)
	}
	if err := Apply(replica, bwd); err != nil {
		t.Fatal(err)
	}
	if got := Recordify(replica); !reflect.DeepEqual(got, before) {
		t.Fatalf("backward replay:\n got %v\nwant %v", got, before)
	}
}

func TestMutualDiffHintChange(t *testing.T) {
	before := []Record{{
		"id":         4,
		"type":       TypeIntersection,
		"parents":    []int{2, 3},
		"position:v": [2]float64{4, 0},
		"hints":      []prim.Hint{{Count: 2, Index: 0}},
		"invalid":    false,
	}}
	after := []Record{{
		"id":         4,
		"type":       TypeIntersection,
		"parents":    []int{2, 3},
		"position:v": [2]float64{4, 0},
		"hints":      []prim.Hint{{Count: 2, Index: 0}, {Count: 1, Index: 0}},
		"invalid":    false,
	}}
	fwd, bwd := MutualDiff(before, after)
	wantFwd := []Record{{"id": 4, "hints": []prim.Hint{{Count: 2, Index: 0}, {Count: 1, Index: 0}}}}
	wantBwd := []Record{{"id": 4, "hints": []prim.Hint{{Count: 2, Index: 0}}}}
	if !reflect.DeepEqual(fwd, wantFwd) {
		t.Errorf("forward = %v, want %v", fwd, wantFwd)
	}
	if !reflect.DeepEqual(bwd, wantBwd) {
		t.Errorf("backward = %v, want %v", bwd, wantBwd)
	}
}
