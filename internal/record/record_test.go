package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/geometer/geometer/backend-go/internal/geom"
	"github.com/geometer/geometer/backend-go/internal/prim"
)

// sampleRegistry builds a small construction with every primitive
// variant: two free points, a line and a circle through them, and the
// intersection point of the two curves.
func sampleRegistry(t *testing.T) *prim.Registry {
	t.Helper()
	reg := prim.NewRegistry()
	reg.Edit(func() {
		p0 := reg.CreatePoint(geom.V(0, 0))
		p1 := reg.CreatePoint(geom.V(4, 0))
		l := reg.CreateLine(p0, p1)
		c := reg.CreateCircle(p0, p1)
		ip, existing := reg.TryGetOrCreateIntersectionPoint(l, c, geom.V(4, 0), nil)
		if ip == nil || existing {
			t.Fatal("expected a fresh intersection point")
		}
	})
	return reg
}

func TestRecordifyOrder(t *testing.T) {
	reg := sampleRegistry(t)
	recs := Recordify(reg)
	if len(recs) != 5 {
		t.Fatalf("got %d records, want 5", len(recs))
	}
	var ids []int
	for _, rec := range recs {
		id, err := rec.ID()
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	// Free points (level 0) first, then curves, then the intersection.
	if want := []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("record order %v, want %v", ids, want)
	}
}

func TestMarshalRoundtrip(t *testing.T) {
	reg := sampleRegistry(t)
	recs := Recordify(reg)

	data, err := Marshal(recs)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(parsed, recs) {
		t.Fatalf("parsed records differ:\n got %v\nwant %v", parsed, recs)
	}
}

func TestApplyIntoEmptyRegistry(t *testing.T) {
	reg := sampleRegistry(t)
	recs := Recordify(reg)

	replica := prim.NewRegistry()
	if err := Apply(replica, recs); err != nil {
		t.Fatal(err)
	}
	if got := Recordify(replica); !reflect.DeepEqual(got, recs) {
		t.Fatalf("replica records differ:\n got %v\nwant %v", got, recs)
	}

	// Replay must reproduce declared ids, and new ids must not collide
	// with restored ones.
	replica.Edit(func() {
		p := replica.CreatePoint(geom.V(9, 9))
		if p.ID() != 5 {
			t.Fatalf("fresh id after restore = %d, want 5", p.ID())
		}
	})
}

func TestApplyPreservesInvalidIntersection(t *testing.T) {
	reg := prim.NewRegistry()
	reg.Edit(func() {
		a := reg.CreatePoint(geom.V(0, 0))
		b := reg.CreatePoint(geom.V(4, 0))
		c := reg.CreatePoint(geom.V(1, 0))
		d := reg.CreatePoint(geom.V(7, 0))
		c0 := reg.CreateCircle(a, c) // radius 1
		c1 := reg.CreateCircle(b, d) // radius 3, tangent to c0 at (1, 0)
		if ip, _ := reg.TryGetOrCreateIntersectionPoint(c0, c1, geom.V(1, 0), nil); ip == nil {
			t.Fatal("expected tangent intersection")
		}
	})
	// Pull the circles apart; the intersection turns invalid but keeps
	// its last position.
	var moved *prim.FreePoint
	for _, p := range reg.Primitives() {
		if f, ok := p.(*prim.FreePoint); ok && f.Position() == geom.V(4, 0) {
			moved = f
		}
	}
	reg.Edit(func() { moved.MoveTo(geom.V(40, 0)) })

	recs := Recordify(reg)
	replica := prim.NewRegistry()
	if err := Apply(replica, recs); err != nil {
		t.Fatal(err)
	}
	ip, ok := replica.Get(6)
	if !ok {
		t.Fatal("intersection point not restored")
	}
	if !ip.Invalid() {
		t.Error("restored intersection should be invalid")
	}
	if pos := ip.(*prim.IntersectionPoint).Position(); pos != geom.V(1, 0) {
		t.Errorf("restored position = %v, want (1, 0)", pos)
	}
}

func TestUnmarshalFaults(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not a list", `{"id": 0}`},
		{"fractional id", `[{"id": 1.5, "type": "free", "position:v": [0, 0]}]`},
		{"unknown field", `[{"id": 1, "wobble": 3}]`},
		{"unknown tag suffix", `[{"id": 1, "position:q": [0, 0]}]`},
		{"short vector", `[{"id": 1, "type": "free", "position:v": [0]}]`},
		{"vector of strings", `[{"id": 1, "type": "free", "position:v": ["a", "b"]}]`},
		{"non-numeric hint", `[{"id": 1, "hints": [{"count": "two", "index": 0}]}]`},
		{"parents not a list", `[{"id": 1, "parents": 3}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tc.data)); !errors.Is(err, ErrBadRecord) {
				t.Fatalf("err = %v, want ErrBadRecord", err)
			}
		})
	}
}

func TestApplyFaults(t *testing.T) {
	freePoint := func(id int, x, y float64) Record {
		return Record{"id": id, "type": TypeFree, "position:v": [2]float64{x, y}}
	}
	cases := []struct {
		name string
		recs []Record
	}{
		{"missing id", []Record{{"type": TypeFree}}},
		{"duplicate id", []Record{freePoint(1, 0, 0), freePoint(1, 1, 1)}},
		{"unknown type", []Record{{"id": 1, "type": "arc", "parents": []int{0, 0}}}},
		{"unknown parent", []Record{{"id": 1, "type": TypeLine, "parents": []int{7, 8}}}},
		{"curve parent for line", []Record{
			freePoint(1, 0, 0),
			freePoint(2, 1, 0),
			{"id": 3, "type": TypeLine, "parents": []int{1, 2}},
			{"id": 4, "type": TypeLine, "parents": []int{3, 2}},
		}},
		{"point parent for intersection", []Record{
			freePoint(1, 0, 0),
			freePoint(2, 1, 0),
			{"id": 3, "type": TypeIntersection, "parents": []int{1, 2}, "position:v": [2]float64{0, 0}},
		}},
		{"missing position", []Record{{"id": 1, "type": TypeFree}}},
		{"patch unknown id", []Record{{"id": 9, "position:v": [2]float64{0, 0}}}},
		{"dispose unknown id", []Record{{"id": 9, "disposed": true}}},
		{"unpatchable field", []Record{freePoint(1, 0, 0), {"id": 1, "selectable": true}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := prim.NewRegistry()
			if err := Apply(reg, tc.recs); !errors.Is(err, ErrBadRecord) {
				t.Fatalf("err = %v, want ErrBadRecord", err)
			}
			// A failed replay disposes everything it created.
			if reg.Len() != 0 {
				t.Fatalf("registry holds %d primitives after failed replay", reg.Len())
			}
		})
	}
}

func TestApplyDisposeWithChildrenFaults(t *testing.T) {
	reg := sampleRegistry(t)
	n := reg.Len()
	err := Apply(reg, []Record{{"id": 0, "disposed": true}})
	if !errors.Is(err, ErrBadRecord) {
		t.Fatalf("err = %v, want ErrBadRecord", err)
	}
	if reg.Len() != n {
		t.Fatalf("registry holds %d primitives, want %d", reg.Len(), n)
	}
}
