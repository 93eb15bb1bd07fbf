package geom

import "math"

// SolveQuadratic returns the real roots of a*x^2 + b*x + c = 0.
// Returns nil for a negative discriminant, one root for a double root,
// and two roots with the (+sqrt) root first.
func SolveQuadratic(a, b, c float64) []float64 {
	disc := b*b - 4*a*c
	switch {
	case disc < 0:
		return nil
	case disc == 0:
		return []float64{-b / (2 * a)}
	default:
		sq := math.Sqrt(disc)
		return []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
	}
}

// LineLine intersects the lines p0 + t*d0 and p1 + s*d1.
// The second result is false when the lines are parallel or degenerate
// (the cross ratio is non-finite).
func LineLine(p0, d0, p1, d1 Vec2) (Vec2, bool) {
	t := p1.Sub(p0).Cross(d1) / d0.Cross(d1)
	pt := p0.Add(d0.Scale(t))
	if !pt.IsFinite() {
		return Vec2{}, false
	}
	return pt, true
}

// LineCircle intersects the line p + t*d with the circle around c of
// radius r. Substituting the line parametrization into the circle
// equation yields a quadratic in t; the returned points follow the root
// order of SolveQuadratic.
func LineCircle(p, d, c Vec2, r float64) []Vec2 {
	pc := p.Sub(c)
	qa := d.LengthSq()
	qb := 2 * pc.Dot(d)
	qc := pc.LengthSq() - r*r

	ts := SolveQuadratic(qa, qb, qc)
	pts := make([]Vec2, 0, len(ts))
	for _, t := range ts {
		pts = append(pts, p.Add(d.Scale(t)))
	}
	return pts
}

// CircleCircle intersects two circles by reducing to a line-circle
// intersection along the radical axis. The larger circle is used as the
// reference. Identical circles and zero radii are not handled robustly;
// callers must tolerate an empty or meaningless result for those inputs.
func CircleCircle(c0 Vec2, r0 float64, c1 Vec2, r1 float64) []Vec2 {
	if r1 > r0 {
		c0, c1 = c1, c0
		r0, r1 = r1, r0
	}

	delta := c1.Sub(c0)
	d2 := delta.LengthSq()
	// Foot of the radical axis on the line joining the centers,
	// as a fraction of delta from the reference center.
	t := (d2 + r0*r0 - r1*r1) / (2 * d2)
	foot := c0.Add(delta.Scale(t))

	return LineCircle(foot, delta.Perp(), c0, r0)
}
