package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, -math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2 * math.Pi, 0},
	}
	for _, c := range cases {
		test.That(t, NormalizeAngle(c.in), test.ShouldAlmostEqual, c.out, 1e-12)
	}
	test.That(t, math.IsNaN(NormalizeAngle(math.NaN())), test.ShouldBeTrue)
}

func TestPoseTransform(t *testing.T) {
	p := NewPose2D(1, 2, math.Pi/2)
	got := p.Transform(r2.Point{X: 1, Y: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, 3, 1e-12)

	got = p.Transform(r2.Point{X: 0, Y: 1})
	test.That(t, got.X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, 2, 1e-12)

	test.That(t, PoseAlmostEqual(NewPose2D(0, 0, math.Pi), NewPose2D(0, 0, -math.Pi), 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(NewPose2D(0, 0, 0), NewPose2D(0, 0.1, 0), 1e-9), test.ShouldBeFalse)
}

func TestEdgeLine(t *testing.T) {
	t.Run("sloped", func(t *testing.T) {
		line := NewEdgeLine(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1})
		test.That(t, line.Vertical, test.ShouldBeFalse)
		test.That(t, line.K, test.ShouldAlmostEqual, 1)
		test.That(t, line.B, test.ShouldAlmostEqual, 0)

		p := r2.Point{X: 1, Y: 0}
		test.That(t, line.Distance(p), test.ShouldAlmostEqual, math.Sqrt2/2, 1e-12)
		h, v := line.AxisDistances(p)
		test.That(t, h, test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, v, test.ShouldAlmostEqual, 1, 1e-12)
	})

	t.Run("vertical", func(t *testing.T) {
		line := NewEdgeLine(r2.Point{X: 2, Y: -1}, r2.Point{X: 2, Y: 1})
		test.That(t, line.Vertical, test.ShouldBeTrue)
		test.That(t, line.X0, test.ShouldEqual, 2.)

		p := r2.Point{X: 2.5, Y: 0}
		test.That(t, line.Distance(p), test.ShouldAlmostEqual, 0.5, 1e-12)
		h, v := line.AxisDistances(p)
		test.That(t, h, test.ShouldAlmostEqual, 0.5, 1e-12)
		test.That(t, math.IsInf(v, 1), test.ShouldBeTrue)
	})

	t.Run("horizontal", func(t *testing.T) {
		line := NewEdgeLine(r2.Point{X: -1, Y: 3}, r2.Point{X: 1, Y: 3})
		h, v := line.AxisDistances(r2.Point{X: 0, Y: 3.25})
		test.That(t, math.IsInf(h, 1), test.ShouldBeTrue)
		test.That(t, v, test.ShouldAlmostEqual, 0.25, 1e-12)
	})

	t.Run("degenerate", func(t *testing.T) {
		line := NewEdgeLine(r2.Point{X: 1, Y: 1}, r2.Point{X: 1, Y: 1})
		h, v := line.AxisDistances(r2.Point{X: 0, Y: 0})
		test.That(t, math.IsInf(h, 1), test.ShouldBeTrue)
		test.That(t, math.IsInf(v, 1), test.ShouldBeTrue)
	})
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox(0.5, r2.Point{X: 0, Y: 0}, r2.Point{X: 2, Y: -1}, r2.Point{X: 1, Y: 3})
	test.That(t, box.X.Lo, test.ShouldAlmostEqual, -0.5)
	test.That(t, box.X.Hi, test.ShouldAlmostEqual, 2.5)
	test.That(t, box.Y.Lo, test.ShouldAlmostEqual, -1.5)
	test.That(t, box.Y.Hi, test.ShouldAlmostEqual, 3.5)
}
