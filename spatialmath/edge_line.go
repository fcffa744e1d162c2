package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	// verticalTolerance is the run below which an edge is treated as the vertical line x = X0.
	verticalTolerance = 1e-9
	// axisTolerance is the smallest direction cosine an axis projection is divided by.
	axisTolerance = 1e-9
)

// EdgeLine is the infinite line through one side of a footprint in slope/intercept form
// y = K*x + B. Vertical sides have no finite slope and are stored as x = X0 with Vertical set.
type EdgeLine struct {
	K        float64
	B        float64
	Vertical bool
	X0       float64

	// dir is the unit direction from the first to the second defining point.
	dir r2.Point
}

// NewEdgeLine returns the line through p1 and p2.
func NewEdgeLine(p1, p2 r2.Point) EdgeLine {
	d := p2.Sub(p1)
	line := EdgeLine{}
	if n := d.Norm(); n > 0 {
		line.dir = d.Mul(1 / n)
	}
	if math.Abs(d.X) <= verticalTolerance*math.Max(1, math.Abs(d.Y)) {
		line.Vertical = true
		line.X0 = p1.X
		line.K = math.Inf(1)
		line.B = math.NaN()
		return line
	}
	line.K = d.Y / d.X
	line.B = p1.Y - line.K*p1.X
	return line
}

// Distance returns the perpendicular distance from p to the line.
func (l EdgeLine) Distance(p r2.Point) float64 {
	if l.Vertical {
		return math.Abs(p.X - l.X0)
	}
	return math.Abs(l.K*p.X+l.B-p.Y) / math.Sqrt(1+l.K*l.K)
}

// AxisDistances splits the perpendicular distance from p into the distance travelled along the
// x axis (horizontal) and along the y axis (vertical) before reaching the line. An axis parallel
// to the line never reaches it and reports +Inf.
func (l EdgeLine) AxisDistances(p r2.Point) (horizontal, vertical float64) {
	dis := l.Distance(p)
	horizontal, vertical = math.Inf(1), math.Inf(1)
	if s := math.Abs(l.dir.Y); s > axisTolerance {
		horizontal = dis / s
	}
	if c := math.Abs(l.dir.X); c > axisTolerance {
		vertical = dis / c
	}
	return horizontal, vertical
}
