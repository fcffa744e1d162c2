package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose2D is a planar pose: a position and a heading in radians measured counter-clockwise from
// the +x axis.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// NewPose2D returns a new planar pose.
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: theta}
}

// Point returns the position component of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Transform maps a point expressed in the pose's local frame (x forward, y left) into the
// world frame.
func (p Pose2D) Transform(local r2.Point) r2.Point {
	sin, cos := math.Sincos(p.Theta)
	return r2.Point{
		X: p.X + local.X*cos - local.Y*sin,
		Y: p.Y + local.X*sin + local.Y*cos,
	}
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3frad)", p.X, p.Y, p.Theta)
}

// PoseAlmostEqual returns whether two poses match within epsilon on every component, comparing
// headings modulo 2π.
func PoseAlmostEqual(a, b Pose2D, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon &&
		math.Abs(a.Y-b.Y) <= epsilon &&
		math.Abs(NormalizeAngle(a.Theta-b.Theta)) <= epsilon
}

// NormalizeAngle wraps theta into [-π, π]. Non-finite input is returned unchanged.
func NormalizeAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return theta
	}
	if theta >= -math.Pi && theta <= math.Pi {
		return theta
	}
	wrapped := math.Mod(theta+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
