package motionplan

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/parkplan/spatialmath"
)

// Path is the initial geometric path handed to the planner: ordered waypoints and the total
// duration to traverse them.
type Path struct {
	Waypoints []spatialmath.Pose2D `json:"waypoints"`
	Duration  float64              `json:"duration"`
}

// NewPathFromRows builds a path from raw rows of the form (x, y, heading, ..., t). Columns past the
// heading are ignored except the last column of the last row, which is the total duration.
func NewPathFromRows(rows [][]float64) (*Path, error) {
	if len(rows) < 2 {
		return nil, errors.Errorf("a path needs at least 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) < 3 {
			return nil, errors.Errorf("path row %d has %d columns, need at least x, y and heading", i, len(row))
		}
	}
	last := rows[len(rows)-1]
	path := &Path{
		Waypoints: lo.Map(rows, func(row []float64, _ int) spatialmath.Pose2D {
			return spatialmath.NewPose2D(row[0], row[1], row[2])
		}),
		Duration: last[len(last)-1],
	}
	return path, path.Validate()
}

// Validate checks the path can seed an optimization.
func (p *Path) Validate() error {
	if len(p.Waypoints) < 2 {
		return errors.Errorf("a path needs at least 2 waypoints, got %d", len(p.Waypoints))
	}
	if !(p.Duration > 0) || math.IsInf(p.Duration, 0) {
		return errors.Errorf("path duration must be positive and finite, got %v", p.Duration)
	}
	for i, wp := range p.Waypoints {
		if math.IsNaN(wp.X) || math.IsNaN(wp.Y) || math.IsNaN(wp.Theta) {
			return errors.Errorf("waypoint %d is not a number", i)
		}
	}
	return nil
}

// Length returns the summed straight line distance between consecutive waypoints.
func (p *Path) Length() float64 {
	total := 0.
	for i := 1; i < len(p.Waypoints); i++ {
		total += p.Waypoints[i].Point().Sub(p.Waypoints[i-1].Point()).Norm()
	}
	return total
}
