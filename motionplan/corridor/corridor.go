// Package corridor computes, for every waypoint of a path, an axis aligned box around the waypoint
// that the obstacle points near the vehicle footprint leave free.
package corridor

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/spatialmath"
	"go.viam.com/parkplan/vehicle"
)

// DefaultExpandDistance is the margin used when Options leaves it unset, in meters.
const DefaultExpandDistance = 0.5

// Options configure a Computer.
type Options struct {
	// ExpandDistance is the default margin on every side of a waypoint and how far past the
	// footprint obstacles are searched.
	ExpandDistance float64 `json:"expand_distance_m,omitempty"`
	// Attribution names the attribution strategy, see AttributionByName.
	Attribution string `json:"attribution,omitempty"`
}

// Bounds holds the corridor of a path as two flat sequences interleaved (x, y) per waypoint.
// Min[2i] ≤ x_i ≤ Max[2i] and Min[2i+1] ≤ y_i ≤ Max[2i+1].
type Bounds struct {
	Max []float64 `json:"h_max"`
	Min []float64 `json:"h_min"`
	// Clearance holds the margins each waypoint's box was built from.
	Clearance []Margins `json:"margins,omitempty"`
}

// Len returns the number of waypoints covered.
func (b *Bounds) Len() int {
	return len(b.Max) / 2
}

// Box returns the free box around waypoint i.
func (b *Bounds) Box(i int) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: b.Min[2*i], Hi: b.Max[2*i]},
		Y: r1.Interval{Lo: b.Min[2*i+1], Hi: b.Max[2*i+1]},
	}
}

// Margins returns the margins waypoint i's box was built from. ok is false when i is out of range
// or the bounds carry no margins.
func (b *Bounds) Margins(i int) (m Margins, ok bool) {
	if i < 0 || i >= len(b.Clearance) {
		return Margins{}, false
	}
	return b.Clearance[i], true
}

func (b *Bounds) append(pose spatialmath.Pose2D, m Margins) {
	b.Max = append(b.Max, pose.X+m.XMax, pose.Y+m.YMax)
	b.Min = append(b.Min, pose.X-m.XMin, pose.Y-m.YMin)
	b.Clearance = append(b.Clearance, m)
}

// Computer produces corridor bounds against a fixed obstacle index and vehicle.
type Computer struct {
	index       costmap.ObstacleIndex
	vehicle     *vehicle.Config
	expand      float64
	attribution Attribution
	logger      logging.Logger
}

// NewComputer returns a Computer over the given obstacles.
func NewComputer(index costmap.ObstacleIndex, vcfg *vehicle.Config, opts Options, logger logging.Logger) (*Computer, error) {
	if index == nil {
		return nil, errors.New("corridor computer needs an obstacle index")
	}
	if vcfg == nil {
		return nil, errors.New("corridor computer needs a vehicle config")
	}
	expand := opts.ExpandDistance
	if expand == 0 {
		expand = DefaultExpandDistance
	}
	if expand < 0 || math.IsNaN(expand) || math.IsInf(expand, 0) {
		return nil, errors.Errorf("expand distance must be a positive finite number, got %v", expand)
	}
	attribution, err := AttributionByName(opts.Attribution)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("corridor")
	}
	return &Computer{
		index:       index,
		vehicle:     vcfg,
		expand:      expand,
		attribution: attribution,
		logger:      logger,
	}, nil
}

// WithAttribution returns a copy of the computer using a different attribution strategy.
func (c *Computer) WithAttribution(a Attribution) *Computer {
	cp := *c
	cp.attribution = a
	return &cp
}

// ExpandDistance returns the default margin.
func (c *Computer) ExpandDistance() float64 {
	return c.expand
}

// Compute returns the corridor of path.
func (c *Computer) Compute(path []spatialmath.Pose2D) (*Bounds, error) {
	bounds := &Bounds{
		Max:       make([]float64, 0, 2*len(path)),
		Min:       make([]float64, 0, 2*len(path)),
		Clearance: make([]Margins, 0, len(path)),
	}
	tightened := 0
	for i, pose := range path {
		m, err := c.WaypointMargins(pose)
		if err != nil {
			return nil, errors.Wrapf(err, "waypoint %d", i)
		}
		if m != uniformMargins(c.expand) {
			tightened++
		}
		bounds.append(pose, m)
	}
	c.logger.Debugw("computed corridor",
		"waypoints", len(path),
		"tightened", tightened,
		"attribution", c.attribution.Name(),
		"expand", c.expand,
	)
	return bounds, nil
}

// WaypointMargins returns the free margins around a single pose.
func (c *Computer) WaypointMargins(pose spatialmath.Pose2D) (Margins, error) {
	if math.IsNaN(pose.X) || math.IsNaN(pose.Y) || math.IsInf(pose.X, 0) || math.IsInf(pose.Y, 0) {
		return Margins{}, errors.Errorf("waypoint position %v is not finite", pose)
	}
	headingCase, err := ClassifyHeading(pose.Theta)
	if err != nil {
		return Margins{}, err
	}

	corners := vehicle.Footprint(pose, c.vehicle)
	near := c.index.Near(spatialmath.BoundingBox(c.expand, corners[:]...))

	margins := uniformMargins(c.expand)
	if len(near) == 0 {
		return margins, nil
	}

	var (
		lines    [4]spatialmath.EdgeLine
		slabs    [4]r2.Rect
		policies [4]Policy
	)
	for _, side := range Sides {
		a, b := corners[side], corners[(int(side)+1)%4]
		lines[side] = spatialmath.NewEdgeLine(a, b)
		policies[side] = PolicyFor(headingCase, side)
		slabs[side] = policies[side].Slab(r2.RectFromPoints(a, b), c.expand)
	}

	for _, pt := range near {
		c.attribution.Attribute(pt, &slabs, func(side Side) {
			horizontal, vertical := lines[side].AxisDistances(pt)
			margins.tighten(policies[side], horizontal, vertical)
		})
	}
	return margins, nil
}
