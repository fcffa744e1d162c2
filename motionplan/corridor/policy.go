package corridor

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/parkplan/spatialmath"
)

// ErrNoHeadingCase is returned when a heading cannot be placed in any of the four heading cases.
var ErrNoHeadingCase = errors.New("heading does not fall in any heading case")

// Side is one edge of the vehicle footprint.
type Side int

// Footprint sides, in the order obstacle points are tested against them.
const (
	Right Side = iota
	Front
	Left
	Rear
)

// Sides lists every side in test order.
var Sides = [4]Side{Right, Front, Left, Rear}

func (s Side) String() string {
	switch s {
	case Right:
		return "right"
	case Front:
		return "front"
	case Left:
		return "left"
	case Rear:
		return "rear"
	}
	return "unknown"
}

// HeadingCase is the quadrant the vehicle heading falls in.
type HeadingCase int

// Heading cases. The numbering matches the quadrant each one covers:
// 1 is [0, π/2), 2 is [π/2, π], 3 is [-π, -π/2), 4 is [-π/2, 0).
const (
	Case1 HeadingCase = iota + 1
	Case2
	Case3
	Case4
)

// ClassifyHeading returns the heading case of theta. Headings outside [-π, π] are wrapped first.
func ClassifyHeading(theta float64) (HeadingCase, error) {
	theta = spatialmath.NormalizeAngle(theta)
	switch {
	case theta >= 0 && theta < math.Pi/2:
		return Case1, nil
	case theta >= math.Pi/2 && theta <= math.Pi:
		return Case2, nil
	case theta >= -math.Pi && theta < -math.Pi/2:
		return Case3, nil
	case theta >= -math.Pi/2 && theta < 0:
		return Case4, nil
	}
	return 0, errors.Wrapf(ErrNoHeadingCase, "heading %v", theta)
}

// Direction is a signed axis direction.
type Direction int

// Axis directions.
const (
	Lower Direction = -1
	Upper Direction = 1
)

// Policy says which way a side faces along each global axis for a given heading case. The same
// directions pick the slab searched for obstacles and the bound the side may tighten: Upper on x
// means the slab extends toward +x and the side tightens x_max.
type Policy struct {
	X Direction
	Y Direction
}

// policyTable is indexed by [case-1][side]. Each entry is the sign of the side's outward normal
// for headings inside the case.
var policyTable = [4][4]Policy{
	// [0, π/2)
	{Right: {Upper, Lower}, Front: {Upper, Upper}, Left: {Lower, Upper}, Rear: {Lower, Lower}},
	// [π/2, π]
	{Right: {Upper, Upper}, Front: {Lower, Upper}, Left: {Lower, Lower}, Rear: {Upper, Lower}},
	// [-π, -π/2)
	{Right: {Lower, Upper}, Front: {Lower, Lower}, Left: {Upper, Lower}, Rear: {Upper, Upper}},
	// [-π/2, 0)
	{Right: {Lower, Lower}, Front: {Upper, Lower}, Left: {Upper, Upper}, Rear: {Lower, Upper}},
}

// PolicyFor returns the table entry for a heading case and side.
func PolicyFor(c HeadingCase, s Side) Policy {
	return policyTable[c-1][s]
}

// Slab returns the region next to an edge that is searched for obstacles. edge is the bounding
// box of the edge itself; the slab keeps the edge extent on the side facing the vehicle and grows
// by expand away from it.
func (p Policy) Slab(edge r2.Rect, expand float64) r2.Rect {
	slab := edge
	if p.X == Upper {
		slab.X.Hi += expand
	} else {
		slab.X.Lo -= expand
	}
	if p.Y == Upper {
		slab.Y.Hi += expand
	} else {
		slab.Y.Lo -= expand
	}
	return slab
}

// Margins are the free distances around a waypoint along each axis.
type Margins struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

func uniformMargins(v float64) Margins {
	return Margins{XMin: v, XMax: v, YMin: v, YMax: v}
}

// tighten lowers the bounds selected by p to the given axis distances when they are smaller.
func (m *Margins) tighten(p Policy, horizontal, vertical float64) {
	if p.X == Upper {
		m.XMax = math.Min(m.XMax, horizontal)
	} else {
		m.XMin = math.Min(m.XMin, horizontal)
	}
	if p.Y == Upper {
		m.YMax = math.Min(m.YMax, vertical)
	} else {
		m.YMin = math.Min(m.YMin, vertical)
	}
}
