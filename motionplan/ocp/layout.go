// Package ocp formulates parking trajectory optimization as a nonlinear program: the decision
// vector layout, the objective and the discretized kinematic equality constraints.
//
// A decision vector holds N knots of seven values each followed by the total duration tf:
//
//	(x, y, heading, v, a, steering, steeringRate) × N, tf
//
// Knot i sits at time i·dt with dt = tf/(N-1).
package ocp

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/parkplan/spatialmath"
)

// ErrBadShape is returned for decision vectors whose length does not describe at least two knots.
var ErrBadShape = errors.New("decision vector length must be 7·N+1 with N ≥ 2")

// Per-knot channel offsets.
const (
	ChannelX = iota
	ChannelY
	ChannelHeading
	ChannelVelocity
	ChannelAcceleration
	ChannelSteering
	ChannelSteeringRate

	// StatesPerKnot is the number of values stored for each knot.
	StatesPerKnot
)

// MinKnots is the smallest number of knots a trajectory can have.
const MinKnots = 2

var channelNames = [StatesPerKnot]string{"x", "y", "heading", "v", "a", "steering", "steering_rate"}

// ChannelName returns the short name of a channel offset.
func ChannelName(channel int) string {
	if channel < 0 || channel >= StatesPerKnot {
		return "tf"
	}
	return channelNames[channel]
}

// Shape is the knot count of a problem. It is the single place the vector length, the knot count
// and the time step are derived from.
type Shape struct {
	Knots int
}

// NewShape returns the shape of a problem with n knots.
func NewShape(n int) (Shape, error) {
	if n < MinKnots {
		return Shape{}, errors.Wrapf(ErrBadShape, "%d knots", n)
	}
	return Shape{Knots: n}, nil
}

// ShapeOf returns the shape of a decision vector of the given length.
func ShapeOf(vecLen int) (Shape, error) {
	if vecLen < 1 || (vecLen-1)%StatesPerKnot != 0 {
		return Shape{}, errors.Wrapf(ErrBadShape, "length %d", vecLen)
	}
	return NewShape((vecLen - 1) / StatesPerKnot)
}

// Len returns the decision vector length.
func (s Shape) Len() int {
	return StatesPerKnot*s.Knots + 1
}

// Steps returns the number of intervals between knots.
func (s Shape) Steps() int {
	return s.Knots - 1
}

// Index returns the position of a knot's channel in the decision vector.
func (s Shape) Index(knot, channel int) int {
	return StatesPerKnot*knot + channel
}

// DurationIndex returns the position of tf.
func (s Shape) DurationIndex() int {
	return StatesPerKnot * s.Knots
}

// Dt returns the time step encoded in vec.
func (s Shape) Dt(vec []float64) float64 {
	return vec[s.DurationIndex()] / float64(s.Steps())
}

// Check returns ErrBadShape if vec does not have this shape.
func (s Shape) Check(vec []float64) error {
	if len(vec) != s.Len() {
		return errors.Wrapf(ErrBadShape, "expected length %d for %d knots, got %d", s.Len(), s.Knots, len(vec))
	}
	return nil
}

// Pack builds an initial decision vector from a path. Velocity, acceleration, steering and steering
// rate are zero.
func Pack(path []spatialmath.Pose2D, tf float64) ([]float64, error) {
	shape, err := NewShape(len(path))
	if err != nil {
		return nil, err
	}
	vec := make([]float64, shape.Len())
	for i, pose := range path {
		vec[shape.Index(i, ChannelX)] = pose.X
		vec[shape.Index(i, ChannelY)] = pose.Y
		vec[shape.Index(i, ChannelHeading)] = pose.Theta
	}
	vec[shape.DurationIndex()] = tf
	return vec, nil
}

// Channels is a decision vector split into one sequence per channel.
type Channels struct {
	X            []float64
	Y            []float64
	Heading      []float64
	Velocity     []float64
	Acceleration []float64
	Steering     []float64
	SteeringRate []float64
	Duration     float64
}

// Unpack splits vec into its channels. The result does not alias vec.
func Unpack(vec []float64) (*Channels, error) {
	shape, err := ShapeOf(len(vec))
	if err != nil {
		return nil, err
	}
	stride := func(channel int) []float64 {
		out := make([]float64, shape.Knots)
		for i := range out {
			out[i] = vec[shape.Index(i, channel)]
		}
		return out
	}
	return &Channels{
		X:            stride(ChannelX),
		Y:            stride(ChannelY),
		Heading:      stride(ChannelHeading),
		Velocity:     stride(ChannelVelocity),
		Acceleration: stride(ChannelAcceleration),
		Steering:     stride(ChannelSteering),
		SteeringRate: stride(ChannelSteeringRate),
		Duration:     vec[shape.DurationIndex()],
	}, nil
}

// Poses returns the (x, y, heading) of every knot.
func (c *Channels) Poses() []spatialmath.Pose2D {
	return lo.Map(c.X, func(x float64, i int) spatialmath.Pose2D {
		return spatialmath.NewPose2D(x, c.Y[i], c.Heading[i])
	})
}

// Knot is one timestamped sample of an optimized trajectory.
type Knot struct {
	Time         float64 `json:"t"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Heading      float64 `json:"heading"`
	Velocity     float64 `json:"v"`
	Acceleration float64 `json:"a"`
	Steering     float64 `json:"steering"`
	SteeringRate float64 `json:"steering_rate"`
}

// Pose returns the knot's pose.
func (k Knot) Pose() spatialmath.Pose2D {
	return spatialmath.NewPose2D(k.X, k.Y, k.Heading)
}

// Trajectory is the timestamped view of a decision vector.
type Trajectory struct {
	Knots    []Knot  `json:"knots"`
	Duration float64 `json:"duration"`
}

// NewTrajectory builds the timestamped knots encoded in vec.
func NewTrajectory(vec []float64) (*Trajectory, error) {
	shape, err := ShapeOf(len(vec))
	if err != nil {
		return nil, err
	}
	dt := shape.Dt(vec)
	knots := make([]Knot, shape.Knots)
	for i := range knots {
		at := func(channel int) float64 { return vec[shape.Index(i, channel)] }
		knots[i] = Knot{
			Time:         float64(i) * dt,
			X:            at(ChannelX),
			Y:            at(ChannelY),
			Heading:      at(ChannelHeading),
			Velocity:     at(ChannelVelocity),
			Acceleration: at(ChannelAcceleration),
			Steering:     at(ChannelSteering),
			SteeringRate: at(ChannelSteeringRate),
		}
	}
	return &Trajectory{Knots: knots, Duration: vec[shape.DurationIndex()]}, nil
}

// Poses returns the pose of every knot.
func (t *Trajectory) Poses() []spatialmath.Pose2D {
	return lo.Map(t.Knots, func(k Knot, _ int) spatialmath.Pose2D { return k.Pose() })
}

// SeedVelocities replaces the velocity of every knot but the last with the speed that carries it
// to the next knot along its heading in one time step. The last knot keeps its velocity.
func SeedVelocities(shape Shape, vec []float64) {
	dt := shape.Dt(vec)
	if dt == 0 {
		return
	}
	for i := 0; i < shape.Steps(); i++ {
		heading := vec[shape.Index(i, ChannelHeading)]
		dx := vec[shape.Index(i+1, ChannelX)] - vec[shape.Index(i, ChannelX)]
		dy := vec[shape.Index(i+1, ChannelY)] - vec[shape.Index(i, ChannelY)]
		vec[shape.Index(i, ChannelVelocity)] = (dx*math.Cos(heading) + dy*math.Sin(heading)) / dt
	}
}
