package ocp

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/spatialmath"
)

// Limits bound the control and duration channels. A zero limit leaves its channel unbounded.
type Limits struct {
	// MaxSpeed bounds |v|; reversing is allowed.
	MaxSpeed float64 `json:"max_speed_mps,omitempty"`
	// MaxAcceleration bounds |a|.
	MaxAcceleration float64 `json:"max_acceleration_mps2,omitempty"`
	// MaxSteering bounds |steering| in radians.
	MaxSteering float64 `json:"max_steering_rad,omitempty"`
	// MaxSteeringRate bounds |steeringRate| in radians per second.
	MaxSteeringRate float64 `json:"max_steering_rate_rads,omitempty"`
	MinDuration     float64 `json:"min_duration_s,omitempty"`
	MaxDuration     float64 `json:"max_duration_s,omitempty"`
	// PinEndpoints fixes the pose of the first and last knot to the path.
	PinEndpoints bool `json:"pin_endpoints,omitempty"`
	// StopAtEnds fixes the velocity of the first and last knot to zero.
	StopAtEnds bool `json:"stop_at_ends,omitempty"`
}

// DefaultLimits returns limits for a passenger car parking at low speed.
func DefaultLimits() Limits {
	return Limits{
		MaxSpeed:        2.5,
		MaxAcceleration: 1.0,
		MaxSteering:     0.7,
		MaxSteeringRate: 0.5,
		MinDuration:     0.1,
		MaxDuration:     120,
		PinEndpoints:    true,
		StopAtEnds:      false,
	}
}

// Validate ensures all parts of the config are valid.
func (l *Limits) Validate(path string) error {
	for _, nv := range []namedValue{
		{"max_speed_mps", l.MaxSpeed},
		{"max_acceleration_mps2", l.MaxAcceleration},
		{"max_steering_rad", l.MaxSteering},
		{"max_steering_rate_rads", l.MaxSteeringRate},
		{"min_duration_s", l.MinDuration},
		{"max_duration_s", l.MaxDuration},
	} {
		if nv.value < 0 || math.IsNaN(nv.value) {
			return goutils.NewConfigValidationError(path, errors.Errorf("%s must be a non-negative number, got %v", nv.name, nv.value))
		}
	}
	if l.MaxSteering >= math.Pi/2 {
		return goutils.NewConfigValidationError(path, errors.New("max_steering_rad must be below π/2"))
	}
	if l.MaxDuration > 0 && l.MinDuration > l.MaxDuration {
		return goutils.NewConfigValidationError(path, errors.New("min_duration_s cannot exceed max_duration_s"))
	}
	return nil
}

func symmetric(limit float64) (float64, float64) {
	if limit == 0 {
		return math.Inf(-1), math.Inf(1)
	}
	return -limit, limit
}

// BoxBounds returns the lower and upper variable bounds of a problem: x and y of every knot from
// the corridor, the controls and tf from limits. path supplies the poses pinned by
// Limits.PinEndpoints and may be nil otherwise.
func BoxBounds(shape Shape, bounds *corridor.Bounds, path []spatialmath.Pose2D, limits Limits) ([]float64, []float64, error) {
	if bounds.Len() != shape.Knots {
		return nil, nil, errors.Errorf("corridor covers %d waypoints, problem has %d knots", bounds.Len(), shape.Knots)
	}
	if limits.PinEndpoints && len(path) != shape.Knots {
		return nil, nil, errors.Errorf("pinning endpoints needs %d path poses, got %d", shape.Knots, len(path))
	}

	lower := make([]float64, shape.Len())
	upper := make([]float64, shape.Len())
	set := func(idx int, lo, hi float64) {
		lower[idx], upper[idx] = lo, hi
	}

	vLo, vHi := symmetric(limits.MaxSpeed)
	aLo, aHi := symmetric(limits.MaxAcceleration)
	sLo, sHi := symmetric(limits.MaxSteering)
	rLo, rHi := symmetric(limits.MaxSteeringRate)
	for i := 0; i < shape.Knots; i++ {
		set(shape.Index(i, ChannelX), bounds.Min[2*i], bounds.Max[2*i])
		set(shape.Index(i, ChannelY), bounds.Min[2*i+1], bounds.Max[2*i+1])
		set(shape.Index(i, ChannelHeading), math.Inf(-1), math.Inf(1))
		set(shape.Index(i, ChannelVelocity), vLo, vHi)
		set(shape.Index(i, ChannelAcceleration), aLo, aHi)
		set(shape.Index(i, ChannelSteering), sLo, sHi)
		set(shape.Index(i, ChannelSteeringRate), rLo, rHi)
	}

	tfHi := limits.MaxDuration
	if tfHi == 0 {
		tfHi = math.Inf(1)
	}
	set(shape.DurationIndex(), limits.MinDuration, tfHi)

	for _, i := range []int{0, shape.Knots - 1} {
		if limits.PinEndpoints {
			pose := path[i]
			set(shape.Index(i, ChannelX), pose.X, pose.X)
			set(shape.Index(i, ChannelY), pose.Y, pose.Y)
			set(shape.Index(i, ChannelHeading), pose.Theta, pose.Theta)
		}
		if limits.StopAtEnds {
			set(shape.Index(i, ChannelVelocity), 0, 0)
		}
	}
	return lower, upper, nil
}

// Clamp moves every value of x into [lower, upper] in place.
func Clamp(x, lower, upper []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lower[i]), upper[i])
	}
}
