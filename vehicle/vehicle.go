// Package vehicle describes the geometry of a car-like vehicle and produces its collision footprint.
package vehicle

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/parkplan/spatialmath"
)

// Corner indexes into a footprint. The order is the counter-clockwise walk used to build the
// footprint edges: right side (RearRight→FrontRight), front, left, rear.
type Corner int

// Footprint corners.
const (
	RearRight Corner = iota
	FrontRight
	FrontLeft
	RearLeft
)

// Default geometry of a mid-size passenger car, in meters.
const (
	DefaultWheelbase    = 2.8
	DefaultFrontHang    = 0.96
	DefaultRearHang     = 0.929
	DefaultWidth        = 1.942
	DefaultSafetyMargin = 0.1
)

// Config holds the vehicle dimensions. Poses are given at the center of the rear axle.
type Config struct {
	Wheelbase float64 `json:"wheelbase_m"`
	FrontHang float64 `json:"front_hang_m"`
	RearHang  float64 `json:"rear_hang_m"`
	Width     float64 `json:"width_m"`
	// SafetyMargin grows the footprint on every side.
	SafetyMargin float64 `json:"safety_margin_m"`
}

// DefaultConfig returns the configuration of a mid-size passenger car.
func DefaultConfig() *Config {
	return &Config{
		Wheelbase:    DefaultWheelbase,
		FrontHang:    DefaultFrontHang,
		RearHang:     DefaultRearHang,
		Width:        DefaultWidth,
		SafetyMargin: DefaultSafetyMargin,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Wheelbase <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "wheelbase_m")
	}
	if cfg.Width <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "width_m")
	}
	if cfg.FrontHang < 0 || cfg.RearHang < 0 {
		return goutils.NewConfigValidationError(path, errors.New("overhangs cannot be negative"))
	}
	if cfg.SafetyMargin < 0 {
		return goutils.NewConfigValidationError(path, errors.New("safety_margin_m cannot be negative"))
	}
	return nil
}

// Length returns the bumper to bumper length of the vehicle, without the safety margin.
func (cfg *Config) Length() float64 {
	return cfg.RearHang + cfg.Wheelbase + cfg.FrontHang
}

// Footprint returns the four corners of the vehicle rectangle at pose, grown by the safety
// margin, ordered rear-right, front-right, front-left, rear-left.
func Footprint(pose spatialmath.Pose2D, cfg *Config) [4]r2.Point {
	rear := -(cfg.RearHang + cfg.SafetyMargin)
	front := cfg.Wheelbase + cfg.FrontHang + cfg.SafetyMargin
	half := cfg.Width/2 + cfg.SafetyMargin

	return [4]r2.Point{
		RearRight:  pose.Transform(r2.Point{X: rear, Y: -half}),
		FrontRight: pose.Transform(r2.Point{X: front, Y: -half}),
		FrontLeft:  pose.Transform(r2.Point{X: front, Y: half}),
		RearLeft:   pose.Transform(r2.Point{X: rear, Y: half}),
	}
}
