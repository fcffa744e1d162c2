// Package utils contains small helpers shared by the command line tools.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngDeg wraps an angle in degrees into [0, 360).
func ModAngDeg(ang float64) float64 {
	return math.Mod(math.Mod(ang, 360)+360, 360)
}

// HeadingDeg returns a heading in radians as degrees in [0, 360).
func HeadingDeg(radians float64) float64 {
	return ModAngDeg(RadToDeg(radians))
}
