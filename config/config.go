// Package config defines the structures to configure a parking planner run.
package config

import (
	"fmt"
	"math"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/motionplan/nlp"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/vehicle"
)

// A Config describes the vehicle, the parking area and how to plan in it.
type Config struct {
	ConfigFilePath string `json:"-"`

	Vehicle   *vehicle.Config  `json:"vehicle,omitempty"`
	Map       costmap.Config   `json:"map"`
	Corridor  corridor.Options `json:"corridor,omitempty"`
	Limits    *ocp.Limits      `json:"limits,omitempty"`
	Objective ocp.Weights      `json:"objective,omitempty"`
	Solver    SolverConfig     `json:"solver,omitempty"`

	// ExtendedDynamics adds the velocity and steering dynamics channels.
	ExtendedDynamics bool `json:"extended_dynamics,omitempty"`
	SeedVelocities   bool `json:"seed_velocities,omitempty"`
	Debug            bool `json:"debug,omitempty"`
}

// SolverConfig names the NLP backend and carries its attributes.
type SolverConfig struct {
	Type       string                 `json:"type,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (sc *SolverConfig) Validate(path string) error {
	switch sc.Type {
	case "", nlp.NloptName, nlp.AugLagName:
		return nil
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown solver type %q", sc.Type))
	}
}

// Build constructs the configured solver.
func (sc *SolverConfig) Build(logger logging.Logger) (nlp.Solver, error) {
	return nlp.New(sc.Type, sc.Attributes, logger)
}

// Ensure fills unset sections with their defaults and validates the result.
func (c *Config) Ensure(logger logging.Logger) error {
	if c.Vehicle == nil {
		c.Vehicle = vehicle.DefaultConfig()
	}
	if c.Limits == nil {
		limits := ocp.DefaultLimits()
		c.Limits = &limits
	}
	if c.Objective == (ocp.Weights{}) {
		c.Objective = ocp.DefaultWeights()
	}
	if c.Corridor.ExpandDistance == 0 {
		c.Corridor.ExpandDistance = corridor.DefaultExpandDistance
	}
	if c.Corridor.Attribution == "" {
		c.Corridor.Attribution = corridor.FirstMatchName
	}
	if c.Solver.Type == "" {
		c.Solver.Type = nlp.DefaultName
	}
	if c.Map.Resolution == 0 {
		c.Map.Resolution = costmap.DefaultResolution
	}
	if logger != nil {
		logger.Debugw("config defaults filled",
			"solver", c.Solver.Type,
			"expand_distance_m", c.Corridor.ExpandDistance,
			"attribution", c.Corridor.Attribution,
		)
	}
	return c.Validate("")
}

// Validate returns every problem found in the config.
func (c *Config) Validate(path string) error {
	var errs error
	if c.Vehicle == nil {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "vehicle"))
	} else {
		errs = multierr.Append(errs, c.Vehicle.Validate(join(path, "vehicle")))
	}
	errs = multierr.Append(errs, c.Map.Validate(join(path, "map")))
	if d := c.Corridor.ExpandDistance; d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(join(path, "corridor"),
			errors.New("expand_distance_m must be a non-negative number")))
	}
	if c.Corridor.Attribution != "" {
		if _, err := corridor.AttributionByName(c.Corridor.Attribution); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(join(path, "corridor"), err))
		}
	}
	if c.Limits != nil {
		errs = multierr.Append(errs, c.Limits.Validate(join(path, "limits")))
	}
	errs = multierr.Append(errs, c.Objective.Validate(join(path, "objective")))
	errs = multierr.Append(errs, c.Solver.Validate(join(path, "solver")))
	return errs
}

// PlanRequest builds the planner request for path. The obstacle index is rasterized from the map.
func (c *Config) PlanRequest(path *motionplan.Path, logger logging.Logger) (*motionplan.PlanRequest, error) {
	m, err := c.Map.Build()
	if err != nil {
		return nil, err
	}
	solver, err := c.Solver.Build(logger.Sublogger("nlp"))
	if err != nil {
		return nil, err
	}
	req := &motionplan.PlanRequest{
		Path:             path,
		Obstacles:        costmap.NewObstacleIndex(m),
		Vehicle:          c.Vehicle,
		Corridor:         c.Corridor,
		Weights:          c.Objective,
		ExtendedDynamics: c.ExtendedDynamics,
		SeedVelocities:   c.SeedVelocities,
		Solver:           solver,
	}
	if c.Limits != nil {
		req.Limits = *c.Limits
	}
	return req, nil
}

// Schema returns the JSON schema of a config file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}
