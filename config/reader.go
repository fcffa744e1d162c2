package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/vehicle"
)

// Read reads a config from the given file. Environment variables in the file are substituted
// before decoding.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := withSectionDefaults(originalPath)
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(logger); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	return &cfg, nil
}

// withSectionDefaults returns a config whose vehicle, limits and objective sections hold their
// defaults, so decoding a partial section only overrides the keys it names.
func withSectionDefaults(originalPath string) Config {
	limits := ocp.DefaultLimits()
	return Config{
		ConfigFilePath: originalPath,
		Vehicle:        vehicle.DefaultConfig(),
		Limits:         &limits,
		Objective:      ocp.DefaultWeights(),
	}
}

// ReadPath reads an initial path file: a JSON array of rows (x, y, heading, ..., t) whose last
// row ends with the total duration.
func ReadPath(filePath string) (*motionplan.Path, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return PathFromReader(bytes.NewReader(buf))
}

// PathFromReader reads an initial path from r.
func PathFromReader(r io.Reader) (*motionplan.Path, error) {
	var rows [][]float64
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "failed to decode path rows from json")
	}
	return motionplan.NewPathFromRows(rows)
}
