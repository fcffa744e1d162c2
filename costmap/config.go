package costmap

import (
	"fmt"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// DefaultResolution is the cell size used when a config leaves it unset, in meters.
const DefaultResolution = 0.1

// RectConfig is an axis aligned rectangle in world coordinates.
type RectConfig struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Rect converts the config into an r2.Rect.
func (rc RectConfig) Rect() r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: rc.XMin, Hi: rc.XMax}, Y: r1.Interval{Lo: rc.YMin, Hi: rc.YMax}}
}

// Validate ensures the rectangle is well formed.
func (rc RectConfig) Validate(path string) error {
	if rc.XMax < rc.XMin || rc.YMax < rc.YMin {
		return goutils.NewConfigValidationError(path, errors.New("max must not be less than min"))
	}
	return nil
}

// Config describes a parking area: its extent, the grid resolution and the obstacles in it.
type Config struct {
	Bounds     RectConfig `json:"bounds"`
	Resolution float64    `json:"resolution_m,omitempty"`
	// Walls marks the outermost ring of cells as occupied.
	Walls     bool         `json:"walls,omitempty"`
	Obstacles []RectConfig `json:"obstacles,omitempty"`
	// Points are single obstacle points; each occupies the cell containing it.
	Points [][2]float64 `json:"points,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Bounds.XMax <= cfg.Bounds.XMin || cfg.Bounds.YMax <= cfg.Bounds.YMin {
		return goutils.NewConfigValidationFieldRequiredError(path, "bounds")
	}
	if cfg.Resolution < 0 {
		return goutils.NewConfigValidationError(path, errors.New("resolution_m cannot be negative"))
	}
	for idx, obs := range cfg.Obstacles {
		if err := obs.Validate(fmt.Sprintf("%s.%s.%d", path, "obstacles", idx)); err != nil {
			return err
		}
	}
	return nil
}

// Build rasterizes the config into a Map.
func (cfg *Config) Build() (*Map, error) {
	if err := cfg.Validate("map"); err != nil {
		return nil, err
	}
	res := cfg.Resolution
	if res == 0 {
		res = DefaultResolution
	}
	m, err := NewMap(cfg.Bounds.Rect(), res)
	if err != nil {
		return nil, err
	}
	m.Mutate(func(grid MutableMap) {
		for _, obs := range cfg.Obstacles {
			grid.FillRect(obs.Rect())
		}
		for _, p := range cfg.Points {
			if i, j, ok := m.CellOf(r2.Point{X: p[0], Y: p[1]}); ok {
				grid.Set(i, j, Occupied)
			}
		}
		if cfg.Walls {
			cols, rows := m.Size()
			for i := 0; i < cols; i++ {
				grid.Set(i, 0, Occupied)
				grid.Set(i, rows-1, Occupied)
			}
			for j := 0; j < rows; j++ {
				grid.Set(0, j, Occupied)
				grid.Set(cols-1, j, Occupied)
			}
		}
	})
	return m, nil
}
