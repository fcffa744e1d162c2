// Package costmap holds the occupancy grid of a parking area and the obstacle index queried by the
// corridor computation.
package costmap

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Cell values.
const (
	Free     uint8 = 0
	Occupied uint8 = 255
)

// Map is an occupancy grid over a rectangular area. Cell (i, j) covers the square whose lower left
// corner is (Bounds.X.Lo + i*res, Bounds.Y.Lo + j*res); its world position is the square's center.
type Map struct {
	mu         sync.RWMutex
	bounds     r2.Rect
	resolution float64
	cols       int
	rows       int
	cells      []uint8
}

// NewMap returns an empty map covering bounds at the given resolution in meters per cell.
func NewMap(bounds r2.Rect, resolution float64) (*Map, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("resolution must be positive, got %f", resolution)
	}
	if bounds.IsEmpty() || bounds.X.Length() <= 0 || bounds.Y.Length() <= 0 {
		return nil, errors.New("map bounds must have positive area")
	}
	cols := int(math.Ceil(bounds.X.Length() / resolution))
	rows := int(math.Ceil(bounds.Y.Length() / resolution))
	return &Map{
		bounds:     bounds,
		resolution: resolution,
		cols:       cols,
		rows:       rows,
		cells:      make([]uint8, cols*rows),
	}, nil
}

// Size returns the number of columns (x) and rows (y) in the grid.
func (m *Map) Size() (int, int) {
	return m.cols, m.rows
}

// Resolution returns the side length of a cell in meters.
func (m *Map) Resolution() float64 {
	return m.resolution
}

// Bounds returns the area covered by the map.
func (m *Map) Bounds() r2.Rect {
	return m.bounds
}

// Position returns the world coordinates of the center of cell (i, j).
func (m *Map) Position(i, j int) r2.Point {
	return r2.Point{
		X: m.bounds.X.Lo + (float64(i)+0.5)*m.resolution,
		Y: m.bounds.Y.Lo + (float64(j)+0.5)*m.resolution,
	}
}

// CellOf returns the cell containing p, and false if p is outside the map.
func (m *Map) CellOf(p r2.Point) (int, int, bool) {
	i := int(math.Floor((p.X - m.bounds.X.Lo) / m.resolution))
	j := int(math.Floor((p.Y - m.bounds.Y.Lo) / m.resolution))
	if !m.inside(i, j) {
		return 0, 0, false
	}
	return i, j, true
}

// At returns the value of cell (i, j); cells outside the grid read as Occupied.
func (m *Map) At(i, j int) uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (*mutableMap)(m).At(i, j)
}

// Occupied reports whether cell (i, j) is occupied.
func (m *Map) Occupied(i, j int) bool {
	return m.At(i, j) == Occupied
}

// Iterate visits every cell in column major order until visit returns false.
func (m *Map) Iterate(visit func(i, j int, v uint8) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	(*mutableMap)(m).Iterate(visit)
}

// MutableMap is the view of a Map handed to Mutate.
type MutableMap interface {
	Iterate(visit func(i, j int, v uint8) bool)
	At(i, j int) uint8
	Set(i, j int, v uint8)
	Unset(i, j int)
	// FillRect marks every cell whose center lies inside r as occupied.
	FillRect(r r2.Rect)
}

// Mutate runs mutator while holding the map's write lock.
func (m *Map) Mutate(mutator func(grid MutableMap)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mutator((*mutableMap)(m))
}

func (m *Map) inside(i, j int) bool {
	return i >= 0 && j >= 0 && i < m.cols && j < m.rows
}

type mutableMap Map

func (mm *mutableMap) Iterate(visit func(i, j int, v uint8) bool) {
	for i := 0; i < mm.cols; i++ {
		for j := 0; j < mm.rows; j++ {
			if !visit(i, j, mm.cells[i*mm.rows+j]) {
				return
			}
		}
	}
}

func (mm *mutableMap) At(i, j int) uint8 {
	if !(*Map)(mm).inside(i, j) {
		return Occupied
	}
	return mm.cells[i*mm.rows+j]
}

func (mm *mutableMap) Set(i, j int, v uint8) {
	if (*Map)(mm).inside(i, j) {
		mm.cells[i*mm.rows+j] = v
	}
}

func (mm *mutableMap) Unset(i, j int) {
	mm.Set(i, j, Free)
}

func (mm *mutableMap) FillRect(r r2.Rect) {
	m := (*Map)(mm)
	for i := 0; i < mm.cols; i++ {
		for j := 0; j < mm.rows; j++ {
			if r.ContainsPoint(m.Position(i, j)) {
				mm.cells[i*mm.rows+j] = Occupied
			}
		}
	}
}
