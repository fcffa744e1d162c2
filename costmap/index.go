package costmap

import (
	"sort"

	"github.com/golang/geo/r2"
)

// ObstacleIndex answers broad-phase queries for obstacle points near a vehicle.
type ObstacleIndex interface {
	// Near returns the obstacle points inside box, borders included.
	Near(box r2.Rect) []r2.Point
	// Len returns the number of indexed obstacle points.
	Len() int
}

// SortedIndex keeps obstacle points sorted by x so the x range filter is a pair of binary searches;
// the y range filter is then a linear pass over the x matches.
type SortedIndex struct {
	pts []r2.Point
}

// NewObstacleIndex extracts the world coordinates of every occupied cell of m.
func NewObstacleIndex(m *Map) *SortedIndex {
	var pts []r2.Point
	m.Iterate(func(i, j int, v uint8) bool {
		if v == Occupied {
			pts = append(pts, m.Position(i, j))
		}
		return true
	})
	return newSortedIndex(pts)
}

// NewObstacleIndexFromPoints indexes an explicit list of obstacle points. The slice is copied.
func NewObstacleIndexFromPoints(pts []r2.Point) *SortedIndex {
	return newSortedIndex(append([]r2.Point(nil), pts...))
}

func newSortedIndex(pts []r2.Point) *SortedIndex {
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].X < pts[b].X })
	return &SortedIndex{pts: pts}
}

// Near implements ObstacleIndex.
func (idx *SortedIndex) Near(box r2.Rect) []r2.Point {
	if box.IsEmpty() {
		return nil
	}
	lo := sort.Search(len(idx.pts), func(k int) bool { return idx.pts[k].X >= box.X.Lo })
	hi := sort.Search(len(idx.pts), func(k int) bool { return idx.pts[k].X > box.X.Hi })

	var near []r2.Point
	for _, p := range idx.pts[lo:hi] {
		if p.Y >= box.Y.Lo && p.Y <= box.Y.Hi {
			near = append(near, p)
		}
	}
	return near
}

// Len implements ObstacleIndex.
func (idx *SortedIndex) Len() int {
	return len(idx.pts)
}

// Points returns a copy of all indexed points, sorted by x.
func (idx *SortedIndex) Points() []r2.Point {
	return append([]r2.Point(nil), idx.pts...)
}
