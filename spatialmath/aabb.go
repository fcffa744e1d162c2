package spatialmath

import (
	"github.com/golang/geo/r2"
)

// BoundingBox returns the axis aligned bounding box of pts grown by margin on every side.
func BoundingBox(margin float64, pts ...r2.Point) r2.Rect {
	return r2.RectFromPoints(pts...).ExpandedByMargin(margin)
}
