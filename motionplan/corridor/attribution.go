package corridor

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Names of the built-in attribution strategies.
const (
	FirstMatchName = "first_match"
	ExhaustiveName = "exhaustive"
)

// Attribution decides which footprint sides an obstacle point is charged to. Changing the strategy
// changes how tight the corridor is.
type Attribution interface {
	Name() string
	// Attribute calls visit for each side whose slab contains pt. slabs is indexed by Side.
	Attribute(pt r2.Point, slabs *[4]r2.Rect, visit func(Side))
}

// FirstMatch charges a point to the first side, in Sides order, whose slab strictly contains it.
// A point inside the slabs of two sides only tightens the earlier one.
var FirstMatch Attribution = firstMatch{}

// Exhaustive charges a point to every side whose slab strictly contains it. The result is never
// looser than FirstMatch.
var Exhaustive Attribution = exhaustive{}

type firstMatch struct{}

func (firstMatch) Name() string { return FirstMatchName }

func (firstMatch) Attribute(pt r2.Point, slabs *[4]r2.Rect, visit func(Side)) {
	for _, side := range Sides {
		if slabs[side].InteriorContainsPoint(pt) {
			visit(side)
			return
		}
	}
}

type exhaustive struct{}

func (exhaustive) Name() string { return ExhaustiveName }

func (exhaustive) Attribute(pt r2.Point, slabs *[4]r2.Rect, visit func(Side)) {
	for _, side := range Sides {
		if slabs[side].InteriorContainsPoint(pt) {
			visit(side)
		}
	}
}

// AttributionByName returns the named strategy. The empty name selects FirstMatch.
func AttributionByName(name string) (Attribution, error) {
	switch name {
	case "", FirstMatchName:
		return FirstMatch, nil
	case ExhaustiveName:
		return Exhaustive, nil
	}
	return nil, errors.Errorf("unknown attribution strategy %q", name)
}
