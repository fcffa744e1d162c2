// Package vis renders parking plans with gonum plot.
package vis

import (
	"image/color"
	"io"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/parkplan/motionplan"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/spatialmath"
	"go.viam.com/parkplan/vehicle"
)

// DefaultSize is the width and height of saved images.
const DefaultSize = 8 * vg.Inch

var (
	obstacleColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	corridorColor   = color.RGBA{R: 70, G: 150, B: 230, A: 255}
	pathColor       = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	trajectoryColor = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	footprintColor  = color.RGBA{R: 220, G: 60, B: 40, A: 90}
)

// Scene is everything drawn for one plan. Empty fields are skipped.
type Scene struct {
	Title      string
	Obstacles  []r2.Point
	Corridor   *corridor.Bounds
	Path       []spatialmath.Pose2D
	Trajectory []spatialmath.Pose2D
	// Vehicle, when set, draws the footprint at every trajectory knot.
	Vehicle *vehicle.Config
}

// NewScene collects a plan, the path it was seeded from and the obstacles it avoided.
func NewScene(title string, p *motionplan.Plan, path *motionplan.Path, obstacles []r2.Point, vcfg *vehicle.Config) *Scene {
	s := &Scene{Title: title, Obstacles: obstacles, Vehicle: vcfg}
	if path != nil {
		s.Path = path.Waypoints
	}
	if p != nil {
		s.Corridor = p.Corridor
		if p.Trajectory != nil {
			s.Trajectory = p.Trajectory.Poses()
		}
	}
	return s
}

func posesXY(poses []spatialmath.Pose2D) plotter.XYs {
	return lo.Map(poses, func(p spatialmath.Pose2D, _ int) plotter.XY { return plotter.XY{X: p.X, Y: p.Y} })
}

func rectXY(r r2.Rect) plotter.XYs {
	vertices := r.Vertices()
	return lo.Map(vertices[:], func(v r2.Point, _ int) plotter.XY { return plotter.XY{X: v.X, Y: v.Y} })
}

// Plot builds the plot of the scene.
func (s *Scene) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	if len(s.Obstacles) > 0 {
		pts := lo.Map(s.Obstacles, func(pt r2.Point, _ int) plotter.XY { return plotter.XY{X: pt.X, Y: pt.Y} })
		scatter, err := plotter.NewScatter(plotter.XYs(pts))
		if err != nil {
			return nil, errors.Wrap(err, "obstacles")
		}
		scatter.Color = obstacleColor
		scatter.Shape = draw.BoxGlyph{}
		scatter.Radius = vg.Points(1.5)
		p.Add(scatter)
		p.Legend.Add("obstacles", scatter)
	}

	if s.Corridor != nil {
		for i := 0; i < s.Corridor.Len(); i++ {
			box, err := plotter.NewPolygon(rectXY(s.Corridor.Box(i)))
			if err != nil {
				return nil, errors.Wrapf(err, "corridor box %d", i)
			}
			box.LineStyle.Color = corridorColor
			box.LineStyle.Width = vg.Points(0.5)
			p.Add(box)
			if i == 0 {
				p.Legend.Add("corridor", box)
			}
		}
	}

	if len(s.Path) > 0 {
		line, points, err := plotter.NewLinePoints(posesXY(s.Path))
		if err != nil {
			return nil, errors.Wrap(err, "path")
		}
		line.Color = pathColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		points.Color = pathColor
		p.Add(line, points)
		p.Legend.Add("initial path", line)
	}

	if len(s.Trajectory) > 0 {
		if s.Vehicle != nil {
			for i, pose := range s.Trajectory {
				corners := vehicle.Footprint(pose, s.Vehicle)
				outline := lo.Map(corners[:], func(c r2.Point, _ int) plotter.XY { return plotter.XY{X: c.X, Y: c.Y} })
				fp, err := plotter.NewPolygon(plotter.XYs(outline))
				if err != nil {
					return nil, errors.Wrapf(err, "footprint %d", i)
				}
				fp.LineStyle.Color = footprintColor
				fp.LineStyle.Width = vg.Points(0.5)
				p.Add(fp)
			}
		}
		line, err := plotter.NewLine(posesXY(s.Trajectory))
		if err != nil {
			return nil, errors.Wrap(err, "trajectory")
		}
		line.Color = trajectoryColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("trajectory", line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders the scene to file. The format follows the file extension (png, svg, pdf, ...).
func (s *Scene) Save(file string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Save(DefaultSize, DefaultSize, file), "saving %s", file)
}

// Write renders the scene in the given format to w.
func (s *Scene) Write(w io.Writer, format string) error {
	p, err := s.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultSize, DefaultSize, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
