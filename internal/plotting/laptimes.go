package plotting

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
)

// RenderLapTimes charts lap number against lap time across a whole stint or
// session. Pit-out laps and laps without a recorded time are skipped.
func RenderLapTimes(title string, laps []models.Lap) ([]byte, error) {
	timed := make(plotter.XYs, 0, len(laps))
	for _, lap := range laps {
		if lap.Valid() {
			timed = append(timed, plotter.XY{X: float64(lap.Number), Y: lap.Duration})
		}
	}
	if len(timed) == 0 {
		return nil, metrics.ErrNoTimedLaps
	}

	p := plot.New()
	p.Title.Text = title
	if p.Title.Text == "" {
		p.Title.Text = "Lap Times"
	}
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Time (s)"
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(timed)
	if err != nil {
		return nil, fmt.Errorf("building lap-time line: %w", err)
	}
	line.Color = plotutil.Color(0)
	points.Color = plotutil.Color(0)
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(3)
	p.Add(line, points)

	return encodePNG(p)
}
