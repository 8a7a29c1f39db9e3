// Package plotting renders telemetry charts as PNG images.
package plotting

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
)

// Kind selects a chart type.
type Kind string

const (
	KindTrace      Kind = "trace"
	KindComparison Kind = "compare"
	KindSpeedDelta Kind = "delta"
	KindCorners    Kind = "corners"
	KindGearMap    Kind = "gearmap"
	KindBrakeMap   Kind = "brakemap"
	KindTrackMap   Kind = "trackmap"
	KindGG         Kind = "gg"
)

// Kinds lists the supported chart types.
func Kinds() []Kind {
	return []Kind{KindTrace, KindComparison, KindSpeedDelta, KindCorners,
		KindGearMap, KindBrakeMap, KindTrackMap, KindGG}
}

// Errors reported by the renderers.
var (
	ErrUnknownKind    = errors.New("unknown plot kind")
	ErrUnknownChannel = errors.New("unknown telemetry channel")
	ErrEmptyFrame     = errors.New("telemetry frame is empty")
	ErrMissingSecond  = errors.New("plot kind requires a second telemetry frame")
	ErrNoPositionData = errors.New("telemetry frame carries no positional data")
)

// Request describes one chart to render. Other is only consulted by the
// two-driver kinds; ColorBy overrides the coloring channel of the map kinds.
type Request struct {
	Kind       Kind
	Title      string
	Frame      models.TelemetryFrame
	Label      string
	Other      models.TelemetryFrame
	OtherLabel string
	Apexes     []float64
	ColorBy    string
}

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch

	deltaGridPoints = 1000
)

// Render produces a PNG for the requested chart.
func Render(req Request) ([]byte, error) {
	if len(req.Frame) == 0 {
		return nil, ErrEmptyFrame
	}

	switch req.Kind {
	case KindTrace:
		return renderTrace(req)
	case KindComparison:
		return renderComparison(req)
	case KindSpeedDelta:
		return renderSpeedDelta(req)
	case KindCorners:
		return renderCorners(req)
	case KindGearMap:
		return renderColoredMap(req, "Gear Map", "gear")
	case KindBrakeMap:
		return renderColoredMap(req, "Brake Map", "brake")
	case KindTrackMap:
		return renderColoredMap(req, "Track Map", "speed")
	case KindGG:
		return renderGG(req)
	default:
		return nil, fmt.Errorf("%q: %w", req.Kind, ErrUnknownKind)
	}
}

func channelXYs(frame models.TelemetryFrame, value func(models.TelemetrySample) float64) plotter.XYs {
	xys := make(plotter.XYs, len(frame))
	for i, s := range frame {
		xys[i].X = s.Distance
		xys[i].Y = value(s)
	}
	return xys
}

// renderTrace draws speed, throttle and brake as three stacked panels
// sharing the distance axis.
func renderTrace(req Request) ([]byte, error) {
	panels := []struct {
		label string
		value func(models.TelemetrySample) float64
	}{
		{"Speed (km/h)", func(s models.TelemetrySample) float64 { return s.Speed }},
		{"Throttle (%)", func(s models.TelemetrySample) float64 { return s.Throttle }},
		{"Brake (%)", func(s models.TelemetrySample) float64 { return s.Brake }},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p := plot.New()
		p.Y.Label.Text = panel.label
		p.Add(plotter.NewGrid())
		if i == 0 {
			p.Title.Text = req.Title
		}
		if i == len(panels)-1 {
			p.X.Label.Text = "Distance (m)"
		}

		line, err := plotter.NewLine(channelXYs(req.Frame, panel.value))
		if err != nil {
			return nil, fmt.Errorf("building %s line: %w", panel.label, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(panels), Cols: 1,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter,
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding trace PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// renderComparison overlays the speed traces of two laps.
func renderComparison(req Request) ([]byte, error) {
	if len(req.Other) == 0 {
		return nil, ErrMissingSecond
	}

	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Speed (km/h)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	speed := func(s models.TelemetrySample) float64 { return s.Speed }
	if err := plotutil.AddLines(p,
		req.Label, channelXYs(req.Frame, speed),
		req.OtherLabel, channelXYs(req.Other, speed)); err != nil {
		return nil, fmt.Errorf("building comparison lines: %w", err)
	}
	return encodePNG(p)
}

// renderSpeedDelta resamples both laps onto a shared distance grid and plots
// the speed difference (reference minus other).
func renderSpeedDelta(req Request) ([]byte, error) {
	if len(req.Other) == 0 {
		return nil, ErrMissingSecond
	}

	maxDist := math.Min(req.Frame.LapDistance(), req.Other.LapDistance())
	xys := make(plotter.XYs, deltaGridPoints)
	for i := 0; i < deltaGridPoints; i++ {
		d := maxDist * float64(i) / float64(deltaGridPoints-1)
		xys[i].X = d
		xys[i].Y = speedAt(req.Frame, d) - speedAt(req.Other, d)
	}

	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = fmt.Sprintf("Speed delta %s - %s (km/h)", req.Label, req.OtherLabel)
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("building delta line: %w", err)
	}
	line.Color = plotutil.Color(0)
	p.Add(line)

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = color.Gray{Y: 128}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(zero)

	return encodePNG(p)
}

// speedAt linearly interpolates the speed channel at the given distance.
func speedAt(frame models.TelemetryFrame, distance float64) float64 {
	if distance <= frame[0].Distance {
		return frame[0].Speed
	}
	last := frame[len(frame)-1]
	if distance >= last.Distance {
		return last.Speed
	}
	lo, hi := 0, len(frame)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if frame[mid].Distance < distance {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	a, b := frame[lo-1], frame[lo]
	span := b.Distance - a.Distance
	if span <= 0 {
		return a.Speed
	}
	t := (distance - a.Distance) / span
	return a.Speed + (b.Speed-a.Speed)*t
}

// renderCorners draws the speed trace and marks entry, apex and exit speeds
// for each corner.
func renderCorners(req Request) ([]byte, error) {
	apexes := req.Apexes
	if len(apexes) == 0 {
		apexes = metrics.EvenApexes(req.Frame, 8)
	}
	corners := metrics.CornerSpeeds(req.Frame, apexes, 50, 50)

	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Speed (km/h)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	line, err := plotter.NewLine(channelXYs(req.Frame, func(s models.TelemetrySample) float64 { return s.Speed }))
	if err != nil {
		return nil, fmt.Errorf("building speed line: %w", err)
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	p.Legend.Add("speed", line)

	marks := make(plotter.XYs, 0, 3*len(corners))
	for i, c := range corners {
		apex := apexes[i]
		marks = append(marks,
			plotter.XY{X: apex - 50, Y: c.Entry},
			plotter.XY{X: apex, Y: c.Apex},
			plotter.XY{X: apex + 50, Y: c.Exit})
	}
	scatter, err := plotter.NewScatter(marks)
	if err != nil {
		return nil, fmt.Errorf("building corner marks: %w", err)
	}
	scatter.GlyphStyle.Color = plotutil.Color(1)
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("entry / apex / exit", scatter)

	return encodePNG(p)
}

// Channels lists the telemetry channels the map kinds can color by.
func Channels() []string {
	return []string{"speed", "throttle", "brake", "rpm", "gear", "drs"}
}

// channelByName resolves a coloring channel to its sample accessor.
func channelByName(name string) (func(models.TelemetrySample) float64, error) {
	switch strings.ToLower(name) {
	case "speed":
		return func(s models.TelemetrySample) float64 { return s.Speed }, nil
	case "throttle":
		return func(s models.TelemetrySample) float64 { return s.Throttle }, nil
	case "brake":
		return func(s models.TelemetrySample) float64 { return s.Brake }, nil
	case "rpm":
		return func(s models.TelemetrySample) float64 { return s.RPM }, nil
	case "gear":
		return func(s models.TelemetrySample) float64 { return float64(s.Gear) }, nil
	case "drs":
		return func(s models.TelemetrySample) float64 { return float64(s.DRS) }, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownChannel)
}

// renderColoredMap picks the coloring channel for a map kind, honoring the
// request's ColorBy override.
func renderColoredMap(req Request, fallbackTitle, defaultChannel string) ([]byte, error) {
	channel := req.ColorBy
	if channel == "" {
		channel = defaultChannel
	}
	value, err := channelByName(channel)
	if err != nil {
		return nil, err
	}
	if req.ColorBy != "" {
		fallbackTitle = fmt.Sprintf("%s (%s)", fallbackTitle, strings.ToLower(channel))
	}
	return renderMap(req, fallbackTitle, value)
}

// renderMap draws the driven line in track coordinates with each point
// colored by a telemetry channel.
func renderMap(req Request, fallbackTitle string, value func(models.TelemetrySample) float64) ([]byte, error) {
	if !hasPositions(req.Frame) {
		return nil, ErrNoPositionData
	}

	values := make([]float64, len(req.Frame))
	xys := make(plotter.XYs, len(req.Frame))
	min, max := math.Inf(1), math.Inf(-1)
	for i, s := range req.Frame {
		xys[i].X = s.X
		xys[i].Y = s.Y
		values[i] = value(s)
		min = math.Min(min, values[i])
		max = math.Max(max, values[i])
	}

	p := plot.New()
	p.Title.Text = req.Title
	if p.Title.Text == "" {
		p.Title.Text = fallbackTitle
	}
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("building track scatter: %w", err)
	}
	colors := channelColorMap(min, max)
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := colors.At(values[i])
		if err != nil {
			c = color.Black
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
	}
	p.Add(scatter)

	return encodePNG(p)
}

func channelColorMap(min, max float64) palette.ColorMap {
	if max <= min {
		max = min + 1
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(min)
	cm.SetMax(max)
	return cm
}

func hasPositions(frame models.TelemetryFrame) bool {
	for _, s := range frame {
		if s.X != 0 || s.Y != 0 {
			return true
		}
	}
	return false
}

// renderGG plots lateral versus longitudinal acceleration. Neither channel
// is transmitted directly, so both are derived: longitudinal from the speed
// derivative, lateral from the path curvature through the positional
// channels.
func renderGG(req Request) ([]byte, error) {
	if !hasPositions(req.Frame) {
		return nil, ErrNoPositionData
	}
	if len(req.Frame) < 3 {
		return nil, ErrEmptyFrame
	}

	const g = 9.81
	xys := make(plotter.XYs, 0, len(req.Frame)-2)
	for i := 1; i < len(req.Frame)-1; i++ {
		prev, cur, next := req.Frame[i-1], req.Frame[i], req.Frame[i+1]
		dt := next.Time - prev.Time
		if dt <= 0 {
			continue
		}
		long := (next.Speed - prev.Speed) / 3.6 / dt / g
		lat := (cur.Speed / 3.6) * (cur.Speed / 3.6) * curvature(prev, cur, next) / g
		xys = append(xys, plotter.XY{X: lat, Y: long})
	}

	p := plot.New()
	p.Title.Text = req.Title
	if p.Title.Text == "" {
		p.Title.Text = "G-G Diagram"
	}
	p.X.Label.Text = "Lateral (g)"
	p.Y.Label.Text = "Longitudinal (g)"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("building g-g scatter: %w", err)
	}
	scatter.GlyphStyle.Color = plotutil.Color(0)
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(scatter)

	return encodePNG(p)
}

// curvature computes the signed Menger curvature of three consecutive track
// positions (1/m).
func curvature(a, b, c models.TelemetrySample) float64 {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	ab := math.Hypot(b.X-a.X, b.Y-a.Y)
	bc := math.Hypot(c.X-b.X, c.Y-b.Y)
	ca := math.Hypot(c.X-a.X, c.Y-a.Y)
	denom := ab * bc * ca
	if denom == 0 {
		return 0
	}
	return 2 * cross / denom
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("preparing PNG writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
