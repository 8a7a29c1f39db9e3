// Package metrics computes descriptive per-lap performance statistics over
// a telemetry frame. All reductions are independent column-wise aggregates.
package metrics

import (
	"errors"
	"math"

	"github.com/f1-visualizer/backend/internal/models"
)

// ErrEmptyFrame is returned when a frame has no samples.
var ErrEmptyFrame = errors.New("telemetry frame is empty")

// Thresholds matching the upstream analysis conventions (percent).
const (
	FullThrottleThreshold = 95
	CoastingThreshold     = 5
	BrakeThreshold        = 10
)

// Summary holds the scalar per-lap statistics.
type Summary struct {
	MaxSpeed           float64 `json:"maxSpeed"`
	MinSpeed           float64 `json:"minSpeed"`
	AvgSpeed           float64 `json:"avgSpeed"`
	MaxThrottle        float64 `json:"maxThrottle"`
	MaxBrake           float64 `json:"maxBrake"`
	FullThrottlePct    float64 `json:"fullThrottlePercentage"`
	CoastingPct        float64 `json:"coastingTimePercentage"`
	BrakingPct         float64 `json:"brakingTimePercentage"`
	ThrottleSmoothness float64 `json:"throttleSmoothness"`
	GearShifts         int     `json:"gearShifts"`
}

// Summarize computes the summary statistics for one lap.
func Summarize(frame models.TelemetryFrame) (*Summary, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	s := &Summary{
		MaxSpeed:    frame[0].Speed,
		MinSpeed:    frame[0].Speed,
		MaxThrottle: frame[0].Throttle,
		MaxBrake:    frame[0].Brake,
	}

	var speedSum float64
	var fullThrottle, coasting, braking int
	var throttleDelta float64
	for i, sample := range frame {
		speedSum += sample.Speed
		s.MaxSpeed = math.Max(s.MaxSpeed, sample.Speed)
		s.MinSpeed = math.Min(s.MinSpeed, sample.Speed)
		s.MaxThrottle = math.Max(s.MaxThrottle, sample.Throttle)
		s.MaxBrake = math.Max(s.MaxBrake, sample.Brake)

		if sample.Throttle > FullThrottleThreshold {
			fullThrottle++
		}
		if sample.Throttle < CoastingThreshold && sample.Brake < CoastingThreshold {
			coasting++
		}
		if sample.Brake > BrakeThreshold {
			braking++
		}
		if i > 0 {
			throttleDelta += math.Abs(sample.Throttle - frame[i-1].Throttle)
			if sample.Gear > frame[i-1].Gear {
				s.GearShifts++
			}
		}
	}

	n := float64(len(frame))
	s.AvgSpeed = round2(speedSum / n)
	s.MaxSpeed = round2(s.MaxSpeed)
	s.MinSpeed = round2(s.MinSpeed)
	s.MaxThrottle = round2(s.MaxThrottle)
	s.MaxBrake = round2(s.MaxBrake)
	s.FullThrottlePct = round2(float64(fullThrottle) / n * 100)
	s.CoastingPct = round2(float64(coasting) / n * 100)
	s.BrakingPct = round2(float64(braking) / n * 100)
	if len(frame) > 1 {
		s.ThrottleSmoothness = round2(throttleDelta / (n - 1))
	}
	return s, nil
}

// Zone is a contiguous index range [Start, End] of a frame.
type Zone struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BrakingZones returns the contiguous sample ranges where brake exceeds the
// threshold.
func BrakingZones(frame models.TelemetryFrame, threshold float64) []Zone {
	zones := make([]Zone, 0)
	inZone := false
	var start int
	for i, s := range frame {
		braking := s.Brake > threshold
		switch {
		case braking && !inZone:
			start = i
			inZone = true
		case !braking && inZone:
			zones = append(zones, Zone{Start: start, End: i - 1})
			inZone = false
		}
	}
	if inZone {
		zones = append(zones, Zone{Start: start, End: len(frame) - 1})
	}
	return zones
}

// MaxBrakePerZone returns the peak brake value within each braking zone.
func MaxBrakePerZone(frame models.TelemetryFrame, threshold float64) []float64 {
	zones := BrakingZones(frame, threshold)
	peaks := make([]float64, len(zones))
	for i, z := range zones {
		for j := z.Start; j <= z.End; j++ {
			peaks[i] = math.Max(peaks[i], frame[j].Brake)
		}
	}
	return peaks
}

// GearShift records an upshift event.
type GearShift struct {
	Distance float64 `json:"distance"`
	RPM      float64 `json:"rpm"`
}

// GearShifts returns (distance, rpm) at each upshift.
func GearShifts(frame models.TelemetryFrame) []GearShift {
	shifts := make([]GearShift, 0)
	for i := 1; i < len(frame); i++ {
		if frame[i].Gear > frame[i-1].Gear {
			shifts = append(shifts, GearShift{
				Distance: frame[i-1].Distance,
				RPM:      frame[i-1].RPM,
			})
		}
	}
	return shifts
}

// DRSPoint records a sample where the DRS flap was open.
type DRSPoint struct {
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
}

// DRSActivations returns the samples where DRS was open.
func DRSActivations(frame models.TelemetryFrame) []DRSPoint {
	points := make([]DRSPoint, 0)
	for _, s := range frame {
		if models.DRSOpen(s.DRS) {
			points = append(points, DRSPoint{Distance: s.Distance, Time: s.Time})
		}
	}
	return points
}

// CornerSpeed holds entry, apex and exit speed around one corner.
type CornerSpeed struct {
	Corner int     `json:"corner"`
	Entry  float64 `json:"entry"`
	Apex   float64 `json:"apex"`
	Exit   float64 `json:"exit"`
}

// CornerSpeeds samples the speed at entryOffset meters before, at, and
// exitOffset meters after each apex distance.
func CornerSpeeds(frame models.TelemetryFrame, apexes []float64, entryOffset, exitOffset float64) []CornerSpeed {
	speeds := make([]CornerSpeed, 0, len(apexes))
	for i, apex := range apexes {
		speeds = append(speeds, CornerSpeed{
			Corner: i + 1,
			Entry:  frame[nearestIndex(frame, apex-entryOffset)].Speed,
			Apex:   frame[nearestIndex(frame, apex)].Speed,
			Exit:   frame[nearestIndex(frame, apex+exitOffset)].Speed,
		})
	}
	return speeds
}

// EvenApexes spreads n synthetic apex distances over the frame, used when no
// official corner geometry is available.
func EvenApexes(frame models.TelemetryFrame, n int) []float64 {
	if len(frame) == 0 || n <= 0 {
		return nil
	}
	min := frame[0].Distance
	max := frame[len(frame)-1].Distance
	apexes := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		apexes = append(apexes, min+float64(i)*(max-min)/float64(n))
	}
	return apexes
}

// nearestIndex returns the index of the sample closest to the given
// distance. The frame is distance-ordered, so binary search applies.
func nearestIndex(frame models.TelemetryFrame, distance float64) int {
	lo, hi := 0, len(frame)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if frame[mid].Distance < distance {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && math.Abs(frame[lo-1].Distance-distance) < math.Abs(frame[lo].Distance-distance) {
		return lo - 1
	}
	return lo
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
