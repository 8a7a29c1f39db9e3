package metrics

import (
	"errors"
	"math"

	"github.com/f1-visualizer/backend/internal/models"
)

// ErrNoTimedLaps is returned when no lap in the input has a usable time.
var ErrNoTimedLaps = errors.New("no timed laps")

// LapTimeStats summarizes the lap times of a whole stint or session.
// Pit-out laps and laps without a recorded duration are excluded from the
// timed aggregates.
type LapTimeStats struct {
	Laps       int     `json:"laps"`
	TimedLaps  int     `json:"timedLaps"`
	FastestLap int     `json:"fastestLap"`
	Fastest    float64 `json:"fastest"`
	Slowest    float64 `json:"slowest"`
	Average    float64 `json:"average"`
	StdDev     float64 `json:"stdDev"`
}

// SummarizeLapTimes computes lap-time statistics over all laps of a driver.
func SummarizeLapTimes(laps []models.Lap) (*LapTimeStats, error) {
	stats := &LapTimeStats{Laps: len(laps)}

	var sum float64
	for _, lap := range laps {
		if !lap.Valid() {
			continue
		}
		if stats.TimedLaps == 0 || lap.Duration < stats.Fastest {
			stats.Fastest = lap.Duration
			stats.FastestLap = lap.Number
		}
		if lap.Duration > stats.Slowest {
			stats.Slowest = lap.Duration
		}
		sum += lap.Duration
		stats.TimedLaps++
	}
	if stats.TimedLaps == 0 {
		return nil, ErrNoTimedLaps
	}

	mean := sum / float64(stats.TimedLaps)
	var sq float64
	for _, lap := range laps {
		if lap.Valid() {
			sq += (lap.Duration - mean) * (lap.Duration - mean)
		}
	}
	if stats.TimedLaps > 1 {
		stats.StdDev = round2(math.Sqrt(sq / float64(stats.TimedLaps-1)))
	}
	stats.Fastest = round2(stats.Fastest)
	stats.Slowest = round2(stats.Slowest)
	stats.Average = round2(mean)
	return stats, nil
}
