// Package models contains domain types for the F1 Telemetry Visualizer.
package models

// TelemetrySample is one recorded instant of car sensor data at a given
// track distance.
type TelemetrySample struct {
	Time     float64 `json:"time"`     // seconds since lap start
	Distance float64 `json:"distance"` // meters along the lap
	Speed    float64 `json:"speed"`    // km/h
	Throttle float64 `json:"throttle"` // 0-100 %
	Brake    float64 `json:"brake"`    // 0-100 %
	RPM      float64 `json:"rpm"`
	Gear     int     `json:"nGear"`
	DRS      int     `json:"drs"` // raw provider DRS code
	X        float64 `json:"x"`   // meters
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
}

// TelemetryFrame is an ordered sequence of samples for one driver/lap,
// sorted by time.
type TelemetryFrame []TelemetrySample

// LapDistance returns the distance covered by the frame.
func (f TelemetryFrame) LapDistance() float64 {
	if len(f) == 0 {
		return 0
	}
	return f[len(f)-1].Distance
}

// Duration returns the elapsed time covered by the frame in seconds.
func (f TelemetryFrame) Duration() float64 {
	if len(f) == 0 {
		return 0
	}
	return f[len(f)-1].Time - f[0].Time
}

// DRSOpen reports whether a raw provider DRS code means the flap is open.
func DRSOpen(code int) bool {
	return code == 10 || code == 12 || code == 14
}
