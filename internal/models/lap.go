package models

import "time"

// LapSelector picks which recorded lap to analyze for a driver.
type LapSelector string

const (
	LapFastest LapSelector = "fastest"
	LapFirst   LapSelector = "first"
	LapLast    LapSelector = "last"
	LapNumber  LapSelector = "number"
)

// Lap is one recorded lap of a driver within a session.
type Lap struct {
	Number    int       `json:"number"`
	Duration  float64   `json:"duration,omitempty"` // seconds, 0 when not completed
	DateStart time.Time `json:"dateStart"`
	PitOut    bool      `json:"pitOut,omitempty"`
}

// Valid reports whether the lap is usable for fastest-lap selection.
func (l Lap) Valid() bool {
	return l.Duration > 0 && !l.DateStart.IsZero() && !l.PitOut
}
