package models

import "time"

// Event is one round of a season schedule.
type Event struct {
	MeetingKey int       `json:"meetingKey"`
	Round      int       `json:"round"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Country    string    `json:"country"`
	Circuit    string    `json:"circuit"`
	DateStart  time.Time `json:"dateStart"`
}

// SessionInfo is metadata about a loaded provider session.
type SessionInfo struct {
	SessionKey int       `json:"sessionKey"`
	MeetingKey int       `json:"meetingKey"`
	Year       int       `json:"year"`
	Name       string    `json:"name"` // e.g. "Qualifying"
	Code       string    `json:"code"` // FP1, FP2, FP3, Q, S, R
	Event      string    `json:"event"`
	Location   string    `json:"location"`
	Country    string    `json:"country"`
	Circuit    string    `json:"circuit"`
	DateStart  time.Time `json:"dateStart"`
	DateEnd    time.Time `json:"dateEnd"`
}

// Driver identifies one entrant of a session.
type Driver struct {
	Number   int    `json:"number"`
	Code     string `json:"code"` // three-letter acronym, e.g. VER
	FullName string `json:"fullName"`
	Team     string `json:"team"`
}
