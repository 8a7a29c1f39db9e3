// Package testutil provides test doubles shared across packages.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"
)

// StubProvider is a fake OpenF1-compatible API serving a small fixed
// dataset: the 2024 Bahrain and Monaco events with a Monaco qualifying
// session for drivers VER (#1) and HAM (#44).
type StubProvider struct {
	Server   *httptest.Server
	requests atomic.Int64
}

// Fixture keys used by the stub dataset.
const (
	StubMonacoMeeting  = 1212
	StubBahrainMeeting = 1201
	StubQualifying     = 7772
)

// NewStubProvider starts the stub HTTP server. Callers own the shutdown via
// Close.
func NewStubProvider() *StubProvider {
	p := &StubProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/meetings", p.handleMeetings)
	mux.HandleFunc("/sessions", p.handleSessions)
	mux.HandleFunc("/drivers", p.handleDrivers)
	mux.HandleFunc("/laps", p.handleLaps)
	mux.HandleFunc("/car_data", p.handleCarData)
	mux.HandleFunc("/location", p.handleLocation)
	p.Server = httptest.NewServer(mux)
	return p
}

// URL returns the stub's base URL.
func (p *StubProvider) URL() string { return p.Server.URL }

// Close shuts the stub down.
func (p *StubProvider) Close() { p.Server.Close() }

// Requests returns how many requests the stub has served.
func (p *StubProvider) Requests() int64 { return p.requests.Load() }

func (p *StubProvider) count(w http.ResponseWriter, v any) {
	p.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (p *StubProvider) handleMeetings(w http.ResponseWriter, r *http.Request) {
	p.count(w, []map[string]any{
		{
			"meeting_key": StubMonacoMeeting, "meeting_name": "Monaco Grand Prix",
			"location": "Monaco", "country_name": "Monaco",
			"circuit_short_name": "Monte Carlo",
			"date_start":         "2024-05-24T11:30:00+00:00", "year": 2024,
		},
		{
			"meeting_key": StubBahrainMeeting, "meeting_name": "Bahrain Grand Prix",
			"location": "Sakhir", "country_name": "Bahrain",
			"circuit_short_name": "Sakhir",
			"date_start":         "2024-02-29T11:30:00+00:00", "year": 2024,
		},
	})
}

func (p *StubProvider) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("meeting_key") != "1212" {
		p.count(w, []map[string]any{})
		return
	}
	p.count(w, []map[string]any{
		{
			"session_key": 7771, "meeting_key": StubMonacoMeeting,
			"session_name": "Practice 1", "session_type": "Practice",
			"date_start": "2024-05-24T11:30:00+00:00", "date_end": "2024-05-24T12:30:00+00:00",
			"year": 2024,
		},
		{
			"session_key": StubQualifying, "meeting_key": StubMonacoMeeting,
			"session_name": "Qualifying", "session_type": "Qualifying",
			"date_start": "2024-05-25T14:00:00+00:00", "date_end": "2024-05-25T15:00:00+00:00",
			"year": 2024,
		},
	})
}

func (p *StubProvider) handleDrivers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("session_key") != "7772" {
		p.count(w, []map[string]any{})
		return
	}
	p.count(w, []map[string]any{
		{"driver_number": 1, "name_acronym": "VER", "full_name": "Max VERSTAPPEN", "team_name": "Red Bull Racing"},
		{"driver_number": 44, "name_acronym": "HAM", "full_name": "Lewis HAMILTON", "team_name": "Mercedes"},
	})
}

func (p *StubProvider) handleLaps(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("driver_number") {
	case "1":
		p.count(w, []map[string]any{
			{"lap_number": 1, "lap_duration": nil, "date_start": "2024-05-25T14:05:00+00:00", "is_pit_out_lap": true},
			{"lap_number": 3, "lap_duration": 71.2, "date_start": "2024-05-25T14:12:00+00:00", "is_pit_out_lap": false},
			{"lap_number": 2, "lap_duration": 72.5, "date_start": "2024-05-25T14:10:00+00:00", "is_pit_out_lap": false},
		})
	case "44":
		p.count(w, []map[string]any{
			{"lap_number": 1, "lap_duration": 73.0, "date_start": "2024-05-25T14:09:00+00:00", "is_pit_out_lap": false},
			{"lap_number": 2, "lap_duration": 72.8, "date_start": "2024-05-25T14:11:30+00:00", "is_pit_out_lap": false},
		})
	default:
		p.count(w, []map[string]any{})
	}
}

// windowStart extracts the date>= bound from the raw query.
func windowStart(r *http.Request) time.Time {
	for _, seg := range strings.Split(r.URL.RawQuery, "&") {
		seg, err := unescape(seg)
		if err != nil {
			continue
		}
		if rest, ok := strings.CutPrefix(seg, "date>="); ok {
			if ts, err := time.Parse("2006-01-02T15:04:05.000000-07:00", rest); err == nil {
				return ts
			}
		}
	}
	return time.Date(2024, 5, 25, 14, 10, 0, 0, time.UTC)
}

func unescape(seg string) (string, error) {
	seg = strings.ReplaceAll(seg, "%3A", ":")
	seg = strings.ReplaceAll(seg, "%2B", "+")
	return seg, nil
}

func (p *StubProvider) handleCarData(w http.ResponseWriter, r *http.Request) {
	start := windowStart(r)
	samples := make([]map[string]any, 0, 40)
	for i := 0; i < 40; i++ {
		var speed, throttle, brake float64
		gear := 5
		drs := 1
		switch {
		case i < 20: // accelerating down the straight
			speed = 150 + 5*float64(i)
			throttle = 100
			gear = 6
			if i >= 12 && i < 18 {
				drs = 12
			}
		case i < 28: // braking zone
			speed = 250 - 15*float64(i-20)
			brake = 90
			gear = 3
		default: // coasting through the corner
			speed = 130
			throttle = 2
			brake = 1
			gear = 3
		}
		samples = append(samples, map[string]any{
			"date":     start.Add(time.Duration(i) * 250 * time.Millisecond).Format(time.RFC3339Nano),
			"speed":    speed,
			"throttle": throttle,
			"brake":    brake,
			"n_gear":   gear,
			"rpm":      9000 + 50*float64(i),
			"drs":      drs,
		})
	}
	p.count(w, samples)
}

func (p *StubProvider) handleLocation(w http.ResponseWriter, r *http.Request) {
	start := windowStart(r)
	points := make([]map[string]any, 0, 20)
	for i := 0; i < 20; i++ {
		points = append(points, map[string]any{
			"date": start.Add(time.Duration(i) * 500 * time.Millisecond).Format(time.RFC3339Nano),
			"x":    100 * float64(i),
			"y":    50 * float64(i),
			"z":    7.0,
		})
	}
	p.count(w, points)
}
