package f1data

import (
	"context"
	"strconv"
	"time"
)

// Wire types mirror the provider's snake_case JSON.

type meetingDTO struct {
	MeetingKey       int       `json:"meeting_key"`
	MeetingName      string    `json:"meeting_name"`
	Location         string    `json:"location"`
	CountryName      string    `json:"country_name"`
	CircuitShortName string    `json:"circuit_short_name"`
	DateStart        time.Time `json:"date_start"`
	Year             int       `json:"year"`
}

type sessionDTO struct {
	SessionKey  int       `json:"session_key"`
	MeetingKey  int       `json:"meeting_key"`
	SessionName string    `json:"session_name"`
	SessionType string    `json:"session_type"`
	DateStart   time.Time `json:"date_start"`
	DateEnd     time.Time `json:"date_end"`
	Year        int       `json:"year"`
}

type driverDTO struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
	FullName     string `json:"full_name"`
	TeamName     string `json:"team_name"`
}

type lapDTO struct {
	LapNumber   int        `json:"lap_number"`
	LapDuration *float64   `json:"lap_duration"`
	DateStart   *time.Time `json:"date_start"`
	IsPitOutLap bool       `json:"is_pit_out_lap"`
}

type carDataDTO struct {
	Date     time.Time `json:"date"`
	Speed    float64   `json:"speed"`
	Throttle float64   `json:"throttle"`
	Brake    float64   `json:"brake"`
	NGear    int       `json:"n_gear"`
	RPM      float64   `json:"rpm"`
	DRS      int       `json:"drs"`
}

type locationDTO struct {
	Date time.Time `json:"date"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Z    float64   `json:"z"`
}

const dateFormat = "2006-01-02T15:04:05.000000-07:00"

func (c *Client) meetings(ctx context.Context, year int) ([]meetingDTO, error) {
	var out []meetingDTO
	err := c.get(ctx, "meetings", []param{eq("year", strconv.Itoa(year))}, &out)
	return out, err
}

func (c *Client) sessions(ctx context.Context, meetingKey int) ([]sessionDTO, error) {
	var out []sessionDTO
	err := c.get(ctx, "sessions", []param{eq("meeting_key", strconv.Itoa(meetingKey))}, &out)
	return out, err
}

func (c *Client) drivers(ctx context.Context, sessionKey int) ([]driverDTO, error) {
	var out []driverDTO
	err := c.get(ctx, "drivers", []param{eq("session_key", strconv.Itoa(sessionKey))}, &out)
	return out, err
}

func (c *Client) laps(ctx context.Context, sessionKey, driverNumber int) ([]lapDTO, error) {
	var out []lapDTO
	err := c.get(ctx, "laps", []param{
		eq("session_key", strconv.Itoa(sessionKey)),
		eq("driver_number", strconv.Itoa(driverNumber)),
	}, &out)
	return out, err
}

func (c *Client) carData(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]carDataDTO, error) {
	var out []carDataDTO
	err := c.get(ctx, "car_data", []param{
		eq("session_key", strconv.Itoa(sessionKey)),
		eq("driver_number", strconv.Itoa(driverNumber)),
		{"date", ">=", from.UTC().Format(dateFormat)},
		{"date", "<", to.UTC().Format(dateFormat)},
	}, &out)
	return out, err
}

func (c *Client) locations(ctx context.Context, sessionKey, driverNumber int, from, to time.Time) ([]locationDTO, error) {
	var out []locationDTO
	err := c.get(ctx, "location", []param{
		eq("session_key", strconv.Itoa(sessionKey)),
		eq("driver_number", strconv.Itoa(driverNumber)),
		{"date", ">=", from.UTC().Format(dateFormat)},
		{"date", "<", to.UTC().Format(dateFormat)},
	}, &out)
	return out, err
}
