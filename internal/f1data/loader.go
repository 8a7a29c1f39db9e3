package f1data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/log"
	"github.com/f1-visualizer/backend/internal/models"
)

// Domain errors surfaced by the loader.
var (
	ErrTrackNotFound   = errors.New("track not found in schedule")
	ErrSessionNotFound = errors.New("session not found for event")
	ErrDriverNotFound  = errors.New("driver not found in session")
	ErrNoLaps          = errors.New("no laps recorded for driver")
	ErrNoTelemetry     = errors.New("no telemetry data found for lap")
)

// sessionNames maps CLI/API session codes to the provider's session names.
var sessionNames = map[string]string{
	"FP1": "Practice 1",
	"FP2": "Practice 2",
	"FP3": "Practice 3",
	"Q":   "Qualifying",
	"S":   "Sprint",
	"R":   "Race",
}

// SessionCodes lists the accepted session code values.
func SessionCodes() []string {
	codes := make([]string, 0, len(sessionNames))
	for c := range sessionNames {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Loader assembles domain objects from provider responses. It mirrors the
// session -> laps -> telemetry object model of the upstream library.
type Loader struct {
	client *Client
}

// NewLoader creates a loader on top of a provider client.
func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

// Schedule returns the event calendar for a year, ordered by date with
// round numbers assigned.
func (l *Loader) Schedule(ctx context.Context, year int) ([]models.Event, error) {
	meetings, err := l.client.meetings(ctx, year)
	if err != nil {
		return nil, err
	}
	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].DateStart.Before(meetings[j].DateStart)
	})

	events := make([]models.Event, 0, len(meetings))
	for i, m := range meetings {
		events = append(events, models.Event{
			MeetingKey: m.MeetingKey,
			Round:      i + 1,
			Name:       m.MeetingName,
			Location:   m.Location,
			Country:    m.CountryName,
			Circuit:    m.CircuitShortName,
			DateStart:  m.DateStart,
		})
	}
	return events, nil
}

// LoadSession resolves a year/track/session tuple to a provider session and
// returns its metadata and entrants. track may be an event name, location,
// circuit name, or a round number.
func (l *Loader) LoadSession(ctx context.Context, year int, track, code string) (*models.SessionInfo, []models.Driver, error) {
	name, ok := sessionNames[strings.ToUpper(code)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown session code %q (want one of %s)",
			code, strings.Join(SessionCodes(), ", "))
	}

	events, err := l.Schedule(ctx, year)
	if err != nil {
		return nil, nil, err
	}
	event, err := matchEvent(events, track)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := l.client.sessions(ctx, event.MeetingKey)
	if err != nil {
		return nil, nil, err
	}
	var selected *sessionDTO
	for i := range sessions {
		if strings.EqualFold(sessions[i].SessionName, name) {
			selected = &sessions[i]
			break
		}
	}
	if selected == nil {
		return nil, nil, fmt.Errorf("%s at %s %d: %w", name, event.Name, year, ErrSessionNotFound)
	}

	info := &models.SessionInfo{
		SessionKey: selected.SessionKey,
		MeetingKey: event.MeetingKey,
		Year:       year,
		Name:       selected.SessionName,
		Code:       strings.ToUpper(code),
		Event:      event.Name,
		Location:   event.Location,
		Country:    event.Country,
		Circuit:    event.Circuit,
		DateStart:  selected.DateStart,
		DateEnd:    selected.DateEnd,
	}

	drivers, err := l.Drivers(ctx, selected.SessionKey)
	if err != nil {
		return nil, nil, err
	}

	log.L().Info("loaded session",
		zap.Int("year", year),
		zap.String("event", event.Name),
		zap.String("session", selected.SessionName),
		zap.Int("drivers", len(drivers)))
	return info, drivers, nil
}

func matchEvent(events []models.Event, track string) (models.Event, error) {
	if round, err := strconv.Atoi(track); err == nil {
		for _, e := range events {
			if e.Round == round {
				return e, nil
			}
		}
		return models.Event{}, fmt.Errorf("round %d: %w", round, ErrTrackNotFound)
	}

	needle := strings.ToLower(track)
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Location), needle) ||
			strings.Contains(strings.ToLower(e.Circuit), needle) {
			return e, nil
		}
	}
	return models.Event{}, fmt.Errorf("%q: %w", track, ErrTrackNotFound)
}

// Drivers returns the entrants of a session, sorted by acronym.
func (l *Loader) Drivers(ctx context.Context, sessionKey int) ([]models.Driver, error) {
	dtos, err := l.client.drivers(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	drivers := make([]models.Driver, 0, len(dtos))
	for _, d := range dtos {
		drivers = append(drivers, models.Driver{
			Number:   d.DriverNumber,
			Code:     strings.ToUpper(d.NameAcronym),
			FullName: d.FullName,
			Team:     d.TeamName,
		})
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Code < drivers[j].Code })
	return drivers, nil
}

// DriverByCode finds a driver by its three-letter code, case-insensitive.
func DriverByCode(drivers []models.Driver, code string) (models.Driver, bool) {
	for _, d := range drivers {
		if strings.EqualFold(d.Code, code) {
			return d, true
		}
	}
	return models.Driver{}, false
}

// Laps returns the recorded laps of a driver, ordered by lap number.
func (l *Loader) Laps(ctx context.Context, sessionKey, driverNumber int) ([]models.Lap, error) {
	dtos, err := l.client.laps(ctx, sessionKey, driverNumber)
	if err != nil {
		return nil, err
	}
	if len(dtos) == 0 {
		return nil, ErrNoLaps
	}

	laps := make([]models.Lap, 0, len(dtos))
	for _, d := range dtos {
		lap := models.Lap{
			Number: d.LapNumber,
			PitOut: d.IsPitOutLap,
		}
		if d.LapDuration != nil {
			lap.Duration = *d.LapDuration
		}
		if d.DateStart != nil {
			lap.DateStart = *d.DateStart
		}
		laps = append(laps, lap)
	}
	sort.Slice(laps, func(i, j int) bool { return laps[i].Number < laps[j].Number })
	return laps, nil
}

// PickLap selects a lap according to the selector. number is only used with
// models.LapNumber.
func PickLap(laps []models.Lap, sel models.LapSelector, number int) (models.Lap, error) {
	if len(laps) == 0 {
		return models.Lap{}, ErrNoLaps
	}

	switch sel {
	case models.LapFastest, "":
		var best *models.Lap
		for i := range laps {
			if !laps[i].Valid() {
				continue
			}
			if best == nil || laps[i].Duration < best.Duration {
				best = &laps[i]
			}
		}
		if best == nil {
			return models.Lap{}, fmt.Errorf("no completed lap to pick fastest from: %w", ErrNoLaps)
		}
		return *best, nil
	case models.LapFirst:
		return laps[0], nil
	case models.LapLast:
		return laps[len(laps)-1], nil
	case models.LapNumber:
		for _, lap := range laps {
			if lap.Number == number {
				return lap, nil
			}
		}
		return models.Lap{}, fmt.Errorf("lap %d: %w", number, ErrNoLaps)
	default:
		return models.Lap{}, fmt.Errorf("unknown lap selector %q", sel)
	}
}

// Telemetry fetches and assembles the sample sequence for one driver/lap:
// car data merged with positional data, elapsed time and distance-along-lap
// derived from the raw channels.
func (l *Loader) Telemetry(ctx context.Context, sessionKey, driverNumber int, lap models.Lap) (models.TelemetryFrame, error) {
	if lap.DateStart.IsZero() {
		return nil, fmt.Errorf("lap %d has no start time: %w", lap.Number, ErrNoTelemetry)
	}
	if lap.Duration <= 0 {
		return nil, fmt.Errorf("lap %d has no duration: %w", lap.Number, ErrNoTelemetry)
	}

	from := lap.DateStart
	to := lap.DateStart.Add(time.Duration(lap.Duration * float64(time.Second)))

	samples, err := l.client.carData(ctx, sessionKey, driverNumber, from, to)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("lap %d: %w", lap.Number, ErrNoTelemetry)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Date.Before(samples[j].Date) })

	locations, err := l.client.locations(ctx, sessionKey, driverNumber, from, to)
	if err != nil {
		// Positional data is optional; maps just come out empty.
		log.L().Warn("no positional data for lap",
			zap.Int("lap", lap.Number), zap.Error(err))
		locations = nil
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Date.Before(locations[j].Date) })

	frame := make(models.TelemetryFrame, len(samples))
	start := samples[0].Date
	var distance float64
	for i, s := range samples {
		elapsed := s.Date.Sub(start).Seconds()
		if i > 0 {
			dt := s.Date.Sub(samples[i-1].Date).Seconds()
			// Trapezoidal integration of speed (km/h -> m/s).
			distance += (s.Speed + samples[i-1].Speed) / 2 / 3.6 * dt
		}
		x, y, z := interpolateLocation(locations, s.Date)
		frame[i] = models.TelemetrySample{
			Time:     elapsed,
			Distance: distance,
			Speed:    s.Speed,
			Throttle: s.Throttle,
			Brake:    s.Brake,
			RPM:      s.RPM,
			Gear:     s.NGear,
			DRS:      s.DRS,
			X:        x,
			Y:        y,
			Z:        z,
		}
	}

	log.L().Debug("assembled telemetry",
		zap.Int("lap", lap.Number),
		zap.Int("samples", len(frame)),
		zap.Float64("distance", frame.LapDistance()))
	return frame, nil
}

// interpolateLocation returns the position at ts, linearly interpolated
// between the surrounding location samples.
func interpolateLocation(locs []locationDTO, ts time.Time) (x, y, z float64) {
	if len(locs) == 0 {
		return 0, 0, 0
	}
	if !ts.After(locs[0].Date) {
		return locs[0].X, locs[0].Y, locs[0].Z
	}
	last := locs[len(locs)-1]
	if !ts.Before(last.Date) {
		return last.X, last.Y, last.Z
	}

	idx := sort.Search(len(locs), func(i int) bool { return !locs[i].Date.Before(ts) })
	lo, hi := locs[idx-1], locs[idx]
	span := hi.Date.Sub(lo.Date).Seconds()
	if span <= 0 {
		return lo.X, lo.Y, lo.Z
	}
	t := ts.Sub(lo.Date).Seconds() / span
	return lo.X + (hi.X-lo.X)*t, lo.Y + (hi.Y-lo.Y)*t, lo.Z + (hi.Z-lo.Z)*t
}
