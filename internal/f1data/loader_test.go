package f1data

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/testutil"
)

func newTestLoader(t *testing.T, cacheDir string) (*Loader, *testutil.StubProvider) {
	t.Helper()
	stub := testutil.NewStubProvider()
	t.Cleanup(stub.Close)

	client, err := NewClient(stub.URL(), cacheDir, 5*time.Second)
	require.NoError(t, err)
	return NewLoader(client), stub
}

func TestScheduleAssignsRoundsByDate(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	events, err := loader.Schedule(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Bahrain is earlier in the season than Monaco.
	assert.Equal(t, 1, events[0].Round)
	assert.Equal(t, "Bahrain Grand Prix", events[0].Name)
	assert.Equal(t, 2, events[1].Round)
	assert.Equal(t, "Monaco Grand Prix", events[1].Name)
}

func TestLoadSessionByTrackName(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	info, drivers, err := loader.LoadSession(context.Background(), 2024, "monaco", "Q")
	require.NoError(t, err)

	assert.Equal(t, testutil.StubQualifying, info.SessionKey)
	assert.Equal(t, "Qualifying", info.Name)
	assert.Equal(t, "Q", info.Code)
	assert.Equal(t, "Monaco Grand Prix", info.Event)

	require.Len(t, drivers, 2)
	assert.Equal(t, "HAM", drivers[0].Code) // sorted by acronym
	assert.Equal(t, "VER", drivers[1].Code)
}

func TestLoadSessionByRoundNumber(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	info, _, err := loader.LoadSession(context.Background(), 2024, "2", "Q")
	require.NoError(t, err)
	assert.Equal(t, "Monaco Grand Prix", info.Event)
}

func TestLoadSessionUnknownTrack(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	_, _, err := loader.LoadSession(context.Background(), 2024, "spa", "Q")
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestLoadSessionBadCode(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	_, _, err := loader.LoadSession(context.Background(), 2024, "monaco", "XYZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session code")
}

func TestPickLap(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	laps, err := loader.Laps(context.Background(), testutil.StubQualifying, 1)
	require.NoError(t, err)
	require.Len(t, laps, 3)

	fastest, err := PickLap(laps, models.LapFastest, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, fastest.Number) // 71.2s beats 72.5s; pit-out lap skipped

	first, err := PickLap(laps, models.LapFirst, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)

	last, err := PickLap(laps, models.LapLast, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Number)

	byNumber, err := PickLap(laps, models.LapNumber, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, byNumber.Number)

	_, err = PickLap(laps, models.LapNumber, 99)
	assert.ErrorIs(t, err, ErrNoLaps)
}

func TestPickLapNoValidFastest(t *testing.T) {
	laps := []models.Lap{
		{Number: 1, PitOut: true, Duration: 80, DateStart: time.Now()},
		{Number: 2}, // never completed
	}
	_, err := PickLap(laps, models.LapFastest, 0)
	assert.ErrorIs(t, err, ErrNoLaps)
}

func TestTelemetryAssembly(t *testing.T) {
	loader, _ := newTestLoader(t, "")
	ctx := context.Background()

	laps, err := loader.Laps(ctx, testutil.StubQualifying, 1)
	require.NoError(t, err)
	lap, err := PickLap(laps, models.LapFastest, 0)
	require.NoError(t, err)

	frame, err := loader.Telemetry(ctx, testutil.StubQualifying, 1, lap)
	require.NoError(t, err)
	require.NotEmpty(t, frame)

	assert.Zero(t, frame[0].Time)
	assert.Zero(t, frame[0].Distance)

	for i := 1; i < len(frame); i++ {
		assert.GreaterOrEqual(t, frame[i].Time, frame[i-1].Time, "time must be ordered")
		assert.GreaterOrEqual(t, frame[i].Distance, frame[i-1].Distance, "distance must not decrease")
	}

	// Positional channels come from the interpolated location stream.
	assert.NotZero(t, frame[len(frame)-1].X)
	assert.NotZero(t, frame[len(frame)-1].Y)
}

func TestTelemetryRejectsIncompleteLap(t *testing.T) {
	loader, _ := newTestLoader(t, "")

	_, err := loader.Telemetry(context.Background(), testutil.StubQualifying, 1, models.Lap{Number: 1})
	assert.ErrorIs(t, err, ErrNoTelemetry)
}

func TestDiskCacheAvoidsRefetch(t *testing.T) {
	loader, stub := newTestLoader(t, t.TempDir())
	ctx := context.Background()

	_, err := loader.Schedule(ctx, 2024)
	require.NoError(t, err)
	before := stub.Requests()

	_, err = loader.Schedule(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, before, stub.Requests(), "second call must be served from cache")
}

func TestWriteCSV(t *testing.T) {
	frame := models.TelemetryFrame{
		{Time: 0, Distance: 0, Speed: 280, Throttle: 100, Brake: 0, RPM: 11000, Gear: 7, X: 1, Y: 2, Z: 3},
		{Time: 0.25, Distance: 19.4, Speed: 282, Throttle: 100, Brake: 0, RPM: 11100, Gear: 7, X: 4, Y: 5, Z: 6},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, frame))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Time,Distance,Speed,Throttle,Brake,RPM,nGear,X,Y,Z", lines[0])
	assert.Equal(t, "0,0,280,100,0,11000,7,1,2,3", lines[1])
}

func TestWriteCSVEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, nil), ErrNoTelemetry)
}

func TestWriteLapTimesCSV(t *testing.T) {
	start := time.Date(2024, 5, 25, 14, 0, 0, 0, time.UTC)
	laps := []models.Lap{
		{Number: 1, Duration: 80.1, DateStart: start, PitOut: true},
		{Number: 2, Duration: 72.5, DateStart: start.Add(90 * time.Second)},
		{Number: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLapTimesCSV(&buf, laps))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Lap,Time,PitOut", lines[0])
	assert.Equal(t, "1,80.1,true", lines[1])
	assert.Equal(t, "2,72.5,false", lines[2])
	assert.Equal(t, "3,,false", lines[3])
}

func TestWriteLapTimesCSVNoLaps(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteLapTimesCSV(&buf, nil), ErrNoLaps)
}

func TestDriverByCode(t *testing.T) {
	drivers := []models.Driver{{Number: 1, Code: "VER"}, {Number: 44, Code: "HAM"}}

	d, ok := DriverByCode(drivers, "ham")
	require.True(t, ok)
	assert.Equal(t, 44, d.Number)

	_, ok = DriverByCode(drivers, "XXX")
	assert.False(t, ok)
}
