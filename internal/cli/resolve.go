package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/models"
)

// parseLap interprets a --lap value: "fastest", "first", "last" or a
// concrete lap number.
func parseLap(value string) (models.LapSelector, int, error) {
	switch models.LapSelector(strings.ToLower(value)) {
	case "", models.LapFastest:
		return models.LapFastest, 0, nil
	case models.LapFirst:
		return models.LapFirst, 0, nil
	case models.LapLast:
		return models.LapLast, 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("invalid lap %q: expected fastest, first, last or a lap number", value)
	}
	return models.LapNumber, n, nil
}

// fetchLaps resolves a session and driver and returns every lap they ran.
func fetchLaps(ctx context.Context, loader *f1data.Loader, year int,
	track, sessionCode, driverCode string,
) (models.Driver, []models.Lap, error) {
	info, drivers, err := loader.LoadSession(ctx, year, track, sessionCode)
	if err != nil {
		return models.Driver{}, nil, err
	}

	driver, ok := f1data.DriverByCode(drivers, driverCode)
	if !ok {
		return models.Driver{}, nil, fmt.Errorf("driver %q: %w", driverCode, f1data.ErrDriverNotFound)
	}

	laps, err := loader.Laps(ctx, info.SessionKey, driver.Number)
	if err != nil {
		return models.Driver{}, nil, err
	}
	return driver, laps, nil
}

// fetchLapTelemetry resolves a session, driver and lap and returns the
// telemetry frame for that lap.
func fetchLapTelemetry(ctx context.Context, loader *f1data.Loader, year int,
	track, sessionCode, driverCode, lapValue string,
) (models.Driver, models.Lap, models.TelemetryFrame, error) {
	sel, number, err := parseLap(lapValue)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}

	info, drivers, err := loader.LoadSession(ctx, year, track, sessionCode)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}

	driver, ok := f1data.DriverByCode(drivers, driverCode)
	if !ok {
		return models.Driver{}, models.Lap{}, nil,
			fmt.Errorf("driver %q: %w", driverCode, f1data.ErrDriverNotFound)
	}

	laps, err := loader.Laps(ctx, info.SessionKey, driver.Number)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}
	lap, err := f1data.PickLap(laps, sel, number)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}

	frame, err := loader.Telemetry(ctx, info.SessionKey, driver.Number, lap)
	if err != nil {
		return models.Driver{}, models.Lap{}, nil, err
	}
	return driver, lap, frame, nil
}
