package f1data

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/f1-visualizer/backend/internal/models"
)

// csvHeader is the column order expected by downstream tooling.
var csvHeader = []string{"Time", "Distance", "Speed", "Throttle", "Brake", "RPM", "nGear", "X", "Y", "Z"}

// WriteCSV exports a telemetry frame as numeric-only CSV with a header row.
func WriteCSV(w io.Writer, frame models.TelemetryFrame) error {
	if len(frame) == 0 {
		return ErrNoTelemetry
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	record := make([]string, len(csvHeader))
	for _, s := range frame {
		record[0] = formatFloat(s.Time)
		record[1] = formatFloat(s.Distance)
		record[2] = formatFloat(s.Speed)
		record[3] = formatFloat(s.Throttle)
		record[4] = formatFloat(s.Brake)
		record[5] = formatFloat(s.RPM)
		record[6] = strconv.Itoa(s.Gear)
		record[7] = formatFloat(s.X)
		record[8] = formatFloat(s.Y)
		record[9] = formatFloat(s.Z)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

var lapTimesHeader = []string{"Lap", "Time", "PitOut"}

// WriteLapTimesCSV exports one row per lap with its time in seconds. Laps
// without a recorded time get an empty Time field.
func WriteLapTimesCSV(w io.Writer, laps []models.Lap) error {
	if len(laps) == 0 {
		return ErrNoLaps
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(lapTimesHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	record := make([]string, len(lapTimesHeader))
	for _, lap := range laps {
		record[0] = strconv.Itoa(lap.Number)
		record[1] = ""
		if lap.Duration > 0 {
			record[1] = formatFloat(lap.Duration)
		}
		record[2] = strconv.FormatBool(lap.PitOut)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
