package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/plotting"
)

// renderPlotFile renders one chart and writes it as a PNG file.
func renderPlotFile(ctx context.Context, loader *f1data.Loader, kind plotting.Kind,
	driver models.Driver, lap models.Lap, frame models.TelemetryFrame,
	year int, track, sessionCode, otherDriver, otherLap, colorBy, outPath string,
) error {
	req := plotting.Request{
		Kind:    kind,
		Title:   fmt.Sprintf("%s lap %d", driver.Code, lap.Number),
		Frame:   frame,
		Label:   fmt.Sprintf("%s L%d", driver.Code, lap.Number),
		ColorBy: colorBy,
	}

	if otherDriver != "" {
		other, oLap, oFrame, err := fetchLapTelemetry(ctx, loader, year, track, sessionCode, otherDriver, otherLap)
		if err != nil {
			return err
		}
		req.Other = oFrame
		req.OtherLabel = fmt.Sprintf("%s L%d", other.Code, oLap.Number)
		req.Title = fmt.Sprintf("%s vs %s", req.Label, req.OtherLabel)
	}

	data, err := plotting.Render(req)
	if err != nil {
		if errors.Is(err, plotting.ErrMissingSecond) {
			return fmt.Errorf("%s chart needs --other-driver", kind)
		}
		if errors.Is(err, plotting.ErrUnknownChannel) {
			return fmt.Errorf("--color-by accepts %v: %w", plotting.Channels(), err)
		}
		return err
	}

	if outPath == "" {
		outPath = fmt.Sprintf("%s_%s_lap%d.png", kind, strings.ToLower(driver.Code), lap.Number)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	fmt.Println("Wrote", outPath)
	return nil
}
