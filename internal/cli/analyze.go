package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/plotting"
)

// lapTimesPlot is the chart name accepted by --plot in --all-laps mode.
const lapTimesPlot = "laptimes"

func newAnalyzeCmd() *cobra.Command {
	var (
		year        int
		track       string
		sessionCode string
		driverCode  string
		lapValue    string
		allLaps     bool
		plotKind    string
		colorBy     string
		otherDriver string
		otherLap    string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute lap statistics for one driver, optionally with a chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loader, err := newLoader(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if allLaps {
				return analyzeAllLaps(ctx, loader, year, track, sessionCode, driverCode, plotKind, outPath)
			}

			driver, lap, frame, err := fetchLapTelemetry(ctx, loader, year, track, sessionCode, driverCode, lapValue)
			if err != nil {
				return err
			}

			summary, err := metrics.Summarize(frame)
			if err != nil {
				return err
			}
			zones := metrics.BrakingZones(frame, metrics.BrakeThreshold)
			shifts := metrics.GearShifts(frame)
			drs := metrics.DRSActivations(frame)

			fmt.Printf("%s (#%d), lap %d", driver.Code, driver.Number, lap.Number)
			if lap.Duration > 0 {
				fmt.Printf(" - %.3fs", lap.Duration)
			}
			fmt.Println()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"METRIC", "VALUE"})
			t.AppendRows([]table.Row{
				{"Max speed", fmt.Sprintf("%.1f km/h", summary.MaxSpeed)},
				{"Min speed", fmt.Sprintf("%.1f km/h", summary.MinSpeed)},
				{"Avg speed", fmt.Sprintf("%.1f km/h", summary.AvgSpeed)},
				{"Full throttle", fmt.Sprintf("%.1f %%", summary.FullThrottlePct)},
				{"Braking", fmt.Sprintf("%.1f %%", summary.BrakingPct)},
				{"Coasting", fmt.Sprintf("%.1f %%", summary.CoastingPct)},
				{"Max brake", fmt.Sprintf("%.1f %%", summary.MaxBrake)},
				{"Throttle smoothness", fmt.Sprintf("%.1f", summary.ThrottleSmoothness)},
				{"Gear shifts", summary.GearShifts},
				{"Braking zones", len(zones)},
				{"Upshifts", len(shifts)},
				{"DRS activations", len(drs)},
			})
			t.Render()

			if plotKind == "" {
				return nil
			}
			return renderPlotFile(ctx, loader, plotting.Kind(plotKind), driver, lap, frame,
				year, track, sessionCode, otherDriver, otherLap, colorBy, outPath)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "season year")
	cmd.Flags().StringVar(&track, "track", "", "track name or country (required)")
	cmd.Flags().StringVar(&sessionCode, "session", "R", "session code: FP1, FP2, FP3, Q, S, R")
	cmd.Flags().StringVar(&driverCode, "driver", "", "three-letter driver code (required)")
	cmd.Flags().StringVar(&lapValue, "lap", "fastest", "lap to analyze: fastest, first, last or a number")
	cmd.Flags().BoolVar(&allLaps, "all-laps", false, "analyze every lap of the session instead of one")
	cmd.Flags().StringVar(&plotKind, "plot", "", fmt.Sprintf("chart to render: %v, or %s with --all-laps", plotting.Kinds(), lapTimesPlot))
	cmd.Flags().StringVar(&colorBy, "color-by", "", fmt.Sprintf("coloring channel for map charts: %v", plotting.Channels()))
	cmd.Flags().StringVar(&otherDriver, "other-driver", "", "second driver for compare and delta charts")
	cmd.Flags().StringVar(&otherLap, "other-lap", "fastest", "lap of the second driver")
	cmd.Flags().StringVar(&outPath, "out", "", "output file for the chart (default <kind>_<driver>_lap<N>.png)")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("driver")

	return cmd
}

// analyzeAllLaps prints a lap-by-lap table with stint statistics, optionally
// rendering the lap-times chart.
func analyzeAllLaps(ctx context.Context, loader *f1data.Loader, year int,
	track, sessionCode, driverCode, plotKind, outPath string,
) error {
	driver, laps, err := fetchLaps(ctx, loader, year, track, sessionCode, driverCode)
	if err != nil {
		return err
	}

	stats, err := metrics.SummarizeLapTimes(laps)
	if err != nil {
		return err
	}

	fmt.Printf("%s (#%d), %d laps (%d timed)\n", driver.Code, driver.Number, stats.Laps, stats.TimedLaps)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"LAP", "TIME", "NOTE"})
	for _, lap := range laps {
		t.AppendRow(table.Row{lap.Number, formatLapTime(lap), lapNote(lap, stats.FastestLap)})
	}
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(os.Stdout)
	s.SetStyle(table.StyleRounded)
	s.AppendHeader(table.Row{"STATISTIC", "VALUE"})
	s.AppendRows([]table.Row{
		{"Fastest lap", stats.FastestLap},
		{"Fastest", fmt.Sprintf("%.2fs", stats.Fastest)},
		{"Slowest", fmt.Sprintf("%.2fs", stats.Slowest)},
		{"Average", fmt.Sprintf("%.2fs", stats.Average)},
		{"Std dev", fmt.Sprintf("%.2fs", stats.StdDev)},
	})
	s.Render()

	if plotKind == "" {
		return nil
	}
	if plotKind != lapTimesPlot {
		return fmt.Errorf("--all-laps supports only the %s chart, got %q", lapTimesPlot, plotKind)
	}

	title := fmt.Sprintf("%s %s %d lap times", driver.Code, track, year)
	data, err := plotting.RenderLapTimes(title, laps)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = fmt.Sprintf("%s_%s.png", lapTimesPlot, strings.ToLower(driver.Code))
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	fmt.Println("Wrote", outPath)
	return nil
}

func formatLapTime(lap models.Lap) string {
	if lap.Duration <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.3fs", lap.Duration)
}

func lapNote(lap models.Lap, fastest int) string {
	switch {
	case lap.PitOut:
		return "pit out"
	case lap.Number == fastest:
		return "fastest"
	}
	return ""
}
