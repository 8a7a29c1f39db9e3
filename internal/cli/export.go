package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/f1-visualizer/backend/internal/f1data"
)

func newExportCmd() *cobra.Command {
	var (
		year        int
		track       string
		sessionCode string
		driverCode  string
		lapValue    string
		allLaps     bool
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one lap of telemetry, or all lap times, as CSV",
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
				return exportLapTimes(ctx, loader, year, track, sessionCode, driverCode, outPath)
			}

			driver, lap, frame, err := fetchLapTelemetry(ctx, loader, year, track, sessionCode, driverCode, lapValue)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = fmt.Sprintf("%s_lap%d.csv", strings.ToLower(driver.Code), lap.Number)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()

			if err := f1data.WriteCSV(f, frame); err != nil {
				return fmt.Errorf("writing CSV: %w", err)
			}
			fmt.Printf("Wrote %d samples to %s\n", len(frame), outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "season year")
	cmd.Flags().StringVar(&track, "track", "", "track name or country (required)")
	cmd.Flags().StringVar(&sessionCode, "session", "R", "session code: FP1, FP2, FP3, Q, S, R")
	cmd.Flags().StringVar(&driverCode, "driver", "", "three-letter driver code (required)")
	cmd.Flags().StringVar(&lapValue, "lap", "fastest", "lap to export: fastest, first, last or a number")
	cmd.Flags().BoolVar(&allLaps, "all-laps", false, "export the lap times of the whole session instead of one lap's telemetry")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default <driver>_lap<N>.csv)")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("driver")

	return cmd
}

// exportLapTimes writes one CSV row per lap of the session.
func exportLapTimes(ctx context.Context, loader *f1data.Loader, year int,
	track, sessionCode, driverCode, outPath string,
) error {
	driver, laps, err := fetchLaps(ctx, loader, year, track, sessionCode, driverCode)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = fmt.Sprintf("%s_laptimes.csv", strings.ToLower(driver.Code))
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	if err := f1data.WriteLapTimesCSV(f, laps); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	fmt.Printf("Wrote %d laps to %s\n", len(laps), outPath)
	return nil
}
