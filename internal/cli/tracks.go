package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks <year>",
		Short: "List the race weekends of a season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loader, err := newLoader(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			events, err := loader.Schedule(ctx, year)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"ROUND", "EVENT", "CIRCUIT", "COUNTRY", "DATE"})
			for _, ev := range events {
				t.AppendRow(table.Row{
					ev.Round,
					ev.Name,
					ev.Circuit,
					ev.Country,
					ev.DateStart.Format("2006-01-02"),
				})
			}
			t.Render()
			return nil
		},
	}
}
