package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store/sqlite"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

func newTickCmd(opts *rootOptions) *cobra.Command {
	var at, date string
	cmd := &cobra.Command{
		Use:   "tick TRACK",
		Short: "Record a tick for a track (now, --at a time, or --date a whole day)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackID, err := parseID("track", args[0])
			if err != nil {
				return err
			}
			tick, err := newTickFromFlags(trackID, at, date, time.Now())
			if err != nil {
				return err
			}

			var name string
			err = opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				if err := s.StoreTick(ctx, tick); err != nil {
					return err
				}
				track, err := s.GetTrack(ctx, trackID)
				if err != nil {
					return err
				}
				name = track.Name
				return nil
			})
			if err != nil {
				return err
			}

			if tick.HasTimeInfo {
				fmt.Fprintf(cmd.OutOrStdout(), "ticked %s at %s\n", name, formatTick(*tick))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ticked %s on %s\n", name, formatTick(*tick))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "tick time (RFC3339)")
	cmd.Flags().StringVar(&date, "date", "", "tick a whole day (YYYY-MM-DD)")
	return cmd
}

func newTickFromFlags(trackID int64, at, date string, now time.Time) (*models.Tick, error) {
	switch {
	case at != "" && date != "":
		return nil, errors.New("--at and --date are mutually exclusive")
	case at != "":
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("invalid --at: %w", err)
		}
		return models.NewTick(trackID, t.In(time.Local)), nil
	case date != "":
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("invalid --date: %w", err)
		}
		return models.NewDayTick(trackID, d.Year(), d.Month(), d.Day()), nil
	}
	return models.NewTick(trackID, now), nil
}

func formatTick(tick models.Tick) string {
	if tick.HasTimeInfo {
		return tick.Time.In(time.Local).Format(dateTimeLayout)
	}
	return tick.Time.Format(dateLayout)
}
