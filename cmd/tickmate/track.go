package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store/sqlite"
)

func newTrackCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage tracks",
	}
	cmd.AddCommand(
		newTrackAddCmd(opts),
		newTrackListCmd(opts),
		&cobra.Command{
			Use:   "show ID",
			Short: "Show a track with its groups and ticks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("track", args[0])
				if err != nil {
					return err
				}
				return opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
					return showTrack(ctx, cmd.OutOrStdout(), s, id)
				})
			},
		},
		&cobra.Command{
			Use:   "rm ID",
			Short: "Delete a track with its ticks and group links",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("track", args[0])
				if err != nil {
					return err
				}
				err = opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
					return s.DeleteTrack(ctx, id)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted track %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func newTrackAddCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		icon        string
		order       int
		disabled    bool
		multiple    bool
		section     bool
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track := models.NewTrack(args[0], description)
			if icon != "" {
				track.Icon = icon
			}
			track.Order = order
			track.Enabled = !disabled
			track.MultipleEntriesEnabled = multiple
			track.IsSectionHeader = section

			err := opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				return s.StoreTrack(ctx, track)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added track %d: %s\n", track.ID, track.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "track description")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name (default "+models.DefaultIcon+")")
	cmd.Flags().IntVar(&order, "order", 0, "display position")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "add the track as inactive")
	cmd.Flags().BoolVar(&multiple, "multiple", false, "allow several ticks per day")
	cmd.Flags().BoolVar(&section, "section-header", false, "mark the track as a section header")
	return cmd
}

func newTrackListCmd(opts *rootOptions) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracks in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				var (
					tracks []models.Track
					err    error
				)
				if active {
					tracks, err = s.GetActiveTracks(ctx)
				} else {
					tracks, err = s.GetTracks(ctx)
				}
				if err != nil {
					return err
				}
				writeTracks(cmd.OutOrStdout(), tracks)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only list enabled tracks")
	return cmd
}

func writeTracks(w io.Writer, tracks []models.Track) {
	fmt.Fprintf(w, "%4s  %5s  %-6s  %s\n", "ID", "ORDER", "ACTIVE", "NAME")
	for _, t := range tracks {
		name := t.Name
		if t.MultipleEntriesEnabled {
			name += " [multi]"
		}
		if t.IsSectionHeader {
			name += " [section]"
		}
		fmt.Fprintf(w, "%4d  %5d  %-6s  %s\n", t.ID, t.Order, yesNo(t.Enabled), name)
	}
}

func showTrack(ctx context.Context, w io.Writer, s *sqlite.SQLiteStore, id int64) error {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return err
	}
	groups, err := s.GetGroupsForTrack(ctx, id)
	if err != nil {
		return err
	}
	ticks, err := s.GetTicks(ctx, id)
	if err != nil {
		return err
	}

	groupNames := "-"
	if len(groups) > 0 {
		names := make([]string, 0, len(groups))
		for _, g := range groups {
			names = append(names, g.Name)
		}
		groupNames = strings.Join(names, ", ")
	}

	fmt.Fprintf(w, "Track %d: %s\n", track.ID, track.Name)
	fmt.Fprintf(w, "  description: %s\n", track.Description)
	fmt.Fprintf(w, "  enabled:     %s\n", yesNo(track.Enabled))
	fmt.Fprintf(w, "  order:       %d\n", track.Order)
	fmt.Fprintf(w, "  icon:        %s\n", track.Icon)
	fmt.Fprintf(w, "  multiple:    %s\n", yesNo(track.MultipleEntriesEnabled))
	fmt.Fprintf(w, "  section:     %s\n", yesNo(track.IsSectionHeader))
	fmt.Fprintf(w, "  groups:      %s\n", groupNames)
	fmt.Fprintf(w, "  ticks:       %d\n", len(ticks))
	for _, tick := range ticks {
		fmt.Fprintf(w, "    %s\n", formatTick(tick))
	}
	return nil
}
