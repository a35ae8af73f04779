package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store/sqlite"
)

func newGroupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}
	cmd.AddCommand(
		newGroupAddCmd(opts),
		&cobra.Command{
			Use:   "list",
			Short: "List groups in display order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
					return listGroups(ctx, cmd, s)
				})
			},
		},
		&cobra.Command{
			Use:   "rm ID",
			Short: "Delete a group; its tracks are kept",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("group", args[0])
				if err != nil {
					return err
				}
				err = opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
					return s.DeleteGroup(ctx, id)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted group %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func newGroupAddCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		order       int
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := models.NewGroup(args[0])
			group.Description = description
			group.Order = order

			err := opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				return s.StoreGroup(ctx, group)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added group %d: %s\n", group.ID, group.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "group description")
	cmd.Flags().IntVar(&order, "order", 0, "display position")
	return cmd
}

func listGroups(ctx context.Context, cmd *cobra.Command, s *sqlite.SQLiteStore) error {
	groups, err := s.GetGroups(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%4s  %5s  %6s  %s\n", "ID", "ORDER", "TRACKS", "NAME")
	for _, g := range groups {
		members, err := s.GetTracksForGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%4d  %5d  %6d  %s\n", g.ID, g.Order, len(members), g.Name)
	}
	return nil
}

func newLinkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link TRACK GROUP",
		Short: "Add a track to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackID, groupID, err := parseLinkArgs(args)
			if err != nil {
				return err
			}
			err = opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				return s.LinkOneTrackOneGroup(ctx, trackID, groupID)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked track %d to group %d\n", trackID, groupID)
			return nil
		},
	}
}

func newUnlinkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink TRACK GROUP",
		Short: "Remove a track from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trackID, groupID, err := parseLinkArgs(args)
			if err != nil {
				return err
			}
			err = opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
				return s.UnlinkOneTrackOneGroup(ctx, trackID, groupID)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlinked track %d from group %d\n", trackID, groupID)
			return nil
		},
	}
}

func parseLinkArgs(args []string) (int64, int64, error) {
	trackID, err := parseID("track", args[0])
	if err != nil {
		return 0, 0, err
	}
	groupID, err := parseID("group", args[1])
	if err != nil {
		return 0, 0, err
	}
	return trackID, groupID, nil
}
