package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maloquacious/tickmate/internal/store"
	"github.com/maloquacious/tickmate/internal/store/sqlite"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create and initialize the live database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBCreate(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "upgrade",
			Short: "Apply migrations to the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBUpgrade(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Verify schema state and version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBVerify(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "export NAME",
			Short: "Copy the live database to a named snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBExport(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "import NAME",
			Short: "Replace the live database with a named snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBImport(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List named snapshots",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDBList(cmd, opts)
			},
		},
		newDBStageCmd(opts),
	)
	return cmd
}

func newDBStageCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "stage FILE",
		Short: "Copy a database file into the snapshot directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBStage(cmd, opts, args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: base name of FILE)")
	return cmd
}

func runDBCreate(cmd *cobra.Command, opts *rootOptions) error {
	var version int
	err := opts.withStore(cmd.Context(), func(ctx context.Context, s *sqlite.SQLiteStore) error {
		var err error
		version, err = s.GetSchemaVersion(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database ready: %s (schema %d)\n", opts.cfg.DatabasePath(), version)
	return nil
}

func runDBUpgrade(cmd *cobra.Command, opts *rootOptions) error {
	s := opts.newStore()
	state, err := s.CheckState(cmd.Context())
	if err != nil {
		return err
	}
	switch state {
	case store.StateMissing:
		return fmt.Errorf("%w: %s (run db create)", store.ErrNotFound, s.Path())
	case store.StateReady:
		fmt.Fprintf(cmd.OutOrStdout(), "already at schema %d\n", sqlite.CurrentSchemaVersion)
		return nil
	}

	var version int
	err = s.Session(cmd.Context(), func(ctx context.Context) error {
		version, err = s.GetSchemaVersion(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "upgraded to schema %d\n", version)
	return nil
}

func runDBVerify(cmd *cobra.Command, opts *rootOptions) error {
	out := cmd.OutOrStdout()
	s := opts.newStore()

	state, err := s.CheckState(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database: %s\n", s.Path())
	fmt.Fprintf(out, "state:    %s\n", state)
	if state != store.StateReady {
		return fmt.Errorf("database is not ready: %s", state)
	}

	return s.Session(cmd.Context(), func(ctx context.Context) error {
		version, err := s.GetSchemaVersion(ctx)
		if err != nil {
			return err
		}
		tracks, err := s.GetTracks(ctx)
		if err != nil {
			return err
		}
		groups, err := s.GetGroups(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema:   %d\n", version)
		fmt.Fprintf(out, "tracks:   %d\n", len(tracks))
		fmt.Fprintf(out, "groups:   %d\n", len(groups))
		return nil
	})
}

func runDBExport(cmd *cobra.Command, opts *rootOptions, name string) error {
	m := sqlite.NewSnapshotManager(opts.newStore(), opts.cfg.SnapshotDir())
	if err := m.ExportDatabase(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", m.ExternalDatabasePath(name))
	return nil
}

func runDBImport(cmd *cobra.Command, opts *rootOptions, name string) error {
	m := sqlite.NewSnapshotManager(opts.newStore(), opts.cfg.SnapshotDir())
	if err := m.ImportDatabase(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", m.ExternalDatabasePath(name))
	return nil
}

func runDBList(cmd *cobra.Command, opts *rootOptions) error {
	out := cmd.OutOrStdout()
	m := sqlite.NewSnapshotManager(opts.newStore(), opts.cfg.SnapshotDir())

	names, err := m.ExternalDatabaseNames()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(out, "no snapshots in %s\n", opts.cfg.SnapshotDir())
		return nil
	}

	for _, name := range names {
		info, err := os.Stat(m.ExternalDatabasePath(name))
		if err != nil {
			return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
		}
		fmt.Fprintf(out, "%-24s  %10s  %s\n", name, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	return nil
}

func runDBStage(cmd *cobra.Command, opts *rootOptions, file, name string) error {
	if name == "" {
		name = filepath.Base(file)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}
	defer f.Close()

	m := sqlite.NewSnapshotManager(opts.newStore(), opts.cfg.SnapshotDir())
	if err := m.StageExternal(name, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "staged %s\n", m.ExternalDatabasePath(name))
	return nil
}
