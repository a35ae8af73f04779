package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maloquacious/tickmate/internal/config"
	"github.com/maloquacious/tickmate/internal/logger"
	"github.com/maloquacious/tickmate/internal/store/sqlite"
)

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath  string
	dataDir     string
	externalDir string
	logLevel    string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "tickmate",
		Short:        "Tickmate habit tracker database tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <data-dir>/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory holding the live database")
	cmd.PersistentFlags().StringVar(&opts.externalDir, "external-dir", "", "directory holding named snapshots (default <data-dir>/backups)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newDBCmd(opts),
		newTrackCmd(opts),
		newGroupCmd(opts),
		newLinkCmd(opts),
		newUnlinkCmd(opts),
		newTickCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file, then lets command line flags win over it.
func (o *rootOptions) load(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		base := o.dataDir
		if base == "" {
			base = config.DefaultConfig().DataDir
		}
		path = filepath.Join(base, config.DefaultConfigFile)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.externalDir != "" {
		cfg.ExternalDir = o.externalDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.cfg = cfg
	o.log = logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

func (o *rootOptions) newStore() *sqlite.SQLiteStore {
	return sqlite.New(o.cfg.DatabasePath(), o.log)
}

// withStore runs fn inside one open/close session of the live database.
func (o *rootOptions) withStore(ctx context.Context, fn func(ctx context.Context, s *sqlite.SQLiteStore) error) error {
	s := o.newStore()
	return s.Session(ctx, func(ctx context.Context) error {
		return fn(ctx, s)
	})
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the program and schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tickmate %s\n", version.String())
			fmt.Fprintf(out, "schema   %d (reads %d and newer)\n", sqlite.CurrentSchemaVersion, sqlite.MinSchemaVersion)
			if buildDate != "" {
				fmt.Fprintf(out, "built    %s\n", buildDate)
			}
			return nil
		},
	}
}
