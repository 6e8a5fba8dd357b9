// Root command: global flags, configuration loading, and logger setup.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mesh-intelligence/opsync/internal/config"
	"github.com/mesh-intelligence/opsync/internal/paths"
	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Global flag values.
var (
	flagConfig  string
	flagDryRun  bool
	flagVerbose int
)

// cfg and log are loaded by PersistentPreRunE and shared by all
// subcommands.
var (
	cfg types.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "opsync",
	Short: "opsync migrates Megaplan tasks into OpenProject",
	Long: `opsync performs one-way synchronization of Megaplan tasks, comments,
and attachments into OpenProject work packages. Mappings between source and
target records are kept in a local SQLite database, so runs are idempotent
and can be repeated incrementally.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version needs neither config nor logging.
		if cmd.Name() == "version" {
			return nil
		}

		path, err := paths.ResolveConfigFile(flagConfig)
		if err != nil {
			return &userError{err: err}
		}
		loaded, err := config.Load(path)
		if err != nil {
			return &userError{err: err}
		}
		if flagDryRun {
			loaded.Sync.DryRun = true
		}
		cfg = loaded
		log = newLogger(cfg, flagVerbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./opsync.yaml or the platform config dir)")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "report planned changes without writing anything")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initialSyncCmd)
	rootCmd.AddCommand(syncUpdatesCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
}

// newLogger builds the process logger. Logs always go to stderr; when
// log_file is configured they are additionally written there with
// size-based rotation.
func newLogger(cfg types.Config, verbosity int) *slog.Logger {
	level := slog.LevelInfo
	if verbosity > 0 {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
