/*
Package cli implements the barcin command tree.

Every command shares the persistent flags defined here: the configuration
file, an optional data directory override and the log level. The .env file
in the working directory is loaded before anything else so API keys can be
kept out of the shell environment.
*/
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/config"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/version"
)

// options holds the persistent flags and the configuration they resolve to.
type options struct {
	configPath string
	dataDir    string
	logLevel   string

	cfg *config.Config
}

// NewRootCmd builds the barcin command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "barcin",
		Short: "Turkish business-data assistant with adaptive query routing",
		Long: `barcin answers Turkish business questions over local CSV datasets.

Queries are spell-corrected, classified and routed to the computation
engine, the analytics report, a data lookup tool, or a retrieval-backed
summary with web search as the last resort. Every answer is recorded so
that routing improves with use.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init()
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (default ~/.barcin/config.json)")
	cmd.PersistentFlags().StringVarP(&o.dataDir, "data-dir", "d", "", "Dataset directory (overrides settings.dataDir)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(NewServeCmd(o))
	cmd.AddCommand(NewAskCmd(o))
	cmd.AddCommand(NewDatasetsCmd(o))
	cmd.AddCommand(NewAnalyzeCmd(o))
	cmd.AddCommand(NewLearningCmd(o))
	cmd.AddCommand(NewBenchmarkCmd(o))
	cmd.AddCommand(NewMCPCmd(o))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// init loads .env, the configuration and the logger.
func (o *options) init() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	path := o.configPath
	if path == "" {
		p, err := config.GetDefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.dataDir != "" {
		cfg.Settings.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Settings.LogLevel = o.logLevel
	}
	o.cfg = cfg

	level, err := config.ParseLogLevel(cfg.Settings.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
