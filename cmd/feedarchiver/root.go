package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"feedarchiver/pkg/auth"
	"feedarchiver/pkg/config"
	"feedarchiver/pkg/logger"
	"feedarchiver/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "feedarchiver",
	Short: "Archive a profile's paid feed content to local files",
	Long: `feedarchiver walks a profile's article and Q&A feeds, downloads each
item's detail page and stores the content locally as HTML, plain text
and images.

Runs are resumable: completed items are tracked in a progress file next
to the output, so an interrupted run picks up where it stopped. Answers
the server renders truncated can be recovered afterwards with the
browser-driven unlock command.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch cmd.Name() {
		case "version", "help", "completion":
		default:
			ui.PrintBanner()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .feedarchiver.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`feedarchiver {{.Version}}
Go Version: ` + runtime.Version() + `
`)
}

// buildConfig assembles the effective configuration: defaults, config
// file, environment, then the saved login session for anything still
// missing, validated once at the end. It also initializes the global
// logger.
func buildConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if len(cfg.SessionCookies()) == 0 {
		if manager, err := auth.NewManager(); err == nil {
			if session, err := manager.RetrieveDefault(); err == nil {
				cfg.Cookies = session.Cookies
				if cfg.Site.TargetUID == "" {
					cfg.Site.TargetUID = session.TargetUID
				}
				if session.UserAgent != "" {
					cfg.Site.UserAgent = session.UserAgent
				}
			}
		}
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fatal(msg string, err error) {
	if err != nil {
		ui.PrintError(msg, err.Error())
	} else {
		ui.PrintError(msg)
	}
	os.Exit(1)
}
