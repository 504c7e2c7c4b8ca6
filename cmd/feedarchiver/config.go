package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"feedarchiver/pkg/config"
	"feedarchiver/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configFile
		if path == "" {
			path = ".feedarchiver.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			fatal(fmt.Sprintf("Config file %s already exists", path), nil)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			fatal("Failed to write config file", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Wrote %s; fill in the site section before running", path))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildConfig()
		if err != nil {
			fatal("Failed to load configuration", err)
		}

		// Cookie values stay out of terminal output.
		shown := *cfg
		shown.Cookies = make(map[string]string, len(cfg.Cookies))
		for name := range cfg.Cookies {
			shown.Cookies[name] = "********"
		}

		data, err := yaml.Marshal(&shown)
		if err != nil {
			fatal("Failed to render configuration", err)
		}
		fmt.Print(string(data))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := buildConfig(); err != nil {
			fatal("Configuration is invalid", err)
		}
		ui.PrintSuccess("Configuration is valid")
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
