package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "bot2",
	Short:         "Screen-state driven resource farming bot",
	Long:          "Watches a game window, classifies the on-screen state against reference images, and issues the configured input for that state while tracking resource yields.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/bot.toml", "path to the settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
