package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatdock/chatdock/internal/ui"
)

// configCmd groups the environment-file operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the application's environment file",
	Long: `The chat application reads its settings (API key, debug flags) from
an env file that chatdock manages and copies into the application
directory on every launch. These commands read and write that file
without interpreting it beyond KEY=VALUE lines.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the environment file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}

		text, err := store.ReadBlob()
		if err != nil {
			return fmt.Errorf("failed to read environment file: %w", err)
		}
		fmt.Print(text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Println()
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE [KEY=VALUE...]",
	Short: "Set values in the environment file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}

		for _, arg := range args {
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return fmt.Errorf("invalid argument %q, expected KEY=VALUE", arg)
			}
			if err := store.SetBlobValue(parts[0], parts[1]); err != nil {
				return fmt.Errorf("failed to set %s: %w", parts[0], err)
			}
			ui.Success("Set " + parts[0])
		}
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the locations of the settings, environment and log files",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}

		settingsPath, blobPath, logPath := store.Paths()
		fmt.Println("Settings:   ", settingsPath)
		fmt.Println("Environment:", blobPath)
		fmt.Println("Log file:   ", logPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathsCmd)
}
