package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatdock/chatdock/internal/config"
)

// loadEnvironment opens the data directory and reads the settings,
// seeding both with defaults on first run.
func loadEnvironment(cmd *cobra.Command) (config.Settings, *config.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	store, err := config.NewStore(dataDir)
	if err != nil {
		return config.Settings{}, nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	settings, err := config.ReadSettings(store.SettingsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return config.Settings{}, nil, fmt.Errorf("failed to read configuration: %w", err)
		}
		// First run: seed the settings file with defaults
		settings = config.DefaultSettings()
		if werr := config.WriteSettings(store.SettingsPath(), settings); werr != nil {
			return config.Settings{}, nil, fmt.Errorf("failed to create configuration: %w", werr)
		}
	}

	return settings, store, nil
}
