package main

import (
	"github.com/spf13/cobra"

	"github.com/chatdock/chatdock/internal/doctor"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that everything needed to run is in place",
	Long: `The doctor command checks the Python runtime, the chainlit package,
the application files, the environment file, and the target port, and
reports anything that would prevent 'chatdock up' from working.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, store, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}

		diagnosis := doctor.Diagnose(settings, store)
		doctor.Print(diagnosis)
		return nil
	},
}
