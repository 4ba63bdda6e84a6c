package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (can be set at build time)
var (
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatdock",
	Short: "Launch and supervise a local chat application",
	Long: `Chatdock starts a local Python chat application, waits for it to
come up, opens it in your browser, and guarantees the whole process
tree is shut down when you quit.

Usage:
  chatdock up       Start the chat application
  chatdock doctor   Check that everything needed to run is in place
  chatdock config   Show or edit the application's environment file`,
	Version: version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)

	rootCmd.PersistentFlags().String("data-dir", "", "Directory for settings, env file and logs (default: user config dir)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
