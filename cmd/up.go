package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/chatdock/chatdock/internal/config"
	"github.com/chatdock/chatdock/internal/supervisor"
	"github.com/chatdock/chatdock/internal/ui"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the chat application",
	Long: `The up command launches the configured chat application, waits for
its port to accept connections, and opens the UI in your browser.

By default a console shows the application's log stream and resource
usage; quitting the console shuts the application down. All shutdown
paths (quit key, interrupt signal, closed terminal) terminate the
whole subprocess tree exactly once.`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().Bool("no-tui", false, "Disable the console (use plain scrolling output)")
	upCmd.Flags().Bool("no-open", false, "Do not open the browser once ready")
	upCmd.Flags().String("app-dir", "", "Override the application directory")
	upCmd.Flags().IntP("port", "p", 0, "Override the port (0 = use config default)")
}

func runUp(cmd *cobra.Command, args []string) error {
	settings, store, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	if appDir, _ := cmd.Flags().GetString("app-dir"); appDir != "" {
		settings.AppDir = appDir
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		settings.Port = port
	}
	if settings.AppDir == "" {
		return errors.New("no application directory configured. Set app_dir in the settings file or pass --app-dir")
	}

	noTUI, _ := cmd.Flags().GetBool("no-tui")
	noOpen, _ := cmd.Flags().GetBool("no-open")

	if noTUI {
		return runPlain(settings, store, noOpen)
	}
	return runConsole(settings, store, noOpen)
}

// runConsole runs the supervisor under the interactive console.
func runConsole(settings config.Settings, store *config.Store, noOpen bool) error {
	mirror := ui.NewLineWriter()
	sup := supervisor.New(settings, store, mirror)

	console := ui.NewConsole(sup, settings.Name, noOpen)
	console.AttachWriter(mirror)

	program := tea.NewProgram(console, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Interrupt and termination signals shut the subprocess down even
	// when they bypass the console's quit key.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		sup.Shutdown()
		program.Quit()
	}()
	defer signal.Stop(sigChan)

	_, err := program.Run()

	// The console quit path already shut down; this covers every other
	// way the program can end. Shutdown is idempotent.
	sup.Shutdown()

	return err
}

// runPlain runs the supervisor without a console, mirroring the
// subprocess output straight to stdout.
func runPlain(settings config.Settings, store *config.Store, noOpen bool) error {
	sup := supervisor.New(settings, store, os.Stdout)

	exited := make(chan struct{})
	sup.OnExit = func() { close(exited) }

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Printf("🚀 Starting %s on %s\n", settings.Name, sup.URL())

	res := supervisor.AsResult(sup.Launch(), "ready at "+sup.URL())
	if !res.OK {
		sup.Shutdown()
		return errors.New(res.Message)
	}
	ui.Success(res.Message)

	if !noOpen {
		if inline, err := sup.OpenUI(); err != nil {
			ui.Warn("Could not open the browser: " + err.Error())
		} else if inline {
			ui.Info("Opened in the configured viewer")
		} else {
			ui.Info("Opened in the default browser")
		}
	}

	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		fmt.Println()
		ui.Info("Stopping...")
		sup.Shutdown()
	case <-exited:
		ui.Warn("Application exited")
	}

	return nil
}
