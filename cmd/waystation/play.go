package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tatianab/waystation/internal/tui"
)

var logFile string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, so log lines go to a file.
	f, err := tea.LogToFile(logFile, "")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, nil, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.manager.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	return tui.Run(s)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "waystation.log", "where the terminal game writes its logs")
	rootCmd.AddCommand(playCmd)
}
