// Command waystation plays a turn-based narrative game in the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tatianab/waystation/internal/config"
)

var (
	cfg       *config.Config
	sessionID string
)

var rootCmd = &cobra.Command{
	Use:   "waystation",
	Short: "A turn-based narrative game on a fog-bound mountain road",
	Long: `waystation presents a scene, lets you pick an action, rolls a d20 for it
and narrates the consequence. Scenes come from a Gemini or OpenAI model when an
API key is configured, and from a built-in catalog otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		if sessionID == "" {
			sessionID = cfg.Session
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id to play (default: WAYSTATION_SESSION or \"current\")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
