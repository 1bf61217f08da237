package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tatianab/waystation/internal/engine"
	"github.com/tatianab/waystation/internal/models"
	"github.com/tatianab/waystation/internal/session"
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Print the current scene",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session.Session, args []string) error {
		printScene(cmd.OutOrStdout(), s.CurrentScene(cmd.Context()))
		return nil
	}),
}

var chooseCmd = &cobra.Command{
	Use:   "choose <number>",
	Short: "Play one choice of the current scene",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session.Session, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("choice must be a number, got %q", args[0])
		}
		sum, err := s.Choose(cmd.Context(), n-1)
		if err != nil {
			return err
		}
		printTurn(cmd.OutOrStdout(), sum)
		return nil
	}),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start the session over",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session.Session, args []string) error {
		printScene(cmd.OutOrStdout(), s.Reset(cmd.Context()))
		return nil
	}),
}

var nameCmd = &cobra.Command{
	Use:   "name <name>",
	Short: "Rename the player",
	Args:  cobra.MinimumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session.Session, args []string) error {
		p := s.SetPlayerName(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintf(cmd.OutOrStdout(), "You are %s the %s.\n", p.Name, p.Archetype)
		return nil
	}),
}

// withSession opens the configured session before running fn.
func withSession(fn func(cmd *cobra.Command, s *session.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, nil, 0)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.manager.Open(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		return fn(cmd, s, args)
	}
}

func printScene(w io.Writer, s models.Scene) {
	fmt.Fprintf(w, "%s\n\n", s.Description)
	details := [][2]string{
		{"Around", strings.Join(s.EnvTags, ", ")},
		{"NPCs", strings.Join(s.NPCs, ", ")},
		{"Threats", strings.Join(s.Threats, ", ")},
		{"Clues", strings.Join(s.Clues, ", ")},
		{"Loot", lootLine(s.Loot)},
	}
	shown := false
	for _, d := range details {
		if d[1] != "" {
			fmt.Fprintf(w, "%s: %s\n", d[0], d[1])
			shown = true
		}
	}
	if shown {
		fmt.Fprintln(w)
	}
	for i, c := range s.Choices {
		fmt.Fprintf(w, "  %d. %s (%s)", i+1, c.Action, c.CheckTag)
		if c.Hint != "" {
			fmt.Fprintf(w, " - %s", c.Hint)
		}
		fmt.Fprintln(w)
	}
}

func lootLine(loot []models.InventoryEntry) string {
	parts := make([]string, 0, len(loot))
	for _, it := range loot {
		if len(it.EffectTags) > 0 {
			parts = append(parts, fmt.Sprintf("%s [%s]", it.Name, strings.Join(it.EffectTags, ", ")))
		} else {
			parts = append(parts, it.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func printTurn(w io.Writer, sum engine.TurnSummary) {
	fmt.Fprintf(w, "Player Action: %s\n", sum.Choice.Action)
	fmt.Fprintf(w, "Roll: d20=%d (%s) -> %s\n", sum.Roll.Value, sum.Roll.Mode, sum.Outcome)
	fmt.Fprintf(w, "GM Outcome: %s\n", sum.Resolution.Narration)
	fmt.Fprintf(w, "Source: resolution=%s scene=%s/%s\n", sum.ResolutionSource.Source, sum.SceneSource.Source, sum.SceneSource.Step)
	names := make([]string, 0, len(sum.Player.Inventory))
	for _, it := range sum.Player.Inventory {
		names = append(names, it.Name)
	}
	fmt.Fprintf(w, "Stats: Turn=%d, Conditions=%v, Inventory=%v\n\n", sum.Turn, sum.Player.Conditions, names)
	printScene(w, sum.NextScene)
}

func init() {
	rootCmd.AddCommand(sceneCmd, chooseCmd, resetCmd, nameCmd)
}
