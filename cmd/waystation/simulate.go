package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/tatianab/waystation/internal/models"
	"github.com/tatianab/waystation/internal/session"
)

var (
	simTurns int
	simSeed  int64
)

// simulateCmd plays a whole game unattended, picking choices at random.
// Sessions live in memory so simulations never touch saves.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a number of turns automatically",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simTurns <= 0 {
			return fmt.Errorf("--turns must be positive, got %d", simTurns)
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, session.NewMemoryStore[*models.GameState](), simSeed)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.manager.Open(ctx, sessionID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		gen := "disabled"
		if a.engine.GenerationEnabled() {
			gen = "enabled"
		}
		fmt.Fprintf(out, "Generation: %s, fallback catalog: %d scenes\n", gen, a.library.Len())

		player := rand.New(rand.NewSource(simSeed))
		scene := s.CurrentScene(ctx)
		fmt.Fprintln(out, "--- Opening ---")
		printScene(out, scene)

		for turn := 1; turn <= simTurns; turn++ {
			fmt.Fprintf(out, "\n--- Turn %d ---\n", turn)
			sum, err := s.Choose(ctx, player.Intn(len(scene.Choices)))
			if err != nil {
				return err
			}
			printTurn(out, sum)
			scene = sum.NextScene
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simTurns, "turns", 10, "number of turns to play")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "dice and player seed; 0 picks one at random")
	rootCmd.AddCommand(simulateCmd)
}
