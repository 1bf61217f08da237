// Package advantage decides whether a check is rolled with advantage or
// disadvantage from the chosen action's tags, the effect tags of the
// player's gear and the player's active conditions.
package advantage

import (
	"slices"

	"github.com/tatianab/waystation/internal/dice"
)

// Conditions that hamper a check.
const (
	Fatigued = "fatigued"
	Startled = "startled"
)

var (
	// fatigue hampers physical and quiet work.
	fatigueHampers = []string{"athletics", "stealth"}
	// being startled hampers reading and talking to people.
	startleHampers = []string{"social", "insight"}
)

// Evaluate returns the roll mode for a choice.
//
// Gear that matches the choice grants advantage and is checked first: a
// fatigued player sneaking with a stealth item still rolls with advantage.
// Only when no tag matches do the conditions impose disadvantage.
func Evaluate(choiceTags, effectTags, conditions []string) dice.Mode {
	if intersects(choiceTags, effectTags) {
		return dice.Advantage
	}
	if (slices.Contains(conditions, Fatigued) && intersects(choiceTags, fatigueHampers)) ||
		(slices.Contains(conditions, Startled) && intersects(choiceTags, startleHampers)) {
		return dice.Disadvantage
	}
	return dice.Normal
}

func intersects(a, b []string) bool {
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}
