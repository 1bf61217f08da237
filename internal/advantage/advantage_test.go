package advantage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tatianab/waystation/internal/dice"
)

func TestEvaluate(t *testing.T) {
	tcs := []struct {
		name       string
		choiceTags []string
		effectTags []string
		conditions []string
		want       dice.Mode
	}{
		{
			name: "no tags",
			want: dice.Normal,
		},
		{
			name:       "matching gear",
			choiceTags: []string{"perception", "night"},
			effectTags: []string{"insight", "night"},
			want:       dice.Advantage,
		},
		{
			name:       "matching gear wins over fatigue",
			choiceTags: []string{"stealth"},
			effectTags: []string{"stealth"},
			conditions: []string{Fatigued},
			want:       dice.Advantage,
		},
		{
			name:       "matching gear wins over startle",
			choiceTags: []string{"social"},
			effectTags: []string{"social"},
			conditions: []string{Startled},
			want:       dice.Advantage,
		},
		{
			name:       "fatigue hampers stealth",
			choiceTags: []string{"stealth"},
			conditions: []string{Fatigued},
			want:       dice.Disadvantage,
		},
		{
			name:       "fatigue hampers athletics",
			choiceTags: []string{"athletics"},
			effectTags: []string{"mystic"},
			conditions: []string{Fatigued},
			want:       dice.Disadvantage,
		},
		{
			name:       "startle hampers insight",
			choiceTags: []string{"insight"},
			conditions: []string{Startled},
			want:       dice.Disadvantage,
		},
		{
			name:       "fatigue does not hamper social",
			choiceTags: []string{"social"},
			conditions: []string{Fatigued},
			want:       dice.Normal,
		},
		{
			name:       "startle does not hamper stealth",
			choiceTags: []string{"stealth"},
			conditions: []string{Startled},
			want:       dice.Normal,
		},
		{
			name:       "unrelated condition",
			choiceTags: []string{"stealth"},
			conditions: []string{"soaked"},
			want:       dice.Normal,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.choiceTags, tc.effectTags, tc.conditions))
		})
	}
}
