package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/models"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	lib := Default()
	require.GreaterOrEqual(t, lib.Len(), 2)

	seen := map[string]bool{}
	for i := 0; i < lib.Len(); i++ {
		s := lib.Scene(func(int) int { return i }, "")
		assert.True(t, s.WellFormed())
		assert.False(t, seen[s.SceneID], "duplicate scene id %s", s.SceneID)
		seen[s.SceneID] = true
		for _, ch := range s.Choices {
			assert.True(t, models.IsCheckTag(ch.CheckTag), "scene %s: %q", s.SceneID, ch.CheckTag)
			assert.NotEmpty(t, ch.Leads)
		}
	}
}

func TestSceneAvoidsCurrentAndCopies(t *testing.T) {
	lib := Default()
	first := lib.Scene(func(int) int { return 0 }, "")

	for i := 0; i < lib.Len()-1; i++ {
		s := lib.Scene(func(int) int { return i }, first.SceneID)
		assert.NotEqual(t, first.SceneID, s.SceneID)
	}

	first.Choices[0].Action = "changed"
	again := lib.Scene(func(int) int { return 0 }, "")
	assert.NotEqual(t, "changed", again.Choices[0].Action)
}

func TestSceneSingleEntryLibrary(t *testing.T) {
	lib, err := Parse([]byte(`
scenes:
  - scene_id: only
    scene: A lone hut.
    choices:
      - {action: knock, hint: h, check_tag: social, choice_tags: [social], leads: l}
      - {action: wait, hint: h, check_tag: insight, choice_tags: [], leads: l}
`))
	require.NoError(t, err)
	s := lib.Scene(func(n int) int { return n - 1 }, "only")
	assert.Equal(t, "only", s.SceneID)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"empty":       "scenes: []",
		"no id":       "scenes:\n  - scene: x\n    choices: [{action: a, check_tag: social}, {action: b, check_tag: social}]",
		"blank scene": "scenes:\n  - scene_id: a\n    scene: '  '\n    choices: [{action: a, check_tag: social}, {action: b, check_tag: social}]",
		"one choice":  "scenes:\n  - scene_id: a\n    scene: x\n    choices: [{action: a, check_tag: social}]",
		"bad tag":     "scenes:\n  - scene_id: a\n    scene: x\n    choices: [{action: a, check_tag: social}, {action: b, check_tag: cooking}]",
		"bad yaml":    "scenes: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o644))
	lib, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), lib.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve(t *testing.T) {
	choice := models.Choice{Action: "Read the wall", CheckTag: "perception", Leads: "the north path"}

	res := Resolve(choice, 5, dice.Failure)
	assert.Equal(t, "You carry out your plan, breath steady as a thread; failure.", res.Narration)
	assert.Equal(t, "the north path", res.ContextUpdate[models.SeedKey])
	assert.Equal(t, Trail, res.ContextUpdate["trail"])
	assert.Equal(t, "check perception -> failure (d20=5)", res.LogEntry)
	assert.Equal(t, []string{"fatigued"}, res.PlayerUpdate.AddConditions)
	assert.Nil(t, res.NextScene)

	for _, band := range []dice.Band{dice.Success, dice.PartialSuccess} {
		res := Resolve(choice, 15, band)
		assert.Empty(t, res.PlayerUpdate.AddConditions, "band %s", band)
		assert.Empty(t, res.PlayerUpdate.AddInventory)
	}
}
