// Package fallback serves locally authored scenes and resolutions when the
// game master cannot be reached. Everything here is deterministic given the
// caller's random source.
package fallback

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/waystation/internal/advantage"
	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/models"
)

// Trail is the context entry every fallback resolution leaves behind.
const Trail = "faint scattered footprints"

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrEmptyCatalog = errors.New("fallback catalog has no scenes")

// Library is an immutable catalog of complete scenes.
type Library struct {
	scenes []models.Scene
}

type catalog struct {
	Scenes []models.Scene `yaml:"scenes"`
}

// Default returns the built-in library. It panics if the embedded catalog
// is broken, which the package tests rule out.
func Default() *Library {
	lib, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("fallback: embedded catalog: %v", err))
	}
	return lib
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback catalog: %w", err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Library, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if len(c.Scenes) == 0 {
		return nil, ErrEmptyCatalog
	}
	for i := range c.Scenes {
		if err := validate(&c.Scenes[i]); err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
	}
	return &Library{scenes: c.Scenes}, nil
}

func validate(s *models.Scene) error {
	if s.SceneID == "" {
		return errors.New("missing scene_id")
	}
	if !s.WellFormed() {
		return fmt.Errorf("%s: empty description", s.SceneID)
	}
	if n := len(s.Choices); n < 2 || n > 4 {
		return fmt.Errorf("%s: want 2 to 4 choices, got %d", s.SceneID, n)
	}
	for j, ch := range s.Choices {
		if ch.Action == "" {
			return fmt.Errorf("%s: choice %d has no action", s.SceneID, j)
		}
		if !models.IsCheckTag(ch.CheckTag) {
			return fmt.Errorf("%s: choice %d has unknown check tag %q", s.SceneID, j, ch.CheckTag)
		}
	}
	return nil
}

// Len is the number of scenes in the library.
func (l *Library) Len() int { return len(l.scenes) }

// Scene picks a scene with pick(n), which must return a value in [0, n).
// A scene whose id differs from avoidID is preferred when the library has
// one. The result is a deep copy.
func (l *Library) Scene(pick func(int) int, avoidID string) models.Scene {
	candidates := make([]int, 0, len(l.scenes))
	for i, s := range l.scenes {
		if avoidID == "" || s.SceneID != avoidID {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range l.scenes {
			candidates = append(candidates, i)
		}
	}
	idx := candidates[pick(len(candidates))]
	return *l.scenes[idx].Clone()
}

// Resolve narrates a check without the game master. Failure leaves the
// player fatigued.
func Resolve(choice models.Choice, roll int, band dice.Band) models.Resolution {
	res := models.Resolution{
		Narration: fmt.Sprintf("You carry out your plan, breath steady as a thread; %s.", band),
		ContextUpdate: map[string]any{
			models.SeedKey: choice.Leads,
			"trail":        Trail,
		},
		PlayerUpdate: models.PlayerUpdate{
			AddConditions:    []string{},
			RemoveConditions: []string{},
			AddInventory:     []models.InventoryEntry{},
			RemoveInventory:  []string{},
		},
		LogEntry: fmt.Sprintf("check %s -> %s (d20=%d)", checkTag(choice), band, roll),
	}
	if band == dice.Failure {
		res.PlayerUpdate.AddConditions = append(res.PlayerUpdate.AddConditions, advantage.Fatigued)
	}
	return res
}

func checkTag(c models.Choice) string {
	if c.CheckTag == "" {
		return "?"
	}
	return c.CheckTag
}
