package models

import "strings"

// CheckTags is the fixed set of skills a choice can be tested against.
var CheckTags = []string{"perception", "stealth", "social", "athletics", "mystic", "survival", "insight"}

// IsCheckTag reports whether tag is one of CheckTags.
func IsCheckTag(tag string) bool {
	for _, t := range CheckTags {
		if t == tag {
			return true
		}
	}
	return false
}

// InventoryEntry is an item the player carries or a scene offers as loot.
type InventoryEntry struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"` // assigned when merged into an inventory
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	EffectTags  []string `json:"effect_tags" yaml:"effect_tags"`
	UsageNotes  string   `json:"usage_notes" yaml:"usage_notes"`
}

// PlayerState is the player's narrative sheet.
type PlayerState struct {
	Name       string           `json:"name"`
	Archetype  string           `json:"archetype"`
	Traits     []string         `json:"traits"`
	Conditions []string         `json:"conditions"`
	Inventory  []InventoryEntry `json:"inventory"`
}

// WorldState is fixed flavour handed to the generator; the turn loop never
// changes it.
type WorldState struct {
	Era      string   `json:"era"`
	Region   string   `json:"region"`
	Tone     string   `json:"tone"`
	Factions []string `json:"factions"`
}

// Choice is one selectable action in a scene.
type Choice struct {
	Action     string   `json:"action" yaml:"action"`
	Hint       string   `json:"hint" yaml:"hint"`
	CheckTag   string   `json:"check_tag" yaml:"check_tag"`
	ChoiceTags []string `json:"choice_tags" yaml:"choice_tags"`
	Leads      string   `json:"leads" yaml:"leads"` // seed for the next scene
}

// Scene is a narrative beat with two to four choices.
type Scene struct {
	SceneID     string           `json:"scene_id" yaml:"scene_id"`
	Description string           `json:"scene" yaml:"scene"`
	EnvTags     []string         `json:"env_tags" yaml:"env_tags"`
	NPCs        []string         `json:"npcs" yaml:"npcs"`
	Threats     []string         `json:"threats" yaml:"threats"`
	Clues       []string         `json:"clues" yaml:"clues"`
	Loot        []InventoryEntry `json:"loot" yaml:"loot"`
	Choices     []Choice         `json:"choices" yaml:"choices"`
}

// WellFormed reports whether s can be shown to a player.
func (s *Scene) WellFormed() bool {
	return s != nil && strings.TrimSpace(s.Description) != ""
}

// Clone returns a deep copy of s.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	c := *s
	c.EnvTags = cloneStrings(s.EnvTags)
	c.NPCs = cloneStrings(s.NPCs)
	c.Threats = cloneStrings(s.Threats)
	c.Clues = cloneStrings(s.Clues)
	c.Loot = cloneEntries(s.Loot)
	if s.Choices != nil {
		c.Choices = make([]Choice, len(s.Choices))
		for i, ch := range s.Choices {
			ch.ChoiceTags = cloneStrings(ch.ChoiceTags)
			c.Choices[i] = ch
		}
	}
	return &c
}

// PlayerUpdate lists the changes a resolution makes to the player.
type PlayerUpdate struct {
	AddConditions    []string         `json:"add_conditions"`
	RemoveConditions []string         `json:"remove_conditions"`
	AddInventory     []InventoryEntry `json:"add_inventory"`
	RemoveInventory  []string         `json:"remove_inventory"`
}

// Resolution is the narrated consequence of a check.
type Resolution struct {
	Narration     string         `json:"narration"`
	ContextUpdate map[string]any `json:"context_update"`
	PlayerUpdate  PlayerUpdate   `json:"player_update"`
	LogEntry      string         `json:"log_entry"`
	NextScene     *Scene         `json:"next_scene,omitempty"`
}

// GameState aggregates everything a session persists.
type GameState struct {
	ID           string           `json:"session_id"`
	Turn         int              `json:"turn"`
	Player       PlayerState      `json:"player"`
	World        WorldState       `json:"world"`
	CurrentScene *Scene           `json:"current_scene"`
	StoryLog     []string         `json:"story_log"`
	Context      NarrativeContext `json:"context"`
	RecentChecks RecentChecks     `json:"recent_checks"`
}

// NewGameState returns the starting state for a session.
func NewGameState(id string) *GameState {
	return &GameState{
		ID:     id,
		Turn:   1,
		Player: DefaultPlayer(),
		World:  DefaultWorld(),
		// Non-nil so the persisted document never carries nulls.
		StoryLog:     []string{},
		Context:      NarrativeContext{},
		RecentChecks: RecentChecks{},
	}
}

// DefaultPlayer is the wanderer every new session starts with.
func DefaultPlayer() PlayerState {
	return PlayerState{
		Name:       "Nameless Wanderer",
		Archetype:  "wayfarer",
		Traits:     []string{"cautious", "decisive"},
		Conditions: []string{},
		Inventory:  []InventoryEntry{},
	}
}

// DefaultWorld is the setting every new session is played in.
func DefaultWorld() WorldState {
	return WorldState{
		Era:      "the Hazy Dynasty",
		Region:   "the mountains beyond the pass",
		Tone:     "lyrical wuxia with uncanny folklore",
		Factions: []string{"Mist-Hidden Hall", "Remnant Mohists", "Drifting Sand Wanderers"},
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneEntries(in []InventoryEntry) []InventoryEntry {
	if in == nil {
		return nil
	}
	out := make([]InventoryEntry, len(in))
	for i, e := range in {
		e.EffectTags = cloneStrings(e.EffectTags)
		out[i] = e
	}
	return out
}
