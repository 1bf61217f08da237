package models

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxRecentChecks is how many check tags are remembered to avoid repeats.
	MaxRecentChecks = 3
	// MaxPersistedLog is how many story log lines a saved session keeps.
	MaxPersistedLog = 200
	// SeedKey is the context key that steers the topic of the next scene.
	SeedKey = "seed"
)

// RecentChecks is a FIFO of the last few check tags used.
type RecentChecks []string

// Push appends tag and evicts the oldest entries beyond MaxRecentChecks.
func (r *RecentChecks) Push(tag string) {
	*r = append(*r, tag)
	r.trim()
}

// Contains reports whether tag was used recently.
func (r RecentChecks) Contains(tag string) bool {
	return slices.Contains(r, tag)
}

func (r *RecentChecks) trim() {
	if n := len(*r); n > MaxRecentChecks {
		*r = append(RecentChecks{}, (*r)[n-MaxRecentChecks:]...)
	}
}

// NarrativeContext is an open key/value bag passed to the generator.
type NarrativeContext map[string]any

// Merge overwrites keys from update, leaving other keys in place.
func (c NarrativeContext) Merge(update map[string]any) {
	maps.Copy(c, update)
}

// Seed returns the seed entry when it is a non-blank string.
func (c NarrativeContext) Seed() (string, bool) {
	s, ok := c[SeedKey].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// EffectTags aggregates the effect tags of every carried item, dropping
// duplicates while keeping first-seen order.
func (p *PlayerState) EffectTags() []string {
	var tags []string
	for _, it := range p.Inventory {
		for _, t := range it.EffectTags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// HasItem reports whether an item with name is carried.
func (p *PlayerState) HasItem(name string) bool {
	return slices.ContainsFunc(p.Inventory, func(e InventoryEntry) bool { return e.Name == name })
}

// Apply merges a resolution's player update.
//
// Conditions behave as a set. Items are unique by name: adding a name that
// is already carried does nothing. A removal matching an item's ID removes
// exactly that item; otherwise every item with that exact name is removed.
func (p *PlayerState) Apply(u PlayerUpdate) {
	for _, c := range u.AddConditions {
		if c != "" && !slices.Contains(p.Conditions, c) {
			p.Conditions = append(p.Conditions, c)
		}
	}
	for _, c := range u.RemoveConditions {
		p.Conditions = slices.DeleteFunc(p.Conditions, func(have string) bool { return have == c })
	}
	for _, it := range u.AddInventory {
		if it.Name == "" || p.HasItem(it.Name) {
			continue
		}
		it.EffectTags = cloneStrings(it.EffectTags)
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		p.Inventory = append(p.Inventory, it)
	}
	for _, key := range u.RemoveInventory {
		p.removeItem(key)
	}
}

func (p *PlayerState) removeItem(key string) {
	if i := slices.IndexFunc(p.Inventory, func(e InventoryEntry) bool { return e.ID != "" && e.ID == key }); i >= 0 {
		p.Inventory = slices.Delete(p.Inventory, i, i+1)
		return
	}
	p.Inventory = slices.DeleteFunc(p.Inventory, func(e InventoryEntry) bool { return e.Name == key })
}

// Clone returns a deep copy of the player.
func (p PlayerState) Clone() PlayerState {
	p.Traits = cloneStrings(p.Traits)
	p.Conditions = cloneStrings(p.Conditions)
	p.Inventory = cloneEntries(p.Inventory)
	return p
}

// AppendLog records a story line, even an empty one.
func (s *GameState) AppendLog(entry string) {
	s.StoryLog = append(s.StoryLog, entry)
}

// LogTail returns up to the last n story lines.
func (s *GameState) LogTail(n int) []string {
	if len(s.StoryLog) <= n {
		return cloneStrings(s.StoryLog)
	}
	return cloneStrings(s.StoryLog[len(s.StoryLog)-n:])
}

// Snapshot returns a deep copy in its persisted form: the story log is cut
// to the last MaxPersistedLog lines and recent checks to MaxRecentChecks.
func (s *GameState) Snapshot() *GameState {
	out := &GameState{
		ID:           s.ID,
		Turn:         s.Turn,
		Player:       s.Player.Clone(),
		World:        s.World,
		CurrentScene: s.CurrentScene.Clone(),
		StoryLog:     s.LogTail(MaxPersistedLog),
		Context:      NarrativeContext(maps.Clone(map[string]any(s.Context))),
		RecentChecks: append(RecentChecks{}, s.RecentChecks...),
	}
	out.World.Factions = cloneStrings(s.World.Factions)
	out.RecentChecks.trim()
	if out.StoryLog == nil {
		out.StoryLog = []string{}
	}
	if out.Context == nil {
		out.Context = NarrativeContext{}
	}
	return out
}
