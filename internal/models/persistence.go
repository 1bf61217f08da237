package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EncodeDocument renders the persisted JSON document for s.
func EncodeDocument(s *GameState) ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}

// DecodeDocument parses a persisted document. Sections missing from the
// document keep their defaults, so older saves still load.
func DecodeDocument(data []byte) (*GameState, error) {
	var doc struct {
		ID           string           `json:"session_id"`
		Turn         *int             `json:"turn"`
		Player       *PlayerState     `json:"player"`
		World        *WorldState      `json:"world"`
		CurrentScene *Scene           `json:"current_scene"`
		StoryLog     []string         `json:"story_log"`
		Context      NarrativeContext `json:"context"`
		RecentChecks RecentChecks     `json:"recent_checks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}

	s := NewGameState(doc.ID)
	if doc.Turn != nil {
		s.Turn = *doc.Turn
	}
	if doc.Player != nil {
		s.Player = *doc.Player
	}
	if doc.World != nil {
		s.World = *doc.World
	}
	if doc.CurrentScene.WellFormed() {
		s.CurrentScene = doc.CurrentScene
	}
	if doc.StoryLog != nil {
		s.StoryLog = doc.StoryLog
	}
	if doc.Context != nil {
		s.Context = doc.Context
	}
	s.RecentChecks = append(s.RecentChecks, doc.RecentChecks...)
	s.RecentChecks.trim()
	return s, nil
}

// WriteDocument saves s to path. The document is written to a temporary
// file in the same directory and renamed over path, so a crash mid-write
// leaves the previous save intact.
func WriteDocument(path string, s *GameState) error {
	data, err := EncodeDocument(s)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ReadDocument loads the document at path. The error wraps os.ErrNotExist
// when there is no save yet.
func ReadDocument(path string) (*GameState, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return DecodeDocument(data)
}
