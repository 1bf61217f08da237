package gm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

const (
	minChoices = 2
	maxChoices = 4
)

// ExtractJSON returns the span from the first '{' to the last '}' of text,
// inclusive. Code fences and chatter around the object are ignored.
func ExtractJSON(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	l, r := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if l == -1 || r == -1 || r <= l {
		return "", ErrNoJSONObject
	}
	return text[l : r+1], nil
}

// ParseScene extracts, validates and decodes a scene reply.
func ParseScene(text string) (models.Scene, error) {
	doc, err := decodable(text)
	if err != nil {
		return models.Scene{}, err
	}
	if err := validateScene(gjson.Parse(doc), ""); err != nil {
		return models.Scene{}, err
	}

	var s models.Scene
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return models.Scene{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	normalizeScene(&s)
	return s, nil
}

// ParseResolution extracts, validates and decodes a resolution reply. The
// optional next_scene is kept only when it is a complete scene; an empty,
// null or partial one is dropped and the rest of the reply still counts.
func ParseResolution(text string) (models.Resolution, error) {
	doc, err := decodable(text)
	if err != nil {
		return models.Resolution{}, err
	}
	obj := gjson.Parse(doc)
	if err := validateResolution(obj); err != nil {
		return models.Resolution{}, err
	}

	var wire struct {
		models.Resolution
		NextScene json.RawMessage `json:"next_scene"`
	}
	if err := json.Unmarshal([]byte(doc), &wire); err != nil {
		return models.Resolution{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	res := wire.Resolution
	res.NextScene = nil
	if res.ContextUpdate == nil {
		res.ContextUpdate = map[string]any{}
	}

	next := obj.Get("next_scene")
	if optional(obj, "next_scene") || isEmptyObject(next) {
		return res, nil
	}
	if err := validateScene(next, "next_scene."); err != nil {
		logging.Warn("dropping incomplete next_scene", err, nil)
		return res, nil
	}
	var s models.Scene
	if err := json.Unmarshal(wire.NextScene, &s); err != nil {
		logging.Warn("dropping incomplete next_scene", err, nil)
		return res, nil
	}
	normalizeScene(&s)
	res.NextScene = &s
	return res, nil
}

func decodable(text string) (string, error) {
	doc, err := ExtractJSON(text)
	if err != nil {
		return "", err
	}
	if !gjson.Valid(doc) {
		return "", fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	return doc, nil
}

func normalizeScene(s *models.Scene) {
	for i := range s.Choices {
		s.Choices[i].CheckTag = normalizeTag(s.Choices[i].CheckTag)
	}
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func validateScene(obj gjson.Result, prefix string) error {
	if !obj.IsObject() {
		return &SchemaError{Field: fieldName(prefix, "$"), Problem: "must be an object"}
	}
	for _, key := range []string{"scene_id", "scene"} {
		if err := requireString(obj, prefix, key); err != nil {
			return err
		}
	}
	for _, key := range []string{"env_tags", "npcs", "threats", "clues"} {
		if err := requireStrings(obj, prefix, key); err != nil {
			return err
		}
	}

	loot, err := requireArray(obj, prefix, "loot")
	if err != nil {
		return err
	}
	for i, item := range loot {
		if err := validateItem(item, fmt.Sprintf("%sloot.%d.", prefix, i)); err != nil {
			return err
		}
	}

	choices, err := requireArray(obj, prefix, "choices")
	if err != nil {
		return err
	}
	if len(choices) < minChoices || len(choices) > maxChoices {
		return &SchemaError{
			Field:   prefix + "choices",
			Problem: fmt.Sprintf("must hold %d to %d entries, got %d", minChoices, maxChoices, len(choices)),
		}
	}
	for i, ch := range choices {
		if err := validateChoice(ch, fmt.Sprintf("%schoices.%d.", prefix, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateChoice(obj gjson.Result, prefix string) error {
	if !obj.IsObject() {
		return &SchemaError{Field: strings.TrimSuffix(prefix, "."), Problem: "must be an object"}
	}
	for _, key := range []string{"action", "hint", "check_tag", "leads"} {
		if err := requireString(obj, prefix, key); err != nil {
			return err
		}
	}
	if tag := normalizeTag(obj.Get("check_tag").String()); !models.IsCheckTag(tag) {
		return &SchemaError{Field: prefix + "check_tag", Problem: fmt.Sprintf("unknown check tag %q", tag)}
	}
	return requireStrings(obj, prefix, "choice_tags")
}

func validateItem(obj gjson.Result, prefix string) error {
	if !obj.IsObject() {
		return &SchemaError{Field: strings.TrimSuffix(prefix, "."), Problem: "must be an object"}
	}
	for _, key := range []string{"name", "description", "usage_notes"} {
		if err := requireString(obj, prefix, key); err != nil {
			return err
		}
	}
	return requireStrings(obj, prefix, "effect_tags")
}

func validateResolution(obj gjson.Result) error {
	if !obj.IsObject() {
		return &SchemaError{Field: "$", Problem: "must be an object"}
	}
	for _, key := range []string{"narration", "log_entry"} {
		if err := requireString(obj, "", key); err != nil {
			return err
		}
	}
	if err := requireObject(obj, "", "context_update"); err != nil {
		return err
	}
	if err := requireObject(obj, "", "player_update"); err != nil {
		return err
	}

	upd := obj.Get("player_update")
	for _, key := range []string{"add_conditions", "remove_conditions", "remove_inventory"} {
		if optional(upd, key) {
			continue
		}
		if err := requireStrings(upd, "player_update.", key); err != nil {
			return err
		}
	}
	if !optional(upd, "add_inventory") {
		items, err := requireArray(upd, "player_update.", "add_inventory")
		if err != nil {
			return err
		}
		for i, item := range items {
			if err := validateItem(item, fmt.Sprintf("player_update.add_inventory.%d.", i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// optional reports whether key is absent or null.
func optional(obj gjson.Result, key string) bool {
	v := obj.Get(key)
	return !v.Exists() || v.Type == gjson.Null
}

func isEmptyObject(v gjson.Result) bool {
	return v.IsObject() && len(v.Map()) == 0
}

func requireString(obj gjson.Result, prefix, key string) error {
	v := obj.Get(key)
	if !v.Exists() {
		return &SchemaError{Field: prefix + key, Problem: "missing"}
	}
	if v.Type != gjson.String {
		return &SchemaError{Field: prefix + key, Problem: "must be a string"}
	}
	return nil
}

func requireObject(obj gjson.Result, prefix, key string) error {
	v := obj.Get(key)
	if !v.Exists() {
		return &SchemaError{Field: prefix + key, Problem: "missing"}
	}
	if !v.IsObject() {
		return &SchemaError{Field: prefix + key, Problem: "must be an object"}
	}
	return nil
}

func requireArray(obj gjson.Result, prefix, key string) ([]gjson.Result, error) {
	v := obj.Get(key)
	if !v.Exists() {
		return nil, &SchemaError{Field: prefix + key, Problem: "missing"}
	}
	if !v.IsArray() {
		return nil, &SchemaError{Field: prefix + key, Problem: "must be an array"}
	}
	return v.Array(), nil
}

func requireStrings(obj gjson.Result, prefix, key string) error {
	elems, err := requireArray(obj, prefix, key)
	if err != nil {
		return err
	}
	for i, e := range elems {
		if e.Type != gjson.String {
			return &SchemaError{Field: fmt.Sprintf("%s%s.%d", prefix, key, i), Problem: "must be a string"}
		}
	}
	return nil
}

func fieldName(prefix, fallback string) string {
	if prefix == "" {
		return fallback
	}
	return strings.TrimSuffix(prefix, ".")
}
