package engine

import (
	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/models"
)

// State is a session's position in the turn cycle.
type State string

const (
	NoScene    State = "no_scene"
	SceneReady State = "scene_ready"
	Resolving  State = "resolving"
)

// Source says where a payload came from.
type Source string

const (
	Generated Source = "generated"
	Fallback  Source = "fallback"
	// Existing marks a scene that was already committed.
	Existing Source = "existing"
)

// Step names the stage that produced a payload.
type Step string

const (
	StepInitial     Step = "initial"
	StepResolution  Step = "resolution"
	StepNextScene   Step = "next_scene"
	StepContextSeed Step = "context_seed"
	StepChoiceLeads Step = "choice_leads"
	StepForced      Step = "forced"
	StepNudged      Step = "forced_nudged"
	StepLibrary     Step = "library"
)

// Provenance records how a payload was obtained. Reason holds the error
// that sent the engine to the fallback library.
type Provenance struct {
	Source Source `json:"source"`
	Step   Step   `json:"step,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Result pairs a payload with its provenance.
type Result[T any] struct {
	Value      T
	Provenance Provenance
}

// TurnSummary is everything a front end needs after a choice.
type TurnSummary struct {
	Choice     models.Choice
	Roll       dice.Roll
	Outcome    dice.Band
	Resolution models.Resolution
	NextScene  models.Scene
	Player     models.PlayerState
	Turn       int

	ResolutionSource Provenance
	SceneSource      Provenance
}
