// Package engine runs the turn loop: it rolls checks, asks the game master
// for resolutions and scenes, and falls back to the local library whenever
// generation fails. Game state is passed into every call; the engine keeps
// none of its own.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/waystation/internal/advantage"
	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/fallback"
	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

const (
	// StartSeed steers the first scene of a new game.
	StartSeed = "a fog-bound mountain road and its old waystation"
	// OpeningLine is the first story log entry of a new game.
	OpeningLine = "You set out on the fog-bound mountain road; the old waystation's wind bell rings by itself."

	// nudgeLen is how much of the action text is appended to the seed when
	// a forced scene repeats the departed one.
	nudgeLen = 20
)

var (
	// ErrInvalidChoice is returned for a choice index outside the current
	// scene's choices. The state is left untouched.
	ErrInvalidChoice = errors.New("invalid choice")

	errGenerationDisabled = errors.New("generation disabled")
	errIllFormedScene     = errors.New("generated scene has no description")
)

// Generator produces scenes and resolutions, typically backed by gm.Client.
type Generator interface {
	GenerateScene(ctx context.Context, st *models.GameState) (models.Scene, error)
	GenerateResolution(ctx context.Context, st *models.GameState, choice models.Choice, roll int, band dice.Band) (models.Resolution, error)
}

// Saver persists a session.
type Saver interface {
	Put(ctx context.Context, id string, st *models.GameState) error
}

type Engine struct {
	gen     Generator
	library *fallback.Library
	roller  *dice.Roller
	saver   Saver
}

// New builds an engine. A nil gen disables generation so every payload
// comes from the library; a nil saver disables persistence.
func New(gen Generator, library *fallback.Library, roller *dice.Roller, saver Saver) *Engine {
	if library == nil {
		library = fallback.Default()
	}
	return &Engine{gen: gen, library: library, roller: roller, saver: saver}
}

// GenerationEnabled reports whether the engine has a generator.
func (e *Engine) GenerationEnabled() bool { return e.gen != nil }

// Phase returns where st is in the turn cycle between turns. A turn in
// flight is tracked by the caller; see session.Session.Phase.
func Phase(st *models.GameState) State {
	if st.CurrentScene.WellFormed() {
		return SceneReady
	}
	return NoScene
}

// Bootstrap prepares a freshly created or loaded state and commits its
// first scene. A state that has never been seeded gets the starting seed
// and the opening log line.
func (e *Engine) Bootstrap(ctx context.Context, st *models.GameState) Result[models.Scene] {
	if st.Context == nil {
		st.Context = models.NarrativeContext{}
	}
	_, seeded := st.Context[models.SeedKey]
	if !seeded {
		st.Context[models.SeedKey] = StartSeed
		st.AppendLog(OpeningLine)
	}
	res := e.EnsureScene(ctx, st)
	if !seeded && res.Provenance.Source == Existing {
		e.save(ctx, st)
	}
	return res
}

// EnsureScene commits a scene if st has none and persists st. It always
// leaves st with a well-formed current scene.
func (e *Engine) EnsureScene(ctx context.Context, st *models.GameState) Result[models.Scene] {
	if st.CurrentScene.WellFormed() {
		return Result[models.Scene]{Value: *st.CurrentScene.Clone(), Provenance: Provenance{Source: Existing}}
	}

	var res Result[models.Scene]
	s, err := e.generateScene(ctx, st, StepInitial)
	if err != nil {
		res = e.libraryScene(st, "", StepInitial, err)
	} else {
		res = Result[models.Scene]{Value: s, Provenance: Provenance{Source: Generated, Step: StepInitial}}
	}
	e.rotateChecks(st, &res.Value)
	st.CurrentScene = res.Value.Clone()
	e.save(ctx, st)
	return res
}

// Choose plays the choice at idx of the current scene and commits the next
// scene. Generation failures never fail a turn; only an out-of-range idx
// is rejected.
func (e *Engine) Choose(ctx context.Context, st *models.GameState, idx int) (TurnSummary, error) {
	if !st.CurrentScene.WellFormed() {
		e.EnsureScene(ctx, st)
	}
	scene := st.CurrentScene
	if idx < 0 || idx >= len(scene.Choices) {
		return TurnSummary{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, idx, len(scene.Choices))
	}
	choice := scene.Choices[idx]
	departed := scene.SceneID

	st.RecentChecks.Push(choice.CheckTag)

	mode := advantage.Evaluate(choice.ChoiceTags, st.Player.EffectTags(), st.Player.Conditions)
	roll := e.roller.Roll(mode)
	band := dice.Outcome(roll.Value)

	resolution := e.resolve(ctx, st, choice, roll.Value, band)
	res := resolution.Value

	st.Player.Apply(res.PlayerUpdate)
	st.Context.Merge(res.ContextUpdate)
	st.AppendLog(res.LogEntry)
	st.Turn++

	next := e.nextScene(ctx, st, choice, res, departed)
	st.CurrentScene = next.Value.Clone()
	e.save(ctx, st)

	return TurnSummary{
		Choice:           choice,
		Roll:             roll,
		Outcome:          band,
		Resolution:       res,
		NextScene:        next.Value,
		Player:           st.Player.Clone(),
		Turn:             st.Turn,
		ResolutionSource: resolution.Provenance,
		SceneSource:      next.Provenance,
	}, nil
}

// Reset starts the session over under the same id.
func (e *Engine) Reset(ctx context.Context, st *models.GameState) Result[models.Scene] {
	*st = *models.NewGameState(st.ID)
	st.Context[models.SeedKey] = StartSeed
	st.AppendLog(OpeningLine)
	return e.EnsureScene(ctx, st)
}

// SetPlayerName renames the player. Blank names are ignored.
func (e *Engine) SetPlayerName(ctx context.Context, st *models.GameState, name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	st.Player.Name = name
	e.save(ctx, st)
}

func (e *Engine) resolve(ctx context.Context, st *models.GameState, choice models.Choice, roll int, band dice.Band) Result[models.Resolution] {
	if e.gen == nil {
		return Result[models.Resolution]{
			Value:      fallback.Resolve(choice, roll, band),
			Provenance: Provenance{Source: Fallback, Step: StepResolution, Reason: errGenerationDisabled.Error()},
		}
	}
	res, err := e.gen.GenerateResolution(ctx, st, choice, roll, band)
	if err != nil {
		logging.Warn("using fallback resolution", err, logging.Fields{"session": st.ID, "turn": st.Turn})
		return Result[models.Resolution]{
			Value:      fallback.Resolve(choice, roll, band),
			Provenance: Provenance{Source: Fallback, Step: StepResolution, Reason: err.Error()},
		}
	}
	if res.ContextUpdate == nil {
		res.ContextUpdate = map[string]any{}
	}
	return Result[models.Resolution]{Value: res, Provenance: Provenance{Source: Generated, Step: StepResolution}}
}

// nextScene runs the cascade. Each step that does not yield a well-formed
// scene falls through to the next; the library always answers last.
// The resolution's context update has already been merged into st; the
// seed step only runs when that update carried something.
func (e *Engine) nextScene(ctx context.Context, st *models.GameState, choice models.Choice, res models.Resolution, departed string) Result[models.Scene] {
	if res.NextScene.WellFormed() {
		return Result[models.Scene]{Value: *res.NextScene.Clone(), Provenance: Provenance{Source: Generated, Step: StepNextScene}}
	}
	if e.gen == nil {
		s := e.libraryScene(st, departed, StepLibrary, errGenerationDisabled)
		e.rotateChecks(st, &s.Value)
		return s
	}

	commit := func(s models.Scene, step Step) Result[models.Scene] {
		e.rotateChecks(st, &s)
		return Result[models.Scene]{Value: s, Provenance: Provenance{Source: Generated, Step: step}}
	}

	if _, ok := st.Context.Seed(); ok && len(res.ContextUpdate) > 0 {
		if s, err := e.generateScene(ctx, st, StepContextSeed); err == nil {
			return commit(s, StepContextSeed)
		}
	}
	if choice.Leads != "" {
		st.Context[models.SeedKey] = choice.Leads
		if s, err := e.generateScene(ctx, st, StepChoiceLeads); err == nil {
			return commit(s, StepChoiceLeads)
		}
	}

	first, err := e.generateScene(ctx, st, StepForced)
	if err != nil {
		s := e.libraryScene(st, departed, StepLibrary, err)
		e.rotateChecks(st, &s.Value)
		return s
	}
	if departed == "" || first.SceneID != departed {
		return commit(first, StepForced)
	}

	seed, _ := st.Context[models.SeedKey].(string)
	st.Context[models.SeedKey] = seed + "; then: " + truncate(choice.Action, nudgeLen)
	second, err := e.generateScene(ctx, st, StepNudged)
	if err == nil && second.SceneID != first.SceneID {
		return commit(second, StepNudged)
	}
	return commit(first, StepForced)
}

func (e *Engine) generateScene(ctx context.Context, st *models.GameState, step Step) (models.Scene, error) {
	if e.gen == nil {
		return models.Scene{}, errGenerationDisabled
	}
	s, err := e.gen.GenerateScene(ctx, st)
	if err == nil && !s.WellFormed() {
		err = errIllFormedScene
	}
	if err != nil {
		logging.Warn("scene generation failed", err, logging.Fields{"session": st.ID, "step": string(step)})
		return models.Scene{}, err
	}
	return s, nil
}

func (e *Engine) libraryScene(st *models.GameState, avoid string, step Step, cause error) Result[models.Scene] {
	s := e.library.Scene(e.roller.Intn, avoid)
	if cause != errGenerationDisabled {
		logging.Info("using fallback scene", logging.Fields{"session": st.ID, "step": string(step), "scene_id": s.SceneID})
	}
	return Result[models.Scene]{
		Value:      s,
		Provenance: Provenance{Source: Fallback, Step: step, Reason: cause.Error()},
	}
}

// rotateChecks re-tags choices whose check was used recently so that
// consecutive scenes exercise different skills.
func (e *Engine) rotateChecks(st *models.GameState, s *models.Scene) {
	var fresh []string
	for _, tag := range models.CheckTags {
		if !st.RecentChecks.Contains(tag) {
			fresh = append(fresh, tag)
		}
	}
	if len(fresh) == 0 {
		return
	}
	for i := range s.Choices {
		if st.RecentChecks.Contains(s.Choices[i].CheckTag) {
			s.Choices[i].CheckTag = fresh[e.roller.Intn(len(fresh))]
		}
	}
}

func (e *Engine) save(ctx context.Context, st *models.GameState) {
	if e.saver == nil {
		return
	}
	if err := e.saver.Put(ctx, st.ID, st); err != nil {
		logging.Error("failed to save session", err, logging.Fields{"session": st.ID, "turn": st.Turn})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
