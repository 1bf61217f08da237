package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/fallback"
	"github.com/tatianab/waystation/internal/gm"
	"github.com/tatianab/waystation/internal/models"
)

var errOffline = errors.New("offline")

// stubGenerator replays canned scenes and resolutions. A nil scene entry
// fails that call.
type stubGenerator struct {
	scenes      []*models.Scene
	resolutions []string
	resErr      error

	sceneCalls int
	resCalls   int
	seeds      []string
}

func (g *stubGenerator) GenerateScene(ctx context.Context, st *models.GameState) (models.Scene, error) {
	seed, _ := st.Context[models.SeedKey].(string)
	g.seeds = append(g.seeds, seed)
	i := g.sceneCalls
	g.sceneCalls++
	if i >= len(g.scenes) || g.scenes[i] == nil {
		return models.Scene{}, errOffline
	}
	return *g.scenes[i].Clone(), nil
}

func (g *stubGenerator) GenerateResolution(ctx context.Context, st *models.GameState, choice models.Choice, roll int, band dice.Band) (models.Resolution, error) {
	i := g.resCalls
	g.resCalls++
	if g.resErr != nil || i >= len(g.resolutions) {
		return models.Resolution{}, fmt.Errorf("%w: %v", gm.ErrGenerationUnavailable, errOffline)
	}
	return gm.ParseResolution(g.resolutions[i])
}

type memorySaver struct {
	mu    sync.Mutex
	puts  int
	saved map[string]*models.GameState
	err   error
}

func (m *memorySaver) Put(ctx context.Context, id string, st *models.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]*models.GameState{}
	}
	m.saved[id] = st.Snapshot()
	return nil
}

func scene(id string, tags ...string) *models.Scene {
	if len(tags) == 0 {
		tags = []string{"perception", "survival"}
	}
	s := &models.Scene{SceneID: id, Description: "Scene " + id}
	for i, tag := range tags {
		s.Choices = append(s.Choices, models.Choice{
			Action:     fmt.Sprintf("Action %d of %s that is quite long", i, id),
			CheckTag:   tag,
			ChoiceTags: []string{tag},
			Leads:      "leads from " + id,
		})
	}
	return s
}

func newTestEngine(gen Generator, saver Saver) *Engine {
	return New(gen, fallback.Default(), dice.NewRoller(7), saver)
}

func readyState(s *models.Scene) *models.GameState {
	st := models.NewGameState("test")
	st.CurrentScene = s
	return st
}

func TestEndToEndStubbedResolution(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{scene("opening"), scene("next")},
		resolutions: []string{`{"narration":"x","context_update":{},"player_update":{"add_conditions":["fatigued"]},"log_entry":"y"}`},
	}
	saver := &memorySaver{}
	e := newTestEngine(gen, saver)
	st := models.NewGameState("test")

	first := e.Reset(context.Background(), st)
	require.True(t, st.CurrentScene.WellFormed())
	assert.Equal(t, Generated, first.Provenance.Source)
	assert.Equal(t, []string{OpeningLine}, st.StoryLog)
	assert.Equal(t, StartSeed, st.Context[models.SeedKey])

	turn := st.Turn
	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, turn+1, st.Turn)
	assert.Equal(t, turn+1, sum.Turn)
	assert.Contains(t, st.Player.Conditions, "fatigued")
	assert.Equal(t, "y", st.StoryLog[len(st.StoryLog)-1])
	assert.Equal(t, Generated, sum.ResolutionSource.Source)
	assert.Equal(t, "next", sum.NextScene.SceneID)
	assert.Equal(t, "next", st.CurrentScene.SceneID)
	// Empty context update skips the seed step and goes through the leads.
	assert.Equal(t, StepChoiceLeads, sum.SceneSource.Step)
	assert.Equal(t, "leads from opening", st.Context[models.SeedKey])
	assert.Equal(t, dice.Outcome(sum.Roll.Value), sum.Outcome)

	require.NotNil(t, saver.saved["test"])
	assert.Equal(t, st.Turn, saver.saved["test"].Turn)
}

func TestChooseInvalidIndexLeavesStateUntouched(t *testing.T) {
	saver := &memorySaver{}
	e := newTestEngine(nil, saver)
	st := readyState(scene("gate"))
	st.AppendLog("before")

	for _, idx := range []int{-1, len(st.CurrentScene.Choices)} {
		_, err := e.Choose(context.Background(), st, idx)
		require.ErrorIs(t, err, ErrInvalidChoice)
		assert.Equal(t, 1, st.Turn)
		assert.Equal(t, []string{"before"}, st.StoryLog)
		assert.Empty(t, st.RecentChecks)
	}
	assert.Zero(t, saver.puts)
}

func TestGenerationFailureFallsBack(t *testing.T) {
	gen := &stubGenerator{resErr: errOffline}
	e := newTestEngine(gen, nil)
	st := models.NewGameState("test")

	res := e.EnsureScene(context.Background(), st)
	require.True(t, st.CurrentScene.WellFormed())
	assert.Equal(t, Fallback, res.Provenance.Source)
	assert.Equal(t, SceneReady, Phase(st))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.True(t, sum.NextScene.WellFormed())
	assert.Equal(t, Fallback, sum.ResolutionSource.Source)
	assert.Equal(t, Fallback, sum.SceneSource.Source)
	assert.Equal(t, StepLibrary, sum.SceneSource.Step)
	assert.Contains(t, sum.ResolutionSource.Reason, "offline")
	assert.Equal(t, fallback.Trail, st.Context["trail"])
	assert.True(t, strings.HasPrefix(st.StoryLog[len(st.StoryLog)-1], "check "))
}

func TestGenerationDisabled(t *testing.T) {
	e := newTestEngine(nil, nil)
	assert.False(t, e.GenerationEnabled())

	st := models.NewGameState("test")
	assert.Equal(t, NoScene, Phase(st))
	// Choose ensures a scene first.
	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, Fallback, sum.ResolutionSource.Source)
	assert.Equal(t, Fallback, sum.SceneSource.Source)
	assert.True(t, st.CurrentScene.WellFormed())
}

func TestCascadeEmbeddedNextScene(t *testing.T) {
	gen := &stubGenerator{resolutions: []string{`{"narration":"x","context_update":{"seed":"shrine"},"player_update":{},"log_entry":"y",
		"next_scene":{"scene_id":"embedded","scene":"A shrine.","env_tags":[],"npcs":[],"threats":[],"clues":[],"loot":[],
		"choices":[{"action":"a","hint":"h","check_tag":"perception","choice_tags":[],"leads":"l"},{"action":"b","hint":"h","check_tag":"stealth","choice_tags":[],"leads":"l"}]}}`}}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate", "perception", "survival"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, StepNextScene, sum.SceneSource.Step)
	assert.Equal(t, "embedded", st.CurrentScene.SceneID)
	// Embedded scenes are committed verbatim, even a recently used check.
	assert.Equal(t, "perception", st.CurrentScene.Choices[0].CheckTag)
	assert.Zero(t, gen.sceneCalls)
}

func TestCascadeIncompleteNextSceneKeepsResolution(t *testing.T) {
	gen := &stubGenerator{
		scenes: []*models.Scene{scene("cellar")},
		resolutions: []string{`{"narration":"The lamp catches.","context_update":{"seed":"the cellar"},"log_entry":"found a lantern",
			"player_update":{"add_inventory":[{"name":"Lantern","description":"Brass, dented.","effect_tags":["light"],"usage_notes":"Hold it up."}]},
			"next_scene":{"scene_id":"x"}}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, Generated, sum.ResolutionSource.Source)
	assert.Equal(t, "The lamp catches.", sum.Resolution.Narration)
	assert.True(t, st.Player.HasItem("Lantern"))
	assert.Equal(t, "found a lantern", st.StoryLog[len(st.StoryLog)-1])
	assert.NotEqual(t, StepNextScene, sum.SceneSource.Step)
	assert.Equal(t, StepContextSeed, sum.SceneSource.Step)
	assert.Equal(t, "cellar", st.CurrentScene.SceneID)
}

func TestCascadeContextSeed(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{scene("shrine")},
		resolutions: []string{`{"narration":"x","context_update":{"seed":"the shrine"},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, StepContextSeed, sum.SceneSource.Step)
	assert.Equal(t, []string{"the shrine"}, gen.seeds)
}

func TestCascadeFallsThroughToForced(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{nil, nil, scene("forced")},
		resolutions: []string{`{"narration":"x","context_update":{"seed":"the shrine"},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, StepForced, sum.SceneSource.Step)
	assert.Equal(t, "forced", st.CurrentScene.SceneID)
	assert.Equal(t, []string{"the shrine", "leads from gate", "leads from gate"}, gen.seeds)
}

func TestCascadeCollisionNudge(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{nil, scene("gate"), scene("elsewhere")},
		resolutions: []string{`{"narration":"x","context_update":{},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))
	action := st.CurrentScene.Choices[0].Action

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, StepNudged, sum.SceneSource.Step)
	assert.Equal(t, "elsewhere", st.CurrentScene.SceneID)
	require.Len(t, gen.seeds, 3)
	assert.Equal(t, "leads from gate; then: "+string([]rune(action)[:20]), gen.seeds[2])
}

func TestCascadeCollisionKeepsFirstWhenBothCollide(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{nil, scene("gate"), scene("gate")},
		resolutions: []string{`{"narration":"x","context_update":{},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, StepForced, sum.SceneSource.Step)
	assert.Equal(t, "gate", st.CurrentScene.SceneID)
}

func TestCascadeIllFormedScenesReachLibrary(t *testing.T) {
	blank := &models.Scene{SceneID: "blank", Description: "  "}
	gen := &stubGenerator{
		scenes:      []*models.Scene{blank, blank, blank},
		resolutions: []string{`{"narration":"x","context_update":{"seed":"s"},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate"))

	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, Fallback, sum.SceneSource.Source)
	assert.True(t, st.CurrentScene.WellFormed())
	assert.Equal(t, 3, gen.sceneCalls)
}

func TestRecentChecksRotation(t *testing.T) {
	gen := &stubGenerator{
		scenes:      []*models.Scene{scene("next", "stealth", "social", "mystic")},
		resolutions: []string{`{"narration":"x","context_update":{"seed":"s"},"player_update":{},"log_entry":"y"}`},
	}
	e := newTestEngine(gen, nil)
	st := readyState(scene("gate", "stealth", "survival"))
	st.RecentChecks = models.RecentChecks{"social", "insight"}

	_, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RecentChecks{"social", "insight", "stealth"}, st.RecentChecks)
	for _, ch := range st.CurrentScene.Choices {
		assert.False(t, st.RecentChecks.Contains(ch.CheckTag), "choice %q kept recent check %s", ch.Action, ch.CheckTag)
	}
	assert.Equal(t, "mystic", st.CurrentScene.Choices[2].CheckTag)
}

func TestBootstrap(t *testing.T) {
	saver := &memorySaver{}
	e := newTestEngine(nil, saver)
	st := models.NewGameState("test")

	res := e.Bootstrap(context.Background(), st)
	assert.Equal(t, Fallback, res.Provenance.Source)
	res = e.Bootstrap(context.Background(), st)
	assert.Equal(t, Existing, res.Provenance.Source)
	assert.Equal(t, StartSeed, st.Context[models.SeedKey])
	assert.Equal(t, []string{OpeningLine}, st.StoryLog)
	assert.Equal(t, 1, saver.puts)

	// A loaded state with a scene but no seed is seeded and saved.
	loaded := readyState(scene("gate"))
	e.Bootstrap(context.Background(), loaded)
	assert.Equal(t, []string{OpeningLine}, loaded.StoryLog)
	assert.Equal(t, "gate", loaded.CurrentScene.SceneID)
	assert.Equal(t, 2, saver.puts)
}

func TestSetPlayerName(t *testing.T) {
	saver := &memorySaver{}
	e := newTestEngine(nil, saver)
	st := models.NewGameState("test")

	e.SetPlayerName(context.Background(), st, "  ")
	assert.Equal(t, models.DefaultPlayer().Name, st.Player.Name)
	assert.Zero(t, saver.puts)

	e.SetPlayerName(context.Background(), st, "Lin")
	assert.Equal(t, "Lin", st.Player.Name)
	assert.Equal(t, "Lin", saver.saved["test"].Player.Name)
}

func TestSaveFailureDoesNotAbortTurn(t *testing.T) {
	saver := &memorySaver{err: errors.New("disk full")}
	e := newTestEngine(nil, saver)
	st := readyState(scene("gate"))

	_, err := e.Choose(context.Background(), st, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, 1, saver.puts)
}

func TestResetKeepsSessionID(t *testing.T) {
	e := newTestEngine(nil, nil)
	st := readyState(scene("gate"))
	st.ID = "keep-me"
	st.Turn = 9
	st.Player.Name = "Lin"

	res := e.Reset(context.Background(), st)
	assert.Equal(t, "keep-me", st.ID)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, models.DefaultPlayer().Name, st.Player.Name)
	assert.Equal(t, Fallback, res.Provenance.Source)
	assert.True(t, st.CurrentScene.WellFormed())
}

type failingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *failingProvider) Complete(ctx context.Context, req gm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return "", errOffline
}

func TestClientExhaustionFallsBackToLibrary(t *testing.T) {
	p := &failingProvider{}
	client := gm.NewClient(p, gm.ClientConfig{
		Retries:    gm.DefaultRetries,
		NewBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	e := newTestEngine(client, nil)
	st := models.NewGameState("test")

	res := e.EnsureScene(context.Background(), st)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, Fallback, res.Provenance.Source)
	assert.Contains(t, res.Provenance.Reason, gm.ErrGenerationUnavailable.Error())
	require.True(t, st.CurrentScene.WellFormed())

	p.calls = 0
	sum, err := e.Choose(context.Background(), st, 0)
	require.NoError(t, err)
	assert.Equal(t, Fallback, sum.ResolutionSource.Source)
	assert.Equal(t, Fallback, sum.SceneSource.Source)
	assert.Equal(t, StepLibrary, sum.SceneSource.Step)
	assert.Zero(t, p.calls%3, "every round trip makes three attempts")
	assert.True(t, st.CurrentScene.WellFormed())
}
