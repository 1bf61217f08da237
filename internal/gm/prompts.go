package gm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/models"
)

// promptLogLines is how much of the story log a scene prompt carries.
const promptLogLines = 8

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/scene.txt
var scenePrompt string

//go:embed prompts/resolution.txt
var resolutionPrompt string

var (
	systemTmpl     = template.Must(template.New("system").Parse(systemPrompt))
	sceneTmpl      = template.Must(template.New("scene").Parse(scenePrompt))
	resolutionTmpl = template.Must(template.New("resolution").Parse(resolutionPrompt))
)

func renderSystem(st *models.GameState) (string, error) {
	return render(systemTmpl, struct{ World models.WorldState }{World: st.World})
}

func renderScene(st *models.GameState) (string, error) {
	blacklist := st.RecentChecks
	if n := len(blacklist); n > models.MaxRecentChecks {
		blacklist = blacklist[n-models.MaxRecentChecks:]
	}
	data := struct {
		Blacklist string
		Player    string
		World     string
		Context   string
		Log       string
		LogLines  int
		CheckTags string
	}{
		Blacklist: toJSON([]string(blacklist)),
		Player:    toJSON(st.Player),
		World:     toJSON(st.World),
		Context:   toJSON(st.Context),
		Log:       toJSON(st.LogTail(promptLogLines)),
		LogLines:  promptLogLines,
		CheckTags: strings.Join(models.CheckTags, "|"),
	}
	return render(sceneTmpl, data)
}

func renderResolution(st *models.GameState, choice models.Choice, roll int, band dice.Band) (string, error) {
	data := struct {
		Action  string
		Player  string
		Context string
		Roll    int
		Outcome dice.Band
	}{
		Action:  choice.Action,
		Player:  toJSON(st.Player),
		Context: toJSON(st.Context),
		Roll:    roll,
		Outcome: band,
	}
	return render(resolutionTmpl, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// toJSON encodes v for a prompt. The values passed here are plain data and
// always encode.
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
