package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/waystation/internal/engine"
	"github.com/tatianab/waystation/internal/models"
	"github.com/tatianab/waystation/internal/session"
)

// Game is the session API the terminal front end drives.
type Game interface {
	CurrentScene(ctx context.Context) models.Scene
	Choose(ctx context.Context, idx int) (engine.TurnSummary, error)
	Reset(ctx context.Context) models.Scene
	SetPlayerName(ctx context.Context, name string) models.PlayerState
	View() session.View
}

type sessionState int

const (
	stateLoading sessionState = iota
	statePlaying
	stateResolving
	stateError
)

type model struct {
	state     sessionState
	game      Game
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	notice    string
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	rollStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFD7")).
			Italic(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7D7AF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(g Game) model {
	ti := textinput.New()
	ti.Placeholder = "Pick a choice by number..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	return model{
		state:     stateLoading,
		game:      g,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadScene())
}

type sceneLoadedMsg struct {
	scene models.Scene
	reset bool
}

type turnResolvedMsg struct {
	summary engine.TurnSummary
	err     error
}

type renamedMsg struct {
	player models.PlayerState
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state != statePlaying {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()
			m.notice = ""
			return m.handleInput(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.refresh()

	case sceneLoadedMsg:
		if msg.reset {
			m.gameLog = ""
		}
		if m.gameLog == "" {
			m.gameLog = m.renderHistory()
		}
		m.appendLog(m.renderScene(msg.scene))
		m.state = statePlaying
		return m, nil

	case turnResolvedMsg:
		m.state = statePlaying
		if msg.err != nil {
			if errors.Is(msg.err, engine.ErrInvalidChoice) {
				m.notice = "That choice is not on offer."
				return m, nil
			}
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.appendLog(m.renderTurn(msg.summary))
		return m, nil

	case renamedMsg:
		m.notice = "You are now known as " + msg.player.Name + "."
		return m, nil
	}

	if m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleInput(input string) (tea.Model, tea.Cmd) {
	switch {
	case input == "/quit":
		return m, tea.Quit
	case input == "/reset":
		m.state = stateLoading
		return m, m.reset()
	case strings.HasPrefix(input, "/name"):
		name := strings.TrimSpace(strings.TrimPrefix(input, "/name"))
		if name == "" {
			m.notice = "Usage: /name <your name>"
			return m, nil
		}
		return m, m.rename(name)
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		m.notice = "Type the number of a choice, or a command."
		return m, nil
	}
	m.appendLog(userStyle.Width(m.logWidth()).Render("> " + input))
	m.state = stateResolving
	return m, m.choose(n - 1)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateLoading:
		s = "\n  The fog parts... please wait.\n"

	case statePlaying, stateResolving:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		input := m.textInput.View()
		if m.state == stateResolving {
			input = helpStyle.Render("The dice are rolling...")
		}
		help := helpStyle.Render("Commands: a choice number, /name <name>, /reset, /quit.")
		if m.notice != "" {
			help = m.notice + "\n" + help
		}

		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+input,
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m *model) appendLog(block string) {
	if m.gameLog != "" {
		block = "\n\n" + block
	}
	m.gameLog += block
	m.refresh()
	m.viewport.GotoBottom()
}

func (m *model) refresh() {
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.logWidth(), max(m.height-6, 10))
	}
	m.viewport.SetContent(m.gameLog)
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.75)
}

func (m model) renderHistory() string {
	v := m.game.View()
	if len(v.History) == 0 {
		return ""
	}
	return helpStyle.Width(m.logWidth()).Render(strings.Join(v.History, "\n"))
}

func (m model) renderScene(s models.Scene) string {
	var b strings.Builder
	b.WriteString(gameStyle.Width(m.logWidth()).Render(s.Description))
	b.WriteString("\n")
	if details := sceneDetails(s); len(details) > 0 {
		b.WriteString("\n" + helpStyle.Width(m.logWidth()).Render(strings.Join(details, "\n")) + "\n")
	}
	for i, c := range s.Choices {
		line := fmt.Sprintf("%d. %s (%s)", i+1, c.Action, c.CheckTag)
		if c.Hint != "" {
			line += " - " + c.Hint
		}
		b.WriteString("\n" + choiceStyle.Render(line))
	}
	return b.String()
}

// sceneDetails lists the non-empty extras of a scene, one line each.
func sceneDetails(s models.Scene) []string {
	var lines []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			lines = append(lines, label+": "+strings.Join(items, ", "))
		}
	}
	add("Around", s.EnvTags)
	add("NPCs", s.NPCs)
	add("Threats", s.Threats)
	add("Clues", s.Clues)
	loot := make([]string, 0, len(s.Loot))
	for _, it := range s.Loot {
		if len(it.EffectTags) > 0 {
			loot = append(loot, it.Name+" ["+strings.Join(it.EffectTags, ", ")+"]")
		} else {
			loot = append(loot, it.Name)
		}
	}
	add("Loot", loot)
	return lines
}

func (m model) renderTurn(sum engine.TurnSummary) string {
	roll := fmt.Sprintf("d20 = %d (%s) -> %s", sum.Roll.Value, sum.Roll.Mode, sum.Outcome)
	return rollStyle.Render(roll) + "\n\n" +
		gameStyle.Width(m.logWidth()).Render(sum.Resolution.Narration) + "\n\n" +
		m.renderScene(sum.NextScene)
}

func (m model) renderState() string {
	v := m.game.View()
	p := v.Player

	player := titleStyle.Render("PLAYER") + "\n" +
		fmt.Sprintf("%s the %s\nTurn %d\n\n", p.Name, p.Archetype, v.Turn)

	conditions := titleStyle.Render("CONDITIONS") + "\n"
	if len(p.Conditions) == 0 {
		conditions += "(none)\n"
	}
	for _, c := range p.Conditions {
		conditions += "- " + c + "\n"
	}
	conditions += "\n"

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(p.Inventory) == 0 {
		inventory += "(empty)"
	}
	for _, item := range p.Inventory {
		inventory += "- " + item.Name
		if len(item.EffectTags) > 0 {
			inventory += " [" + strings.Join(item.EffectTags, ", ") + "]"
		}
		inventory += "\n"
	}

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(player + conditions + inventory)
}

func (m model) loadScene() tea.Cmd {
	return func() tea.Msg {
		return sceneLoadedMsg{scene: m.game.CurrentScene(context.Background())}
	}
}

func (m model) reset() tea.Cmd {
	return func() tea.Msg {
		return sceneLoadedMsg{scene: m.game.Reset(context.Background()), reset: true}
	}
}

func (m model) choose(idx int) tea.Cmd {
	return func() tea.Msg {
		sum, err := m.game.Choose(context.Background(), idx)
		return turnResolvedMsg{summary: sum, err: err}
	}
}

func (m model) rename(name string) tea.Cmd {
	return func() tea.Msg {
		return renamedMsg{player: m.game.SetPlayerName(context.Background(), name)}
	}
}

func Run(g Game) error {
	p := tea.NewProgram(NewModel(g), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
