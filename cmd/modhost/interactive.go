package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/mod-host/engine"
	"github.com/wippyai/mod-host/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	modStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectUnit modelState = iota
	stateSelectFunc
	stateInputArgs
	stateShowResult
)

// unitEntry is one selectable unit: the owning mod plus the loaded unit.
type unitEntry struct {
	modID string
	unit  *engine.Unit
}

type interactiveModel struct {
	reg      *loader.Registry
	units    []unitEntry
	exports  []string
	inputs   []textinput.Model
	err      error
	result   string
	selected int
	funcIdx  int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(reg *loader.Registry) *interactiveModel {
	ctx := context.Background()

	var units []unitEntry
	for _, c := range reg.Contexts() {
		for _, name := range c.Units() {
			u, err := c.Load(ctx, name)
			if err != nil {
				continue
			}
			units = append(units, unitEntry{modID: c.Descriptor().ID, unit: u})
		}
	}

	return &interactiveModel{reg: reg, units: units, state: stateSelectUnit}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			switch m.state {
			case stateSelectUnit:
				if m.selected > 0 {
					m.selected--
				}
			case stateSelectFunc:
				if m.funcIdx > 0 {
					m.funcIdx--
				}
			}

		case "down", "j":
			switch m.state {
			case stateSelectUnit:
				if m.selected < len(m.units)-1 {
					m.selected++
				}
			case stateSelectFunc:
				if m.funcIdx < len(m.exports)-1 {
					m.funcIdx++
				}
			}

		case "enter":
			switch m.state {
			case stateSelectUnit:
				if len(m.units) == 0 {
					return m, nil
				}
				m.exports = m.units[m.selected].unit.Exports()
				m.funcIdx = 0
				m.state = stateSelectFunc

			case stateSelectFunc:
				if len(m.exports) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateSelectFunc:
				m.state = stateSelectUnit
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	fn := m.units[m.selected].unit.Func(m.exports[m.funcIdx])
	if fn == nil {
		m.inputs = nil
		return
	}

	params := fn.Definition().ParamTypes()
	m.inputs = make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 24
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()

	entry := m.units[m.selected]
	name := m.exports[m.funcIdx]

	args := make([]uint64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := strconv.ParseUint(strings.TrimSpace(input.Value()), 10, 64)
		if err != nil && input.Value() != "" {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		args[i] = v
	}

	results, err := entry.unit.Call(ctx, name, args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	if len(results) == 0 {
		return callResultMsg{result: "ok"}
	}
	return callResultMsg{result: fmt.Sprintf("%v", results)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Mod Host"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectUnit:
		if len(m.units) == 0 {
			b.WriteString("No units loaded.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a unit:\n\n")
		for i, e := range m.units {
			line := modStyle.Render(e.modID) + " / " + e.unit.Name()
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + e.modID + " / " + e.unit.Name()))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectFunc:
		entry := m.units[m.selected]
		b.WriteString(fmt.Sprintf("Exports of %s:\n\n", funcStyle.Render(entry.unit.Name())))
		if len(m.exports) == 0 {
			b.WriteString("  (none)\n")
		}
		for i, name := range m.exports {
			if i == m.funcIdx {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + funcStyle.Render(name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • esc back • q quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(m.exports[m.funcIdx])))
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.exports[m.funcIdx])))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • esc back • q quit"))
	}

	return b.String()
}

func runInteractive(reg *loader.Registry) error {
	p := tea.NewProgram(newInteractiveModel(reg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
