package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tensorbridge/tensorbridge"
	"github.com/tensorbridge/tensorbridge/engine"
	"github.com/tensorbridge/tensorbridge/module"
	"github.com/tensorbridge/tensorbridge/tensor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	eng      *engine.Engine
	mod      *module.Module
	filename string
	results  []string
	inputs   []textinput.Model
	dtype    textinput.Model
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateEditInputs modelState = iota
	stateShowResult
)

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateEditInputs,
	}
}

type loadedMsg struct {
	err error
	eng *engine.Engine
	mod *module.Module
}

type forwardMsg struct {
	err     error
	results []string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModel
}

func (m *interactiveModel) loadModel() tea.Msg {
	ctx := context.Background()

	eng, err := engine.New(ctx, engine.Config{Logger: zap.NewNop()})
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := module.LoadFile(ctx, eng, m.filename)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{eng: eng, mod: mod}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			ctx := context.Background()
			if m.mod != nil {
				m.mod.Close()
			}
			if m.eng != nil {
				m.eng.Close(ctx)
			}
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateEditInputs:
				if m.mod != nil {
					return m, m.runForward
				}

			case stateShowResult:
				m.state = stateEditInputs
				m.results = nil
				m.err = nil
			}

		case "tab":
			if m.state == stateEditInputs && len(m.inputs) > 0 {
				m.fieldAt(m.focusIdx).Blur()
				m.focusIdx = (m.focusIdx + 1) % (len(m.inputs) + 1)
				m.fieldAt(m.focusIdx).Focus()
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateEditInputs
				m.results = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.mod = msg.mod
		m.prepareInputs()

	case forwardMsg:
		m.results = msg.results
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateEditInputs && len(m.inputs) > 0 {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.dtype, cmd = m.dtype.Update(msg)
		cmds = append(cmds, cmd)
		for i := range m.inputs {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// fieldAt maps a focus index onto the dtype field (0) or an input field.
func (m *interactiveModel) fieldAt(idx int) *textinput.Model {
	if idx == 0 {
		return &m.dtype
	}
	return &m.inputs[idx-1]
}

func (m *interactiveModel) prepareInputs() {
	m.dtype = textinput.New()
	m.dtype.Prompt = "dtype: "
	m.dtype.SetValue("float32")
	m.dtype.Width = 12
	m.dtype.Focus()

	n := int(m.mod.InputCount())
	m.inputs = make([]textinput.Model, n)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = "shape=values, e.g. 1,3=0.5,1,2"
		ti.Prompt = fmt.Sprintf("input[%d]: ", i)
		ti.Width = 48
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) runForward() tea.Msg {
	ctx := context.Background()

	dt, err := parseDType(m.dtype.Value())
	if err != nil {
		return forwardMsg{err: err}
	}

	tensors := make([]*tensor.Tensor, len(m.inputs))
	for i, input := range m.inputs {
		spec := strings.TrimSpace(input.Value())
		if spec == "" {
			t, err := tensor.New(make([]byte, dt.Size()), []int64{1}, dt)
			if err != nil {
				return forwardMsg{err: err}
			}
			tensors[i] = t
			continue
		}
		t, err := parseTensor(spec, dt)
		if err != nil {
			return forwardMsg{err: fmt.Errorf("input %d: %w", i, err)}
		}
		tensors[i] = t
	}

	outputs, err := m.mod.Forward(ctx, tensors)
	if err != nil {
		return forwardMsg{err: err}
	}

	results := make([]string, len(outputs))
	for i, out := range outputs {
		results[i] = formatTensor(out)
	}
	return forwardMsg{results: results}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	if m.mod == nil {
		return "Loading model..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Model Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(typeStyle.Render(fmt.Sprintf("%d input(s), %d output(s), %d bytes, v%s",
		m.mod.InputCount(), m.mod.OutputCount(), m.mod.ModelSize(), tensorbridge.Version)))
	b.WriteString("\n\n")

	switch m.state {
	case stateEditInputs:
		b.WriteString(m.dtype.View())
		b.WriteString("\n")
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run forward • ctrl+c quit"))

	case stateShowResult:
		b.WriteString(labelStyle.Render("Forward result:"))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			for i, r := range m.results {
				b.WriteString(resultStyle.Render(fmt.Sprintf("output[%d]: %s", i, r)))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter run again • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
