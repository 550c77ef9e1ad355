// Package prompt asks the questions the CLI needs before calling the engine:
// which algorithm, what to do with an existing manifest, and whether a
// destructive step may proceed. Each prompt is a small bubbletea program
// rendered inline, not in the alternate screen.
package prompt

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels a prompt with esc or ctrl+c.
var ErrAborted = errors.New("prompt aborted")

// Option is one choice in a Select prompt.
type Option struct {
	Label string
	Value string
	Help  string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Yes    key.Binding
	No     key.Binding
	Abort  key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
	Yes:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
	No:     key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "no")),
	Abort:  key.NewBinding(key.WithKeys("esc", "ctrl+c", "q"), key.WithHelp("esc", "cancel")),
}

// Prompter runs prompts against a terminal.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// New returns a Prompter reading keys from in and drawing on out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Select asks the user to pick one option and returns its Value. def is the
// index highlighted initially.
func (p *Prompter) Select(title string, options []Option, def int) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("select %q: no options", title)
	}
	m, err := p.run(newSelectModel(title, options, def))
	if err != nil {
		return "", err
	}
	sm := m.(selectModel)
	if sm.aborted {
		return "", ErrAborted
	}
	return sm.options[sm.cursor].Value, nil
}

// Confirm asks a yes/no question. Enter accepts def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	m, err := p.run(newConfirmModel(question, def))
	if err != nil {
		return false, err
	}
	cm := m.(confirmModel)
	if cm.aborted {
		return false, ErrAborted
	}
	return cm.answer, nil
}

func (p *Prompter) run(model tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(model, tea.WithInput(p.in), tea.WithOutput(p.out))
	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

type selectModel struct {
	title   string
	options []Option
	cursor  int
	done    bool
	aborted bool
}

func newSelectModel(title string, options []Option, def int) selectModel {
	if def < 0 || def >= len(options) {
		def = 0
	}
	return selectModel{title: title, options: options, cursor: def}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Abort):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Choose):
		m.done = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Up):
		m.cursor = (m.cursor - 1 + len(m.options)) % len(m.options)
	case key.Matches(keyMsg, keys.Down):
		m.cursor = (m.cursor + 1) % len(m.options)
	}
	return m, nil
}

func (m selectModel) View() string {
	if m.done || m.aborted {
		// Leave a single summary line behind.
		choice := "cancelled"
		if m.done {
			choice = selectedStyle.Render(m.options[m.cursor].Label)
		}
		return fmt.Sprintf("%s %s\n", titleStyle.Render(m.title), choice)
	}

	s := titleStyle.Render(m.title) + "\n"
	for i, opt := range m.options {
		line := "  " + opt.Label
		if i == m.cursor {
			line = cursorStyle.Render("> ") + selectedStyle.Render(opt.Label)
		}
		if opt.Help != "" {
			line += "  " + helpStyle.Render(opt.Help)
		}
		s += line + "\n"
	}
	s += helpStyle.Render(fmt.Sprintf("%s • %s • %s",
		keys.Up.Help().Key+"/"+keys.Down.Help().Key+" move",
		keys.Choose.Help().Key+" "+keys.Choose.Help().Desc,
		keys.Abort.Help().Key+" "+keys.Abort.Help().Desc)) + "\n"
	return s
}

type confirmModel struct {
	question string
	answer   bool
	done     bool
	aborted  bool
}

func newConfirmModel(question string, def bool) confirmModel {
	return confirmModel{question: question, answer: def}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Yes):
		m.answer = true
	case key.Matches(keyMsg, keys.No):
		m.answer = false
	case key.Matches(keyMsg, keys.Choose):
	case key.Matches(keyMsg, keys.Abort):
		m.aborted = true
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	hint := "[y/N]"
	if m.answer {
		hint = "[Y/n]"
	}
	if m.done {
		reply := "no"
		if m.aborted {
			reply = "cancelled"
		} else if m.answer {
			reply = "yes"
		}
		return fmt.Sprintf("%s %s\n", titleStyle.Render(m.question), selectedStyle.Render(reply))
	}
	return fmt.Sprintf("%s %s ", titleStyle.Render(m.question), helpStyle.Render(hint))
}
