package prompt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vodgrab/internal/errs"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// TUI is the interactive Chooser backed by bubbletea.
type TUI struct{}

// NewTUI creates the interactive chooser.
func NewTUI() *TUI {
	return &TUI{}
}

var _ Chooser = (*TUI)(nil)

// ChooseOne runs a single-select list prompt.
func (t *TUI) ChooseOne(ctx context.Context, title string, items []string) (int, error) {
	m := listModel{title: title, items: items}

	final, err := runProgram(ctx, m)
	if err != nil {
		return 0, err
	}

	fm, ok := final.(listModel)
	if !ok || fm.aborted {
		return 0, errs.ErrPromptAborted
	}

	return fm.cursor, nil
}

// ChooseMany runs a multi-select list prompt; space toggles, enter confirms.
func (t *TUI) ChooseMany(ctx context.Context, title string, items []string) ([]int, error) {
	m := listModel{title: title, items: items, multi: true, selected: make(map[int]struct{})}

	final, err := runProgram(ctx, m)
	if err != nil {
		return nil, err
	}

	fm, ok := final.(listModel)
	if !ok || fm.aborted {
		return nil, errs.ErrPromptAborted
	}

	if len(fm.selected) == 0 {
		// Enter with nothing toggled means the highlighted item.
		return []int{fm.cursor}, nil
	}

	picks := make([]int, 0, len(fm.selected))
	for i := range fm.selected {
		picks = append(picks, i)
	}

	sort.Ints(picks)

	return picks, nil
}

// ChooseText runs a free-form input prompt.
func (t *TUI) ChooseText(ctx context.Context, title, placeholder string) (string, error) {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Focus()

	m := textModel{title: title, input: input}

	final, err := runProgram(ctx, m)
	if err != nil {
		return "", err
	}

	fm, ok := final.(textModel)
	if !ok || fm.aborted {
		return "", errs.ErrPromptAborted
	}

	return strings.TrimSpace(fm.input.Value()), nil
}

func runProgram(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("run prompt: %w", err)
	}

	return final, nil
}

type listModel struct {
	title    string
	items    []string
	cursor   int
	multi    bool
	selected map[int]struct{}
	aborted  bool
	done     bool
}

func (m listModel) Init() tea.Cmd { return nil }

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.aborted = true

		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ":
		if m.multi {
			if _, on := m.selected[m.cursor]; on {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = struct{}{}
			}
		}
	case "a":
		if m.multi {
			for i := range m.items {
				m.selected[i] = struct{}{}
			}
		}
	case "enter":
		m.done = true

		return m, tea.Quit
	}

	return m, nil
}

func (m listModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	for i, item := range m.items {
		line := "  " + item

		if m.multi {
			mark := "[ ] "
			if _, on := m.selected[i]; on {
				mark = markStyle.Render("[x]") + " "
			}

			line = "  " + mark + item
		}

		if i == m.cursor {
			line = cursorStyle.Render("> " + strings.TrimLeft(line, " "))
		}

		b.WriteString(line + "\n")
	}

	help := "enter confirm, q abort"
	if m.multi {
		help = "space toggle, a all, " + help
	}

	b.WriteString("\n" + mutedStyle.Render(help) + "\n")

	return b.String()
}

type textModel struct {
	title   string
	input   textinput.Model
	aborted bool
	done    bool
}

func (m textModel) Init() tea.Cmd { return textinput.Blink }

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.aborted = true

			return m, tea.Quit
		case "enter":
			m.done = true

			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m textModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	return titleStyle.Render(m.title) + "\n\n" + m.input.View() + "\n\n" +
		mutedStyle.Render("enter confirm, esc abort") + "\n"
}
