// Package prompt is the terminal popup for catching an idea by hand.
package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Placeholder is shown in the empty input.
const Placeholder = "Catch your idea for later..."

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Model is the bubbletea model behind the prompt.
type Model struct {
	input     textinput.Model
	title     string
	submitted bool
	cancelled bool
}

// New returns a focused prompt. title is shown above the input, e.g. the
// destination folder.
func New(title string) Model {
	ti := textinput.New()
	ti.Placeholder = Placeholder
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	return Model{input: ti, title: title}
}

// Value returns the trimmed input.
func (m Model) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// Submitted reports whether the user pressed Enter on non-empty input.
func (m Model) Submitted() bool { return m.submitted }

// Cancelled reports whether the user dismissed the prompt.
func (m Model) Cancelled() bool { return m.cancelled }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.Value() == "" {
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	var b strings.Builder
	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title))
		b.WriteString("\n\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("enter to catch • esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Run shows the prompt and blocks until it is submitted or cancelled. ok is
// false when the user cancelled.
func Run(title string, opts ...tea.ProgramOption) (text string, ok bool, err error) {
	final, err := tea.NewProgram(New(title), opts...).Run()
	if err != nil {
		return "", false, fmt.Errorf("run prompt: %w", err)
	}
	m, _ := final.(Model)
	if !m.Submitted() {
		return "", false, nil
	}
	return m.Value(), true, nil
}
