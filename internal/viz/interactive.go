package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Choice is one entry of a Picker.
type Choice struct {
	Name  string
	Value float64
}

// Picker is a one-screen menu; Chosen reports the selection after the
// program exits.
type Picker struct {
	title   string
	choices []Choice
	cursor  int
	chosen  int
}

func NewPicker(title string, choices []Choice) *Picker {
	return &Picker{title: title, choices: choices, chosen: -1}
}

func (p *Picker) Init() tea.Cmd { return nil }

func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case "enter", " ":
		p.chosen = p.cursor
		return p, tea.Quit
	}
	return p, nil
}

func (p *Picker) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(p.title) + "\n\n")
	selected := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	for i, c := range p.choices {
		line := fmt.Sprintf("%-14s %g", c.Name, c.Value)
		if i == p.cursor {
			s.WriteString(selected.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	s.WriteString(KeyHint.Render("\n↑/↓ move  enter select  q quit"))
	return s.String()
}

// Chosen returns the selected choice, or false when the user quit.
func (p *Picker) Chosen() (Choice, bool) {
	if p.chosen < 0 {
		return Choice{}, false
	}
	return p.choices[p.chosen], true
}

func RunPicker(p *Picker) (Choice, bool, error) {
	if _, err := tea.NewProgram(p).Run(); err != nil {
		return Choice{}, false, err
	}
	c, ok := p.Chosen()
	return c, ok, nil
}
