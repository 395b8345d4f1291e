package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odelab/internal/dynamo"
)

const (
	width           = 60
	height          = 22
	trailLength     = 500
	historyCapacity = 600
)

type Snapshot struct {
	State dynamo.State
	Time  float64
}

type TickMsg time.Time

// Model steps a 3D system on every tick and draws its recent trail.
type Model struct {
	name          string
	dyn           dynamo.System
	integrator    dynamo.Integrator
	state         dynamo.State
	initialState  dynamo.State
	t, dt         float64
	canvas        *Canvas
	camera        *Camera
	trail         []dynamo.State
	zHistory      []float64
	history       []Snapshot
	playHead      int
	running       bool
	showHelp      bool
	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

func NewModel(name string, dyn dynamo.System, integ dynamo.Integrator, initState dynamo.State, dt float64) Model {
	params := make(map[string]float64)
	if c, ok := dyn.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64, len(params))
	for k, v := range params {
		keys = append(keys, k)
		initialParams[k] = v
	}
	sort.Strings(keys)

	return Model{
		name:          name,
		dyn:           dyn,
		integrator:    integ,
		state:         initState.Clone(),
		initialState:  initState.Clone(),
		dt:            dt,
		canvas:        NewCanvas(width, height),
		camera:        NewCamera(),
		trail:         make([]dynamo.State, 0, trailLength),
		zHistory:      make([]float64, 0, historyCapacity),
		history:       make([]Snapshot, 0, historyCapacity),
		playHead:      -1,
		running:       true,
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.Step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// Step advances the system once. A step that leaves the finite range pauses
// the view instead of drawing garbage.
func (m *Model) Step() {
	next := m.integrator.Step(m.dyn, m.state, m.t, m.dt)
	if !next.IsValid() {
		m.running = false
		return
	}
	m.state = next
	m.t += m.dt

	m.trail = append(m.trail, m.state.Clone())
	if len(m.trail) > trailLength {
		m.trail = m.trail[1:]
	}
	if len(m.state) > 2 {
		m.zHistory = append(m.zHistory, m.state[2])
		if len(m.zHistory) > historyCapacity {
			m.zHistory = m.zHistory[1:]
		}
	}
	m.history = append(m.history, Snapshot{State: m.state.Clone(), Time: m.t})
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	newVal := m.params[key] * factor
	if c, ok := m.dyn.(dynamo.Configurable); ok {
		if err := c.SetParam(key, newVal); err != nil {
			return
		}
	}
	m.params[key] = newVal
}

func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) reset() {
	m.t = 0
	m.state = m.initialState.Clone()
	m.trail = m.trail[:0]
	m.zHistory = m.zHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
	for k, v := range m.initialParams {
		m.params[k] = v
		if c, ok := m.dyn.(dynamo.Configurable); ok {
			c.SetParam(k, v)
		}
	}
}

// Current is the state on screen: the live state, or the replayed one.
func (m Model) Current() (dynamo.State, float64) {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		snap := m.history[m.playHead]
		return snap.State, snap.Time
	}
	return m.state, m.t
}

func (m Model) draw() string {
	m.canvas.Clear()
	trail := m.trail
	if m.playHead >= 0 {
		end := len(trail) - (len(m.history) - 1 - m.playHead)
		if end < 0 {
			end = 0
		}
		trail = trail[:end]
	}
	if m.camera.RotX == 0 && m.camera.RotZ == 0 {
		m.camera.RotY = m.t * 0.05
	}
	Render3D(m.canvas, TrailWireframe(trail, LorenzPoint), m.camera)
	return m.canvas.String()
}

func (m Model) View() string {
	theme := CurrentTheme
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary).MarginBottom(1)
	label := lipgloss.NewStyle().Foreground(theme.Muted).Width(10)
	value := lipgloss.NewStyle().Foreground(theme.Text)
	active := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	canvasStyle := lipgloss.NewStyle().Padding(1, 2).Foreground(theme.Accent)
	statsStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(theme.Muted).
		Padding(1, 2).
		Width(44)

	state, t := m.Current()
	status := "RUNNING"
	switch {
	case m.playHead != -1:
		status = fmt.Sprintf("REPLAY (%.2fs)", t-m.t)
	case !m.running:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(header.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(status + "\n\n")
	if len(m.zHistory) > 1 {
		s.WriteString(asciigraph.Plot(m.zHistory, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("z")) + "\n\n")
	}
	s.WriteString(label.Render("t") + value.Render(fmt.Sprintf("%.2f", t)) + "\n")
	for i, v := range state {
		s.WriteString(label.Render(fmt.Sprintf("x%d", i)) + value.Render(fmt.Sprintf("%8.3f", v)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(label.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-8s %.3f", k, m.params[k])
		if i == m.selected {
			s.WriteString(active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + label.Render(line) + "\n")
		}
	}
	s.WriteString(KeyHint.Render("\nSP:pause R:reset Q:quit ?:help"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.draw()), statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `Space    pause / resume
R        reset
Tab      select parameter
Up/Down  tune parameter by 5%
[ ]      step through history
x y z    rotate (shift reverses)
+ -      zoom
T        cycle theme
Q        quit`

// RunLive blocks until the user quits.
func RunLive(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
