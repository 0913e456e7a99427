package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/panel"
	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/render"
)

const (
	mouseSeq touch.Sequence = 1
	pinSeq   touch.Sequence = 2

	zoomStep = 1.1
)

var (
	baseFg    = lipgloss.Color("#E6E6E6")
	gridFg    = lipgloss.Color("#4B5563")
	selectFg  = lipgloss.Color("#3B82F6")
	lassoFg   = lipgloss.Color("#60A5FA")
	accentFg  = lipgloss.Color("#7C3AED")
	borderCol = lipgloss.Color("#243141")

	inkStyles = map[ink]lipgloss.Style{
		inkNone:     lipgloss.NewStyle(),
		inkGrid:     lipgloss.NewStyle().Foreground(gridFg),
		inkObject:   lipgloss.NewStyle().Foreground(baseFg),
		inkSelected: lipgloss.NewStyle().Foreground(selectFg).Bold(true),
		inkLasso:    lipgloss.NewStyle().Foreground(lassoFg),
	}
	titleStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(gridFg)
	inputStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
)

// model drives one engine from the terminal. The mouse is one finger;
// "p" pins a second, stationary finger so drags pinch and rotate.
type model struct {
	eng *engine.Engine

	width  int
	height int

	mouse plane.Point // viewport units
	down  bool
	pin   *plane.Point

	panel  panel.State
	input  []rune
	status string
}

func newModel(eng *engine.Engine) *model {
	return &model{eng: eng, status: "ready"}
}

// onPanel is the engine's panel callback. Opening a panel starts input.
func (m *model) onPanel(st panel.State) {
	m.panel = st
	m.input = m.input[:0]
	if !st.Open || st.Target == "" {
		return
	}
	for _, n := range m.eng.Document().Objects {
		if n.ID != st.Target {
			continue
		}
		if p, err := n.Payload(); err == nil {
			switch p := p.(type) {
			case plane.TextPayload:
				m.input = []rune(p.Text)
			case plane.ImagePayload:
				m.input = []rune(p.Source)
			case plane.VideoPayload:
				m.input = []rune(p.Source)
			}
		}
	}
}

func (m *model) canvasRows() int { return max(m.height-3, 1) }

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.eng.SetViewportSize(float64(m.width)*cellW, float64(m.canvasRows())*cellH)
		return m, nil

	case tea.MouseMsg:
		m.mouseEvent(msg)
		return m, nil

	case tea.KeyMsg:
		if m.panel.Open {
			return m, m.inputKey(msg)
		}
		return m, m.key(msg)
	}
	return m, nil
}

func (m *model) touch(seq touch.Sequence, typ touch.Type, p plane.Point) {
	m.eng.HandleTouch(touch.Event{Sequence: seq, Type: typ, X: float32(p.X), Y: float32(p.Y)})
}

func (m *model) mouseEvent(msg tea.MouseMsg) {
	x, y := viewportOf(msg.X, msg.Y)
	m.mouse = plane.Point{X: x, Y: y}
	inCanvas := msg.Y < m.canvasRows()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if inCanvas && !m.down {
				m.down = true
				m.touch(mouseSeq, touch.TypeBegin, m.mouse)
			}
		case tea.MouseButtonWheelUp:
			m.zoom(zoomStep)
		case tea.MouseButtonWheelDown:
			m.zoom(1 / zoomStep)
		}
	case tea.MouseActionMotion:
		if m.down {
			m.touch(mouseSeq, touch.TypeMove, m.mouse)
		}
	case tea.MouseActionRelease:
		if m.down {
			m.down = false
			m.touch(mouseSeq, touch.TypeEnd, m.mouse)
		}
	}
}

func (m *model) zoom(factor float64) {
	if err := m.eng.TransformViewport(m.mouse, plane.Point{}, factor, 0); err != nil {
		m.status = err.Error()
	}
}

func (m *model) key(msg tea.KeyMsg) tea.Cmd {
	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "t":
		err = m.eng.TogglePanel(engine.PanelText)
	case "o":
		err = m.eng.TogglePanel(engine.PanelLocalFile)
	case "s":
		m.eng.SetSelectionArmed(!m.eng.SelectionArmed())
	case "a":
		m.eng.AlignSelected()
	case "esc":
		m.eng.CancelSelection()
	case "x", "delete":
		if id := m.eng.HitTest(m.mouse.X, m.mouse.Y); id != "" {
			m.eng.RemoveObject(id)
			m.status = "removed " + id
		}
	case "enter":
		if id := m.eng.HitTest(m.mouse.X, m.mouse.Y); id != "" {
			err = m.eng.Configure(id)
		}
	case "p":
		m.togglePin()
	case "r":
		m.eng.ResetViewport()
	case "e":
		err = m.export()
	}
	if err != nil {
		m.status = err.Error()
	}
	return nil
}

func (m *model) togglePin() {
	if m.pin != nil {
		m.touch(pinSeq, touch.TypeEnd, *m.pin)
		m.pin = nil
		m.status = "pin lifted"
		return
	}
	p := m.mouse
	m.pin = &p
	m.touch(pinSeq, touch.TypeBegin, p)
	m.status = "pinned; drag to pinch and rotate"
}

func (m *model) inputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.eng.ClosePanel()
	case tea.KeyEnter:
		m.commit()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyCtrlJ:
		m.input = append(m.input, '\n')
	case tea.KeyRunes, tea.KeySpace:
		m.input = append(m.input, msg.Runes...)
	case tea.KeyCtrlC:
		return tea.Quit
	}
	return nil
}

// commit applies the input to the panel's target, or creates an object
// at the mouse when the panel has none.
func (m *model) commit() {
	st, value := m.panel, string(m.input)
	at := engine.Placement{At: m.mouse}

	var err error
	switch {
	case st.Name == engine.PanelText && st.Target != "":
		err = m.eng.UpdateText(st.Target, value, 0)
	case st.Name == engine.PanelText:
		_, err = m.eng.CreateText(at, value, 0)
	case st.Target != "":
		err = m.eng.UpdateSource(st.Target, value)
	default:
		_, err = m.eng.FromLocalFile(at, value)
	}
	if err != nil {
		m.status = err.Error()
		return
	}
	m.eng.ClosePanel()
}

func (m *model) export() error {
	name := fmt.Sprintf("presemt-%s.png", time.Now().Format("20060102-150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	size := m.eng.ViewportSize()
	r := render.New(m.eng.Measurer(), render.Options{Width: int(size.Width), Height: int(size.Height)})
	cmds := engine.CompileDrawCommands(m.eng.Plane(), m.eng.Lasso(), size)
	if err := r.WritePNG(f, cmds); err != nil {
		return err
	}
	m.status = "exported " + name
	return nil
}

func (m *model) View() string {
	if m.width == 0 {
		return ""
	}
	ras := rasterize(m.eng.Frame(), m.width, m.canvasRows())

	var b strings.Builder
	for row := 0; row < ras.rows; row++ {
		writeRow(&b, ras.line(row))
		b.WriteByte('\n')
	}

	armed := "off"
	if m.eng.SelectionArmed() {
		armed = "on"
	}
	header := titleStyle.Render("presemt") + dimStyle.Render(fmt.Sprintf("  lasso:%s  selected:%d  objects:%d", armed, len(m.eng.Selection()), m.eng.Plane().Len()))
	b.WriteString(header)
	b.WriteByte('\n')

	if m.panel.Open {
		prompt := "text"
		if m.panel.Name == engine.PanelLocalFile {
			prompt = "file (" + strings.Join(m.panel.Accept, ",") + ")"
		}
		b.WriteString(inputStyle.Render(prompt + ": " + strings.ReplaceAll(string(m.input), "\n", "⏎") + "▏"))
	} else {
		b.WriteString(dimStyle.Render("t text  o file  s lasso  a align  x remove  p pin  r reset  e export  q quit  │ " + m.status))
	}
	return b.String()
}

// writeRow renders runs of equal ink with one style call each.
func writeRow(b *strings.Builder, cells []cell) {
	for start := 0; start < len(cells); {
		end := start
		var run strings.Builder
		for end < len(cells) && cells[end].ink == cells[start].ink {
			run.WriteRune(cells[end].r)
			end++
		}
		b.WriteString(inkStyles[cells[start].ink].Render(run.String()))
		start = end
	}
}
