package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yasincandan35/remotedesk/internal/input"
)

type Mode int

const (
	ModeHost Mode = iota
	ModeView
)

// LiveUI shows the state of a running session and, for viewers with a
// controller, turns terminal keys and mouse into remote input.
type LiveUI struct {
	program *tea.Program
	model   *liveModel
	updates chan liveUpdate
	quit    chan struct{}
	wg      sync.WaitGroup
}

type liveUpdate struct {
	state    string
	roomSize int
	note     string
}

func NewLiveUI(mode Mode, roomID string, ctrl *input.Controller) *LiveUI {
	updates := make(chan liveUpdate, 32)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &LiveUI{
		model: &liveModel{
			mode:    mode,
			roomID:  roomID,
			state:   "starting",
			ctrl:    ctrl,
			spinner: s,
			updates: updates,
		},
		updates: updates,
		quit:    make(chan struct{}),
	}
}

func (u *LiveUI) Start() {
	opts := []tea.ProgramOption{}
	if u.model.ctrl != nil {
		opts = append(opts, tea.WithMouseAllMotion())
	}
	u.program = tea.NewProgram(u.model, opts...)

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer close(u.quit)
		if _, err := u.program.Run(); err != nil {
			slog.Error("ui stopped", "error", err)
		}
	}()
}

// Quit is closed once the user leaves the view.
func (u *LiveUI) Quit() <-chan struct{} {
	return u.quit
}

func (u *LiveUI) SetState(state string) {
	u.push(liveUpdate{state: state})
}

func (u *LiveUI) SetRoomSize(n int) {
	u.push(liveUpdate{roomSize: n})
}

func (u *LiveUI) Note(format string, args ...any) {
	u.push(liveUpdate{note: fmt.Sprintf(format, args...)})
}

func (u *LiveUI) push(up liveUpdate) {
	select {
	case u.updates <- up:
	default:
	}
}

func (u *LiveUI) Stop() {
	if u.program != nil {
		u.program.Quit()
	}
	u.wg.Wait()
}

type liveModel struct {
	mode     Mode
	roomID   string
	state    string
	roomSize int
	note     string
	inputs   int

	ctrl    *input.Controller
	spinner spinner.Model
	updates chan liveUpdate

	width, height int
	quitting      bool
}

func (m *liveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *liveModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.key(msg)

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case liveUpdate:
		if msg.state != "" {
			m.state = msg.state
		}
		if msg.roomSize > 0 {
			m.roomSize = msg.roomSize
		}
		if msg.note != "" {
			m.note = msg.note
		}
		return m, m.listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *liveModel) key(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "ctrl+t":
		if m.ctrl != nil {
			on := m.ctrl.Toggle()
			m.note = "remote control off"
			if on {
				m.note = "remote control on, ctrl+t to release"
			}
		}
		return nil
	}

	if m.ctrl == nil || !m.ctrl.Controlling() {
		if msg.String() == "q" {
			m.quitting = true
			return tea.Quit
		}
		return nil
	}

	ev, ok := KeyEvent(msg)
	if !ok {
		return nil
	}
	// Terminals report presses only, so every key is sent as down then up.
	m.send(ev)
	ev.Action = input.ActionKeyUp
	m.send(ev)
	return nil
}

func (m *liveModel) mouse(msg tea.MouseMsg) {
	if m.ctrl == nil || !m.ctrl.Controlling() {
		return
	}
	for _, ev := range MouseEvents(msg, m.width, m.height) {
		m.send(ev)
	}
}

func (m *liveModel) send(ev input.Event) {
	err := m.ctrl.Send(ev)
	switch {
	case err == nil:
		m.inputs++
	case errors.Is(err, input.ErrNotConnected):
		m.note = "not connected yet"
	case errors.Is(err, input.ErrNotControlling):
	default:
		m.note = err.Error()
	}
}

func (m *liveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := IconScreen + " Sharing"
	if m.mode == ModeView {
		title = IconPeer + " Viewing"
	}
	fmt.Fprintf(&b, "\n%s room %s\n\n", TitleStyle.Render(title), BoldStyle.Render(m.roomID))

	fmt.Fprintf(&b, "%s %s", m.spinner.View(), m.state)
	if m.roomSize > 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  %d in room", m.roomSize)))
	}
	b.WriteString("\n")

	if m.ctrl != nil && m.ctrl.Controlling() {
		fmt.Fprintf(&b, "\n%s %s", IconControl, BadgeStyle.Render("CONTROLLING"))
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  %d events sent", m.inputs)))
		b.WriteString("\n")
	}
	if m.note != "" {
		b.WriteString("\n" + MutedStyle.Render(m.note) + "\n")
	}

	help := "q to quit"
	if m.ctrl != nil {
		help = "ctrl+t toggles remote control, ctrl+c quits"
	}
	b.WriteString("\n" + MutedStyle.Render(help))
	return b.String()
}
