// Package tui is the terminal front end. It renders the event stream from
// the connection manager and turns typed commands into outbound actions.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/holdem-client/internal/events"
	"github.com/lox/holdem-client/internal/state"
	"github.com/lox/holdem-client/internal/table"
)

// Actions is the outbound side of the connection manager
type Actions interface {
	Fold() error
	Call() error
	Raise(amount int) error
	AllIn() error
	StartGame() error
}

// Options describes the session shown in the header
type Options struct {
	ServerURL  string
	RoomID     string
	PlayerName string
}

// EventMsg delivers one client event to the model
type EventMsg struct {
	Event events.Event
}

// StreamClosedMsg is sent once the event stream has ended
type StreamClosedMsg struct{}

type logLevel int

const (
	levelInfo logLevel = iota
	levelSuccess
	levelWarning
	levelError
	levelHeader
)

type logEntry struct {
	level logLevel
	text  string
}

// Model is the Bubble Tea model for a single table
type Model struct {
	actions Actions
	logger  *log.Logger
	opts    Options

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	gameLog []logEntry
	status  string

	// Latest snapshot as seen from the local seat. It is only ever replaced
	// by the next event, never edited in place.
	view     state.View
	playerID string

	fatal    error
	quitting bool

	width       int
	height      int
	initialized bool
}

// NewModel creates the model
func NewModel(actions Actions, logger *log.Logger, opts Options) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "fold, call, raise 40, allin, start, quit"
	ti.Focus()
	ti.CharLimit = 32
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		actions:     actions,
		logger:      logger.WithPrefix("tui"),
		opts:        opts,
		logViewport: vp,
		actionInput: ti,
		status:      "connecting",
		view:        state.ViewOf(nil, ""),
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case StreamClosedMsg:
		m.status = "closed"
		m.addLog(levelWarning, "Event stream closed")
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			input := strings.TrimSpace(m.actionInput.Value())
			m.actionInput.SetValue("")
			if cmd := m.processCommand(input); cmd != nil {
				return m, cmd
			}
			return m, nil
		case "pgup":
			m.logViewport.HalfViewUp()
		case "pgdown":
			m.logViewport.HalfViewDown()
		}
	}

	var cmd tea.Cmd
	m.actionInput, cmd = m.actionInput.Update(msg)
	cmds = append(cmds, cmd)

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applyEvent folds one event into the display state
func (m *Model) applyEvent(ev events.Event) {
	m.logger.Debug("Applying event", "event", ev.Name())

	switch e := ev.(type) {
	case events.Connected:
		m.status = "connected"
		if e.Attempt > 1 {
			m.addLog(levelSuccess, fmt.Sprintf("Reconnected to %s", m.opts.ServerURL))
		} else {
			m.addLog(levelSuccess, fmt.Sprintf("Connected to %s", m.opts.ServerURL))
		}

	case events.Disconnected:
		m.status = "disconnected"
		m.playerID = ""
		m.setSnapshot(events.Snapshot{})
		if e.Err != nil {
			m.addLog(levelWarning, fmt.Sprintf("Connection lost: %v", e.Err))
		} else {
			m.addLog(levelInfo, "Disconnected")
		}

	case events.JoinResult:
		if !e.Success {
			m.status = "rejected"
			m.addLog(levelError, fmt.Sprintf("Could not join %s: %s", m.opts.RoomID, e.Message))
			return
		}
		m.status = "joined"
		m.addLog(levelSuccess, fmt.Sprintf("Joined %s as %s", m.opts.RoomID, m.opts.PlayerName))
		if e.State != nil {
			m.setSnapshot(e.Snapshot)
		} else {
			m.playerID = e.PlayerID
		}

	case events.PlayerJoined:
		if e.Player != nil {
			m.addLog(levelInfo, fmt.Sprintf("%s sat down", e.Player.Name))
		} else {
			m.addLog(levelInfo, "A player sat down")
		}
		m.setSnapshot(e.Snapshot)

	case events.PlayerLeft:
		name := e.LeftPlayerID
		if i := m.view.State.PlayerIndex(e.LeftPlayerID); i != table.NoSeat {
			name = m.view.State.Players[i].Name
		}
		m.addLog(levelInfo, fmt.Sprintf("%s left the table", name))
		m.setSnapshot(e.Snapshot)

	case events.GameStarted:
		m.addLog(levelHeader, "*** NEW HAND ***")
		m.setSnapshot(e.Snapshot)

	case events.StateUpdated:
		m.setSnapshot(e.Snapshot)

	case events.Error:
		if e.Fatal {
			m.fatal = e.Err
			m.status = "failed"
			m.addLog(levelError, fmt.Sprintf("Fatal: %v", e.Err))
			return
		}
		m.addLog(levelWarning, fmt.Sprintf("Error: %v", e.Err))
	}
}

// setSnapshot replaces the displayed snapshot and logs what changed
func (m *Model) setSnapshot(snap events.Snapshot) {
	prev := m.view
	if snap.PlayerID != "" {
		m.playerID = snap.PlayerID
	}
	m.view = state.ViewOf(snap.State, m.playerID)

	next := m.view.State
	if next == nil {
		return
	}

	if prev.State == nil || prev.State.Phase != next.Phase {
		if next.Phase.IsActive() || next.Phase == table.PhaseShowdown {
			m.addLog(levelHeader, fmt.Sprintf("*** %s ***", strings.ToUpper(next.Phase.Title())))
		}
	}

	if m.view.IsMyTurn() && !prev.IsMyTurn() {
		m.addLog(levelSuccess, "Your turn")
	}
}

// processCommand runs one line typed into the input
func (m *Model) processCommand(input string) tea.Cmd {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return nil
	}

	command, args := parts[0], parts[1:]
	switch command {
	case "quit", "q", "exit":
		m.quitting = true
		return tea.Quit
	case "help", "h", "?":
		m.addLog(levelInfo, "Commands: fold, call, raise <amount>, allin, start, quit")
		return nil
	case "start", "s":
		m.send("start", m.actions.StartGame)
		return nil
	}

	// Legality comes from the last snapshot only. A rejected action gets no
	// reply, so nothing here waits for one.
	legal := m.view.Legality
	switch command {
	case "fold", "f":
		if !legal.Fold {
			m.addLog(levelWarning, "You cannot fold right now")
			return nil
		}
		m.send("fold", m.actions.Fold)

	case "call", "c", "check":
		if !legal.Call {
			m.addLog(levelWarning, "You cannot call right now")
			return nil
		}
		m.send("call", m.actions.Call)

	case "raise", "r":
		if !legal.Raise {
			m.addLog(levelWarning, "You cannot raise right now")
			return nil
		}
		if len(args) != 1 {
			m.addLog(levelWarning, "Usage: raise <amount>")
			return nil
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount <= 0 {
			m.addLog(levelWarning, fmt.Sprintf("Invalid raise amount %q", args[0]))
			return nil
		}
		m.send("raise", func() error { return m.actions.Raise(amount) })

	case "allin", "all-in", "a":
		if !legal.AllIn {
			m.addLog(levelWarning, "You cannot go all-in right now")
			return nil
		}
		m.send("all-in", m.actions.AllIn)

	default:
		m.addLog(levelWarning, fmt.Sprintf("Unknown command %q, try help", command))
	}
	return nil
}

func (m *Model) send(name string, fn func() error) {
	if err := fn(); err != nil {
		m.logger.Warn("Action failed", "action", name, "error", err)
		m.addLog(levelError, fmt.Sprintf("Could not %s: %v", name, err))
		return
	}
	m.logger.Info("Sent action", "action", name)
}

func (m *Model) addLog(level logLevel, text string) {
	m.gameLog = append(m.gameLog, logEntry{level: level, text: text})

	m.logViewport.SetContent(m.renderLogPane())
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns the plain text of every log entry
func (m *Model) Log() []string {
	out := make([]string, len(m.gameLog))
	for i, entry := range m.gameLog {
		out[i] = entry.text
	}
	return out
}

// CurrentView returns the local view of the latest snapshot
func (m *Model) CurrentView() state.View {
	return m.view
}

// Fatal returns the terminal error, if the session has ended for good
func (m *Model) Fatal() error {
	return m.fatal
}
