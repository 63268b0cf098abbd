package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lox/holdem-client/internal/table"
)

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	// Don't render until we have valid dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Width(m.width).Render(m.renderHeader())
	headerHeight := lipgloss.Height(header)

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1))
	actionPane := actionStyle.Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-headerHeight-lipgloss.Height(actionPane)-2, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(m.renderLogPane())
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight).
		Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Left, header, topRow, actionPane)
}

func (m *Model) renderHeader() string {
	return fmt.Sprintf(" Hold'em · %s · room %s · %s", m.opts.PlayerName, m.opts.RoomID, m.status)
}

// renderLogPane renders the game log pane content
func (m *Model) renderLogPane() string {
	lines := make([]string, len(m.gameLog))
	for i, entry := range m.gameLog {
		switch entry.level {
		case levelSuccess:
			lines[i] = SuccessStyle.Render(entry.text)
		case levelWarning:
			lines[i] = WarningStyle.Render(entry.text)
		case levelError:
			lines[i] = ErrorStyle.Render(entry.text)
		case levelHeader:
			lines[i] = HandInfoStyle.Render(entry.text)
		default:
			lines[i] = entry.text
		}
	}
	return strings.Join(lines, "\n")
}

// renderSidebarPane shows the table: phase, pot, board and seats
func (m *Model) renderSidebarPane() string {
	gs := m.view.State
	if gs == nil {
		return InfoStyle.Render("No table yet")
	}

	var content strings.Builder

	content.WriteString(HandInfoStyle.Render(gs.Phase.Title()))
	content.WriteString("\n")
	content.WriteString(WarningStyle.Render("Pot: " + formatChips(gs.Pot)))
	if gs.CurrentBet > 0 {
		content.WriteString(" | ")
		content.WriteString(WarningStyle.Render("Bet: " + formatChips(gs.CurrentBet)))
	}
	content.WriteString("\n")

	if len(gs.CommunityCards) > 0 {
		content.WriteString("Board: ")
		content.WriteString(formatCards(gs.CommunityCards))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	content.WriteString(InfoStyle.Render(fmt.Sprintf("Players (%d active):", gs.ActivePlayerCount())))
	content.WriteString("\n")
	for i, p := range gs.Players {
		content.WriteString(m.renderSeat(i, p))
		content.WriteString("\n")
	}

	return content.String()
}

func (m *Model) renderSeat(seat int, p table.Player) string {
	marker := "  "
	if seat == m.view.State.CurrentPlayerIndex {
		marker = "▶ "
	}

	name := p.Name
	if seat == m.view.Seat {
		name += " (you)"
	}
	if seat == m.view.State.DealerIndex {
		name += " [D]"
	}

	line := fmt.Sprintf("%s%s: %s, %s", marker, name, formatChips(p.Chips), p.Status())
	switch {
	case p.Folded:
		return FoldedPlayerStyle.Render(line)
	case seat == m.view.State.CurrentPlayerIndex:
		return CurrentPlayerStyle.Render(line)
	default:
		return line
	}
}

// renderActionPane renders hand info, the legal actions and the input
func (m *Model) renderActionPane() string {
	var content strings.Builder

	if me, ok := m.view.Me(); ok && len(me.Hand) > 0 {
		content.WriteString(HandInfoStyle.Render("Hand: "))
		content.WriteString(formatCards(me.Hand))
		content.WriteString("\n")
	}

	switch {
	case m.fatal != nil:
		content.WriteString(ErrorStyle.Render("Session ended. Type quit to exit."))
	case m.view.IsMyTurn():
		content.WriteString(m.renderAvailableActions())
	default:
		content.WriteString(HandInfoStyle.Render("Waiting..."))
	}
	content.WriteString("\n")

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")
	content.WriteString(HelpStyle.Render("Enter to submit • PgUp/PgDn scroll log • help for commands • Ctrl+C to quit"))

	return content.String()
}

// renderAvailableActions lists what the local player may do right now
func (m *Model) renderAvailableActions() string {
	legal := m.view.Legality
	var actions []string

	if legal.Fold {
		actions = append(actions, ErrorStyle.Render("[fold]"))
	}
	if legal.Call {
		if legal.CallAmount == 0 {
			actions = append(actions, SuccessStyle.Render("[check]"))
		} else {
			actions = append(actions, SuccessStyle.Render("[call "+formatChips(legal.CallAmount)+"]"))
		}
	}
	if legal.Raise {
		actions = append(actions, WarningStyle.Render("[raise <amount>]"))
	}
	if legal.AllIn {
		if me, ok := m.view.Me(); ok {
			actions = append(actions, WarningStyle.Render("[allin "+formatChips(me.Chips)+"]"))
		}
	}

	if len(actions) == 0 {
		actions = append(actions, ErrorStyle.Render("[no actions available]"))
	}

	return ActionsStyle.Render("Actions: ") + strings.Join(actions, " ")
}

func formatChips(n int) string {
	return "$" + humanize.Comma(int64(n))
}

// formatCards formats cards with colors
func formatCards(cards []table.Card) string {
	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		if !card.Visible {
			formatted = append(formatted, InfoStyle.Render("??"))
			continue
		}
		if card.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}
