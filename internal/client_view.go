package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	notificationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	activeUserStyle    = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	headerSegments := []string{appTitleStyle.Render("relaychat")}
	if peer := model.session.Peer(); peer != "" {
		headerSegments = append(headerSegments, fmt.Sprintf("Chat with %s", peer))
	} else {
		headerSegments = append(headerSegments, "General room")
	}
	headerSegments = append(headerSegments, fmt.Sprintf("User %s", model.session.Identity()))
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.isConnected:
		statusLine = connectedStyle.Render("Connected")
	case model.connectionError != nil:
		statusLine = errorStyle.Render("Connection error: " + model.connectionError.Error() + " (retrying)")
	default:
		statusLine = connectingStyle.Render("Connecting…")
	}

	sections := []string{header, statusLine}

	if pending := model.session.Notifications(); len(pending) > 0 {
		senders := make([]string, 0, len(pending))
		for _, n := range pending {
			senders = append(senders, n.Sender)
		}
		sections = append(sections, notificationStyle.Render("New messages from: "+strings.Join(senders, ", ")+"  (/pm <user> to open)"))
	}

	var messageLines []string
	for _, line := range model.lines {
		messageLines = append(messageLines, model.renderLine(line))
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, systemMessageStyle.Render("No messages yet. Say hi and start the conversation."))
	}
	sections = append(sections, messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...)))

	sections = append(sections, inputBoxStyle.Render(model.textInput.View()))
	sections = append(sections, hintStyle.Render("/pm <user> private chat • Esc or /back to general • /who online users • /quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderLine(line chatLine) string {
	if line.system {
		return systemMessageStyle.Render(line.body)
	}
	var nameStyle lipgloss.Style
	if line.author == model.session.Identity() {
		nameStyle = activeUserStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForUser(line.author))
	}
	name := nameStyle.Render(line.author)
	bodyText := messageBodyStyle.Render(strings.ReplaceAll(line.body, "\n", "\n   "))
	return lipgloss.JoinHorizontal(lipgloss.Left, name, ": ", bodyText)
}

// color for users
func colorForUser(name string) lipgloss.Color {
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
