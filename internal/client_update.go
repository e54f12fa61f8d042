package internal

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"relaychat/internal/client"
)

type (
	connectedMsg     struct{}
	incomingMsg      Event
	errorMsg         error
	connectFailedMsg struct{ err error }
	disconnectedMsg  struct{ err error }
	reconnectMsg     struct{}
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeConn()
			return model, tea.Quit
		}
		if typedMessage.Type == tea.KeyEsc && !model.session.InGeneral() {
			return model, model.returnToGeneral()
		}
		if typedMessage.Type == tea.KeyEnter {
			trimmed := strings.TrimSpace(model.textInput.Value())
			model.textInput.SetValue("")
			if trimmed == "" {
				return model, nil
			}
			if strings.HasPrefix(trimmed, "/") {
				return model, model.handleCommand(trimmed)
			}
			return model, model.sendChat(trimmed)
		}
		var command tea.Cmd
		model.textInput, command = model.textInput.Update(typedMessage)
		return model, command

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		commands := []tea.Cmd{model.readOnceCmd()}
		if model.everConnected && !model.session.InGeneral() {
			// rejoin the open private room so its history and late
			// messages keep flowing after a reconnect.
			commands = append(commands, model.sendCmd(Event{Type: EventJoinPrivate, RoomID: model.session.Room()}))
		}
		model.everConnected = true
		return model, tea.Batch(commands...)

	case incomingMsg:
		return model, tea.Batch(model.applyEvent(Event(typedMessage)), model.readOnceCmd())

	case errorMsg:
		model.connectionError = typedMessage
		return model, tea.Quit

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		return model, model.scheduleReconnect()

	case disconnectedMsg:
		model.isConnected = false
		model.connectionError = typedMessage.err
		model.websocketConn = nil
		return model, model.scheduleReconnect()

	case reconnectMsg:
		if !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil
	}
	return model, nil
}

// applyEvent feeds one server event through the session state and updates
// the screen accordingly.
func (model *TUIModel) applyEvent(event Event) tea.Cmd {
	switch event.Type {
	case EventGeneralMessage:
		if model.session.ObserveGeneral(event.ID) {
			model.lines = append(model.lines, chatLine{author: event.Author, body: event.Content})
		}
	case EventPrivateMessage:
		if model.session.ObservePrivate(event.Author, event.RoomID) == client.Inline {
			model.lines = append(model.lines, chatLine{author: event.Author, body: event.Content})
		}
	case EventPrivateHistory:
		if model.session.ObserveHistory(event.RoomID) {
			model.lines = append(model.lines, chatLine{author: event.Sender, body: event.Content})
		}
	case EventResetOffset:
		model.session.ApplyResetOffset(event.LastID)
	case EventUserStatus:
		model.applyUserStatus(event)
	case EventError:
		model.lines = append(model.lines, chatLine{system: true, body: event.Reason})
	}
	return nil
}

func (model *TUIModel) applyUserStatus(event Event) {
	if event.Identity == model.session.Identity() {
		return
	}
	switch event.Action {
	case ActionJoin:
		for _, user := range model.users {
			if user == event.Identity {
				return
			}
		}
		model.users = append(model.users, event.Identity)
		sort.Strings(model.users)
		model.lines = append(model.lines, chatLine{system: true, body: event.Identity + " joined the chat"})
	case ActionLeave:
		kept := model.users[:0]
		for _, user := range model.users {
			if user != event.Identity {
				kept = append(kept, user)
			}
		}
		model.users = kept
		model.lines = append(model.lines, chatLine{system: true, body: event.Identity + " left the chat"})
	}
}

func (model *TUIModel) handleCommand(input string) tea.Cmd {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		model.closeConn()
		return tea.Quit
	case "/back", "/general":
		return model.returnToGeneral()
	case "/pm", "/msg":
		if len(fields) < 2 {
			model.lines = append(model.lines, chatLine{system: true, body: "usage: /pm <user>"})
			return nil
		}
		return model.openPrivate(fields[1])
	case "/who":
		model.lines = append(model.lines, chatLine{system: true, body: "online: " + strings.Join(model.users, ", ")})
		return nil
	default:
		model.lines = append(model.lines, chatLine{system: true, body: "unknown command " + fields[0]})
		return nil
	}
}

func (model *TUIModel) sendChat(content string) tea.Cmd {
	if !model.isConnected {
		model.lines = append(model.lines, chatLine{system: true, body: "not connected yet"})
		return nil
	}
	if model.session.InGeneral() {
		return model.sendCmd(Event{Type: EventSendGeneral, Content: content})
	}
	// our own private sends are echoed locally; the router's room
	// broadcast is filtered out as a self-echo.
	model.lines = append(model.lines, chatLine{author: model.session.Identity(), body: content})
	return model.sendCmd(Event{
		Type:    EventSendPrivate,
		Content: content,
		RoomID:  model.session.Room(),
		Target:  model.session.Peer(),
	})
}

func (model *TUIModel) openPrivate(peer string) tea.Cmd {
	roomID, ok := model.session.OpenPrivate(peer)
	if !ok {
		model.lines = append(model.lines, chatLine{system: true, body: "cannot open a chat with yourself"})
		return nil
	}
	model.lines = model.lines[:0]
	model.lines = append(model.lines, chatLine{system: true, body: fmt.Sprintf("--- private chat with %s ---", peer)})
	return model.sendCmd(Event{Type: EventJoinPrivate, RoomID: roomID})
}

func (model *TUIModel) returnToGeneral() tea.Cmd {
	model.session.ReturnToGeneral()
	model.lines = model.lines[:0]
	model.lines = append(model.lines, chatLine{system: true, body: "--- back to the general room ---"})
	return model.sendCmd(Event{Type: EventJoinGeneral})
}

func (model *TUIModel) closeConn() {
	if model.websocketConn == nil {
		return
	}
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = model.websocketConn.Close()
}
