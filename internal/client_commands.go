package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	// we schedule a future poke that nudges Update to try the connection again.
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// websocket dial. The handshake declares who we are and the last general
// id we saw, so the server can replay only what we missed.
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		joinURL, err := buildJoinURL(model.serverJoinURL, model.session.Identity(), model.session.Offset())
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(joinURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

func (model *TUIModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return disconnectedMsg{err: fmt.Errorf("websocket not connected")}
		}
		messageType, payload, err := model.websocketConn.ReadMessage()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		if messageType != websocket.TextMessage {
			return nil
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return incomingMsg(Event{Type: EventError, Reason: string(payload)})
		}
		return incomingMsg(event)
	}
}

func (model *TUIModel) sendCmd(event Event) tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return disconnectedMsg{err: fmt.Errorf("websocket not connected")}
		}
		encoded, err := json.Marshal(event)
		if err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		err = model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
		model.writeMutex.Unlock()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return nil
	}
}

// entry for bubbletea
func RunClient(serverJoinURL, identity string) error {
	program := tea.NewProgram(NewTUIModel(serverJoinURL, identity))
	_, err := program.Run()
	return err
}

func buildJoinURL(base, identity string, offset int64) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	query := parsed.Query()
	query.Set("user", identity)
	query.Set("offset", strconv.FormatInt(offset, 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
