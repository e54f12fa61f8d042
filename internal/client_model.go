package internal

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"relaychat/internal/client"
	"relaychat/internal/room"
)

// one rendered line of the chat log
type chatLine struct {
	author string
	body   string
	system bool
}

// tui model for the chat view: the session holds the protocol state
// (offset, room context, pending notifications), the model holds what is
// on screen.
type TUIModel struct {
	textInput       textinput.Model
	session         *client.Session
	lines           []chatLine
	users           []string
	serverJoinURL   string
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	everConnected   bool
	connectionError error
}

func NewTUIModel(serverJoinURL, identity string) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 0
	input.Focus()
	input.Prompt = "> "

	if identity == "" {
		identity = defaultIdentity()
	}
	identity = room.NormalizeIdentity(identity)

	return &TUIModel{
		textInput:     input,
		session:       client.NewSession(identity),
		lines:         make([]chatLine, 0, 64),
		serverJoinURL: serverJoinURL,
	}
}

func defaultIdentity() string {
	if user := os.Getenv("RELAYCHAT_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return room.Anonymous
}

func (model *TUIModel) Init() tea.Cmd {
	return model.connectCmd()
}
