package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relaychat/internal/room"
)

const (
	defaultMessageLimit  = 5
	defaultMessageWindow = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServerOptions tunes the websocket front of the router.
type ServerOptions struct {
	// NotifySendFailures forwards append failures to the sender as error
	// events. Off by default to match the silent-degrade behavior clients
	// expect.
	NotifySendFailures bool
	MessageLimit       int
	MessageWindow      time.Duration
}

// Server owns the router and translates websocket traffic into router
// operations.
type Server struct {
	router     *Router
	metrics    *Metrics
	msgLimiter *RateLimiter
}

func NewServer(store HistoryStore, opts ServerOptions) *Server {
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = defaultMessageLimit
	}
	if opts.MessageWindow <= 0 {
		opts.MessageWindow = defaultMessageWindow
	}
	metrics := NewMetrics()
	return &Server{
		router: NewRouter(RouterConfig{
			Store:              store,
			Metrics:            metrics,
			NotifySendFailures: opts.NotifySendFailures,
		}),
		metrics:    metrics,
		msgLimiter: NewRateLimiter(opts.MessageLimit, opts.MessageWindow),
	}
}

// Router exposes the dispatcher, mainly for tests and embedded setups.
func (s *Server) Router() *Router { return s.router }

// ServeWS upgrades the request and hands the connection to the router.
// The handshake carries the self-asserted identity, the last general id
// the client saw, and whether the transport resumed a previous session.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity := room.NormalizeIdentity(r.URL.Query().Get("user"))
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	recovered, _ := strconv.ParseBool(r.URL.Query().Get("recovered"))

	websocketConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	conn := newWSConn(uuid.NewString(), identity, websocketConn)
	go conn.writePump()
	s.router.Connect(r.Context(), conn, offset, recovered)
	log.Printf("connected: %s (%s)", identity, conn.ID())

	go conn.readPump(s.dispatch, func() {
		s.router.Disconnect(conn)
		conn.closeSend()
		log.Printf("disconnected: %s (%s)", identity, conn.ID())
	})
}

// dispatch routes one inbound event. Malformed events are dropped with a
// log line; the connection stays alive.
func (s *Server) dispatch(conn *wsConn, event Event) {
	ctx := context.Background()
	switch event.Type {
	case EventSendGeneral, EventSendPrivate:
		if !s.msgLimiter.Allow(conn.Identity()) {
			s.notifyRateLimit(conn)
			return
		}
		var err error
		if event.Type == EventSendGeneral {
			err = s.router.SendGeneral(ctx, conn, event.Content)
		} else {
			err = s.router.SendPrivate(ctx, conn, event.Content, event.RoomID, event.Target)
		}
		if err != nil {
			log.Printf("%s from %s: %v", event.Type, conn.Identity(), err)
		}
	case EventJoinGeneral:
		if err := s.router.JoinGeneral(ctx, conn); err != nil {
			log.Printf("join general from %s: %v", conn.Identity(), err)
		}
	case EventJoinPrivate:
		if err := s.router.JoinPrivate(ctx, conn, event.RoomID); err != nil {
			log.Printf("join private from %s: %v", conn.Identity(), err)
		}
	default:
		log.Printf("dropping event %q from %s: %v", event.Type, conn.Identity(), ErrProtocol)
	}
}

func (s *Server) notifyRateLimit(conn *wsConn) {
	event := Event{
		Type:   EventError,
		Reason: "You're sending messages too quickly. Please wait a moment and try again.",
	}
	if err := conn.Send(event); err != nil && !errors.Is(err, ErrSendBacklog) {
		log.Printf("rate limit notice to %s: %v", conn.ID(), err)
	}
}

// HandleOnline lists the distinct identities currently connected.
func (s *Server) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online": s.router.Presence().OnlineIdentities(),
	})
}

// HandleHealth reports liveness and the build version.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// MetricsHandler exposes the counter endpoint.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
