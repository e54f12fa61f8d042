package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	activeConns     atomic.Int64
	generalMessages atomic.Uint64
	privateMessages atomic.Uint64
	replays         atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) IncGeneral() {
	m.generalMessages.Add(1)
}

func (m *Metrics) IncPrivate() {
	m.privateMessages.Add(1)
}

func (m *Metrics) IncReplay() {
	m.replays.Add(1)
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"active_connections":     m.activeConns.Load(),
		"general_messages_total": m.generalMessages.Load(),
		"private_messages_total": m.privateMessages.Load(),
		"replays_total":          m.replays.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
