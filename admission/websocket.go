// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admission

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ethereum/go-ethereum/log"
	"github.com/qvmkernel/qvmcore/engine"
)

const (
	statusPollInterval = 200 * time.Millisecond
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 7) / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range s.allowedOrigins {
				if allowed == origin || allowed == "*" {
					return true
				}
			}
			return false
		},
	}
}

// handleStatusStream polls a job's status and pushes it to the client
// as a JSON message each time its state changes, closing once the job reaches
// a terminal state. It never propagates an error up the stack: once
// the connection is hijacked by Upgrade there is no HTTP response left
// to write an error into, matching the teacher's own websocket
// handlers (api/subscriptions.handlePendingTransactions).
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobHandleFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Debug("admission: upgrade to websocket", "err", err)
		return
	}
	defer conn.Close()

	pollTicker := time.NewTicker(statusPollInterval)
	defer pollTicker.Stop()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	var lastState engine.State
	for {
		select {
		case <-pollTicker.C:
			status, err := s.manager.Status(jobID)
			if err != nil {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error()))
				return
			}
			if status.State == lastState {
				continue
			}
			lastState = status.State
			if err := conn.WriteJSON(statusToDTO(status)); err != nil {
				return
			}
			if isTerminal(status.State) {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func isTerminal(s engine.State) bool {
	return s == engine.StateCompleted || s == engine.StateFailed || s == engine.StateCancelled
}
