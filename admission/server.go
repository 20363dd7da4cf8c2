// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admission

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/qvmkernel/qvmcore/audit"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/co"
	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/ids"
	"github.com/qvmkernel/qvmcore/verify"
)

// Server is the admission API's collaborators: the mediator issues and
// checks tokens, the verifier certifies submitted graphs, the manager
// runs admitted jobs, and the audit log backs the query endpoint. It
// also owns the registry of open sessions, keyed by the id a caller
// gets back from CreateSession.
type Server struct {
	mediator *cap.Mediator
	verifier *verify.Verifier
	manager  *engine.Manager
	auditLog *audit.Log
	logLevel *slog.LevelVar

	allowedOrigins []string

	mu       sync.Mutex
	sessions map[ids.Hash32]*engine.Session
}

// NewServer wires a Server to its collaborators. allowedOrigins governs
// the websocket status stream's CORS check (mirroring the teacher's
// api/subscriptions upgrader); an empty slice allows any origin.
func NewServer(med *cap.Mediator, v *verify.Verifier, mgr *engine.Manager, auditLog *audit.Log, logLevel *slog.LevelVar, allowedOrigins []string) *Server {
	return &Server{
		mediator:       med,
		verifier:       v,
		manager:        mgr,
		auditLog:       auditLog,
		logLevel:       logLevel,
		allowedOrigins: allowedOrigins,
		sessions:       make(map[ids.Hash32]*engine.Session),
	}
}

func (s *Server) registerSession(session *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *Server) lookupSession(id ids.Hash32) (*engine.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// HTTPHandler mounts every admission route onto a fresh mux.Router,
// mirroring api/router.go's New(...) *mux.Router shape.
func (s *Server) HTTPHandler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	router.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/status/{job_handle}", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/cancel/{job_handle}", s.handleCancel).Methods(http.MethodPost)
	router.HandleFunc("/wait/{job_handle}", s.handleWait).Methods(http.MethodGet)
	router.HandleFunc("/ws/status/{job_handle}", s.handleStatusStream)
	router.HandleFunc("/audit/tenant/{tenant}", s.handleAuditByTenant).Methods(http.MethodGet)
	router.HandleFunc("/admin/loglevel", s.handleLogLevel)
	return handlers.CompressHandler(router)
}

// StartServer listens on addr and serves the admission API until the
// returned close func is called, mirroring admin/admin_server.go's
// StartServer(addr, ...) (addr string, close func(), err error) shape.
func StartServer(addr string, s *Server) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admission API addr [%v]", addr)
	}

	srv := &http.Server{Handler: s.HTTPHandler(), ReadHeaderTimeout: time.Second, ReadTimeout: 30 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return fmt.Sprintf("http://%s", listener.Addr().String()), func() {
		srv.Close()
		goes.Wait()
	}, nil
}
