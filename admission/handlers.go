// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admission

import (
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	tenant, err := ids.ParseTenantID(req.Tenant)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}

	seed := make([]byte, 32)
	id := ids.BytesToHash32([]byte(tenant.String() + strconv.FormatInt(time.Now().UnixNano(), 10)))
	session := engine.NewSession(id, tenant, engine.Quota{
		MaxLiveVQs:        req.MaxLiveVQs,
		MaxLiveChannels:   req.MaxLiveChannels,
		MaxConcurrentJobs: req.MaxConcurrentJobs,
	}, seed)
	s.registerSession(session)

	writeJSON(w, CreateSessionResponse{SessionID: id.String()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}

	sessionID, err := ids.ParseHash32(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	session, ok := s.lookupSession(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, errorResponse{Code: codeNotFound, Message: "unknown session"})
		return
	}

	tok, err := tokenFromDTO(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}

	encoded, err := hex.DecodeString(trimHexPrefix(req.GraphHex))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	g, err := graph.Decode(encoded, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}

	cert, err := s.verifier.Certify(g, tok)
	if err != nil {
		status, resp := classify(err)
		writeError(w, status, resp)
		return
	}

	jobID, err := s.manager.Submit(session, g, cert, tok)
	if err != nil {
		status, resp := classify(err)
		writeError(w, status, resp)
		return
	}

	writeJSON(w, SubmitResponse{JobHandle: jobID.String()})
}

func jobHandleFromRequest(r *http.Request) (ids.Hash32, error) {
	return ids.ParseHash32(mux.Vars(r)["job_handle"])
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobHandleFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	status, err := s.manager.Status(jobID)
	if err != nil {
		st, resp := classify(err)
		writeError(w, st, resp)
		return
	}
	writeJSON(w, statusToDTO(status))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobHandleFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	if err := s.manager.Cancel(jobID); err != nil {
		st, resp := classify(err)
		writeError(w, st, resp)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobHandleFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}

	timeout := 30 * time.Second
	if v := r.URL.Query().Get("timeout_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: "invalid timeout_ms"})
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	res, err := s.manager.Wait(jobID, timeout)
	if err != nil {
		st, resp := classify(err)
		writeError(w, st, resp)
		return
	}
	writeJSON(w, resultToDTO(res))
}

func (s *Server) handleAuditByTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := ids.ParseTenantID(mux.Vars(r)["tenant"])
	if err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
		return
	}
	recs := s.auditLog.ByTenant(tenant)
	out := make([]AuditRecordResponse, len(recs))
	for i, rec := range recs {
		out[i] = auditRecordToDTO(rec)
	}
	writeJSON(w, out)
}

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"current_level"`
}

// handleLogLevel mirrors admin/handlers.go's logLevelHandler: GET
// reports the current level, POST sets a new one.
func (s *Server) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, logLevelResponse{CurrentLevel: s.logLevel.Level().String()})
	case http.MethodPost:
		var req logLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: "invalid request body"})
			return
		}
		lvl, err := parseLevel(req.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()})
			return
		}
		s.logLevel.Set(lvl)
		writeJSON(w, logLevelResponse{CurrentLevel: s.logLevel.Level().String()})
	default:
		writeError(w, http.StatusMethodNotAllowed, errorResponse{Code: codeMalformedRequest, Message: "method not allowed"})
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errUnknownLogLevel
	}
}

var errUnknownLogLevel = stderrors.New("admission: unknown log level")
