// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admission implements the REST and websocket front door spec.md
// §6.3 describes: submit/status/cancel/wait over a certified graph, an
// audit query endpoint, and a live job-status stream.
package admission

import (
	"encoding/hex"
	"time"

	"github.com/qvmkernel/qvmcore/audit"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/ids"
)

// TokenDTO is the wire form of a cap.Token: byte fields become hex
// strings so the struct round-trips through JSON without a custom
// (un)marshaler on cap.Token itself.
type TokenDTO struct {
	ID        string `json:"id"`
	Tenant    string `json:"tenant"`
	Caps      uint16 `json:"caps"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
	MaxUses   uint64 `json:"max_uses"`
	ParentID  string `json:"parent_id,omitempty"`
	Signature string `json:"signature"`
}

func tokenFromDTO(dto TokenDTO) (*cap.Token, error) {
	tenant, err := ids.ParseTenantID(dto.Tenant)
	if err != nil {
		return nil, err
	}
	sig, err := hex.DecodeString(trimHexPrefix(dto.Signature))
	if err != nil {
		return nil, err
	}
	return &cap.Token{
		ID:        dto.ID,
		Tenant:    tenant,
		Caps:      cap.Capability(dto.Caps),
		IssuedAt:  time.Unix(dto.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(dto.ExpiresAt, 0).UTC(),
		MaxUses:   dto.MaxUses,
		ParentID:  dto.ParentID,
		Signature: sig,
	}, nil
}

func tokenToDTO(tok *cap.Token) TokenDTO {
	return TokenDTO{
		ID:        tok.ID,
		Tenant:    tok.Tenant.String(),
		Caps:      uint16(tok.Caps),
		IssuedAt:  tok.IssuedAt.Unix(),
		ExpiresAt: tok.ExpiresAt.Unix(),
		MaxUses:   tok.MaxUses,
		ParentID:  tok.ParentID,
		Signature: "0x" + hex.EncodeToString(tok.Signature),
	}
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

// CreateSessionRequest asks the server to open a new execution session
// for a tenant, bounded by quota.
type CreateSessionRequest struct {
	Tenant            string `json:"tenant"`
	MaxLiveVQs        uint64 `json:"max_live_vqs"`
	MaxLiveChannels   uint64 `json:"max_live_channels"`
	MaxConcurrentJobs int64  `json:"max_concurrent_jobs"`
}

// CreateSessionResponse carries the new session's id.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SubmitRequest is spec.md §6.3's submit(session_id, graph, token),
// with graph carried as its wire-encoded bytes and token as a TokenDTO.
// The server runs the full certification pipeline itself before
// admitting the graph to the engine — callers never submit a
// pre-built certificate.
type SubmitRequest struct {
	SessionID string   `json:"session_id"`
	GraphHex  string   `json:"graph"`
	Token     TokenDTO `json:"token"`
}

// SubmitResponse carries the admitted job's handle.
type SubmitResponse struct {
	JobHandle string `json:"job_handle"`
}

// StatusResponse mirrors engine.Status over the wire.
type StatusResponse struct {
	State       engine.State   `json:"state"`
	EventsSoFar map[string]int `json:"events_so_far"`
	Progress    engine.Progress `json:"progress"`
	CurrentNode string         `json:"current_node,omitempty"`
}

func statusToDTO(s engine.Status) StatusResponse {
	evs := make(map[string]int, len(s.EventsSoFar))
	for k, v := range s.EventsSoFar {
		evs[string(k)] = v
	}
	return StatusResponse{
		State:       s.State,
		EventsSoFar: evs,
		Progress:    s.Progress,
		CurrentNode: string(s.CurrentNode),
	}
}

// ResultResponse mirrors engine.Result over the wire, matching spec.md
// §6.3's FinalResult.
type ResultResponse struct {
	State        engine.State   `json:"state"`
	Events       map[string]int `json:"events"`
	FailedNode   string         `json:"failed_node,omitempty"`
	FailureError string         `json:"failure_error,omitempty"`
}

func resultToDTO(r engine.Result) ResultResponse {
	evs := make(map[string]int, len(r.Events))
	for k, v := range r.Events {
		evs[string(k)] = v
	}
	dto := ResultResponse{State: r.State, Events: evs, FailedNode: string(r.FailedNode)}
	if r.FailureError != nil {
		dto.FailureError = r.FailureError.Error()
	}
	return dto
}

// AuditRecordResponse mirrors one audit.Record over the wire.
type AuditRecordResponse struct {
	Index     uint64    `json:"index"`
	Tenant    string    `json:"tenant"`
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	NodeID    string    `json:"node_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Root      string    `json:"root"`
}

func auditRecordToDTO(rec audit.Record) AuditRecordResponse {
	return AuditRecordResponse{
		Index:     rec.Index,
		Tenant:    rec.Tenant.String(),
		JobID:     rec.JobID,
		Kind:      string(rec.Kind),
		NodeID:    string(rec.NodeID),
		Detail:    rec.Detail,
		Timestamp: rec.Timestamp,
		Root:      rec.Root.String(),
	}
}
