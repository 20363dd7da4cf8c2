package admission

import (
	stderrors "errors"
	"net/http"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/verify"
)

// errorCode is one of spec.md §6.3's Error discriminants.
type errorCode string

const (
	codeAuthFailed         errorCode = "AuthFailed"
	codeTokenRejected       errorCode = "TokenRejected"
	codeVerificationError   errorCode = "VerificationError"
	codeQuotaExceeded       errorCode = "QuotaExceeded"
	codeNotFound            errorCode = "NotFound"
	codeTimeout             errorCode = "Timeout"
	codeMalformedRequest    errorCode = "MalformedRequest"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
	Rule    string    `json:"rule,omitempty"`
	NodeID  string    `json:"node_id,omitempty"`
}

// classify maps an internal error from the mediator, verifier or
// engine to spec.md §6.3's discriminated error shape and the HTTP
// status it's reported under.
func classify(err error) (int, errorResponse) {
	var verr *verify.VerificationError
	if stderrors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{
			Code:    codeVerificationError,
			Message: verr.Error(),
			Rule:    string(verr.Kind),
			NodeID:  string(verr.Node),
		}
	}

	switch {
	case stderrors.Is(err, cap.ErrBadSignature), stderrors.Is(err, cap.ErrUnknownToken):
		return http.StatusUnauthorized, errorResponse{Code: codeAuthFailed, Message: err.Error()}
	case stderrors.Is(err, cap.ErrExpired), stderrors.Is(err, cap.ErrRevoked), stderrors.Is(err, cap.ErrExhausted), stderrors.Is(err, cap.ErrMissingCapability):
		return http.StatusForbidden, errorResponse{Code: codeTokenRejected, Message: err.Error()}
	case stderrors.Is(err, engine.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorResponse{Code: codeQuotaExceeded, Message: err.Error()}
	case stderrors.Is(err, engine.ErrCertificateMismatch):
		return http.StatusUnprocessableEntity, errorResponse{Code: codeVerificationError, Message: err.Error()}
	case stderrors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, errorResponse{Code: codeNotFound, Message: err.Error()}
	case stderrors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout, errorResponse{Code: codeTimeout, Message: err.Error()}
	default:
		return http.StatusBadRequest, errorResponse{Code: codeMalformedRequest, Message: err.Error()}
	}
}
