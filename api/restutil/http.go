// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package restutil holds small, generic HTTP helpers: a
// typed-error-returning handler wrapper, and JSON request/response
// helpers. The admission API does not use them; it has its own
// writeError/writeJSON helpers.
package restutil

import (
	"encoding/json"
	"io"
	"net/http"
)

// JSONContentType is the Content-Type WriteJSON sets on every response.
const JSONContentType = "application/json"

// httpError pairs a cause with the status code it should be reported
// under, satisfying error so handlers can just `return restutil.BadRequest(err)`.
type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Error()
}

func (e *httpError) Unwrap() error { return e.cause }

// HTTPError wraps cause so WrapHandlerFunc reports it under status.
func HTTPError(cause error, status int) error {
	return &httpError{cause: cause, status: status}
}

// BadRequest wraps cause as a 400.
func BadRequest(cause error) error {
	return HTTPError(cause, http.StatusBadRequest)
}

// Forbidden wraps cause as a 403.
func Forbidden(cause error) error {
	return HTTPError(cause, http.StatusForbidden)
}

// NotFound wraps cause as a 404.
func NotFound(cause error) error {
	return HTTPError(cause, http.StatusNotFound)
}

// WrapHandlerFunc adapts an error-returning handler into a standard
// http.HandlerFunc: a nil error writes nothing further, an *httpError
// writes its status with the cause's message as the body, and any
// other error is reported as a 500 with its own message as the body.
func WrapHandlerFunc(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		if he, ok := err.(*httpError); ok {
			if he.cause != nil {
				http.Error(w, he.cause.Error(), he.status)
			} else {
				w.WriteHeader(he.status)
			}
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ParseJSON decodes a JSON body from r into v.
func ParseJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(v)
}
