// Package http provides HTTP server and handler implementations.
//
// This file implements parsing and validation of JSON request bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

var (
	ErrEmptyBody       = errors.New("request body is required")
	ErrMissingIdentity = errors.New("userId and token are required")
	ErrMissingMessage  = errors.New("message is required")
)

// UserID accepts the user identifier as a JSON string or number.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("userId must be a string or number")
		}
		*id = UserID(n.String())
	}
	return nil
}

// AnalysisRequest is the body of /predict-expense and /detect-anomalies.
type AnalysisRequest struct {
	UserID UserID `json:"userId"`
	Token  string `json:"token"`
}

func (r AnalysisRequest) Validate() error {
	if r.UserID == "" || strings.TrimSpace(r.Token) == "" {
		return ErrMissingIdentity
	}
	return nil
}

// ChatRequest is the body of /chat.
type ChatRequest struct {
	AnalysisRequest
	Message string `json:"message"`
}

func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrMissingMessage
	}
	return r.AnalysisRequest.Validate()
}

type validator interface {
	Validate() error
}

// DecodeJSON reads a size-limited JSON body into v and validates it.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v validator) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return v.Validate()
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
