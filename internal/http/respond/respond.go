// Package respond writes the {success, data|error} envelope returned by
// every action endpoint.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
)

// MaxJSONBody caps decoded request bodies.
const MaxJSONBody = 1 << 20

// Envelope is the discriminated result shape.
type Envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	Error        string `json:"error,omitempty"`
	Field        string `json:"field,omitempty"`
	RequiredPlan string `json:"requiredPlan,omitempty"`
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with a user facing message.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Error: message})
}

// Invalid writes a 400 envelope, naming the field when err carries one.
func Invalid(w http.ResponseWriter, err error) {
	env := Envelope{Success: false, Error: err.Error()}
	if fe, ok := inputval.AsFieldError(err); ok {
		env.Field = fe.Field
		env.Error = fe.Message
	}
	write(w, http.StatusBadRequest, env)
}

// Denied writes a 403 naming the plan that would allow the action.
func Denied(w http.ResponseWriter, err *plans.DeniedError) {
	write(w, http.StatusForbidden, Envelope{
		Success:      false,
		Error:        err.Error(),
		RequiredPlan: string(err.Decision.RequiredTier),
	})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// ErrBadBody is returned by DecodeJSON for malformed or oversized input.
var ErrBadBody = errors.New("invalid request body")

// DecodeJSON decodes a bounded JSON body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}
