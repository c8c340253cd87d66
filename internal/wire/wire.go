// Package wire defines the request/reply frame shapes shared by SWS and
// CAMS: `[correlation_id, command, arg0, arg1, ...]` in, `[correlation_id,
// payload]` or `[correlation_id, "ERROR", json-exception]` out (spec.md
// §6.1).
package wire

import (
	"encoding/json"

	"github.com/systmms/secwallet/internal/secwerrors"
)

// Request is a decoded incoming frame.
type Request struct {
	CorrelationID string
	Command       string
	Args          []string
}

// DecodeRequest parses a raw frame of the form
// [correlation_id, command, arg0, arg1, ...].
func DecodeRequest(frame []string) (*Request, error) {
	if len(frame) < 2 {
		return nil, secwerrors.ProtocolError(secwerrors.SWSProtocolError, "frame must carry at least a correlation id and a command")
	}
	return &Request{
		CorrelationID: frame[0],
		Command:       frame[1],
		Args:          append([]string(nil), frame[2:]...),
	}, nil
}

// Reply is the frame sent back for one request.
type Reply struct {
	CorrelationID string
	Payload       string
	Err           *secwerrors.Error
}

// OK builds a successful reply frame.
func OK(correlationID, payload string) Reply {
	return Reply{CorrelationID: correlationID, Payload: payload}
}

// Failure builds an error reply frame.
func Failure(correlationID string, err *secwerrors.Error) Reply {
	return Reply{CorrelationID: correlationID, Err: err}
}

// Encode renders the reply as the wire frame:
// [correlation_id, payload] on success, [correlation_id, "ERROR", json] on
// failure.
func (r Reply) Encode() ([]string, error) {
	if r.Err == nil {
		return []string{r.CorrelationID, r.Payload}, nil
	}
	raw, err := r.Err.ToJSON()
	if err != nil {
		return nil, err
	}
	return []string{r.CorrelationID, "ERROR", string(raw)}, nil
}

// IsIgnoredCommand reports whether command is one the dispatcher must
// silently ignore rather than route (spec.md §4.3: "If command ∈ {ERROR,
// OK} → silently return empty").
func IsIgnoredCommand(command string) bool {
	return command == "ERROR" || command == "OK"
}

// MarshalJSONArray is a small helper for handlers that need to return a
// JSON array payload (e.g. GET_PORTFOLIO_LIST).
func MarshalJSONArray(items interface{}) (string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
