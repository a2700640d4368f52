// Package ipc is the line-delimited JSON channel between the CLI and the
// background daemon. Every message is one JSON document followed by a single
// newline; every request gets exactly one response.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

// Request types
const (
	TypeCommand = "command"
	TypeExplain = "explain"
)

// maxLineBytes bounds a single request or response line.
const maxLineBytes = 1 << 20

var (
	// ErrAbsent means no daemon answered. Callers fall back to a direct call.
	ErrAbsent = errors.New("daemon not reachable")
	// ErrTransport is an I/O failure in the middle of an exchange.
	ErrTransport = errors.New("ipc transport failure")
	// ErrProtocol is a malformed message on either side.
	ErrProtocol = errors.New("ipc protocol error")
	// ErrInUse means a live daemon already owns the endpoint.
	ErrInUse = errors.New("socket already served by a running daemon")
)

// RemoteError is a failure reported by the daemon in a response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "daemon: " + e.Message
}

// Request is a tagged union: Type selects which of the other fields apply.
//
//	{"type":"command","query":"list files"}
//	{"type":"explain","command":"ls -la","style":"typescript"}
type Request struct {
	Type    string    `json:"type"`
	Query   string    `json:"query,omitempty"`
	Command string    `json:"command,omitempty"`
	Style   *ai.Style `json:"style,omitempty"`
}

// CommandRequest builds a command resolution request.
func CommandRequest(query string) Request {
	return Request{Type: TypeCommand, Query: query}
}

// ExplainRequest builds an explanation request.
func ExplainRequest(command string, style ai.Style) Request {
	return Request{Type: TypeExplain, Command: command, Style: &style}
}

// Validate checks that the fields required by Type are present.
func (r Request) Validate() error {
	switch r.Type {
	case TypeCommand:
		if strings.TrimSpace(r.Query) == "" {
			return fmt.Errorf("%w: command request without query", ErrProtocol)
		}
	case TypeExplain:
		if strings.TrimSpace(r.Command) == "" {
			return fmt.Errorf("%w: explain request without command", ErrProtocol)
		}
		if r.Style == nil {
			return fmt.Errorf("%w: explain request without style", ErrProtocol)
		}
	case "":
		return fmt.Errorf("%w: missing request type", ErrProtocol)
	default:
		return fmt.Errorf("%w: unknown request type %q", ErrProtocol, r.Type)
	}
	return nil
}

// Response pairs exactly one Request. Success=false always carries a
// non-empty Error; Success=true always carries a Result, possibly empty.
type Response struct {
	Success bool    `json:"success"`
	Result  *string `json:"result"`
	Error   *string `json:"error"`
}

// OK builds a successful response.
func OK(result string) Response {
	return Response{Success: true, Result: &result}
}

// Fail builds a failed response.
func Fail(message string) Response {
	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}
	return Response{Success: false, Error: &message}
}

// Value returns the result of a successful response or a *RemoteError.
func (r Response) Value() (string, error) {
	if !r.Success {
		msg := "unknown error"
		if r.Error != nil && *r.Error != "" {
			msg = *r.Error
		}
		return "", &RemoteError{Message: msg}
	}
	if r.Result == nil {
		return "", nil
	}
	return *r.Result, nil
}

// DecodeRequest parses one request line.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// encodeLine marshals v and appends the framing newline.
func encodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
