package ai

import (
	"context"
	"errors"
)

// Errors shared by resolver and explainer backends
var (
	ErrEmptyCommand = errors.New("model returned an empty command")
	ErrNoExplainer  = errors.New("no explainer configured")
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// CommandResult is the resolver's answer for one query
type CommandResult struct {
	Command string `json:"command"`
	Safe    bool   `json:"safe"`
}

// Result carries a worker's value or its error over a channel
type Result[T any] struct {
	Value T
	Err   error
}

// Resolver turns a natural-language query into a shell command
type Resolver interface {
	Resolve(ctx context.Context, query string) (CommandResult, error)
	// Warmup refreshes the connection to the backend without doing billable work.
	Warmup(ctx context.Context) error
}

// Explainer describes a command and tags it with a safety level
type Explainer interface {
	Explain(ctx context.Context, command string, style Style) (string, error)
	Warmup(ctx context.Context) error
}
