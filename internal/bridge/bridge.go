// Package bridge decides where a request is served. Direct sources try the
// warm daemon first and fall back to calling the backends in-process,
// starting a daemon for next time. Proxied sources stream everything from
// the hosted proxy.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ipc"
)

// Kind is the closed set of sources
type Kind int

const (
	Direct Kind = iota
	Proxied
)

func (k Kind) String() string {
	if k == Proxied {
		return "proxied"
	}
	return "direct"
}

// ParseKind parses a configured source name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "local":
		return Direct, nil
	case "proxied", "proxy", "edge":
		return Proxied, nil
	default:
		return Direct, fmt.Errorf("unknown source %q (want direct or proxied)", s)
	}
}

// Streamer is the proxied backend: one request yields the command and its
// explanation.
type Streamer interface {
	Stream(ctx context.Context, query string, style ai.Style) (<-chan ai.Result[ai.CommandResult], <-chan ai.Result[string])
}

// Spawner starts a background daemon. Failures only cost future latency.
type Spawner interface {
	Spawn() error
}

// Config wires a Bridge
type Config struct {
	Kind       Kind
	SocketPath string
	Style      ai.Style

	// Direct backends
	Resolver     ai.Resolver
	NewExplainer func(ctx context.Context) (ai.Explainer, error)

	// Proxied backend
	Proxy Streamer

	// Spawner is used in direct mode when no daemon answers; nil disables it.
	Spawner Spawner
	Logger  *zap.Logger
}

// Bridge is the client side of every request
type Bridge struct {
	kind      Kind
	style     ai.Style
	daemon    *ipc.Client
	resolver  ai.Resolver
	proxy     Streamer
	spawner   Spawner
	logger    *zap.Logger
	spawnOnce sync.Once

	explainerMu  sync.Mutex
	explainer    ai.Explainer
	newExplainer func(ctx context.Context) (ai.Explainer, error)
}

// New validates cfg and creates a Bridge
func New(cfg Config) (*Bridge, error) {
	switch cfg.Kind {
	case Direct:
		if cfg.Resolver == nil {
			return nil, errors.New("direct source requires a resolver")
		}
		if cfg.SocketPath == "" {
			return nil, errors.New("direct source requires a socket path")
		}
	case Proxied:
		if cfg.Proxy == nil {
			return nil, errors.New("proxied source requires a proxy client")
		}
	default:
		return nil, fmt.Errorf("unknown source kind %d", cfg.Kind)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bridge{
		kind:         cfg.Kind,
		style:        cfg.Style,
		resolver:     cfg.Resolver,
		proxy:        cfg.Proxy,
		spawner:      cfg.Spawner,
		logger:       logger,
		newExplainer: cfg.NewExplainer,
	}
	if cfg.SocketPath != "" {
		b.daemon = ipc.NewClient(cfg.SocketPath)
	}
	return b, nil
}

// Kind returns the source kind
func (b *Bridge) Kind() Kind {
	return b.kind
}

// ResolveCommand turns query into a command.
func (b *Bridge) ResolveCommand(ctx context.Context, query string) (ai.CommandResult, error) {
	if b.kind == Proxied {
		cmdCh, _ := b.proxy.Stream(ctx, query, b.style)
		select {
		case r := <-cmdCh:
			return r.Value, r.Err
		case <-ctx.Done():
			return ai.CommandResult{}, ctx.Err()
		}
	}

	value, err := b.daemon.Call(ctx, ipc.CommandRequest(query))
	switch {
	case err == nil:
		b.logger.Debug("command served by daemon")
		return decodeCommand(value)
	case errors.Is(err, ipc.ErrAbsent):
		b.logger.Debug("daemon absent, resolving directly", zap.Error(err))
		b.spawn()
		return b.resolver.Resolve(ctx, query)
	default:
		return ai.CommandResult{}, err
	}
}

// ResolveExplanation explains command in style. A proxied source has no
// per-command endpoint, so it uses the direct explainer when one is
// configured.
func (b *Bridge) ResolveExplanation(ctx context.Context, command string, style ai.Style) (ai.Explanation, error) {
	text, err := b.explain(ctx, command, style)
	if err != nil {
		return ai.Explanation{}, err
	}
	return ai.ParseExplanation(text), nil
}

func (b *Bridge) explain(ctx context.Context, command string, style ai.Style) (string, error) {
	if b.kind == Direct {
		text, err := b.daemon.Call(ctx, ipc.ExplainRequest(command, style))
		switch {
		case err == nil:
			b.logger.Debug("explanation served by daemon")
			return text, nil
		case !errors.Is(err, ipc.ErrAbsent):
			return "", err
		}
		b.logger.Debug("daemon absent, explaining directly", zap.Error(err))
		b.spawn()
	}

	explainer, err := b.getExplainer(ctx)
	if err != nil {
		return "", err
	}
	return explainer.Explain(ctx, command, style)
}

// Stream starts resolving query on a worker. The explanation channel is set
// only when the source delivers it alongside the command; otherwise it is nil
// and the caller asks for one with ExplainAsync.
func (b *Bridge) Stream(ctx context.Context, query string) (<-chan ai.Result[ai.CommandResult], <-chan ai.Result[string]) {
	if b.kind == Proxied {
		return b.proxy.Stream(ctx, query, b.style)
	}

	ch := make(chan ai.Result[ai.CommandResult], 1)
	go func() {
		result, err := b.ResolveCommand(ctx, query)
		ch <- ai.Result[ai.CommandResult]{Value: result, Err: err}
	}()
	return ch, nil
}

// ExplainAsync fetches the raw explanation text on a worker. The channel is
// buffered so an abandoned worker never blocks.
func (b *Bridge) ExplainAsync(ctx context.Context, command string, style ai.Style) <-chan ai.Result[string] {
	ch := make(chan ai.Result[string], 1)
	go func() {
		text, err := b.explain(ctx, command, style)
		ch <- ai.Result[string]{Value: text, Err: err}
	}()
	return ch
}

func (b *Bridge) getExplainer(ctx context.Context) (ai.Explainer, error) {
	b.explainerMu.Lock()
	defer b.explainerMu.Unlock()

	if b.explainer != nil {
		return b.explainer, nil
	}
	if b.newExplainer == nil {
		return nil, ai.ErrNoExplainer
	}
	explainer, err := b.newExplainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create explainer: %w", err)
	}
	b.explainer = explainer
	return explainer, nil
}

func (b *Bridge) spawn() {
	if b.spawner == nil {
		return
	}
	b.spawnOnce.Do(func() {
		if err := b.spawner.Spawn(); err != nil {
			b.logger.Debug("failed to spawn daemon", zap.Error(err))
			return
		}
		b.logger.Info("spawned daemon")
	})
}

// decodeCommand reads the daemon's JSON-encoded CommandResult.
func decodeCommand(value string) (ai.CommandResult, error) {
	var result ai.CommandResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		return ai.CommandResult{}, fmt.Errorf("%w: bad command result: %v", ipc.ErrProtocol, err)
	}
	if strings.TrimSpace(result.Command) == "" {
		return ai.CommandResult{}, ai.ErrEmptyCommand
	}
	return result, nil
}
