// Package daemon keeps remote connections warm between CLI invocations and
// answers command and explain requests over the local socket.
//
// The accept loop is single threaded, so requests are handled one at a
// time. Keep-alive jobs run on their own goroutines and share only the
// shutdown flag and the client handles with it. The daemon exits on its own
// once no request has been accepted for the idle timeout.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ipc"
)

// ErrAlreadyRunning is returned by Run when another daemon owns the socket.
var ErrAlreadyRunning = errors.New("daemon already running")

// Config holds the supervisor timings
type Config struct {
	SocketPath        string
	IdleTimeout       time.Duration
	KeepAliveInterval time.Duration
	// PollQuantum is how long one accept attempt waits. It doubles as the
	// loop's sleep between idle checks.
	PollQuantum    time.Duration
	RequestTimeout time.Duration
	// Edge, when set, gets its own keep-alive job so the hosted proxy
	// stays warm for proxied invocations.
	Edge Warmer
}

// Warmer is a remote dependency the keep-alive refreshes
type Warmer interface {
	Warmup(ctx context.Context) error
}

// DefaultConfig returns the default supervisor timings
func DefaultConfig(socketPath string) Config {
	return Config{
		SocketPath:        socketPath,
		IdleTimeout:       300 * time.Second,
		KeepAliveInterval: 30 * time.Second,
		PollQuantum:       10 * time.Millisecond,
		RequestTimeout:    30 * time.Second,
	}
}

// Daemon is the supervisor
type Daemon struct {
	cfg       Config
	resolver  ai.Resolver
	explainer *lazyExplainer
	logger    *zap.Logger
	state     *State
	phase     atomic.Int32
	now       func() time.Time
}

// New creates a daemon. newExplainer may be nil when no explainer is
// configured; explain requests then fail with ai.ErrNoExplainer.
func New(cfg Config, resolver ai.Resolver, newExplainer ExplainerFactory, logger *zap.Logger) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig(cfg.SocketPath)
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = def.KeepAliveInterval
	}
	if cfg.PollQuantum <= 0 {
		cfg.PollQuantum = def.PollQuantum
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	return &Daemon{
		cfg:       cfg,
		resolver:  resolver,
		explainer: newLazyExplainer(newExplainer),
		logger:    logger,
		state:     NewState(time.Now()),
		now:       time.Now,
	}
}

// Phase returns the current lifecycle phase
func (d *Daemon) Phase() Phase {
	return Phase(d.phase.Load())
}

func (d *Daemon) setPhase(p Phase) {
	d.phase.Store(int32(p))
	d.logger.Info("daemon phase", zap.Stringer("phase", p))
}

// Run binds the socket and serves until ctx is cancelled or the daemon has
// been idle for the configured timeout. The socket is removed on return.
func (d *Daemon) Run(ctx context.Context) error {
	d.setPhase(PhaseStarting)

	srv, err := ipc.Listen(d.cfg.SocketPath, d.logger)
	if err != nil {
		if errors.Is(err, ipc.ErrInUse) {
			return ErrAlreadyRunning
		}
		return fmt.Errorf("failed to bind daemon socket: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			d.logger.Warn("failed to remove socket", zap.Error(err))
		}
	}()

	d.setPhase(PhaseWarmingResolver)
	d.warmResolver(ctx)

	stopKeepAlive := d.startKeepAlive()
	defer stopKeepAlive()
	// runs before stopKeepAlive so in-flight jobs see the flag
	defer d.state.Shutdown()

	d.setPhase(PhaseServing)
	d.state.Touch(d.now())
	d.loop(ctx, srv)

	d.setPhase(PhaseShuttingDown)
	return nil
}

func (d *Daemon) loop(ctx context.Context, srv *ipc.Server) {
	for {
		if ctx.Err() != nil {
			d.logger.Info("daemon stopping", zap.Error(ctx.Err()))
			return
		}

		if idle := d.state.IdleFor(d.now()); idle > d.cfg.IdleTimeout {
			d.setPhase(PhaseIdleTimeout)
			d.logger.Info("idle timeout reached", zap.Duration("idle", idle))
			return
		}

		conn, err := srv.Accept(d.cfg.PollQuantum)
		if err != nil {
			d.logger.Warn("accept failed", zap.Error(err))
			d.sleep(ctx)
			continue
		}
		if conn == nil {
			continue
		}

		d.serve(ctx, srv, conn)
		d.state.Touch(d.now())
	}
}

func (d *Daemon) serve(ctx context.Context, srv *ipc.Server, conn net.Conn) {
	start := d.now()
	if err := srv.Serve(ctx, conn, d.Handle); err != nil {
		d.logger.Warn("failed to answer request", zap.Error(err))
		return
	}
	d.logger.Debug("request served", zap.Duration("took", d.now().Sub(start)))
}

func (d *Daemon) sleep(ctx context.Context) {
	t := time.NewTimer(d.cfg.PollQuantum)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (d *Daemon) warmResolver(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	if err := d.resolver.Warmup(ctx); err != nil {
		d.logger.Warn("resolver warmup failed", zap.Error(err))
		return
	}
	d.logger.Info("resolver warm")
}

// Handle answers one request. Backend failures and panics become failed
// responses; they never stop the daemon.
func (d *Daemon) Handle(ctx context.Context, req ipc.Request) (resp ipc.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("request handler panicked", zap.Any("panic", r), zap.String("type", req.Type))
			resp = ipc.Fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	switch req.Type {
	case ipc.TypeCommand:
		return d.handleCommand(ctx, req.Query)
	case ipc.TypeExplain:
		style := ai.StyleTypeScript
		if req.Style != nil {
			style = *req.Style
		}
		return d.handleExplain(ctx, req.Command, style)
	default:
		return ipc.Fail(fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (d *Daemon) handleCommand(ctx context.Context, query string) ipc.Response {
	result, err := d.resolver.Resolve(ctx, query)
	if err != nil {
		d.logger.Warn("resolve failed", zap.Error(err))
		return ipc.Fail(err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return ipc.Fail(fmt.Sprintf("failed to encode result: %v", err))
	}
	return ipc.OK(string(data))
}

func (d *Daemon) handleExplain(ctx context.Context, command string, style ai.Style) ipc.Response {
	explainer, err := d.explainer.get(ctx)
	if err != nil {
		return ipc.Fail(err.Error())
	}

	text, err := explainer.Explain(ctx, command, style)
	if err != nil {
		d.logger.Warn("explain failed", zap.Error(err))
		return ipc.Fail(err.Error())
	}
	d.explainer.markWarm()
	return ipc.OK(text)
}
