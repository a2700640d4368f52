package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// pingTimeout bounds a single keep-alive request.
const pingTimeout = 10 * time.Second

// startKeepAlive schedules one independent job per remote dependency. A job
// still running when its next tick fires is skipped. The returned func stops
// the scheduler and waits for running jobs.
func (d *Daemon) startKeepAlive() func() {
	logger := cronLogger{d.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	every := cron.Every(d.cfg.KeepAliveInterval)
	c.Schedule(every, cron.FuncJob(d.pingResolver))
	c.Schedule(every, cron.FuncJob(d.pingExplainer))
	if d.cfg.Edge != nil {
		c.Schedule(every, cron.FuncJob(d.pingEdge))
	}
	c.Start()

	d.logger.Info("keep-alive started", zap.Duration("interval", d.cfg.KeepAliveInterval))

	return func() {
		<-c.Stop().Done()
	}
}

// pingResolver refreshes the resolver connection. Failures are retried on
// the next tick.
func (d *Daemon) pingResolver() {
	if d.state.ShuttingDown() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := d.resolver.Warmup(ctx); err != nil {
		d.logger.Warn("keep-alive failed", zap.String("target", "resolver"), zap.Error(err))
		return
	}
	d.logger.Debug("keep-alive ok", zap.String("target", "resolver"))
}

// pingExplainer refreshes the explainer connection once one exists.
func (d *Daemon) pingExplainer() {
	if d.state.ShuttingDown() {
		return
	}

	explainer := d.explainer.warm()
	if explainer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := explainer.Warmup(ctx); err != nil {
		d.logger.Warn("keep-alive failed", zap.String("target", "explainer"), zap.Error(err))
		return
	}
	d.logger.Debug("keep-alive ok", zap.String("target", "explainer"))
}

// pingEdge refreshes the hosted proxy connection.
func (d *Daemon) pingEdge() {
	if d.state.ShuttingDown() || d.cfg.Edge == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := d.cfg.Edge.Warmup(ctx); err != nil {
		d.logger.Warn("keep-alive failed", zap.String("target", "edge"), zap.Error(err))
		return
	}
	d.logger.Debug("keep-alive ok", zap.String("target", "edge"))
}

// cronLogger routes scheduler logs into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
