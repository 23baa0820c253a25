package main

import (
	"context"
	"time"

	"github.com/TincheHK/prefw/engine"
	"github.com/TincheHK/prefw/log/logkeys"

	"github.com/micromdm/nanolib/log"
	"github.com/robfig/cron/v3"
)

// cronLogger adapts a logger to the cron package.
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(append([]interface{}{logkeys.Message, msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Info(append([]interface{}{logkeys.Message, msg, logkeys.Error, err}, keysAndValues...)...)
}

// scheduleWorker runs the worker on the cron spec.
// Each run is given at most timeout. Runs are skipped while a previous
// run is still going.
func scheduleWorker(ctx context.Context, spec string, timeout time.Duration, w *engine.Worker, logger log.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, func() { runWorker(ctx, timeout, w) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// runWorker runs w once with a deadline of timeout.
// A zero timeout runs without a deadline.
func runWorker(ctx context.Context, timeout time.Duration, w *engine.Worker) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.RunOnce(ctx)
}
