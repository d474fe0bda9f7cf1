package tasks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// NotifyFailure is reported on a [Notifier]'s side channel when a job fails.
type NotifyFailure struct {
	Name string
	Err  error
}

// Notifier runs fire-and-forget jobs in the background.
//
// Each job gets its own timeout on a context detached from the caller, runs once,
// and is never retried. Failures are logged and offered on [Notifier.Failures]
// without blocking.
type Notifier struct {
	timeout  time.Duration
	logger   *log.Logger
	wg       sync.WaitGroup
	failures chan NotifyFailure
}

// NewNotifier creates a [Notifier] whose jobs each run under timeout.
func NewNotifier(timeout time.Duration, logger *log.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Notifier{timeout: timeout, logger: logger, failures: make(chan NotifyFailure, 16)}
}

// Go starts fn in the background.
func (n *Notifier) Go(name string, fn func(ctx context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		started := time.Now()
		if err := fn(ctx); err != nil {
			n.logger.Warn("notification failed", "name", name, "error", err, "duration", time.Since(started))
			select {
			case n.failures <- NotifyFailure{Name: name, Err: err}:
			default:
			}
			return
		}
		n.logger.Debug("notification sent", "name", name, "duration", time.Since(started))
	}()
}

// Failures is the side channel of failed jobs. Old failures are dropped when nobody reads it.
func (n *Notifier) Failures() <-chan NotifyFailure {
	return n.failures
}

// Wait blocks until every started job finished or ctx is done. It reports whether all jobs finished.
func (n *Notifier) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
