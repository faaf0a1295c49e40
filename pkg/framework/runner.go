package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Runner.Wait when a second stop signal
// arrives before all Runnables stopped.
var ErrForcedExit = errors.New("forced exit")

// Runner runs Runnables in background goroutines and collects their errors.
// A Runnable stopping with context.Canceled is not an error.
type Runner struct {
	Context context.Context

	wg     sync.WaitGroup
	lock   sync.Mutex
	errs   AggregatedError
	exitCh chan struct{}
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a specified context.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{Context: ctx, exitCh: make(chan struct{})}
}

// HandleSignals cancels the context on SIGINT or SIGTERM. A second signal
// makes Wait return immediately.
func (r *Runner) HandleSignals() *Runner {
	ctx, stop := signal.NotifyContext(r.Context, os.Interrupt, syscall.SIGTERM)
	r.Context = ctx
	go func() {
		<-ctx.Done()
		stop()
		glog.Info("stop requested")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go starts Runnables with the runner context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	return r.GoWith(r.Context, runnables...)
}

// GoWith starts Runnables with a specified context.
func (r *Runner) GoWith(ctx context.Context, runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := runnableName(runnable)
		r.wg.Add(1)
		go func(runnable Runnable) {
			defer r.wg.Done()
			glog.V(4).Infof("%s started", name)
			err := runnable.Run(ctx)
			glog.V(4).Infof("%s stopped: %v", name, err)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			r.lock.Lock()
			r.errs.Add(fmt.Errorf("%s: %w", name, err))
			r.lock.Unlock()
		}(runnable)
	}
	return r
}

// Wait waits until all Runnables stop.
func (r *Runner) Wait() error {
	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-r.exitCh:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

func runnableName(runnable Runnable) string {
	if named, ok := runnable.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", runnable)
}

// RunWithContextCancel runs fn which doesn't accept a context. onCancel is
// called when ctx is done and must make fn return.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-errCh
	return ctx.Err()
}

// RunWithContextCloser runs fn until it fails or ctx is done. closer is
// closed exactly once in both cases; closing it must make fn return.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() { once.Do(func() { closer.Close() }) }
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
