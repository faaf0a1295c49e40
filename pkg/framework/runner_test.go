package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

type namedRun struct {
	runFunc
	name string
}

func (r namedRun) Name() string { return r.name }

func TestAggregatedError(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())

	errs.Add(errA)
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(nil, errB)
	err := errs.Aggregate()
	require.EqualError(t, err, "2 errors: a; b")
	require.ErrorIs(t, err, errB)
}

func TestRunnerCollectsErrors(t *testing.T) {
	failure := errors.New("port gone")
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(
		namedRun{name: "drive", runFunc: func(context.Context) error { return failure }},
		runFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	cancel()
	err := r.Wait()
	require.EqualError(t, err, "drive: port gone")
	require.ErrorIs(t, err, failure)
}

type countingCloser struct {
	closed int
	ch     chan struct{}
}

func (c *countingCloser) Close() error {
	c.closed++
	if c.closed == 1 {
		close(c.ch)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &countingCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.ch
		return errors.New("read on closed port")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, c.closed)

	c = &countingCloser{ch: make(chan struct{})}
	failure := errors.New("eof")
	err = RunWithContextCloser(context.Background(), c, func() error { return failure })
	require.Equal(t, failure, err)
	require.Equal(t, 1, c.closed)
}
