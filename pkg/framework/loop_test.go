package framework

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopTicks(t *testing.T) {
	t0 := time.Unix(1000, 0)
	testCases := []struct {
		after  time.Duration
		ticked bool
	}{
		{0, true},
		{5 * time.Millisecond, false},
		{19 * time.Millisecond, false},
		{20 * time.Millisecond, true},
		{39 * time.Millisecond, false},
		{100 * time.Millisecond, true},
		{105 * time.Millisecond, false},
		{120 * time.Millisecond, true},
	}
	loop := NewLoop().WithPeriod(20 * time.Millisecond)
	var seen []bool
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		seen = append(seen, cc.Ticked())
		return nil
	}))
	var expected []bool
	for _, tc := range testCases {
		require.Equal(t, tc.ticked, loop.Dispatch(context.Background(), t0.Add(tc.after)), "at %v", tc.after)
		expected = append(expected, tc.ticked)
	}
	require.Equal(t, expected, seen)
	require.Equal(t, uint64(4), loop.Ticks())
}

func TestLoopPriorityOrder(t *testing.T) {
	var order []string
	record := func(name string) Controller {
		return ControlFunc(func(ControlContext) error {
			order = append(order, name)
			return nil
		})
	}
	loop := NewLoop()
	loop.AddController(PrLvPostProc, record("supervise"))
	loop.AddController(PrLvSense, record("sense"))
	loop.AddController(PrLvAcuate, record("actuate"))
	loop.AddController(PrLvCommand, record("command"))
	loop.Dispatch(context.Background(), time.Unix(0, 0))
	require.Equal(t, []string{"command", "actuate", "sense", "supervise"}, order)
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop()
	var taken, observed []int
	loop.AddController(PrLvCommand, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m := mc.CurrentMessage().(*testMsg); m.val%2 == 0 {
				mc.MessageTaken()
				taken = append(taken, m.val)
			}
		}))
		return nil
	}))
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			observed = append(observed, mc.CurrentMessage().(*testMsg).val)
		}))
		return nil
	}))
	for i := 1; i <= 4; i++ {
		loop.PostMessage(&testMsg{val: i})
	}
	t0 := time.Unix(0, 0)
	loop.Dispatch(context.Background(), t0)
	require.Equal(t, []int{2, 4}, taken)
	require.Equal(t, []int{1, 3}, observed)

	// leftovers are not carried into the next pass.
	loop.Dispatch(context.Background(), t0.Add(time.Millisecond))
	require.Equal(t, []int{1, 3}, observed)
}

func TestLoopStopProcessing(t *testing.T) {
	loop := NewLoop()
	var first, rest []int
	loop.AddController(PrLvCommand, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			first = append(first, mc.CurrentMessage().(*testMsg).val)
			mc.MessageTaken()
			mc.StopProcessing()
		}))
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			rest = append(rest, mc.CurrentMessage().(*testMsg).val)
		}))
		return nil
	}))
	for i := 1; i <= 3; i++ {
		loop.PostMessage(&testMsg{val: i})
	}
	loop.Dispatch(context.Background(), time.Unix(0, 0))
	require.Equal(t, []int{1}, first)
	require.Equal(t, []int{2, 3}, rest)
}

func TestLoopPostRunHooks(t *testing.T) {
	loop := NewLoop()
	var calls int
	loop.AddController(PrLvAcuate, ControlFunc(func(cc ControlContext) error {
		if cc.Tick() == 1 {
			cc.PostRun(ControlFunc(func(ControlContext) error {
				calls++
				return nil
			}))
		}
		return nil
	}))
	t0 := time.Unix(0, 0)
	loop.Dispatch(context.Background(), t0)
	loop.Dispatch(context.Background(), t0.Add(time.Second))
	require.Equal(t, 1, calls)
}

func TestLoopRunWakesUpOnTrigger(t *testing.T) {
	loop := NewLoop().WithPeriod(time.Hour)
	got := make(chan int, 4)
	loop.AddController(PrLvCommand, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			mc.MessageTaken()
			got <- mc.CurrentMessage().(*testMsg).val
		}))
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.PostMessage(&testMsg{val: 7})
	loop.TriggerNext()
	select {
	case val := <-got:
		require.Equal(t, 7, val)
	case <-time.After(5 * time.Second):
		t.Fatal("message not dispatched")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
}
