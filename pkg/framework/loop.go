package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultPeriod is the tick period used when Loop.Period is not set.
const DefaultPeriod = 20 * time.Millisecond

// Loop is a single-threaded cooperative scheduler.
// Each pass runs all controllers once, in priority order. A pass is started
// either by the periodic tick or by a wake-up requested with TriggerNext.
// At most one tick is served per pass, and a late tick is never replayed.
type Loop struct {
	Period time.Duration
	Clock  Clock

	controllers [PriorityLevels]controllerList

	runners []Runnable

	messages messageList
	lock     sync.Mutex

	wakeUpCh chan struct{}
	nextTick time.Time
	ticks    uint64
}

// Clock provides the current time to the loop.
type Clock interface {
	Now() time.Time
}

// ClockFunc is the func form of Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the monotonic system clock.
var SystemClock Clock = ClockFunc(time.Now)

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtl struct {
	*Loop
}

type loopIteration struct {
	loopCtl
	ctx           context.Context
	time          time.Time
	ticked        bool
	tick          uint64
	priorityLevel int
	messages      messageList
}

type messageList struct {
	head *messageItem
	tail *messageItem
}

type messageItem struct {
	msg  Message
	next *messageItem
}

func (l *messageList) append(item *messageItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *messageList) splice(src *messageList) {
	l.head, l.tail, src.head = src.head, src.tail, nil
}

func (l *messageList) concat(lst *messageList) {
	if l.head == nil {
		l.head = lst.head
	} else {
		l.tail.next = lst.head
	}
	if lst.head != nil {
		l.tail = lst.tail
	}
}

type controllerList struct {
	preHooks    []Controller
	controllers []Controller
	postHooks   []Controller
	lock        sync.Mutex
}

var (
	loopCtxKey = &Loop{}
)

// LoopCtlFrom gets LoopCtl from context.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// CtlCtxFrom gets ControlContext from context.
func CtlCtxFrom(ctx context.Context) ControlContext {
	return ctx.Value(loopCtxKey).(ControlContext)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Period: DefaultPeriod, Clock: SystemClock}
}

// WithPeriod sets the tick period.
func (l *Loop) WithPeriod(period time.Duration) *Loop {
	l.Period = period
	return l
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	lst := &l.controllers[priorityLevel]
	lst.controllers = append(lst.controllers, ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Ticks returns the number of ticks served so far.
func (l *Loop) Ticks() uint64 {
	return l.ticks
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.initWakeUp()

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, &loopCtl{l}))
	runner.Go(l.runners...)
	defer runner.Wait()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-l.wakeUpCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		now := l.now()
		l.Dispatch(ctx, now)
		timer.Reset(l.untilNextTick(l.now()))
	}
}

// RunOrFail is intended to be used in main to simply run the loop
// until SIGINT/SIGTERM.
func (l *Loop) RunOrFail() {
	if err := NewRunner().HandleSignals().Go(l).Wait(); err != nil {
		glog.Exitf("loop stopped: %v", err)
	}
}

// Dispatch runs one pass at the specified time and reports whether the
// pass served a periodic tick. It must only be called from the goroutine
// owning the loop; Run calls it, and tests call it with a simulated clock.
func (l *Loop) Dispatch(ctx context.Context, now time.Time) bool {
	ticked := l.advance(now)
	iter := &loopIteration{loopCtl: loopCtl{l}, time: now, ticked: ticked, tick: l.ticks}
	l.lock.Lock()
	iter.messages.splice(&l.messages)
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey, iter)
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.controllers[i].run(iter)
	}
	// messages left by all controllers are stale, drop them.
	if glog.V(3) {
		for item := iter.messages.head; item != nil; item = item.next {
			glog.Infof("dropped unhandled message %T", item.msg)
		}
	}
	return ticked
}

// PreRunAt implements LoopCtl.
func (l *Loop) PreRunAt(priorityLevel int, hooks ...Controller) {
	lst := &l.controllers[priorityLevel]
	lst.lock.Lock()
	lst.preHooks = append(lst.preHooks, hooks...)
	lst.lock.Unlock()
}

// PostRunAt implements LoopCtl.
func (l *Loop) PostRunAt(priorityLevel int, hooks ...Controller) {
	lst := &l.controllers[priorityLevel]
	lst.lock.Lock()
	lst.postHooks = append(lst.postHooks, hooks...)
	lst.lock.Unlock()
}

// PostMessage implements LoopCtl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages.append(&messageItem{msg: msg})
	l.lock.Unlock()
}

// TriggerNext implements LoopCtl.
func (l *Loop) TriggerNext() {
	l.initWakeUp()
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) initWakeUp() {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	l.lock.Unlock()
}

func (l *Loop) now() time.Time {
	if l.Clock != nil {
		return l.Clock.Now()
	}
	return time.Now()
}

func (l *Loop) period() time.Duration {
	if l.Period > 0 {
		return l.Period
	}
	return DefaultPeriod
}

func (l *Loop) advance(now time.Time) bool {
	if !l.nextTick.IsZero() && now.Before(l.nextTick) {
		return false
	}
	l.ticks++
	next := l.nextTick.Add(l.period())
	if l.nextTick.IsZero() || !next.After(now) {
		next = now.Add(l.period())
	}
	l.nextTick = next
	return true
}

func (l *Loop) untilNextTick(now time.Time) time.Duration {
	if d := l.nextTick.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Ticked() bool {
	return t.ticked
}

func (t *loopIteration) Tick() uint64 {
	return t.tick
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Messages() MessageStore {
	return t
}

func (t *loopIteration) PostRun(hooks ...Controller) {
	t.PostRunAt(t.priorityLevel, hooks...)
}

// MessageStore implementations

type messageContext struct {
	iter  *loopIteration
	item  *messageItem
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message     { return c.item.msg }
func (c *messageContext) MessageTaken()               { c.taken = true }
func (c *messageContext) StopProcessing()             { c.stop = true }
func (c *messageContext) AddMessages(msgs ...Message) { c.iter.AddMessages(msgs...) }

func (t *loopIteration) ProcessMessages(proc MessageProcessor) {
	var msgs, remains messageList
	msgs.splice(&t.messages)
	for msgs.head != nil {
		mctx := &messageContext{iter: t, item: msgs.head}
		msgs.head = msgs.head.next
		mctx.item.next = nil
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains.append(mctx.item)
		}
		if mctx.stop {
			remains.concat(&msgs)
			break
		}
	}
	remains.concat(&t.messages)
	t.messages = remains
}

func (t *loopIteration) AddMessages(msgs ...Message) {
	for _, msg := range msgs {
		t.messages.append(&messageItem{msg: msg})
	}
}

func (c *controllerList) run(iter *loopIteration) {
	c.lock.Lock()
	ctls := c.preHooks
	c.preHooks = nil
	c.lock.Unlock()
	runControllers(iter, ctls)
	runControllers(iter, c.controllers)
	c.lock.Lock()
	ctls, c.postHooks = c.postHooks, nil
	c.lock.Unlock()
	runControllers(iter, ctls)
}

func runControllers(iter *loopIteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			glog.Errorf("controller error: %v", err)
		}
	}
}
