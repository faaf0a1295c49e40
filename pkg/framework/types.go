// Package framework provides the cooperative control loop: a single
// goroutine running priority-ordered controllers once per pass, fed by
// messages from background Runnables.
package framework

import (
	"context"
	"time"
)

// Named is implemented by Runnables which want a readable name in logs.
type Named interface {
	Name() string
}

// Runnable is a background activity, typically a transport reader, started
// by the loop and stopped by canceling the context.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything delivered into the loop with PostMessage.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// MessageHandler receives messages outside of the loop goroutine.
type MessageHandler interface {
	HandleMessage(context.Context, Message)
}

// HandleMessageFunc is the func form of MessageHandler.
type HandleMessageFunc func(context.Context, Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Controller runs once per pass at its priority level. It must not block.
type Controller interface {
	Control(ControlContext) error
}

// ControlContext is the state of the current pass.
type ControlContext interface {
	// Time is the time of the pass. All controllers of a pass see the same
	// time.
	Time() time.Time
	// Ticked reports whether this pass serves the periodic tick.
	// Passes woken up by TriggerNext are not ticked.
	Ticked() bool
	// Tick is the sequence number of the latest tick.
	Tick() uint64
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages holds the messages posted before the pass started. Messages
	// nobody takes are dropped at the end of the pass.
	Messages() MessageStore
	// PostRun adds one-shot hooks run after the controllers of the
	// current priority level. Hooks added from a hook run in the next pass.
	PostRun(hooks ...Controller)

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Priority levels, lower runs first.
const (
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvCommand handles inbound commands, so a command received in a
	// pass is applied before sensing.
	PrLvCommand = PrLvHigh
	// PrLvAcuate drives actuators.
	PrLvAcuate = PrLvNormal
	// PrLvSense polls sensors and publishes telemetry.
	PrLvSense = PrLvLow
	// PrLvPostProc supervises the outcome of the pass.
	PrLvPostProc = PrLvIdle - 1
)

// LoopControl is safe to use from any goroutine.
type LoopControl interface {
	// PreRunAt adds one-shot hooks run before the controllers the next
	// time the priority level runs.
	PreRunAt(priorityLevel int, controllers ...Controller)
	// PostRunAt adds one-shot hooks run after the controllers the next
	// time the priority level runs.
	PostRunAt(priorityLevel int, controllers ...Controller)
	// PostMessage enqueues the message for the next pass.
	PostMessage(Message)
	// TriggerNext requests a pass without waiting for the tick.
	TriggerNext()
}

// MessageStore provides read/write access to the messages of a pass.
type MessageStore interface {
	// ProcessMessages visits the messages in order of arrival.
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends messages seen by the controllers running later
// in the same pass.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()

	MessageAppender
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}
