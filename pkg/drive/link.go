package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// DefaultFrameTimeout is the silence after which a partial frame is dropped.
// A frame takes less than 1ms on the line at 115200 baud.
const DefaultFrameTimeout = 10 * time.Millisecond

// FrameHandler is called when a frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, *Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, *Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// Sender sends frames to the drive.
type Sender interface {
	Send(Frame) error
}

// FrameMsg carries a received frame into the loop.
type FrameMsg struct {
	Frame Frame
}

// NewMessage implements Message.
func (m *FrameMsg) NewMessage() fx.Message { return &FrameMsg{} }

// Link sends frames to and receives frames from the drive over a byte stream.
// Without a Handler, received frames are posted to the loop as FrameMsg.
type Link struct {
	ReadWriter  io.ReadWriter
	Handler     FrameHandler
	Timeout     time.Duration
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read

	lock   sync.Mutex
	parser Parser
}

// NewLink creates a Link.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{ReadWriter: rw, Timeout: DefaultFrameTimeout}
}

// Send implements Sender.
func (l *Link) Send(f Frame) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	glog.V(3).Infof("TX %s", f)
	if _, err := l.ReadWriter.Write(f[:]); err != nil {
		return fmt.Errorf("write drive: %v", err)
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (l *Link) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(l)
}

// Close implements io.Closer.
func (l *Link) Close() error {
	if closer, ok := l.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	defer l.Close()
	if l.ReadTimeout {
		buf := make([]byte, 64)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := l.ReadWriter.Read(buf)
			if err != nil && !os.IsTimeout(err) {
				return err
			}
			if n == 0 {
				l.parser.Timeout()
				continue
			}
			l.consume(ctx, buf[:n])
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, chunkCh, errCh)
	var timer <-chan time.Time
	for {
		select {
		case chunk := <-chunkCh:
			l.consume(ctx, chunk)
			timer = nil
			if l.parser.Pending() > 0 {
				timer = time.After(l.frameTimeout())
			}
		case <-timer:
			glog.V(2).Infof("drop %d bytes of partial frame", l.parser.Pending())
			l.parser.Timeout()
			timer = nil
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) frameTimeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return DefaultFrameTimeout
}

func (l *Link) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, 64)
		n, err := l.ReadWriter.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case chunkCh <- buf[:n]:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) consume(ctx context.Context, data []byte) {
	for _, b := range data {
		f := l.parser.Parse(b)
		if f == nil {
			continue
		}
		glog.V(3).Infof("RX %s", f)
		if h := l.Handler; h != nil {
			h.HandleFrame(ctx, f)
			continue
		}
		loopCtl := fx.LoopCtlFrom(ctx)
		loopCtl.PostMessage(&FrameMsg{Frame: *f})
		loopCtl.TriggerNext()
	}
}

// Init brings the drive into speed control mode, waiting delay after each
// command so the drive can apply it.
func Init(ctx context.Context, s Sender, deviceID byte, delay time.Duration) error {
	for _, f := range InitSequence(deviceID) {
		if err := s.Send(f); err != nil {
			return fmt.Errorf("init drive %d: %v", deviceID, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}
