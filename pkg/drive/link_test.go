package drive_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wheel.go/pkg/drive"
	"github.com/robotalks/wheel.go/pkg/drive/drivesim"
	fx "github.com/robotalks/wheel.go/pkg/framework"
)

func TestLinkWithSimulatedDrive(t *testing.T) {
	sim := drivesim.New(0x01)
	link := drive.NewLink(sim)
	frameCh := make(chan drive.Frame, 4)
	link.Handler = drive.HandleFrameFunc(func(_ context.Context, f *drive.Frame) {
		frameCh <- *f
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doneCh := make(chan error, 1)
	go func() { doneCh <- link.Run(ctx) }()

	require.NoError(t, drive.Init(ctx, link, 0x01, time.Millisecond))
	require.True(t, sim.Enabled())

	require.NoError(t, link.Send(drive.SetSpeedCommand(0x01, 97097)))
	require.Equal(t, int32(97097), sim.Target())
	require.NoError(t, link.Send(drive.ReadSpeedRequest(0x01)))

	select {
	case f := <-frameCh:
		value, ok := drive.Decode(f[:], 0x01, drive.RegActualSpeed)
		require.True(t, ok)
		require.Equal(t, int32(97097), value)
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
	}

	cancel()
	require.Equal(t, context.Canceled, <-doneCh)
}

func TestLinkPostsFramesToLoop(t *testing.T) {
	sim := drivesim.New(0x02)
	link := drive.NewLink(sim)
	loop := fx.NewLoop().WithPeriod(time.Hour)
	loop.Add(link)
	valueCh := make(chan int32, 1)
	loop.AddController(fx.PrLvSense, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
			if msg, ok := mc.CurrentMessage().(*drive.FrameMsg); ok {
				mc.MessageTaken()
				if value, ok := drive.Decode(msg.Frame[:], 0x02, drive.RegActualSpeed); ok {
					valueCh <- value
				}
			}
		}))
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// disabled drive reports zero speed.
	require.NoError(t, link.Send(drive.ReadSpeedRequest(0x02)))
	select {
	case value := <-valueCh:
		require.Equal(t, int32(0), value)
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
	}
}

func TestInitCanceled(t *testing.T) {
	sim := drivesim.New(0x01)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, drive.Init(ctx, drive.NewLink(sim), 0x01, time.Hour))
	require.Len(t, sim.Frames(), 1)
}

// scriptedPort returns one chunk per Read, an empty chunk being a read
// timeout of the serial port, and io.EOF at the end.
type scriptedPort struct {
	chunks [][]byte
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := p.chunks[0]
	p.chunks = p.chunks[1:]
	return copy(b, chunk), nil
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	return len(b), nil
}

func TestLinkReadTimeoutDropsPartialFrame(t *testing.T) {
	f1 := drivesim.Response(0x01, drive.RegActualSpeed, 1000)
	f2 := drivesim.Response(0x01, drive.RegActualSpeed, -1000)
	link := drive.NewLink(&scriptedPort{chunks: [][]byte{
		f1[:5], {}, f1[5:], {}, f2[:],
	}})
	link.ReadTimeout = true
	var frames []drive.Frame
	link.Handler = drive.HandleFrameFunc(func(_ context.Context, f *drive.Frame) {
		frames = append(frames, *f)
	})
	require.Equal(t, io.EOF, link.Run(context.Background()))
	require.Equal(t, []drive.Frame{f2}, frames)
}
