package wheel

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/bridge"
	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
	"github.com/robotalks/wheel.go/pkg/drive"
	fx "github.com/robotalks/wheel.go/pkg/framework"
	"github.com/robotalks/wheel.go/pkg/imu"
)

// Diagonal covariances published with inertial telemetry.
const (
	AngularVelocityVariance    = 0.02
	LinearAccelerationVariance = 0.04
)

// Node wires the drive, the IMU and the bridge into the loop.
// All its state is touched only from the loop goroutine.
type Node struct {
	Role         Role
	DeviceID     byte
	Converter    drive.Converter
	Differential drive.Differential
	Topics       Topics
	IMUFrameID   string
	ReplyTimeout time.Duration
	RebootGrace  time.Duration

	Drive     drive.Sender
	Publisher bridge.Publisher
	IMU       *imu.Filter
	Restarter Restarter
	Watchdog  *Watchdog

	velocity    *msgs.Twist
	readPending bool
	readSentAt  time.Time
	misses      uint64
	rebootAt    time.Time
	restarted   bool
}

// NewNode creates a Node from config.
func NewNode(conf *Config, d drive.Sender, pub bridge.Publisher, restarter Restarter) (*Node, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	role, _ := conf.RoleInfo()
	mode, _ := ParseLivenessMode(conf.LivenessMode)
	return &Node{
		Role:         role,
		DeviceID:     byte(conf.DeviceID),
		Converter:    conf.Converter(),
		Differential: conf.Differential(),
		Topics:       conf.Topics(),
		IMUFrameID:   conf.IMUFrameID,
		ReplyTimeout: conf.ReplyTimeout,
		RebootGrace:  conf.RebootGrace,
		Drive:        d,
		Publisher:    pub,
		Restarter:    restarter,
		Watchdog:     NewWatchdog(conf.LivenessTimeout, mode),
	}, nil
}

// WithIMU enables inertial telemetry from a calibrated filter.
func (n *Node) WithIMU(f *imu.Filter) *Node {
	n.IMU = f
	return n
}

// Misses returns the number of drive reads without a valid reply in time.
func (n *Node) Misses() uint64 {
	return n.misses
}

// AddToLoop implements LoopAdder.
func (n *Node) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvCommand, fx.ControlFunc(n.handleCommands))
	loop.AddController(fx.PrLvAcuate, fx.ControlFunc(n.actuate))
	loop.AddController(fx.PrLvSense, fx.ControlFunc(n.sense))
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(n.supervise))
}

func (n *Node) handleCommands(cc fx.ControlContext) error {
	now := cc.Time()
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		in, ok := mc.CurrentMessage().(*bridge.Inbound)
		if !ok {
			return
		}
		mc.MessageTaken()
		switch in.Topic {
		case n.Topics.CmdVel:
			if twist, ok := in.Msg.(*msgs.Twist); ok {
				if linear, angular := twist.Planar(); !finite(linear) || !finite(angular) {
					glog.Warningf("%s: dropped velocity linear=%v angular=%v", in.Topic, linear, angular)
					return
				}
				// only the latest command in a pass is applied.
				n.velocity = twist
				n.Watchdog.Touch(now)
				return
			}
		case n.Topics.ComCheck:
			if _, ok := in.Msg.(*msgs.Int32); ok {
				n.Watchdog.Touch(now)
				n.reply(in, &msgs.Int32{Data: 1})
				return
			}
		case n.Topics.Reboot:
			if _, ok := in.Msg.(*msgs.TriggerRequest); ok {
				n.scheduleReboot(in, now)
				return
			}
		default:
			glog.V(1).Infof("%s: ignored %T", in.Topic, in.Msg)
			return
		}
		glog.Warningf("%s: unexpected message %T", in.Topic, in.Msg)
	}))
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (n *Node) reply(in *bridge.Inbound, msg fx.Message) {
	if err := n.Publisher.Reply(bridge.ReplyTopic(in.Topic), in.Sequence, msg); err != nil {
		glog.Warningf("%s: reply error: %v", in.Topic, err)
	}
}

func (n *Node) scheduleReboot(in *bridge.Inbound, now time.Time) {
	if n.rebootAt.IsZero() {
		n.rebootAt = now.Add(n.RebootGrace)
	}
	n.reply(in, &msgs.TriggerResponse{
		Success: true,
		Message: fmt.Sprintf("rebooting in %v", n.rebootAt.Sub(now)),
	})
	glog.Warningf("reboot requested, restart at %v", n.rebootAt)
}

func (n *Node) actuate(cc fx.ControlContext) error {
	twist := n.velocity
	if twist == nil {
		return nil
	}
	n.velocity = nil
	linear, angular := twist.Planar()
	dec := n.Converter.ToDEC(n.Differential.WheelSpeed(linear, angular))
	glog.V(1).Infof("velocity linear=%v angular=%v dec=%d", linear, angular, dec)
	if err := n.Drive.Send(drive.SetSpeedCommand(n.DeviceID, dec)); err != nil {
		glog.Warningf("set speed: %v", err)
	}
	return nil
}

func (n *Node) sense(cc fx.ControlContext) error {
	now := cc.Time()
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		msg, ok := mc.CurrentMessage().(*drive.FrameMsg)
		if !ok {
			return
		}
		mc.MessageTaken()
		if dec, ok := drive.Decode(msg.Frame.Bytes(), n.DeviceID, drive.RegActualSpeed); ok {
			n.readPending = false
			n.publishSpeed(now, dec)
		}
	}))

	if !cc.Ticked() {
		return nil
	}
	if n.readPending && now.Sub(n.readSentAt) >= n.ReplyTimeout {
		n.misses++
		glog.V(1).Infof("drive read missed (%d)", n.misses)
	}
	if err := n.Drive.Send(drive.ReadSpeedRequest(n.DeviceID)); err != nil {
		glog.V(1).Infof("read speed: %v", err)
		n.readPending = false
	} else {
		n.readPending, n.readSentAt = true, now
	}

	if n.IMU != nil && n.IMU.Update() {
		n.publish(n.Topics.IMU, n.inertial(now, n.IMU.Data()))
	}
	return nil
}

func (n *Node) publishSpeed(now time.Time, dec int32) {
	n.publish(n.Topics.Vel, &msgs.TwistStamped{
		Header: msgs.NewHeader(now, n.Role.Name),
		Twist:  msgs.NewTwist(n.Converter.FromDEC(dec), 0),
	})
}

func (n *Node) inertial(now time.Time, s imu.Sample) *msgs.Imu {
	accel, gyro := s.SI()
	return &msgs.Imu{
		Header:                       msgs.NewHeader(now, n.IMUFrameID),
		Orientation:                  &msgs.Quaternion{},
		OrientationCovariance:        []float64{-1, 0, 0, 0, 0, 0, 0, 0, 0},
		AngularVelocity:              &msgs.Vector3{X: gyro[imu.X], Y: gyro[imu.Y], Z: gyro[imu.Z]},
		AngularVelocityCovariance:    diagonal(AngularVelocityVariance),
		LinearAcceleration:           &msgs.Vector3{X: accel[imu.X], Y: accel[imu.Y], Z: accel[imu.Z]},
		LinearAccelerationCovariance: diagonal(LinearAccelerationVariance),
	}
}

func diagonal(v float64) []float64 {
	return []float64{v, 0, 0, 0, v, 0, 0, 0, v}
}

func (n *Node) publish(topic string, msg fx.Message) {
	if err := n.Publisher.Publish(topic, msg); err != nil {
		glog.V(1).Infof("%s: publish error: %v", topic, err)
	}
}

func (n *Node) supervise(cc fx.ControlContext) error {
	now := cc.Time()
	prev := n.Watchdog.State()
	if n.Watchdog.Check(now) {
		n.restart(fmt.Sprintf("no command since %v (%s)", n.Watchdog.LastReceived(), prev))
		return nil
	}
	if !n.rebootAt.IsZero() && !now.Before(n.rebootAt) {
		n.restart("reboot requested")
	}
	return nil
}

func (n *Node) restart(reason string) {
	if n.restarted {
		return
	}
	n.restarted = true
	glog.Errorf("restart: %s", reason)
	if err := n.Drive.Send(drive.SetSpeedCommand(n.DeviceID, 0)); err != nil {
		glog.Warningf("stop drive: %v", err)
	}
	n.Restarter.Restart(reason)
}
