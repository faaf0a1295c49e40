// Package wheel adds shell commands driving the wheel nodes.
package wheel

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
	"github.com/robotalks/wheel.go/pkg/cli/sh"
	node "github.com/robotalks/wheel.go/pkg/wheel"
)

var topics = node.DefaultTopics("")

// ParseVelocity parses LINEAR(m/s) [ANGULAR(rad/s)].
func ParseVelocity(args []string) (*msgs.Twist, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("LINEAR required")
	}
	linear, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LINEAR: %v", err)
	}
	var angular float64
	if len(args) > 1 {
		if angular, err = strconv.ParseFloat(args[1], 64); err != nil {
			return nil, fmt.Errorf("invalid ANGULAR: %v", err)
		}
	}
	return msgs.NewTwist(linear, angular), nil
}

var (
	// VelocityCmd publishes a velocity command.
	VelocityCmd = ishell.Cmd{
		Name:    "vel",
		Aliases: []string{"v"},
		Help:    "LINEAR(m/s) [ANGULAR(rad/s)]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			twist, err := ParseVelocity(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Publish(c, topics.CmdVel, twist)
		}),
	}

	// StopCmd publishes a zero velocity command.
	StopCmd = ishell.Cmd{
		Name:    "stop",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Publish(c, topics.CmdVel, msgs.NewTwist(0, 0))
		}),
	}

	// CheckCmd checks the nodes are alive.
	CheckCmd = ishell.Cmd{
		Name:    "check",
		Aliases: []string{"ping"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, topics.ComCheck, &msgs.Int32{})
		}),
	}

	// RebootCmd asks the nodes to restart.
	RebootCmd = ishell.Cmd{
		Name:    "reboot",
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoRequest(c, topics.Reboot, &msgs.TriggerRequest{})
		}),
	}
)

func init() {
	sh.AddCmds(
		&VelocityCmd,
		&StopCmd,
		&CheckCmd,
		&RebootCmd,
	)
}
