package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wheel.go/pkg/bridge"
	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
	"github.com/robotalks/wheel.go/pkg/env"
	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a running loop with a bridge client.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	URL    string
	Loop   *fx.Loop
	Client *bridge.Client

	events chan *bridge.Inbound
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// watchTopic subscribes every topic including replies.
	watchTopic = "#"

	eventBuffer = 64
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout waiting for replies.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatMessage prints a message into friendly string for display.
func FormatMessage(msg msgs.SerializableMessage) string {
	return fmt.Sprintf("%s %s",
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		msg.Serializable().String())
}

// PrintMessage prints a message as configured.
func PrintMessage(c *ishell.Context, prefix string, msg msgs.SerializableMessage) error {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(msg.Serializable())
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(prefix + string(out))
		return nil
	}
	c.Println(prefix + FormatMessage(msg))
	return nil
}

// Publish publishes a message on topic.
func Publish(c *ishell.Context, topic string, msg fx.Message) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	if err := s.Conn.Client.Publish(topic, msg); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// DoRequest sends a request and waits for the reply.
func DoRequest(c *ishell.Context, topic string, msg fx.Message) (err error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err = fmt.Errorf("not connected")
		c.Err(err)
		return
	}
	f := s.Conn.Client.Request(topic, msg)
	select {
	case res := <-f.ResultChan():
		if res.Err != nil {
			c.Err(res.Err)
			return res.Err
		}
		return PrintMessage(c, "", res.Msg)
	case <-time.After(timeout):
		c.Err(fmt.Errorf("request timeout"))
		return context.DeadlineExceeded
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect connects the bridge at url.
func (s *Shell) Connect(url string) error {
	rw, err := s.Config.NewTransport(url, env.TransportOptions{SubTopics: []string{watchTopic}})
	if err != nil {
		return err
	}
	conn := &Conn{
		URL:    url,
		Client: bridge.NewClient(rw, watchTopic),
		events: make(chan *bridge.Inbound, eventBuffer),
	}
	conn.Client.Expiration = timeout
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	conn.Loop = fx.NewLoop().Add(conn.Client)
	conn.Loop.AddController(fx.PrLvNormal, fx.ControlFunc(conn.collectEvents))
	if s.Conn != nil {
		s.Conn.Cancel()
	}
	s.Conn = conn
	go conn.Loop.Run(conn.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
	return nil
}

// Disconnect disconnects current bridge.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// collectEvents keeps the latest unsolicited messages for watch.
func (c *Conn) collectEvents(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		in, ok := mc.CurrentMessage().(*bridge.Inbound)
		if !ok {
			return
		}
		mc.MessageTaken()
		select {
		case c.events <- in:
		default:
			// drop the oldest.
			select {
			case <-c.events:
			default:
			}
			c.events <- in
		}
	}))
	return nil
}

// Events returns the channel of unsolicited messages.
func (c *Conn) Events() <-chan *bridge.Inbound {
	return c.events
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && len(s.Config.BridgeURLs) > 0 {
		url := s.Config.BridgeURLs[0]
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", url)
		}
		if err := s.Connect(url); err != nil {
			log.Fatalf("connect %q failed: %v", url, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a bridge.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var url string
			switch {
			case len(c.Args) > 0:
				url = c.Args[0]
			case len(s.Config.BridgeURLs) == 1:
				url = s.Config.BridgeURLs[0]
			case len(s.Config.BridgeURLs) > 1:
				if !s.Interactive {
					c.Err(fmt.Errorf("more than 1 bridges configured in non-interactive mode"))
					return
				}
				url = s.Config.BridgeURLs[s.Shell.MultiChoice(s.Config.BridgeURLs, "Which one to connect?")]
			default:
				c.Err(fmt.Errorf("URL required"))
				return
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects current bridge.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// WatchCmd prints messages published by the nodes.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[TOPIC-PATTERN] [COUNT]",
		Func: MustBeConnected(func(c *ishell.Context) {
			pattern, count := "#", 10
			if len(c.Args) > 0 {
				pattern = c.Args[0]
			}
			if len(c.Args) > 1 {
				if _, err := fmt.Sscanf(c.Args[1], "%d", &count); err != nil {
					c.Err(fmt.Errorf("invalid COUNT: %v", err))
					return
				}
			}
			events := ShellFrom(c).Conn.Events()
			for n := 0; n < count; {
				select {
				case in := <-events:
					if !bridge.MatchTopic(in.Topic, pattern) {
						continue
					}
					PrintMessage(c, in.Topic+": ", in.Msg)
					n++
				case <-time.After(timeout):
					return
				}
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
