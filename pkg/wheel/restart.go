package wheel

import (
	"os"

	"github.com/golang/glog"
)

// Restarter restarts the node. It's called at most once.
type Restarter interface {
	Restart(reason string)
}

// RestartFunc is the func form of Restarter.
type RestartFunc func(reason string)

// Restart implements Restarter.
func (f RestartFunc) Restart(reason string) {
	f(reason)
}

// ExitRestarter exits the process and leaves the restart to the
// supervisor (systemd, container runtime).
type ExitRestarter struct {
	Code int
	// Exit defaults to os.Exit.
	Exit func(int)
}

// DefaultExitCode is used by ExitRestarter when Code is zero.
const DefaultExitCode = 3

// Restart implements Restarter.
func (r *ExitRestarter) Restart(reason string) {
	glog.Errorf("restarting: %s", reason)
	glog.Flush()
	code := r.Code
	if code == 0 {
		code = DefaultExitCode
	}
	exit := r.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(code)
}
