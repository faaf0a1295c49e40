package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine. The host name
// is used when the machine ID is not available.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil {
		return id
	}
	host, herr := os.Hostname()
	if herr != nil {
		glog.Warningf("machine ID unavailable: %v, %v", err, herr)
		return "unknown"
	}
	glog.V(1).Infof("machine ID unavailable: %v, use host name %q", err, host)
	return host
}
