// Package env holds the pieces shared by device and host setups.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the protected machine ID so it cannot be traced back to the
// raw /etc/machine-id.
const AppID = "i2cslave"

// MachineID returns an ID identifying this machine. It falls back to the
// hostname where no machine ID is available.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
