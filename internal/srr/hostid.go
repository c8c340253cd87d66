package srr

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

const machineIDPath = "/etc/machine-id"

// hostUUID returns a stable identifier for the current host, read from
// /etc/machine-id where available. Non-Linux dev machines (or any host
// lacking the file) fall back to a freshly generated UUID — it will not
// match across restarts, which never fails a restore: restore does not
// compare the saved platform id with this host's (spec.md §4.5).
func hostUUID() string {
	data, err := os.ReadFile(machineIDPath)
	if err != nil {
		return uuid.NewString()
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return uuid.NewString()
	}
	return id
}
