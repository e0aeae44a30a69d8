package host

import (
	"os"
	"path/filepath"
	"sort"
)

// PortInfo describes one candidate serial port.
type PortInfo struct {
	Name string // device path, e.g. /dev/ttyACM0
}

// serialGlobs are the device-name patterns boards show up under.
var serialGlobs = []string{
	"/dev/ttyACM*", // Linux CDC-ACM (micro:bit and friends)
	"/dev/ttyUSB*", // Linux USB-serial bridges
	"/dev/cu.usbmodem*",
	"/dev/cu.usbserial*",
}

// ListPorts enumerates serial ports that look like attached boards.
func ListPorts() []PortInfo {
	var ports []PortInfo
	for _, pattern := range serialGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, name := range matches {
			ports = append(ports, PortInfo{Name: name})
		}
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports
}

// OpenPort opens a serial device for the connection. Line settings
// (115200 8N1) are assumed to be the device default; boards enumerate
// as CDC-ACM, where the baud rate is virtual.
func OpenPort(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_RDWR, 0)
}
