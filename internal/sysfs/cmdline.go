package sysfs

import (
	"fmt"
	"strings"
)

// Cmdline is the parsed kernel command line: bare flags map to an empty
// string, key=value tokens keep their value.
type Cmdline map[string]string

// Has reports whether a flag or key was present.
func (c Cmdline) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Value returns the value of a key=value token, or empty.
func (c Cmdline) Value(key string) string {
	return c[key]
}

// Nomodeset reports whether kernel modesetting was disabled at boot. This is
// the switch that routes diagnosis to the firmware-framebuffer flow.
func (c Cmdline) Nomodeset() bool {
	return c.Has("nomodeset")
}

// ReadCmdline parses the kernel command line from the configured path.
func (s *System) ReadCmdline() (Cmdline, error) {
	res := s.r.ReadFile(s.paths.ProcCmdline)
	if !res.OK() {
		return nil, fmt.Errorf("read %s: %s", s.paths.ProcCmdline, res.State)
	}

	cmdline := make(Cmdline)
	for _, token := range strings.Fields(res.Content) {
		key, value, _ := strings.Cut(token, "=")
		cmdline[key] = value
	}
	return cmdline, nil
}
