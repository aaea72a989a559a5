// Package sysfs interprets the kernel's DRM class tree: controller
// enumeration, driver bindings, device identity, connectors and module
// parameters. Everything here is a read-only snapshot; the package never
// opens a DRM device node or issues an ioctl, so it works on a machine whose
// display stack is too broken to open.
package sysfs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
)

var cardPattern = regexp.MustCompile(`^card(\d+)$`)

// System reads display topology from one machine's state tree.
type System struct {
	r     statefs.Reader
	paths config.Paths
}

// New builds a System over a state reader and path set.
func New(r statefs.Reader, paths config.Paths) *System {
	return &System{r: r, paths: paths}
}

// Controllers enumerates the registered DRM controllers, sorted by index.
// Connector entries (card0-eDP-1) and version files in the same class
// directory are skipped. An empty slice means no controller registered with
// the subsystem at all.
func (s *System) Controllers() ([]domain.ControllerNode, error) {
	entries, err := s.r.List(s.paths.SysClassDRM)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.paths.SysClassDRM, err)
	}

	var nodes []domain.ControllerNode
	for _, e := range entries {
		m := cardPattern.FindStringSubmatch(e.Name)
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		node := domain.ControllerNode{
			Index:    index,
			Name:     e.Name,
			Driver:   s.boundDriver(e.Name),
			Identity: s.identity(e.Name),
			PM:       s.runtimePM(e.Name),
		}
		if node.Identity.Driver == "" {
			node.Identity.Driver = node.Driver
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// boundDriver resolves the driver symlink under the controller's device
// directory. Empty means no driver has bound the device.
func (s *System) boundDriver(card string) string {
	target, err := s.r.ReadLink(filepath.Join(s.paths.Card(card), "device", "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}

// identity merges the per-attribute identity files with the uevent record.
// Every field is optional; drivers export different subsets and a partial
// identity is still worth reporting.
func (s *System) identity(card string) domain.Identity {
	dev := filepath.Join(s.paths.Card(card), "device")

	read := func(name string) string {
		return s.r.ReadFile(filepath.Join(dev, name)).Text()
	}

	id := domain.Identity{
		Vendor:          read("vendor"),
		Device:          read("device"),
		SubsystemVendor: read("subsystem_vendor"),
		SubsystemDevice: read("subsystem_device"),
		Class:           read("class"),
	}

	if res := s.r.ReadFile(filepath.Join(dev, "uevent")); res.OK() {
		for _, line := range strings.Split(res.Content, "\n") {
			key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
			if !ok {
				continue
			}
			switch key {
			case "DRIVER":
				id.Driver = value
			case "PCI_ID":
				id.PCIID = value
			case "MODALIAS":
				id.Modalias = value
			}
		}
	}
	return id
}

// DebugState reads the atomic state dump a controller exposes in debugfs.
// Requires root; absence is a normal unprivileged outcome.
func (s *System) DebugState(cardIndex int) statefs.Result {
	return s.r.ReadFile(filepath.Join(s.paths.CardDebug(cardIndex), "state"))
}

// runtimePM snapshots the controller's runtime power-management attributes.
func (s *System) runtimePM(card string) domain.RuntimePM {
	power := filepath.Join(s.paths.Card(card), "device", "power")

	read := func(name string) string {
		return s.r.ReadFile(filepath.Join(power, name)).Text()
	}

	return domain.RuntimePM{
		Status:           read("runtime_status"),
		SuspendedTime:    read("runtime_suspended_time"),
		ActiveTime:       read("runtime_active_time"),
		Control:          read("control"),
		AutosuspendDelay: read("autosuspend_delay_ms"),
	}
}
