package domain

import "strings"

// ConnStatus is a connector's reported connection status.
type ConnStatus string

const (
	ConnStatusConnected    ConnStatus = "connected"
	ConnStatusDisconnected ConnStatus = "disconnected"
	ConnStatusUnknown      ConnStatus = "unknown"
)

// Identity holds device identity attributes for a controller, merged from the
// per-attribute sysfs files and the uevent record. All fields are optional;
// heterogeneous drivers export different subsets.
type Identity struct {
	Vendor          string `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	Device          string `yaml:"device,omitempty" json:"device,omitempty"`
	SubsystemVendor string `yaml:"subsystem_vendor,omitempty" json:"subsystem_vendor,omitempty"`
	SubsystemDevice string `yaml:"subsystem_device,omitempty" json:"subsystem_device,omitempty"`
	Class           string `yaml:"class,omitempty" json:"class,omitempty"`
	Driver          string `yaml:"driver,omitempty" json:"driver,omitempty"`
	PCIID           string `yaml:"pci_id,omitempty" json:"pci_id,omitempty"`
	Modalias        string `yaml:"modalias,omitempty" json:"modalias,omitempty"`
}

// Brief returns the short identity summary used in evidence messages.
func (id Identity) Brief() string {
	parts := make([]string, 0, 4)
	appendKV := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	appendKV("DRIVER", id.Driver)
	appendKV("PCI_ID", id.PCIID)
	appendKV("vendor", id.Vendor)
	appendKV("device", id.Device)
	appendKV("class", id.Class)
	if len(parts) == 0 {
		return "<partial>"
	}
	return strings.Join(parts, ", ")
}

// RuntimePM is a snapshot of a controller's runtime power-management state.
type RuntimePM struct {
	Status           string `yaml:"status,omitempty" json:"status,omitempty"`
	SuspendedTime    string `yaml:"suspended_time,omitempty" json:"suspended_time,omitempty"`
	ActiveTime       string `yaml:"active_time,omitempty" json:"active_time,omitempty"`
	Control          string `yaml:"control,omitempty" json:"control,omitempty"`
	AutosuspendDelay string `yaml:"autosuspend_delay_ms,omitempty" json:"autosuspend_delay_ms,omitempty"`
}

// Empty reports whether no runtime-PM attribute was readable.
func (pm RuntimePM) Empty() bool {
	return pm == RuntimePM{}
}

// ControllerNode is one enumerated graphics controller (a sysfs cardN entry).
// It is an immutable snapshot taken once per pipeline run.
type ControllerNode struct {
	Index    int       `yaml:"index" json:"index"`
	Name     string    `yaml:"name" json:"name"`
	Driver   string    `yaml:"driver,omitempty" json:"driver,omitempty"`
	Identity Identity  `yaml:"identity" json:"identity"`
	PM       RuntimePM `yaml:"runtime_pm,omitempty" json:"runtime_pm,omitempty"`
}

// HasDriver reports whether a driver-binding symlink was resolved.
func (c ControllerNode) HasDriver() bool {
	return c.Driver != ""
}

// Connector is one display connector belonging to a controller. Fields are
// read with independent failure tolerance: a missing attribute degrades
// information richness, not pipeline success.
type Connector struct {
	Name       string     `yaml:"name" json:"name"`
	Controller string     `yaml:"controller" json:"controller"`
	Status     ConnStatus `yaml:"status" json:"status"`
	Enabled    string     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	DPMS       string     `yaml:"dpms,omitempty" json:"dpms,omitempty"`
	ModeCount  int        `yaml:"modes" json:"modes"`
	EDIDBytes  int64      `yaml:"edid_bytes" json:"edid_bytes"`
	LinkStatus string     `yaml:"link_status,omitempty" json:"link_status,omitempty"`
}

// Connected reports whether the connector negotiated presence of a sink.
func (c Connector) Connected() bool {
	return c.Status == ConnStatusConnected
}

// DeviceNode is one /dev/dri entry.
type DeviceNode struct {
	Name    string `yaml:"name" json:"name"`
	CharDev bool   `yaml:"chardev" json:"chardev"`
	Major   uint32 `yaml:"major,omitempty" json:"major,omitempty"`
	Minor   uint32 `yaml:"minor,omitempty" json:"minor,omitempty"`
}

// DeviceNodeSet partitions the exposed device-special files into primary
// (control) nodes a compositor opens for KMS, and render-only nodes.
type DeviceNodeSet struct {
	Primary []DeviceNode `yaml:"primary,omitempty" json:"primary,omitempty"`
	Render  []DeviceNode `yaml:"render,omitempty" json:"render,omitempty"`
	Other   []DeviceNode `yaml:"other,omitempty" json:"other,omitempty"`
}

// Empty reports whether no device nodes were found at all.
func (s DeviceNodeSet) Empty() bool {
	return len(s.Primary) == 0 && len(s.Render) == 0 && len(s.Other) == 0
}

// Names returns all node names in primary, render, other order.
func (s DeviceNodeSet) Names() []string {
	var names []string
	for _, n := range s.Primary {
		names = append(names, n.Name)
	}
	for _, n := range s.Render {
		names = append(names, n.Name)
	}
	for _, n := range s.Other {
		names = append(names, n.Name)
	}
	return names
}
