package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path
	EnvConfigPath = "DRMDIAG_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "drmdiag.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "drmdiag"
)

// Paths holds the filesystem roots of every kernel-exported namespace the
// tool reads. It is process-wide configuration, not mutable state: build it
// once and inject it into every component. Tests point the roots at a fake
// state tree.
type Paths struct {
	// SysClassDRM is the DRM sysfs class directory (controllers and
	// connectors).
	SysClassDRM string `yaml:"sys_class_drm"`
	// SysClassGraphics is the fbdev sysfs class directory.
	SysClassGraphics string `yaml:"sys_class_graphics"`
	// SysModule is the module-parameter namespace root.
	SysModule string `yaml:"sys_module"`
	// DevDRI is the device-special-file directory.
	DevDRI string `yaml:"dev_dri"`
	// DevFB0 is the firmware framebuffer device node.
	DevFB0 string `yaml:"dev_fb0"`
	// Debugfs is the privileged introspection root.
	Debugfs string `yaml:"debugfs"`
	// Tracefs is the event-tracing subsystem root.
	Tracefs string `yaml:"tracefs"`
	// ProcCmdline is the kernel command line.
	ProcCmdline string `yaml:"proc_cmdline"`
}

// DefaultPaths returns the canonical kernel mount points.
func DefaultPaths() Paths {
	return Paths{
		SysClassDRM:      "/sys/class/drm",
		SysClassGraphics: "/sys/class/graphics",
		SysModule:        "/sys/module",
		DevDRI:           "/dev/dri",
		DevFB0:           "/dev/fb0",
		Debugfs:          "/sys/kernel/debug",
		Tracefs:          "/sys/kernel/tracing",
		ProcCmdline:      "/proc/cmdline",
	}
}

// DRIDebug returns the DRM debugfs directory.
func (p Paths) DRIDebug() string {
	return filepath.Join(p.Debugfs, "dri")
}

// Card returns the sysfs directory of a controller by name (e.g. "card0").
func (p Paths) Card(name string) string {
	return filepath.Join(p.SysClassDRM, name)
}

// CardDebug returns the debugfs directory of a controller by index.
func (p Paths) CardDebug(index int) string {
	return filepath.Join(p.DRIDebug(), strconv.Itoa(index))
}

// TraceEventEnable returns the enable switch for one "category:name" event.
func (p Paths) TraceEventEnable(category, name string) string {
	return filepath.Join(p.Tracefs, "events", category, name, "enable")
}

// FindConfigPath searches for the config file in priority order:
//  1. $DRMDIAG_CONFIG (explicit path)
//  2. ./drmdiag.yaml (working directory)
//  3. $XDG_CONFIG_HOME/drmdiag/config.yaml
//  4. ~/.config/drmdiag/config.yaml
//  5. /etc/drmdiag/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	systemPath := filepath.Join("/etc", ConfigDirName, "config.yaml")
	if fileExists(systemPath) {
		return systemPath
	}

	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
