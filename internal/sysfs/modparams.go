package sysfs

import (
	"path/filepath"

	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
)

// modesetDrivers are the DRM drivers whose modeset parameter decides whether
// KMS is available at all. nvidia_drm is the interesting one: the kernel
// module can be loaded with modesetting disabled, which leaves Wayland
// compositors with nothing to drive.
var modesetDrivers = []string{"nvidia_drm", "i915", "amdgpu", "radeon"}

// ModesetParam is one driver's modeset parameter observation.
type ModesetParam struct {
	Module string `yaml:"module" json:"module"`
	Value  string `yaml:"value,omitempty" json:"value,omitempty"`
	// State distinguishes a module that is not loaded (Absent) from a
	// parameter that could not be read (Unreadable).
	State statefs.Presence `yaml:"-" json:"-"`
}

// Enabled interprets the parameter value. Kernel boolean params print Y/N;
// some drivers use 0/1/-1 where -1 means driver default.
func (p ModesetParam) Enabled() domain.TriState {
	switch p.Value {
	case "Y", "y", "1":
		return domain.True
	case "N", "n", "0":
		return domain.False
	default:
		return domain.Unknown
	}
}

// ModuleLoaded reports whether a kernel module is present in the module
// namespace (built-in or loaded).
func (s *System) ModuleLoaded(module string) bool {
	return s.r.Exists(filepath.Join(s.paths.SysModule, module))
}

// ModuleParam reads one module parameter.
func (s *System) ModuleParam(module, param string) statefs.Result {
	return s.r.ReadFile(filepath.Join(s.paths.SysModule, module, "parameters", param))
}

// ModesetParams collects the modeset parameter for every known DRM driver
// that is currently loaded.
func (s *System) ModesetParams() []ModesetParam {
	var params []ModesetParam
	for _, module := range modesetDrivers {
		if !s.ModuleLoaded(module) {
			continue
		}
		res := s.ModuleParam(module, "modeset")
		params = append(params, ModesetParam{
			Module: module,
			Value:  res.Text(),
			State:  res.State,
		})
	}
	return params
}
