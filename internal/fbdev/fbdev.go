// Package fbdev is the diagnostic flow for machines booted with nomodeset:
// KMS is deliberately off, so the display runs on the firmware framebuffer
// and the questions change. The flow verifies the framebuffer device exists
// and reports what the fbdev layer knows about it; DRM state is recorded as
// context only.
package fbdev

import (
	"context"
	"path/filepath"
	"time"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
	"github.com/kiya956/drm-test/internal/sysfs"
	"github.com/kiya956/drm-test/pkg/log"
)

// Gate names of the fbdev flow.
const (
	GateExpectation = "kms-expectation"
	GateFBNode      = "fb-node"
	GateFBState     = "fb-state"
	GateDRMContext  = "drm-context"
)

// Flow is the firmware-framebuffer diagnostic.
type Flow struct {
	r      statefs.Reader
	sys    *sysfs.System
	paths  config.Paths
	policy config.PolicyConfig
	log    log.Logger
}

// New builds the fbdev flow.
func New(r statefs.Reader, cfg *config.Config, logger log.Logger) *Flow {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Flow{
		r:      r,
		sys:    sysfs.New(r, cfg.Paths),
		paths:  cfg.Paths,
		policy: cfg.Policy,
		log:    logger.WithName("fbdev"),
	}
}

// Run executes the fbdev checks and returns the report.
func (f *Flow) Run(ctx context.Context) *domain.Report {
	started := time.Now()
	report := &domain.Report{StartedAt: started, Flow: domain.FlowFbdev}

	// A desktop that expects KMS cannot work under nomodeset, whatever the
	// framebuffer looks like.
	if f.policy.ExpectKMS {
		report.Evidence = append(report.Evidence,
			domain.Failf("cmdline", "booted with nomodeset but KMS is expected; remove nomodeset from the kernel command line"))
		report.Gates = append(report.Gates, domain.GateResult{
			Gate: GateExpectation, Outcome: domain.SeverityFail, Terminal: true,
		})
		report.Duration = time.Since(started)
		report.Exit = domain.ExitHardFail
		return report
	}
	report.Gates = append(report.Gates, domain.GateResult{Gate: GateExpectation, Outcome: domain.SeverityPass})

	if f.r.Exists(f.paths.DevFB0) {
		report.Evidence = append(report.Evidence, domain.Passf("fbdev", "framebuffer node %s present", f.paths.DevFB0))
		report.Gates = append(report.Gates, domain.GateResult{Gate: GateFBNode, Outcome: domain.SeverityPass})
	} else {
		report.Evidence = append(report.Evidence,
			domain.Failf("fbdev", "no framebuffer node at %s: nothing can draw to the screen", f.paths.DevFB0))
		report.Gates = append(report.Gates, domain.GateResult{
			Gate: GateFBNode, Outcome: domain.SeverityFail, Terminal: true,
		})
		report.Duration = time.Since(started)
		report.Exit = domain.ExitHardFail
		return report
	}

	report.Evidence = append(report.Evidence, f.fbState()...)
	report.Gates = append(report.Gates, domain.GateResult{Gate: GateFBState, Outcome: domain.SeverityInfo})

	report.Evidence = append(report.Evidence, f.drmContext()...)
	report.Gates = append(report.Gates, domain.GateResult{Gate: GateDRMContext, Outcome: domain.SeverityInfo})

	report.Duration = time.Since(started)
	report.Exit = domain.ExitSuccess
	return report
}

// fbState reports what the fbdev sysfs class knows about fb0.
func (f *Flow) fbState() []domain.Evidence {
	dir := filepath.Join(f.paths.SysClassGraphics, "fb0")
	if !f.r.Exists(dir) {
		return []domain.Evidence{domain.Warnf("fbdev", "device node exists but %s does not", dir)}
	}

	var ev []domain.Evidence
	for _, attr := range []string{"name", "virtual_size", "bits_per_pixel", "state"} {
		if res := f.r.ReadFile(filepath.Join(dir, attr)); res.OK() {
			ev = append(ev, domain.Infof("fbdev", "%s=%s", attr, res.Text()))
		}
	}
	if target, err := f.r.ReadLink(filepath.Join(dir, "device", "driver")); err == nil {
		ev = append(ev, domain.Infof("fbdev", "driver=%s", filepath.Base(target)))
	}
	if len(ev) == 0 {
		ev = append(ev, domain.Infof("fbdev", "fb0 exports no readable attributes"))
	}
	return ev
}

// drmContext records whether DRM controllers registered despite nomodeset.
// Some drivers register a degraded device; that is context for the reader,
// not a gate.
func (f *Flow) drmContext() []domain.Evidence {
	controllers, err := f.sys.Controllers()
	if err != nil {
		return []domain.Evidence{domain.Infof("topology", "DRM class unreadable: %v", err)}
	}
	if len(controllers) == 0 {
		return []domain.Evidence{domain.Infof("topology", "no DRM controller registered (expected under nomodeset)")}
	}

	ev := []domain.Evidence{domain.Infof("topology", "%d DRM controller(s) registered despite nomodeset", len(controllers))}
	for _, c := range controllers {
		ev = append(ev, domain.Infof("controller/"+c.Name, "identity: %s", c.Identity.Brief()))
	}
	return ev
}
