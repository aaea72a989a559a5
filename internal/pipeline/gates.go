package pipeline

import (
	"context"
	"strings"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
	"github.com/kiya956/drm-test/internal/sysfs"
)

// severityRank orders severities for worst-of aggregation.
var severityRank = map[domain.Severity]int{
	domain.SeverityInfo: 0,
	domain.SeverityPass: 1,
	domain.SeverityWarn: 2,
	domain.SeverityFail: 3,
}

func worst(a, b domain.Severity) domain.Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// gateRegistration checks that at least one controller registered with the
// DRM subsystem. Nothing downstream can mean anything without this.
func (p *Pipeline) gateRegistration(ctx context.Context) domain.Severity {
	controllers, err := p.sys.Controllers()
	if err != nil {
		p.add(domain.Failf("topology", "cannot enumerate DRM class: %v", err))
		return domain.SeverityFail
	}
	if len(controllers) == 0 {
		p.add(domain.Failf("topology", "no DRM controller registered (no graphics driver loaded, or DRM disabled)"))
		return domain.SeverityFail
	}

	p.controllers = controllers
	p.add(domain.Passf("topology", "%d DRM controller(s) registered", len(controllers)))
	for _, c := range controllers {
		p.add(domain.Infof("controller/"+c.Name, "identity: %s", c.Identity.Brief()))
		if !c.PM.Empty() && c.PM.Status != "" {
			p.add(domain.Infof("controller/"+c.Name, "runtime power: status=%s control=%s", c.PM.Status, c.PM.Control))
		}
	}
	return domain.SeverityPass
}

// gateBinding checks driver bindings. A card every driver refused is dead
// hardware as far as display goes; if that is true of all cards the run
// stops here.
func (p *Pipeline) gateBinding(ctx context.Context) domain.Severity {
	outcome := domain.SeverityPass
	bound := 0
	for _, c := range p.controllers {
		if c.HasDriver() {
			bound++
			p.add(domain.Passf("controller/"+c.Name, "bound to driver %s", c.Driver))
			continue
		}
		if p.cfg.Policy.UnboundController == config.PolicyFail {
			p.add(domain.Failf("controller/"+c.Name, "no driver bound"))
			outcome = worst(outcome, domain.SeverityFail)
		} else {
			p.add(domain.Warnf("controller/"+c.Name, "no driver bound"))
			outcome = worst(outcome, domain.SeverityWarn)
		}
	}

	if bound == 0 {
		p.add(domain.Failf("topology", "no controller has a bound driver"))
		return domain.SeverityFail
	}
	return outcome
}

// gateDeviceNodes checks that userspace has a primary node to open. A
// controller visible in sysfs but absent from /dev/dri usually means a
// device-manager problem, not a driver one.
func (p *Pipeline) gateDeviceNodes(ctx context.Context) domain.Severity {
	nodes, err := p.sys.DeviceNodes()
	if err != nil {
		p.add(domain.Failf("devnodes", "cannot list device nodes: %v", err))
		return domain.SeverityFail
	}
	p.nodes = nodes

	if len(nodes.Primary) == 0 {
		p.add(domain.Failf("devnodes", "no primary device node (controllers registered but nothing for userspace to open)"))
		return domain.SeverityFail
	}

	p.add(domain.Passf("devnodes", "%d primary, %d render node(s): %s",
		len(nodes.Primary), len(nodes.Render), strings.Join(nodes.Names(), ", ")))
	return domain.SeverityPass
}

// gateModeset inspects the modeset parameter of every loaded DRM driver.
// nvidia_drm loaded with modeset off is a hard failure: the module is
// present but KMS is deliberately disabled, which is exactly the
// configuration that blanks Wayland sessions.
func (p *Pipeline) gateModeset(ctx context.Context) domain.Severity {
	params := p.sys.ModesetParams()
	if len(params) == 0 {
		p.add(domain.Infof("modparams", "no known DRM driver exposes a modeset parameter"))
		return domain.SeverityInfo
	}

	outcome := domain.SeverityPass
	for _, param := range params {
		switch {
		case param.State == statefs.Unreadable:
			p.add(domain.Warnf("modparams", "%s.modeset unreadable", param.Module))
			outcome = worst(outcome, domain.SeverityWarn)
		case param.Module == "nvidia_drm" && param.Enabled() == domain.False:
			p.add(domain.Failf("modparams", "nvidia_drm.modeset=%s: KMS disabled by module parameter", param.Value))
			outcome = worst(outcome, domain.SeverityFail)
		default:
			p.add(domain.Infof("modparams", "%s.modeset=%s (enabled=%s)", param.Module, param.Value, param.Enabled()))
		}
	}
	return outcome
}

// gateConnectors evaluates every connector of every controller.
func (p *Pipeline) gateConnectors(ctx context.Context) domain.Severity {
	outcome := domain.SeverityPass
	total := 0
	anyConnected := false
	for _, c := range p.controllers {
		conns, err := p.sys.Connectors(c.Name)
		if err != nil {
			p.add(domain.Warnf("connector", "cannot enumerate connectors of %s: %v", c.Name, err))
			outcome = worst(outcome, domain.SeverityWarn)
			continue
		}
		if len(conns) == 0 {
			if p.cfg.Policy.NoConnectors == config.PolicyWarn {
				p.add(domain.Warnf("controller/"+c.Name, "exports no connectors (headless GPU or broken driver)"))
				outcome = worst(outcome, domain.SeverityWarn)
			}
			continue
		}
		total += len(conns)
		for _, conn := range conns {
			if conn.Connected() {
				anyConnected = true
			}
			ev := sysfs.Evaluate(conn)
			p.add(ev...)
			for _, e := range ev {
				outcome = worst(outcome, e.Severity)
			}
		}
	}

	if total > 0 {
		if anyConnected {
			p.add(domain.Passf("connector", "at least one connector is connected"))
		} else {
			p.add(domain.Failf("connector", "no connector is connected (%d evaluated)", total))
			outcome = worst(outcome, domain.SeverityFail)
		}
		p.add(domain.Infof("connector", "%d connector(s) evaluated", total))
	}
	return outcome
}

// gateSignals runs the live probes against the primary controller. Findings
// here are advisory: an unsupported probe or a static counter explained by
// panel self-refresh is information, not failure.
func (p *Pipeline) gateSignals(ctx context.Context) domain.Severity {
	idx := p.primaryCardIndex()
	outcome := domain.SeverityInfo

	vblank := p.prober.VBlank(idx)
	switch {
	case !vblank.Supported:
		p.add(domain.Infof("vblank", "probe unsupported: %s", vblank.Reason))
	case vblank.Ticking():
		for _, o := range vblank.Observations {
			if o.Valid && o.Delta > 0 {
				p.add(domain.Passf("vblank", "%s advanced by %d during wait", o.Counter, o.Delta))
			}
		}
		outcome = worst(outcome, domain.SeverityPass)
	default:
		p.add(domain.Warnf("vblank", "counters static during wait (display engine may be idle or stalled)"))
		outcome = worst(outcome, domain.SeverityWarn)
	}

	if p.cfg.Probes.TraceEnabled {
		trace := p.prober.Trace()
		if trace.Supported {
			p.add(domain.Infof("trace", "%d event line(s) captured from %s", trace.Lines, strings.Join(trace.Events, ", ")))
		} else {
			p.add(domain.Infof("trace", "capture unsupported: %s", trace.Reason))
		}
	}

	flips := p.prober.Flips(p.prober.StateSampler(idx))
	if flips.Supported {
		// Zero flips on a static desktop is normal; never a failure.
		p.add(domain.Infof("flips", "%d framebuffer change(s) across %d samples", flips.FlipsSeen, flips.Samples))
	} else {
		p.add(domain.Infof("flips", "probe unsupported: %s", flips.Reason))
	}

	panel := p.prober.Panel(idx)
	if panel.Supported {
		p.add(domain.Infof("panel", "self-refresh: enabled=%s active=%s link_low_power=%s",
			panel.SelfRefreshEnabled, panel.SelfRefreshActive, panel.LowPowerLinkHint))
		if panel.SelfRefreshActive == domain.True && vblank.Supported && !vblank.Ticking() {
			p.add(domain.Infof("panel", "static vblank counters are expected while the panel self-refreshes"))
			outcome = domain.SeverityInfo
		}
	} else {
		p.add(domain.Infof("panel", "self-refresh state unavailable: %s", panel.Reason))
	}

	return outcome
}

// primaryCardIndex picks the controller the runtime probes target: the
// lowest-indexed controller with an active CRTC in its debugfs state dump,
// falling back to the lowest index overall.
func (p *Pipeline) primaryCardIndex() int {
	if len(p.controllers) == 0 {
		return 0
	}

	fallback := p.controllers[0].Index
	for _, c := range p.controllers {
		res := p.sys.DebugState(c.Index)
		if res.OK() && strings.Contains(res.Content, "active=1") {
			return c.Index
		}
	}
	return fallback
}
