package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths = config.Paths{
		SysClassDRM:      filepath.Join(root, "sys", "class", "drm"),
		SysClassGraphics: filepath.Join(root, "sys", "class", "graphics"),
		SysModule:        filepath.Join(root, "sys", "module"),
		DevDRI:           filepath.Join(root, "dev", "dri"),
		DevFB0:           filepath.Join(root, "dev", "fb0"),
		Debugfs:          filepath.Join(root, "sys", "kernel", "debug"),
		Tracefs:          filepath.Join(root, "sys", "kernel", "tracing"),
		ProcCmdline:      filepath.Join(root, "proc", "cmdline"),
	}
	cfg.Probes.VBlankWait = config.Duration(time.Millisecond)
	cfg.Probes.FlipInterval = config.Duration(time.Millisecond)
	cfg.Probes.FlipSamples = 2
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	return New(statefs.NewLocal(0), cfg, nil)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// bindDriver creates the device/driver symlink for a card.
func bindDriver(t *testing.T, cfg *config.Config, card, driver string) {
	t.Helper()
	dev := filepath.Join(cfg.Paths.Card(card), "device")
	target := filepath.Join(cfg.Paths.SysClassDRM, "..", "drivers", driver)
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dev, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dev, "driver")); err != nil {
		t.Fatal(err)
	}
}

func gateOutcome(t *testing.T, r *domain.Report, name string) domain.GateResult {
	t.Helper()
	for _, g := range r.Gates {
		if g.Gate == name {
			return g
		}
	}
	t.Fatalf("gate %s not present in %+v", name, r.Gates)
	return domain.GateResult{}
}

func TestRunNoControllers(t *testing.T) {
	cfg := testConfig(t)
	report := newTestPipeline(t, cfg).Run(context.Background())

	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail", report.Exit)
	}
	if len(report.Gates) != 1 {
		t.Fatalf("got %d gates, want 1 (run must stop at registration): %+v", len(report.Gates), report.Gates)
	}
	g := report.Gates[0]
	if g.Gate != GateRegistration || g.Outcome != domain.SeverityFail || !g.Terminal {
		t.Errorf("gate = %+v, want terminal registration failure", g)
	}
	if report.Flow != domain.FlowKMS {
		t.Errorf("Flow = %s, want kms", report.Flow)
	}
}

func TestRunNoBoundDrivers(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.Card("card0"), "device", "uevent"), "")
	writeFile(t, filepath.Join(cfg.Paths.Card("card1"), "device", "uevent"), "")

	report := newTestPipeline(t, cfg).Run(context.Background())

	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail", report.Exit)
	}
	g := gateOutcome(t, report, GateBinding)
	if g.Outcome != domain.SeverityFail || !g.Terminal {
		t.Errorf("binding gate = %+v, want terminal failure", g)
	}
	if len(report.Gates) != 2 {
		t.Errorf("got %d gates, want 2 (stop before device nodes)", len(report.Gates))
	}
	if ev := report.BySubject("devnodes"); len(ev) != 0 {
		t.Errorf("no device-node evidence expected after terminal binding failure, got %+v", ev)
	}
}

func TestRunUnboundControllerPolicyFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.UnboundController = config.PolicyFail
	bindDriver(t, cfg, "card0", "i915")
	writeFile(t, filepath.Join(cfg.Paths.Card("card1"), "device", "uevent"), "")

	report := newTestPipeline(t, cfg).Run(context.Background())

	g := gateOutcome(t, report, GateBinding)
	if g.Outcome != domain.SeverityFail {
		t.Errorf("binding outcome = %s, want FAIL under fail policy", g.Outcome)
	}
	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail", report.Exit)
	}
}

func TestRunNvidiaModesetDisabled(t *testing.T) {
	cfg := testConfig(t)
	bindDriver(t, cfg, "card0", "nvidia")
	writeFile(t, filepath.Join(cfg.Paths.DevDRI, "card0"), "")
	writeFile(t, filepath.Join(cfg.Paths.SysModule, "nvidia_drm", "parameters", "modeset"), "N\n")

	report := newTestPipeline(t, cfg).Run(context.Background())

	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail", report.Exit)
	}
	g := gateOutcome(t, report, GateModeset)
	if g.Outcome != domain.SeverityFail || !g.Terminal {
		t.Errorf("modeset gate = %+v, want terminal failure", g)
	}
	if ev := report.BySubject("connector"); len(ev) != 0 {
		t.Error("connector gate must not run after terminal modeset failure")
	}
}

func TestRunHealthy(t *testing.T) {
	cfg := testConfig(t)
	bindDriver(t, cfg, "card0", "i915")
	writeFile(t, filepath.Join(cfg.Paths.SysModule, "i915", "parameters", "modeset"), "-1\n")
	writeFile(t, filepath.Join(cfg.Paths.DevDRI, "card0"), "")
	writeFile(t, filepath.Join(cfg.Paths.DevDRI, "renderD128"), "")

	edp := cfg.Paths.Card("card0-eDP-1")
	writeFile(t, filepath.Join(edp, "status"), "connected\n")
	writeFile(t, filepath.Join(edp, "modes"), "1920x1080\n")
	writeFile(t, filepath.Join(edp, "edid"), string(make([]byte, 128)))
	writeFile(t, filepath.Join(edp, "link_status"), "good\n")

	writeFile(t, filepath.Join(cfg.Paths.CardDebug(0), "crtc-0", "vblank_count"), "100\n")
	writeFile(t, filepath.Join(cfg.Paths.CardDebug(0), "state"), "crtc-0: active=1 fb=42\n")

	report := newTestPipeline(t, cfg).Run(context.Background())

	if report.Exit != domain.ExitSuccess {
		t.Fatalf("Exit = %d, want success; gates: %+v evidence: %+v", report.Exit, report.Gates, report.Evidence)
	}
	if len(report.Gates) != 6 {
		t.Errorf("got %d gates, want all 6", len(report.Gates))
	}
	for _, name := range []string{GateRegistration, GateBinding, GateDeviceNodes} {
		if g := gateOutcome(t, report, name); g.Outcome != domain.SeverityPass {
			t.Errorf("%s outcome = %s, want PASS", name, g.Outcome)
		}
	}
	if ev := report.BySubject("connector/card0-eDP-1"); len(ev) == 0 {
		t.Error("expected connector evidence")
	}
	// Static counters on a fake tree are a warning, never a failure
	if g := gateOutcome(t, report, GateSignals); g.Terminal {
		t.Errorf("signals gate must never be terminal: %+v", g)
	}
}

func TestRunConnectedNoModes(t *testing.T) {
	cfg := testConfig(t)
	bindDriver(t, cfg, "card0", "i915")
	writeFile(t, filepath.Join(cfg.Paths.DevDRI, "card0"), "")

	hdmi := cfg.Paths.Card("card0-HDMI-A-1")
	writeFile(t, filepath.Join(hdmi, "status"), "connected\n")
	writeFile(t, filepath.Join(hdmi, "modes"), "")

	report := newTestPipeline(t, cfg).Run(context.Background())

	g := gateOutcome(t, report, GateConnectors)
	if g.Outcome != domain.SeverityFail {
		t.Errorf("connectors outcome = %s, want FAIL for connected-no-modes", g.Outcome)
	}
	if g.Terminal {
		t.Error("connectors gate is soft; signals must still run")
	}
	// Connector findings are evidence, not prerequisites: with all hard
	// gates passed the verdict stays success.
	if report.Exit != domain.ExitSuccess {
		t.Errorf("Exit = %d, want 0: all hard gates passed", report.Exit)
	}
	// soft failure: the signals gate must still have run
	gateOutcome(t, report, GateSignals)
}

func TestRunNoConnectedConnectors(t *testing.T) {
	cfg := testConfig(t)
	bindDriver(t, cfg, "card0", "i915")
	writeFile(t, filepath.Join(cfg.Paths.DevDRI, "card0"), "")
	writeFile(t, filepath.Join(cfg.Paths.Card("card0-HDMI-A-1"), "status"), "disconnected\n")
	writeFile(t, filepath.Join(cfg.Paths.Card("card0-DP-1"), "status"), "disconnected\n")

	report := newTestPipeline(t, cfg).Run(context.Background())

	fails := report.BySubject("connector")
	found := false
	for _, ev := range fails {
		if ev.Severity == domain.SeverityFail {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an aggregate no-connector-connected failure, got %+v", fails)
	}
	if g := gateOutcome(t, report, GateConnectors); g.Outcome != domain.SeverityFail {
		t.Errorf("connectors outcome = %s, want FAIL when nothing is connected", g.Outcome)
	}
	if report.Exit != domain.ExitSuccess {
		t.Errorf("Exit = %d, want 0: connector state never fails the verdict", report.Exit)
	}
}

func TestExitClassSoftGateFailures(t *testing.T) {
	gates := []domain.GateResult{
		{Gate: GateRegistration, Outcome: domain.SeverityPass},
		{Gate: GateConnectors, Outcome: domain.SeverityFail},
		{Gate: GateSignals, Outcome: domain.SeverityFail},
	}
	if got := exitClass(gates); got != domain.ExitSuccess {
		t.Errorf("exitClass = %d, want success (soft gates are advisory)", got)
	}

	gates = append(gates, domain.GateResult{Gate: GateModeset, Outcome: domain.SeverityFail, Terminal: true})
	if got := exitClass(gates); got != domain.ExitHardFail {
		t.Errorf("exitClass = %d, want hard fail for a terminal gate", got)
	}
}

func TestRunCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestPipeline(t, cfg).Run(ctx)
	if len(report.Gates) != 0 {
		t.Errorf("cancelled run should execute no gates, got %+v", report.Gates)
	}
}
