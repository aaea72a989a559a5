package fbdev

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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
	return cfg
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

func TestRunExpectKMS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.ExpectKMS = true
	writeFile(t, cfg.Paths.DevFB0, "")

	report := New(statefs.NewLocal(0), cfg, nil).Run(context.Background())

	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail when KMS is expected", report.Exit)
	}
	if len(report.Gates) != 1 || !report.Gates[0].Terminal {
		t.Errorf("gates = %+v, want single terminal expectation failure", report.Gates)
	}
	if report.Flow != domain.FlowFbdev {
		t.Errorf("Flow = %s, want fbdev", report.Flow)
	}
}

func TestRunMissingFramebuffer(t *testing.T) {
	cfg := testConfig(t)

	report := New(statefs.NewLocal(0), cfg, nil).Run(context.Background())

	if report.Exit != domain.ExitHardFail {
		t.Errorf("Exit = %d, want hard fail without fb0", report.Exit)
	}
	if len(report.Gates) != 2 {
		t.Errorf("got %d gates, want 2 (stop at fb node)", len(report.Gates))
	}
}

func TestRunHealthyFramebuffer(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Paths.DevFB0, "")
	fb := filepath.Join(cfg.Paths.SysClassGraphics, "fb0")
	writeFile(t, filepath.Join(fb, "name"), "efifb\n")
	writeFile(t, filepath.Join(fb, "virtual_size"), "1920,1080\n")
	writeFile(t, filepath.Join(fb, "bits_per_pixel"), "32\n")

	report := New(statefs.NewLocal(0), cfg, nil).Run(context.Background())

	if report.Exit != domain.ExitSuccess {
		t.Fatalf("Exit = %d, want success: %+v", report.Exit, report.Evidence)
	}
	if len(report.Gates) != 4 {
		t.Errorf("got %d gates, want 4", len(report.Gates))
	}

	found := false
	for _, e := range report.BySubject("fbdev") {
		if e.Severity == domain.SeverityInfo && e.Message == "name=efifb" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected name=efifb attribute evidence, got %+v", report.BySubject("fbdev"))
	}
}

func TestRunRecordsDRMContext(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Paths.DevFB0, "")
	writeFile(t, filepath.Join(cfg.Paths.Card("card0"), "device", "uevent"), "DRIVER=i915\n")

	report := New(statefs.NewLocal(0), cfg, nil).Run(context.Background())

	if report.Exit != domain.ExitSuccess {
		t.Fatalf("Exit = %d, want success", report.Exit)
	}
	if ev := report.BySubject("topology"); len(ev) == 0 {
		t.Error("expected DRM context evidence")
	}
}
