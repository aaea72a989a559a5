package sysfs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
)

// fakeTree builds a System over a temp-dir state tree and returns the paths
// for test setup.
func fakeTree(t *testing.T) (*System, config.Paths) {
	t.Helper()
	root := t.TempDir()
	paths := config.Paths{
		SysClassDRM:      filepath.Join(root, "sys", "class", "drm"),
		SysClassGraphics: filepath.Join(root, "sys", "class", "graphics"),
		SysModule:        filepath.Join(root, "sys", "module"),
		DevDRI:           filepath.Join(root, "dev", "dri"),
		DevFB0:           filepath.Join(root, "dev", "fb0"),
		Debugfs:          filepath.Join(root, "sys", "kernel", "debug"),
		Tracefs:          filepath.Join(root, "sys", "kernel", "tracing"),
		ProcCmdline:      filepath.Join(root, "proc", "cmdline"),
	}
	return New(statefs.NewLocal(0), paths), paths
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

func TestControllers(t *testing.T) {
	s, paths := fakeTree(t)

	dev := filepath.Join(paths.Card("card0"), "device")
	writeFile(t, filepath.Join(dev, "vendor"), "0x8086\n")
	writeFile(t, filepath.Join(dev, "device"), "0x46a6\n")
	writeFile(t, filepath.Join(dev, "class"), "0x030000\n")
	writeFile(t, filepath.Join(dev, "uevent"), "DRIVER=i915\nPCI_ID=8086:46A6\nMODALIAS=pci:v00008086d000046A6sv00001028sd00000B10bc03sc00i00\n")
	writeFile(t, filepath.Join(dev, "power", "runtime_status"), "active\n")
	writeFile(t, filepath.Join(dev, "power", "control"), "auto\n")

	driverDir := filepath.Join(paths.SysClassDRM, "..", "..", "bus", "pci", "drivers", "i915")
	if err := os.MkdirAll(driverDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(driverDir, filepath.Join(dev, "driver")); err != nil {
		t.Fatal(err)
	}

	// Second controller with no driver bound and no identity files
	writeFile(t, filepath.Join(paths.Card("card1"), "device", "uevent"), "")

	// Entries the enumeration must skip
	writeFile(t, filepath.Join(paths.Card("card0-eDP-1"), "status"), "connected\n")
	writeFile(t, filepath.Join(paths.SysClassDRM, "version"), "drm 1.1.0\n")

	nodes, err := s.Controllers()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d controllers, want 2", len(nodes))
	}

	c0 := nodes[0]
	if c0.Name != "card0" || c0.Index != 0 {
		t.Errorf("nodes[0] = %s/%d, want card0/0", c0.Name, c0.Index)
	}
	if c0.Driver != "i915" {
		t.Errorf("Driver = %q, want i915", c0.Driver)
	}
	if c0.Identity.Vendor != "0x8086" {
		t.Errorf("Vendor = %q", c0.Identity.Vendor)
	}
	if c0.Identity.PCIID != "8086:46A6" {
		t.Errorf("PCIID = %q", c0.Identity.PCIID)
	}
	if c0.PM.Status != "active" {
		t.Errorf("PM.Status = %q", c0.PM.Status)
	}

	c1 := nodes[1]
	if c1.Name != "card1" || c1.HasDriver() {
		t.Errorf("nodes[1] = %s driver=%q, want card1 unbound", c1.Name, c1.Driver)
	}
	if !c1.PM.Empty() {
		t.Error("card1 PM should be empty")
	}

	// Enumeration over unchanged state is read-only and deterministic
	again, err := s.Controllers()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(nodes, again) {
		t.Errorf("second enumeration differs:\nfirst:  %+v\nsecond: %+v", nodes, again)
	}
}

func TestControllersEmptyTree(t *testing.T) {
	s, _ := fakeTree(t)
	nodes, err := s.Controllers()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 0 {
		t.Errorf("got %d controllers, want 0", len(nodes))
	}
}

func TestConnectors(t *testing.T) {
	s, paths := fakeTree(t)

	edp := paths.Card("card0-eDP-1")
	writeFile(t, filepath.Join(edp, "status"), "connected\n")
	writeFile(t, filepath.Join(edp, "enabled"), "enabled\n")
	writeFile(t, filepath.Join(edp, "dpms"), "On\n")
	writeFile(t, filepath.Join(edp, "modes"), "1920x1080\n1280x720\n")
	writeFile(t, filepath.Join(edp, "edid"), string(make([]byte, 128)))

	hdmi := paths.Card("card0-HDMI-A-1")
	writeFile(t, filepath.Join(hdmi, "status"), "disconnected\n")

	// Sibling without a status file is not a connector
	writeFile(t, filepath.Join(paths.Card("card0-audio"), "id"), "1\n")
	// Other controller's connector is excluded
	writeFile(t, filepath.Join(paths.Card("card1-DP-1"), "status"), "connected\n")

	conns, err := s.Connectors("card0")
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 2 {
		t.Fatalf("got %d connectors, want 2", len(conns))
	}

	hdmiConn, edpConn := conns[0], conns[1]
	if edpConn.Name != "card0-eDP-1" || !edpConn.Connected() {
		t.Errorf("eDP = %+v, want connected card0-eDP-1", edpConn)
	}
	if edpConn.ModeCount != 2 {
		t.Errorf("eDP ModeCount = %d, want 2", edpConn.ModeCount)
	}
	if edpConn.EDIDBytes != 128 {
		t.Errorf("eDP EDIDBytes = %d, want 128", edpConn.EDIDBytes)
	}
	if hdmiConn.Status != domain.ConnStatusDisconnected {
		t.Errorf("HDMI status = %s, want disconnected", hdmiConn.Status)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		conn domain.Connector
		want []domain.Severity
	}{
		{
			name: "healthy",
			conn: domain.Connector{Name: "card0-eDP-1", Status: domain.ConnStatusConnected, ModeCount: 3, EDIDBytes: 128, LinkStatus: "good"},
			want: []domain.Severity{domain.SeverityPass},
		},
		{
			name: "connected no modes",
			conn: domain.Connector{Name: "card0-HDMI-A-1", Status: domain.ConnStatusConnected, EDIDBytes: 256},
			want: []domain.Severity{domain.SeverityFail},
		},
		{
			name: "connected no edid",
			conn: domain.Connector{Name: "card0-DP-1", Status: domain.ConnStatusConnected, ModeCount: 1},
			want: []domain.Severity{domain.SeverityPass, domain.SeverityWarn},
		},
		{
			name: "truncated edid",
			conn: domain.Connector{Name: "card0-DP-3", Status: domain.ConnStatusConnected, ModeCount: 2, EDIDBytes: 64},
			want: []domain.Severity{domain.SeverityPass, domain.SeverityWarn},
		},
		{
			name: "link training failed",
			conn: domain.Connector{Name: "card0-DP-2", Status: domain.ConnStatusConnected, ModeCount: 1, EDIDBytes: 128, LinkStatus: "bad"},
			want: []domain.Severity{domain.SeverityPass, domain.SeverityFail},
		},
		{
			name: "disconnected",
			conn: domain.Connector{Name: "card0-VGA-1", Status: domain.ConnStatusDisconnected},
			want: []domain.Severity{domain.SeverityInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.conn)
			if len(ev) != len(tt.want) {
				t.Fatalf("got %d records, want %d: %+v", len(ev), len(tt.want), ev)
			}
			for i, sev := range tt.want {
				if ev[i].Severity != sev {
					t.Errorf("ev[%d].Severity = %s, want %s", i, ev[i].Severity, sev)
				}
			}
		})
	}
}

func TestDeviceNodes(t *testing.T) {
	s, paths := fakeTree(t)

	for _, name := range []string{"card0", "card1", "renderD128", "controlD64"} {
		writeFile(t, filepath.Join(paths.DevDRI, name), "")
	}
	if err := os.MkdirAll(filepath.Join(paths.DevDRI, "by-path"), 0755); err != nil {
		t.Fatal(err)
	}

	set, err := s.DeviceNodes()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Primary) != 2 || len(set.Render) != 1 || len(set.Other) != 1 {
		t.Fatalf("partition = %d/%d/%d, want 2/1/1", len(set.Primary), len(set.Render), len(set.Other))
	}
	if set.Primary[0].Name != "card0" || set.Render[0].Name != "renderD128" {
		t.Errorf("unexpected node names: %v", set.Names())
	}
	if set.Empty() {
		t.Error("set should not be empty")
	}
}

func TestDeviceNodesMissingDir(t *testing.T) {
	s, _ := fakeTree(t)
	set, err := s.DeviceNodes()
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Errorf("missing /dev/dri should yield empty set, got %v", set.Names())
	}
}

func TestModesetParams(t *testing.T) {
	s, paths := fakeTree(t)

	writeFile(t, filepath.Join(paths.SysModule, "nvidia_drm", "parameters", "modeset"), "N\n")
	writeFile(t, filepath.Join(paths.SysModule, "i915", "parameters", "modeset"), "-1\n")
	writeFile(t, filepath.Join(paths.SysModule, "amdgpu", "parameters", "modeset"), "1\n")

	params := s.ModesetParams()
	if len(params) != 3 {
		t.Fatalf("got %d params, want 3", len(params))
	}

	byModule := make(map[string]ModesetParam, len(params))
	for _, p := range params {
		byModule[p.Module] = p
	}
	if got := byModule["nvidia_drm"].Enabled(); got != domain.False {
		t.Errorf("nvidia_drm Enabled = %s, want no", got)
	}
	if got := byModule["i915"].Enabled(); got != domain.Unknown {
		t.Errorf("i915 Enabled = %s, want unknown", got)
	}
	if got := byModule["amdgpu"].Enabled(); got != domain.True {
		t.Errorf("amdgpu Enabled = %s, want yes", got)
	}
}

func TestModuleLoaded(t *testing.T) {
	s, paths := fakeTree(t)
	writeFile(t, filepath.Join(paths.SysModule, "drm", "refcnt"), "5\n")

	if !s.ModuleLoaded("drm") {
		t.Error("drm should be loaded")
	}
	if s.ModuleLoaded("nouveau") {
		t.Error("nouveau should not be loaded")
	}
}

func TestReadCmdline(t *testing.T) {
	s, paths := fakeTree(t)
	writeFile(t, paths.ProcCmdline, "BOOT_IMAGE=/vmlinuz root=/dev/sda1 quiet nomodeset\n")

	cmdline, err := s.ReadCmdline()
	if err != nil {
		t.Fatal(err)
	}
	if !cmdline.Nomodeset() {
		t.Error("nomodeset should be detected")
	}
	if got := cmdline.Value("root"); got != "/dev/sda1" {
		t.Errorf("root = %q", got)
	}
	if !cmdline.Has("quiet") || cmdline.Value("quiet") != "" {
		t.Error("quiet should be a bare flag")
	}
}

func TestReadCmdlineAbsent(t *testing.T) {
	s, _ := fakeTree(t)
	if _, err := s.ReadCmdline(); err == nil {
		t.Error("missing cmdline should error")
	}
}
