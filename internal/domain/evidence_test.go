package domain

import "testing"

func TestReportCounts(t *testing.T) {
	r := &Report{
		Evidence: []Evidence{
			Passf("card0", "driver bound = i915"),
			Infof("card0", "identity: vendor=0x8086"),
			Failf("card0-eDP-1", "connected but no modes"),
			Warnf("card0-eDP-1", "EDID size suspicious"),
			Passf("connectors", "at least one connector is connected"),
		},
	}

	counts := r.Counts()
	if counts[SeverityPass] != 2 {
		t.Errorf("pass count = %d, want 2", counts[SeverityPass])
	}
	if counts[SeverityFail] != 1 {
		t.Errorf("fail count = %d, want 1", counts[SeverityFail])
	}
	if counts[SeverityWarn] != 1 {
		t.Errorf("warn count = %d, want 1", counts[SeverityWarn])
	}
	if counts[SeverityInfo] != 1 {
		t.Errorf("info count = %d, want 1", counts[SeverityInfo])
	}

	if got := r.BySubject("card0-eDP-1"); len(got) != 2 {
		t.Errorf("BySubject(card0-eDP-1) returned %d records, want 2", len(got))
	}
	if got := r.BySeverity(SeverityFail); len(got) != 1 || got[0].Subject != "card0-eDP-1" {
		t.Errorf("BySeverity(FAIL) = %v", got)
	}
}

func TestReportExitCode(t *testing.T) {
	tests := []struct {
		exit ExitClass
		code int
	}{
		{ExitSuccess, 0},
		{ExitHardFail, 2},
	}

	for _, tt := range tests {
		r := &Report{Exit: tt.exit}
		if got := r.ExitCode(); got != tt.code {
			t.Errorf("ExitCode() = %d, want %d", got, tt.code)
		}
	}
}

func TestVBlankResultTicking(t *testing.T) {
	tests := []struct {
		name    string
		obs     []VBlankObservation
		ticking bool
	}{
		{"no observations", nil, false},
		{"all zero", []VBlankObservation{{Delta: 0, Valid: true}}, false},
		{"one positive", []VBlankObservation{{Delta: 0, Valid: true}, {Delta: 42, Valid: true}}, true},
		{"positive but invalid", []VBlankObservation{{Delta: 42, Valid: false}}, false},
	}

	for _, tt := range tests {
		r := VBlankResult{Supported: true, Observations: tt.obs}
		if got := r.Ticking(); got != tt.ticking {
			t.Errorf("%s: Ticking() = %v, want %v", tt.name, got, tt.ticking)
		}
	}
}

func TestTriStateString(t *testing.T) {
	tests := []struct {
		state TriState
		want  string
	}{
		{True, "yes"},
		{False, "no"},
		{Unknown, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("TriState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
