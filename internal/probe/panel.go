package probe

import (
	"path/filepath"
	"strings"

	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/statefs"
)

// Panel parses the panel self-refresh status file for one controller. The
// file format is vendor text that has changed across kernel versions, so the
// parse is keyword-based and every field stays Unknown when no keyword
// matches. The raw excerpt is kept for human review.
func (p *Prober) Panel(cardIndex int) domain.PowerState {
	path := filepath.Join(p.paths.CardDebug(cardIndex), "i915_edp_psr_status")
	res := p.r.ReadFile(path)
	switch res.State {
	case statefs.Absent:
		return domain.PowerState{Reason: "panel self-refresh status not exposed"}
	case statefs.Unreadable:
		return domain.PowerState{Reason: "panel self-refresh status unreadable: " + res.Err.Error()}
	}

	state := domain.PowerState{
		Supported: true,
		Excerpt:   tailExcerpt(res.Content, p.cfg.TraceExcerptBytes),
	}
	for _, line := range strings.Split(res.Content, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(lower, "enabled:"),
			strings.Contains(lower, "psr mode"),
			strings.Contains(lower, "source psr ctl"):
			state.SelfRefreshEnabled = triFromLine(lower)
		case strings.HasPrefix(lower, "active:"),
			strings.Contains(lower, "source psr status"):
			state.SelfRefreshActive = triActive(lower)
		case strings.Contains(lower, "link standby"),
			strings.Contains(lower, "main link"):
			state.LowPowerLinkHint = triFromLine(lower)
		}
	}
	return state
}

// triFromLine reads an enabled/disabled style line.
func triFromLine(lower string) domain.TriState {
	switch {
	case strings.Contains(lower, "disabled"), strings.Contains(lower, ": no"):
		return domain.False
	case strings.Contains(lower, "enabled"), strings.Contains(lower, ": yes"):
		return domain.True
	}
	return domain.Unknown
}

// triActive reads an activity line. Newer kernels print hardware state names
// (SRDENT means the panel entered self-refresh) instead of yes/no.
func triActive(lower string) domain.TriState {
	switch {
	case strings.Contains(lower, "srdent"),
		strings.Contains(lower, "deep sleep"),
		strings.Contains(lower, ": yes"):
		return domain.True
	case strings.Contains(lower, "srdoff"),
		strings.Contains(lower, "idle"),
		strings.Contains(lower, ": no"):
		return domain.False
	}
	return domain.Unknown
}
