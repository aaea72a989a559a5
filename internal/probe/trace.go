package probe

import (
	"path/filepath"
	"strings"

	"github.com/kiya956/drm-test/internal/domain"
)

// drmTraceEvents are the event switches the capture enables, as
// category/name pairs under tracefs events/.
var drmTraceEvents = [][2]string{
	{"drm", "drm_vblank_event"},
	{"drm", "drm_vblank_event_queued"},
	{"drm", "drm_vblank_event_delivered"},
	{"drm", "drm_atomic_commit"},
}

// Trace captures vblank delivery events from the kernel trace buffer for the
// configured window. The capture mutates global trace state: every event
// switch it enables is disabled again before returning, on every path, and
// the recorder is stopped after the window. When tracefs is not available
// the probe performs zero writes and reports unsupported.
func (p *Prober) Trace() domain.TraceResult {
	traceFile := filepath.Join(p.paths.Tracefs, "trace")
	if !p.r.Exists(traceFile) {
		return domain.TraceResult{Reason: "tracefs not available (need root or tracefs mount)"}
	}

	var available [][2]string
	for _, ev := range drmTraceEvents {
		if p.r.Exists(p.paths.TraceEventEnable(ev[0], ev[1])) {
			available = append(available, ev)
		}
	}
	if len(available) == 0 {
		return domain.TraceResult{Reason: "no drm trace events exposed by kernel"}
	}

	var enabled [][2]string
	defer func() {
		for _, ev := range enabled {
			p.r.WriteFile(p.paths.TraceEventEnable(ev[0], ev[1]), "0")
		}
	}()

	// Quiesce and clear before enabling so the buffer holds only our window.
	tracingOn := filepath.Join(p.paths.Tracefs, "tracing_on")
	if err := p.r.WriteFile(tracingOn, "0"); err != nil {
		return domain.TraceResult{Reason: "cannot control tracing: " + err.Error()}
	}
	p.r.WriteFile(traceFile, "")

	result := domain.TraceResult{}
	for _, ev := range available {
		if err := p.r.WriteFile(p.paths.TraceEventEnable(ev[0], ev[1]), "1"); err != nil {
			continue
		}
		enabled = append(enabled, ev)
		result.Events = append(result.Events, ev[0]+":"+ev[1])
	}
	if len(enabled) == 0 {
		return domain.TraceResult{Reason: "cannot enable any drm trace event"}
	}

	p.r.WriteFile(tracingOn, "1")
	p.sleep(p.cfg.TraceWindow.Duration())
	// Stop the recorder before reading so the buffer is a closed window and
	// tracing is not left running after we exit.
	p.r.WriteFile(tracingOn, "0")

	res := p.r.ReadFile(traceFile)
	if !res.OK() {
		result.Reason = "trace buffer unreadable after capture"
		return result
	}

	result.Supported = true
	for _, line := range strings.Split(res.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			result.Lines++
		}
	}
	result.Excerpt = tailExcerpt(res.Content, p.cfg.TraceExcerptBytes)
	return result
}

// tailExcerpt keeps the newest portion of the buffer, aligned to a line
// boundary.
func tailExcerpt(content string, max int) string {
	if max <= 0 || len(content) <= max {
		return content
	}
	cut := content[len(content)-max:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i+1 < len(cut) {
		cut = cut[i+1:]
	}
	return cut
}
