package probe

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiya956/drm-test/internal/domain"
)

// vblankFiles are the per-CRTC counter files, in preference order. Drivers
// differ in which of these they export.
var vblankFiles = []string{"vblank_count", "vblank", "vblank_event"}

var firstInt = regexp.MustCompile(`-?\d+`)

// VBlank samples every vblank counter exposed for one controller in debugfs,
// waits the configured interval, and samples again. A positive delta on any
// counter is direct evidence that the display engine is scanning out. The
// probe is unsupported when debugfs is unreadable or no counter file exists;
// that distinction is preserved in the reason.
func (p *Prober) VBlank(cardIndex int) domain.VBlankResult {
	debug := p.paths.CardDebug(cardIndex)
	if !p.r.Exists(debug) {
		return domain.VBlankResult{Reason: "debugfs not available (need root or debugfs mount)"}
	}

	counters := p.findCounters(debug)
	if len(counters) == 0 {
		return domain.VBlankResult{Reason: "no vblank counter exposed by driver"}
	}

	result := domain.VBlankResult{Supported: true}
	before := make(map[string]int64, len(counters))
	valid := make(map[string]bool, len(counters))
	for _, c := range counters {
		before[c], valid[c] = p.readCounter(debug, c)
	}

	p.sleep(p.cfg.VBlankWait.Duration())

	for _, c := range counters {
		after, afterOK := p.readCounter(debug, c)
		obs := domain.VBlankObservation{
			Counter: c,
			Before:  before[c],
			After:   after,
			Valid:   valid[c] && afterOK,
		}
		if obs.Valid {
			obs.Delta = obs.After - obs.Before
		}
		result.Observations = append(result.Observations, obs)
	}
	return result
}

// findCounters lists the crtc-* directories and returns the relative paths of
// the counter files present in each.
func (p *Prober) findCounters(debug string) []string {
	entries, err := p.r.List(debug)
	if err != nil {
		return nil
	}

	var counters []string
	for _, e := range entries {
		if !e.Dir || !strings.HasPrefix(e.Name, "crtc-") {
			continue
		}
		for _, f := range vblankFiles {
			rel := filepath.Join(e.Name, f)
			if p.r.Exists(filepath.Join(debug, rel)) {
				counters = append(counters, rel)
			}
		}
	}
	return counters
}

// readCounter parses the first integer in a counter file. Some drivers print
// a bare number, others a "key: value" record.
func (p *Prober) readCounter(debug, rel string) (int64, bool) {
	res := p.r.ReadFile(filepath.Join(debug, rel))
	if !res.OK() {
		return 0, false
	}
	match := firstInt.FindString(res.Content)
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
