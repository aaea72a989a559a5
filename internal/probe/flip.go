package probe

import (
	"path/filepath"
	"regexp"

	"github.com/kiya956/drm-test/internal/domain"
)

var fbIDPattern = regexp.MustCompile(`\bfb=(\d+)\b`)

// Sampler returns one snapshot of atomic display state, or false when the
// source is unavailable.
type Sampler func() (string, bool)

// StateSampler reads the debugfs atomic state dump for one controller.
func (p *Prober) StateSampler(cardIndex int) Sampler {
	path := filepath.Join(p.paths.CardDebug(cardIndex), "state")
	return func() (string, bool) {
		res := p.r.ReadFile(path)
		return res.Content, res.OK()
	}
}

// Flips samples the framebuffer IDs bound in the atomic state and counts how
// many consecutive sample pairs differ. With N samples there are N-1 pairs,
// so FlipsSeen is always within [0, N-1]. A static desktop legitimately
// produces zero flips; interpretation is left to the caller.
func (p *Prober) Flips(sample Sampler) domain.FlipObservation {
	first, ok := sample()
	if !ok {
		return domain.FlipObservation{Reason: "atomic state dump not available"}
	}

	obs := domain.FlipObservation{Supported: true, Samples: 1}
	prev := fbSet(first)
	for i := 1; i < p.cfg.FlipSamples; i++ {
		p.sleep(p.cfg.FlipInterval.Duration())
		content, ok := sample()
		if !ok {
			// Source vanished mid-probe; report what was gathered.
			return obs
		}
		obs.Samples++
		cur := fbSet(content)
		if !sameSet(prev, cur) {
			obs.FlipsSeen++
		}
		prev = cur
	}
	return obs
}

// fbSet extracts the set of framebuffer IDs referenced by a state dump.
func fbSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range fbIDPattern.FindAllStringSubmatch(content, -1) {
		// fb=0 is an unbound plane, not a framebuffer
		if m[1] != "0" {
			set[m[1]] = struct{}{}
		}
	}
	return set
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
