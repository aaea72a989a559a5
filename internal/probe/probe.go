// Package probe implements the live display-signal probes: vblank counter
// deltas, tracefs event capture, framebuffer-flip sampling and panel
// self-refresh state. All of them read privileged kernel interfaces
// (debugfs, tracefs) that may simply not be there; an unsupported probe is
// reported as such, never as a diagnostic failure. Every blocking wait is
// bounded by the probe configuration.
package probe

import (
	"time"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/statefs"
)

// Prober runs the runtime probes over one machine's state tree.
type Prober struct {
	r     statefs.Reader
	paths config.Paths
	cfg   config.ProbeConfig

	// sleep is swapped out in tests so probes run at full speed.
	sleep func(time.Duration)
}

// New builds a Prober.
func New(r statefs.Reader, paths config.Paths, cfg config.ProbeConfig) *Prober {
	return &Prober{r: r, paths: paths, cfg: cfg, sleep: time.Sleep}
}
