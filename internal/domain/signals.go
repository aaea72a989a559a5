package domain

// TriState is a best-effort boolean parsed from vendor-specific text. Absent
// evidence stays Unknown; it is never collapsed to a binary answer.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

// String renders the tri-state for reports.
func (t TriState) String() string {
	switch t {
	case True:
		return "yes"
	case False:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the tri-state as its string form.
func (t TriState) MarshalYAML() (any, error) {
	return t.String(), nil
}

// MarshalJSON renders the tri-state as its string form.
func (t TriState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// VBlankObservation is one counter read before and after the wait interval.
// The delta is only meaningful when both reads succeeded.
type VBlankObservation struct {
	Counter string `yaml:"counter" json:"counter"`
	Before  int64  `yaml:"before" json:"before"`
	After   int64  `yaml:"after" json:"after"`
	Delta   int64  `yaml:"delta" json:"delta"`
	Valid   bool   `yaml:"valid" json:"valid"`
}

// VBlankResult is the outcome of the vblank counter probe.
type VBlankResult struct {
	Supported    bool                `yaml:"supported" json:"supported"`
	Reason       string              `yaml:"reason,omitempty" json:"reason,omitempty"`
	Observations []VBlankObservation `yaml:"observations,omitempty" json:"observations,omitempty"`
}

// Ticking reports whether at least one counter advanced with a valid delta.
func (r VBlankResult) Ticking() bool {
	for _, o := range r.Observations {
		if o.Valid && o.Delta > 0 {
			return true
		}
	}
	return false
}

// AnyValid reports whether at least one counter produced a valid delta.
func (r VBlankResult) AnyValid() bool {
	for _, o := range r.Observations {
		if o.Valid {
			return true
		}
	}
	return false
}

// TraceResult is the outcome of the tracefs event capture.
type TraceResult struct {
	Supported bool     `yaml:"supported" json:"supported"`
	Reason    string   `yaml:"reason,omitempty" json:"reason,omitempty"`
	Events    []string `yaml:"events,omitempty" json:"events,omitempty"`
	Lines     int      `yaml:"lines" json:"lines"`
	Excerpt   string   `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`
}

// FlipObservation is the outcome of the framebuffer-flip probe: a bounded
// sample sequence and the count of set-membership changes between
// consecutive samples. FlipsSeen is always within [0, Samples-1].
type FlipObservation struct {
	Supported bool   `yaml:"supported" json:"supported"`
	Reason    string `yaml:"reason,omitempty" json:"reason,omitempty"`
	Samples   int    `yaml:"samples" json:"samples"`
	FlipsSeen int    `yaml:"flips_seen" json:"flips_seen"`
}

// PowerState is the best-effort parse of a panel self-refresh status file.
// The unparsed excerpt is retained for human review.
type PowerState struct {
	Supported          bool     `yaml:"supported" json:"supported"`
	Reason             string   `yaml:"reason,omitempty" json:"reason,omitempty"`
	SelfRefreshEnabled TriState `yaml:"self_refresh_enabled" json:"self_refresh_enabled"`
	SelfRefreshActive  TriState `yaml:"self_refresh_active" json:"self_refresh_active"`
	LowPowerLinkHint   TriState `yaml:"low_power_link_hint" json:"low_power_link_hint"`
	Excerpt            string   `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`
}
