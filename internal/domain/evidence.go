package domain

import (
	"fmt"
	"time"
)

// Severity tags a single evidence record.
type Severity string

const (
	SeverityPass Severity = "PASS"
	SeverityFail Severity = "FAIL"
	SeverityWarn Severity = "WARN"
	SeverityInfo Severity = "INFO"
)

// Evidence is one structured finding. The pipeline aggregates pass/fail from
// these records rather than re-parsing rendered text.
type Evidence struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Subject  string   `yaml:"subject" json:"subject"`
	Message  string   `yaml:"message" json:"message"`
}

// Passf builds a PASS evidence record.
func Passf(subject, format string, args ...any) Evidence {
	return Evidence{Severity: SeverityPass, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Failf builds a FAIL evidence record.
func Failf(subject, format string, args ...any) Evidence {
	return Evidence{Severity: SeverityFail, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a WARN evidence record.
func Warnf(subject, format string, args ...any) Evidence {
	return Evidence{Severity: SeverityWarn, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Infof builds an INFO evidence record.
func Infof(subject, format string, args ...any) Evidence {
	return Evidence{Severity: SeverityInfo, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// ExitClass is the terminal classification of a diagnostic run.
type ExitClass int

const (
	// ExitSuccess means all hard prerequisites were satisfied. Runtime
	// signals may still be inconclusive; that never changes the exit class.
	ExitSuccess ExitClass = 0
	// ExitHardFail means at least one hard gate failed.
	ExitHardFail ExitClass = 2
)

// Flow identifies which diagnostic flow produced a report.
type Flow string

const (
	// FlowKMS is the normal DRM/KMS pipeline.
	FlowKMS Flow = "kms"
	// FlowFbdev is the firmware-framebuffer flow used under nomodeset.
	FlowFbdev Flow = "fbdev"
)

// GateResult records the outcome of one orchestrator gate.
type GateResult struct {
	Gate     string   `yaml:"gate" json:"gate"`
	Outcome  Severity `yaml:"outcome" json:"outcome"`
	Terminal bool     `yaml:"terminal,omitempty" json:"terminal,omitempty"`
}

// Report is the complete outcome of a diagnostic run. It is created fresh per
// run and never mutated after the pipeline returns.
type Report struct {
	StartedAt time.Time     `yaml:"started_at" json:"started_at"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
	Flow      Flow          `yaml:"flow" json:"flow"`
	Gates     []GateResult  `yaml:"gates,omitempty" json:"gates,omitempty"`
	Evidence  []Evidence    `yaml:"evidence" json:"evidence"`
	Exit      ExitClass     `yaml:"exit" json:"exit"`
}

// Counts returns the number of evidence records per severity.
func (r *Report) Counts() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, e := range r.Evidence {
		counts[e.Severity]++
	}
	return counts
}

// BySeverity returns evidence filtered to one severity, in report order.
func (r *Report) BySeverity(s Severity) []Evidence {
	var out []Evidence
	for _, e := range r.Evidence {
		if e.Severity == s {
			out = append(out, e)
		}
	}
	return out
}

// BySubject returns evidence filtered to one subject, in report order.
func (r *Report) BySubject(subject string) []Evidence {
	var out []Evidence
	for _, e := range r.Evidence {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// ExitCode maps the exit class to the process exit code contract.
func (r *Report) ExitCode() int {
	return int(r.Exit)
}
