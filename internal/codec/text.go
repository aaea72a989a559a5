package codec

import (
	"fmt"
	"io"
	"time"

	"github.com/kiya956/drm-test/internal/domain"
)

// TextCodec renders reports as the human-readable evidence listing
type TextCodec struct{}

// NewTextCodec creates a new text codec
func NewTextCodec() *TextCodec {
	return &TextCodec{}
}

// Format returns the codec format identifier
func (c *TextCodec) Format() string {
	return "text"
}

// Export renders the report as one evidence line per finding, followed by
// the gate trail and the verdict.
func (c *TextCodec) Export(report *domain.Report, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== display diagnostic (%s flow) ===\n", report.Flow); err != nil {
		return err
	}

	for _, e := range report.Evidence {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", e.Severity, e.Subject, e.Message); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, g := range report.Gates {
		marker := ""
		if g.Terminal {
			marker = " (terminal)"
		}
		if _, err := fmt.Fprintf(w, "gate %-16s %s%s\n", g.Gate, g.Outcome, marker); err != nil {
			return err
		}
	}

	counts := report.Counts()
	verdict := "PASS"
	if report.Exit != domain.ExitSuccess {
		verdict = "FAIL"
	}
	_, err := fmt.Fprintf(w, "\nverdict: %s (exit %d) pass=%d fail=%d warn=%d info=%d in %s\n",
		verdict, report.ExitCode(),
		counts[domain.SeverityPass], counts[domain.SeverityFail],
		counts[domain.SeverityWarn], counts[domain.SeverityInfo],
		report.Duration.Round(time.Millisecond))
	return err
}
