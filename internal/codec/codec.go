// Package codec renders diagnostic reports in the supported output formats.
package codec

import (
	"fmt"
	"io"

	"github.com/kiya956/drm-test/internal/domain"
)

// Exporter interface for rendering a report to an output format
type Exporter interface {
	Export(report *domain.Report, w io.Writer) error
	Format() string
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "text", "":
		return NewTextCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, yaml or json)", format)
	}
}
