package sysfs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiya956/drm-test/internal/domain"
)

// Connectors enumerates the connectors belonging to one controller. Connector
// directories are siblings of the card directory named with the card prefix
// (card0-eDP-1). Each attribute is read with independent failure tolerance:
// a missing file leaves its field zero and never aborts the enumeration.
func (s *System) Connectors(card string) ([]domain.Connector, error) {
	entries, err := s.r.List(s.paths.SysClassDRM)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.paths.SysClassDRM, err)
	}

	prefix := card + "-"
	var conns []domain.Connector
	for _, e := range entries {
		if !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		dir := s.paths.Card(e.Name)
		// Only entries that export a status file are connectors.
		if !s.r.Exists(filepath.Join(dir, "status")) {
			continue
		}

		conn := domain.Connector{
			Name:       e.Name,
			Controller: card,
			Status:     connStatus(s.r.ReadFile(filepath.Join(dir, "status")).Text()),
			Enabled:    s.r.ReadFile(filepath.Join(dir, "enabled")).Text(),
			DPMS:       s.r.ReadFile(filepath.Join(dir, "dpms")).Text(),
			LinkStatus: s.r.ReadFile(filepath.Join(dir, "link_status")).Text(),
		}

		if res := s.r.ReadFile(filepath.Join(dir, "modes")); res.OK() {
			conn.ModeCount = countLines(res.Content)
		}
		if size, err := s.r.Size(filepath.Join(dir, "edid")); err == nil {
			conn.EDIDBytes = size
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// Evaluate classifies one connector into evidence records. A connected
// connector with no modes is the signature of the EDID-less black screen:
// the sink is detected but nothing can be displayed on it.
func Evaluate(conn domain.Connector) []domain.Evidence {
	subject := "connector/" + conn.Name

	if !conn.Connected() {
		return []domain.Evidence{
			domain.Infof(subject, "status=%s", conn.Status),
		}
	}

	var ev []domain.Evidence
	if conn.ModeCount == 0 {
		ev = append(ev, domain.Failf(subject, "connected but exposes zero modes"))
	} else {
		ev = append(ev, domain.Passf(subject, "connected with %d modes", conn.ModeCount))
	}
	switch {
	case conn.EDIDBytes <= 0:
		ev = append(ev, domain.Warnf(subject, "no EDID blob (sink identification unavailable)"))
	case conn.EDIDBytes < 128:
		// a base EDID block is 128 bytes; anything shorter is garbage
		ev = append(ev, domain.Warnf(subject, "implausibly small EDID blob (%d bytes)", conn.EDIDBytes))
	}
	if conn.LinkStatus != "" && conn.LinkStatus != "good" {
		ev = append(ev, domain.Failf(subject, "link training failed: link_status=%s", conn.LinkStatus))
	}
	return ev
}

func connStatus(text string) domain.ConnStatus {
	switch text {
	case string(domain.ConnStatusConnected):
		return domain.ConnStatusConnected
	case string(domain.ConnStatusDisconnected):
		return domain.ConnStatusDisconnected
	default:
		return domain.ConnStatusUnknown
	}
}

func countLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
