package sysfs

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/kiya956/drm-test/internal/domain"
)

var renderPattern = regexp.MustCompile(`^renderD\d+$`)

// DeviceNodes partitions /dev/dri into primary (modesetting-capable) and
// render-only nodes. A registered controller without a primary node means
// userspace cannot reach KMS no matter what sysfs says. Device-number
// extraction is best effort; a failed stat still records the node by name.
func (s *System) DeviceNodes() (domain.DeviceNodeSet, error) {
	entries, err := s.r.List(s.paths.DevDRI)
	if err != nil {
		return domain.DeviceNodeSet{}, fmt.Errorf("list %s: %w", s.paths.DevDRI, err)
	}

	var set domain.DeviceNodeSet
	for _, e := range entries {
		if e.Dir {
			// by-path lives here as a directory of symlinks
			continue
		}
		node := domain.DeviceNode{Name: e.Name}
		if info, err := s.r.StatDevice(filepath.Join(s.paths.DevDRI, e.Name)); err == nil {
			node.CharDev = info.CharDev
			node.Major = info.Major
			node.Minor = info.Minor
		}

		switch {
		case cardPattern.MatchString(e.Name):
			set.Primary = append(set.Primary, node)
		case renderPattern.MatchString(e.Name):
			set.Render = append(set.Render, node)
		default:
			set.Other = append(set.Other, node)
		}
	}
	return set, nil
}
