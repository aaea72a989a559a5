package statefs

import (
	"io"
	"os"
	"sort"

	"golang.org/x/sys/unix"
)

// Local reads the host's kernel namespaces through the os package.
type Local struct {
	maxBytes int64
}

// NewLocal creates a local reader with the given per-read size bound.
func NewLocal(maxBytes int64) *Local {
	if maxBytes <= 0 {
		maxBytes = 200_000
	}
	return &Local{maxBytes: maxBytes}
}

// ReadFile reads one path, truncating at the size bound. Sysfs attribute
// reads must go through io.ReadAll rather than a stat-sized buffer: sysfs
// reports zero sizes for generated content.
func (l *Local) ReadFile(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return classifyErr(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return Result{State: Unreadable, Err: err}
	}

	truncated := int64(len(data)) > l.maxBytes
	if truncated {
		data = data[:l.maxBytes]
	}
	return Result{Content: string(data), State: Present, Truncated: truncated}
}

// ReadLink resolves a symlink target.
func (l *Local) ReadLink(path string) (string, error) {
	return os.Readlink(path)
}

// List enumerates a directory sorted by name. A missing directory is an
// empty listing.
func (l *Local) List(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		entries = append(entries, Entry{Name: de.Name(), Dir: de.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Size returns the byte length of a path without reading it.
func (l *Local) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Exists reports whether a path exists (without following a final symlink).
func (l *Local) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// StatDevice inspects a device special file.
func (l *Local) StatDevice(path string) (DevInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return DevInfo{}, err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return DevInfo{}, nil
	}
	return DevInfo{
		CharDev: true,
		Major:   unix.Major(uint64(st.Rdev)),
		Minor:   unix.Minor(uint64(st.Rdev)),
	}, nil
}

// WriteFile writes a small control value.
func (l *Local) WriteFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(data)
	return err
}

func classifyErr(err error) Result {
	if os.IsNotExist(err) {
		return Result{State: Absent}
	}
	return Result{State: Unreadable, Err: err}
}
