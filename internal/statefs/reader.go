// Package statefs gives uniform access to the hierarchical textual state the
// kernel exports (sysfs, debugfs, tracefs, devtmpfs). Reads never fail with
// an error for diagnostic purposes: absence and unreadability are data, and
// callers branch on the sentinel instead of handling exceptions. A missing
// path and a permission failure are diagnostically different, so the two are
// never conflated.
package statefs

import "strings"

// Presence classifies the outcome of a state read.
type Presence int

const (
	// Present means the path existed and its content was read.
	Present Presence = iota
	// Absent means the path does not exist. Expected on many
	// configurations; not inherently an error.
	Absent
	// Unreadable means the path exists but could not be read (permission
	// or I/O failure). Always surfaced, never silently swallowed.
	Unreadable
)

// String renders the presence for log and evidence messages.
func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unreadable"
	}
}

// Result is the outcome of a single state read.
type Result struct {
	// Content is the raw bytes read, valid only when State is Present.
	Content string
	// State classifies the read.
	State Presence
	// Truncated is set when the content hit the reader's size bound.
	Truncated bool
	// Err carries the underlying failure for Unreadable results.
	Err error
}

// OK reports whether content was read.
func (r Result) OK() bool {
	return r.State == Present
}

// Text returns the trimmed content, or empty when nothing was read.
func (r Result) Text() string {
	return strings.TrimSpace(r.Content)
}

// Entry is one directory listing element.
type Entry struct {
	Name string
	Dir  bool
}

// DevInfo describes a device special file.
type DevInfo struct {
	// CharDev is set when the path is a character device.
	CharDev bool
	// Major and Minor are the device numbers, valid only for CharDev.
	Major uint32
	Minor uint32
}

// Reader is the uniform access contract for the state store. The local
// implementation reads the host's kernel namespaces directly; the remote
// implementation reaches the same namespaces on another machine over SSH.
type Reader interface {
	// ReadFile reads one path, bounded by the reader's size limit.
	ReadFile(path string) Result

	// ReadLink resolves a symlink target. Absence and unreadability are
	// reported through the error; callers that only care about the bound
	// target name use the empty string as "no binding."
	ReadLink(path string) (string, error)

	// List enumerates a directory, sorted by name. A missing directory
	// returns an empty list and no error; callers that need to
	// distinguish use Exists.
	List(dir string) ([]Entry, error)

	// Size returns the byte length of a path without reading it (EDID
	// blobs are sized, not parsed).
	Size(path string) (int64, error)

	// Exists reports whether a path exists at all.
	Exists(path string) bool

	// StatDevice inspects a device special file.
	StatDevice(path string) (DevInfo, error)

	// WriteFile writes a small control value (trace switches). Best
	// effort: permission failures surface as errors for the caller to
	// record as evidence, never to propagate as process failure.
	WriteFile(path, data string) error
}
