package fsys

import (
	"fmt"
	"path/filepath"
	"time"
)

// Kind is the type of a listed filesystem item.
type Kind int

const (
	File Kind = iota
	Directory
	Symlink
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "dir"
	case Symlink:
		return "link"
	default:
		return "file"
	}
}

// ParentName is the name of the synthetic parent entry shown at the top of
// every listing except the root's.
const ParentName = ".."

// Entry is a snapshot of one filesystem item taken at listing time. It is
// never refreshed in place; a new listing produces new entries.
type Entry struct {
	Name    string
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
	// LinksToDir is set for symlinks that resolve to a directory.
	LinksToDir bool
	// Parent marks the synthetic ".." entry.
	Parent bool
}

// IsDir reports whether the entry can be entered like a directory.
func (e Entry) IsDir() bool {
	return e.Kind == Directory || (e.Kind == Symlink && e.LinksToDir)
}

// ParentEntry builds the ".." entry for dir.
func ParentEntry(dir string) Entry {
	return Entry{
		Name:   ParentName,
		Path:   filepath.Dir(dir),
		Kind:   Directory,
		Parent: true,
	}
}

// IsRoot reports whether dir is a filesystem root.
func IsRoot(dir string) bool {
	dir = filepath.Clean(dir)
	return filepath.Dir(dir) == dir
}

// HumanSize formats a byte count with a binary unit.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
