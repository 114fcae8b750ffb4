// Package fsys is the only code in dfm that talks to the operating system's
// filesystem. Everything above it works with Entry snapshots and kinded
// errors from dfm/src/errors.
package fsys

import (
	stderrors "errors"
)

// ErrCrossDevice is wrapped into the error Rename returns when source and
// destination live on different filesystems.
var ErrCrossDevice = stderrors.New("cross-device rename")

// FileID identifies a file independently of the path used to reach it.
type FileID struct {
	Dev uint64
	Ino uint64
}

// Gateway is the filesystem contract used by panels, the operation engine,
// search and the editor. All methods are synchronous and every one of them
// may fail, even right after a successful Stat.
type Gateway interface {
	// List returns the entries of dir, unsorted, without "..".
	List(dir string) ([]Entry, error)
	// Stat describes path without following a final symlink.
	Stat(path string) (Entry, error)
	// Exists reports whether anything, including a dangling symlink, is at path.
	Exists(path string) (bool, error)
	// Identity returns the device/inode pair of path, following symlinks.
	Identity(path string) (FileID, error)

	ReadText(path string) ([]string, error)
	WriteText(path string, lines []string) error

	CreateFile(path string) error
	CreateDir(path string) error
	// Delete removes a single file, symlink or empty directory.
	Delete(path string) error
	Rename(from, to string) error
	// Copy copies a single regular file or symlink. The destination must
	// not exist.
	Copy(from, to string) error
}
