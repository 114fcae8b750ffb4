package fsys

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dfm/src/errors"

	"golang.org/x/sys/unix"
)

// Local is the Gateway backed by the host filesystem.
type Local struct{}

var _ Gateway = Local{}

func (Local) List(dir string) ([]Entry, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.FromFS(dir, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.NotADirectory, dir, nil)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.FromFS(dir, err)
	}
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		info, err := file.Info()
		if err != nil {
			// gone between readdir and lstat
			continue
		}
		entries = append(entries, entryFromInfo(filepath.Join(dir, file.Name()), info))
	}
	return entries, nil
}

func (Local) Stat(path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, errors.FromFS(path, err)
	}
	return entryFromInfo(filepath.Clean(path), info), nil
}

func (Local) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.FromFS(path, err)
}

func (Local) Identity(path string) (FileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return FileID{}, errors.FromFS(path, &os.PathError{Op: "stat", Path: path, Err: err})
	}
	return FileID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, nil
}

func (Local) ReadText(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FromFS(path, err)
	}
	return SplitLines(string(content)), nil
}

// WriteText replaces path with lines, each terminated by a newline. The data
// goes to a temporary file in the same directory first so a failed write
// never truncates the original.
func (Local) WriteText(path string, lines []string) error {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return errors.Newf(errors.IOFailure, path, "is a directory")
		}
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".dfm-*")
	if err != nil {
		return errors.FromFS(path, err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	if _, err := io.WriteString(tmp, JoinLines(lines)); err != nil {
		tmp.Close()
		cleanup()
		return errors.FromFS(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.FromFS(path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.FromFS(path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		cleanup()
		return errors.FromFS(path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		cleanup()
		return errors.FromFS(path, err)
	}
	return nil
}

func (Local) CreateFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return classifyCreate(path, err)
	}
	return errors.FromFS(path, f.Close())
}

func (Local) CreateDir(path string) error {
	if err := os.Mkdir(path, 0755); err != nil {
		return classifyCreate(path, err)
	}
	return nil
}

func (Local) Delete(path string) error {
	return errors.FromFS(path, os.Remove(path))
}

func (Local) Rename(from, to string) error {
	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EXDEV) {
		return errors.New(errors.IOFailure, from, fmt.Errorf("%w: %w", ErrCrossDevice, err))
	}
	return errors.FromFS(from, err)
}

func (Local) Copy(from, to string) error {
	info, err := os.Lstat(from)
	if err != nil {
		return errors.FromFS(from, err)
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(from)
		if err != nil {
			return errors.FromFS(from, err)
		}
		return classifyCreate(to, os.Symlink(target, to))
	case info.IsDir():
		return errors.Newf(errors.IOFailure, from, "cannot copy a directory as a file")
	}
	s, err := os.Open(from)
	if err != nil {
		return errors.FromFS(from, err)
	}
	defer s.Close()
	d, err := os.OpenFile(to, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return classifyCreate(to, err)
	}
	if _, err := io.Copy(d, s); err != nil {
		d.Close()
		os.Remove(to)
		return errors.FromFS(to, err)
	}
	if err := d.Close(); err != nil {
		os.Remove(to)
		return errors.FromFS(to, err)
	}
	// mtime is informational; a failure here does not fail the copy
	_ = os.Chtimes(to, info.ModTime(), info.ModTime())
	return nil
}

func classifyCreate(path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		return errors.New(errors.NameConflict, path, err)
	}
	return errors.FromFS(path, err)
}

func entryFromInfo(path string, info os.FileInfo) Entry {
	e := Entry{
		Name:    info.Name(),
		Path:    path,
		Kind:    File,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		e.Kind = Symlink
		if target, err := os.Stat(path); err == nil && target.IsDir() {
			e.LinksToDir = true
		}
	case info.IsDir():
		e.Kind = Directory
		e.Size = 0
	}
	return e
}

// SplitLines turns file content into editor lines. A single trailing newline
// terminates the last line rather than starting a new one, and empty content
// is one empty line.
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if content == "" {
		return []string{""}
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
