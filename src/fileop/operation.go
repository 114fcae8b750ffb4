package fileop

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Kind is the type of a pending filesystem mutation.
type Kind int

const (
	Copy Kind = iota
	Move
	Delete
	Rename
	CreateFile
	CreateDir
)

func (k Kind) String() string {
	switch k {
	case Copy:
		return "copy"
	case Move:
		return "move"
	case Delete:
		return "delete"
	case Rename:
		return "rename"
	case CreateFile:
		return "create file"
	case CreateDir:
		return "create directory"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// transfers reports whether the kind moves or copies data between directories.
func (k Kind) transfers() bool { return k == Copy || k == Move }

// PendingOperation is a user request waiting to be executed. It lives for a
// single command cycle and is never persisted.
type PendingOperation struct {
	ID      string
	Kind    Kind
	Sources []string
	// DestDir is empty for Delete. For Rename it defaults to the source's
	// directory.
	DestDir string
	// NewName is used by Rename, CreateFile and CreateDir.
	NewName string
	// Force allows Copy/Move to replace existing destinations. Set only
	// after the user confirmed the overwrite.
	Force bool
}

// NewOperation builds a PendingOperation with a fresh ID.
func NewOperation(kind Kind, sources []string, destDir, newName string) PendingOperation {
	return PendingOperation{
		ID:      uuid.NewString(),
		Kind:    kind,
		Sources: slices.Clone(sources),
		DestDir: destDir,
		NewName: newName,
	}
}

func (op PendingOperation) String() string {
	switch op.Kind {
	case Copy, Move:
		return fmt.Sprintf("%s %d item(s) to %s", op.Kind, len(op.Sources), op.DestDir)
	case Delete:
		return fmt.Sprintf("delete %d item(s)", len(op.Sources))
	case Rename:
		return fmt.Sprintf("rename to %s", op.NewName)
	default:
		return fmt.Sprintf("%s %s", op.Kind, op.NewName)
	}
}

// Failure is one item that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Result is the outcome of one Execute call. Partial progress is always a
// valid result: Succeeded lists what was done even when the batch was
// cancelled or other items failed.
type Result struct {
	OperationID string
	Kind        Kind
	Succeeded   []string
	Conflicts   []string
	Failed      []Failure
	Cancelled   bool
}

// OK reports whether every item succeeded.
func (r Result) OK() bool {
	return len(r.Conflicts) == 0 && len(r.Failed) == 0 && !r.Cancelled
}

func (r Result) Summary() string {
	s := fmt.Sprintf("%s: %d done", r.Kind, len(r.Succeeded))
	if n := len(r.Conflicts); n > 0 {
		s += fmt.Sprintf(", %d conflict(s)", n)
	}
	if n := len(r.Failed); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	if r.Cancelled {
		s += ", cancelled"
	}
	return s
}

// Retry returns a forced copy of op limited to the conflicting sources of r.
// ok is false when there is nothing to retry.
func Retry(op PendingOperation, r Result) (PendingOperation, bool) {
	if !op.Kind.transfers() || len(r.Conflicts) == 0 {
		return PendingOperation{}, false
	}
	retry := NewOperation(op.Kind, r.Conflicts, op.DestDir, op.NewName)
	retry.Force = true
	return retry, true
}
