// Package fileop executes copy, move, delete, rename and create requests
// against a fsys.Gateway. It never touches panel state: callers refresh
// their views from the filesystem once a Result comes back.
package fileop

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"dfm/src/errors"
	"dfm/src/fsys"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each top-level source has been processed.
type ProgressFunc func(done, total int, current string)

// Engine runs PendingOperations. It holds no per-operation state, so one
// Engine may run operations for both panels, one at a time.
type Engine struct {
	gw  fsys.Gateway
	log *slog.Logger
}

func New(gw fsys.Gateway, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{gw: gw, log: log}
}

// Execute runs op to completion or until ctx is cancelled. Cancellation is
// checked between sources and between files of a recursive copy or delete;
// whatever was accumulated so far is returned.
func (e *Engine) Execute(ctx context.Context, op PendingOperation) Result {
	return e.ExecuteWithProgress(ctx, op, nil)
}

func (e *Engine) ExecuteWithProgress(ctx context.Context, op PendingOperation, progress ProgressFunc) Result {
	res := Result{OperationID: op.ID, Kind: op.Kind}
	e.log.Info("file operation started", "id", op.ID, "kind", op.Kind.String(), "sources", len(op.Sources), "dest", op.DestDir)

	switch op.Kind {
	case CreateFile, CreateDir:
		e.create(op, &res)
	case Rename:
		e.rename(ctx, op, &res)
	default:
		sources := slices.Clone(op.Sources)
		slices.Sort(sources)
		for i, src := range sources {
			if ctx.Err() != nil {
				res.Cancelled = true
				break
			}
			switch op.Kind {
			case Copy:
				e.copyOne(ctx, src, op.DestDir, op.Force, &res)
			case Move:
				e.moveOne(ctx, src, op.DestDir, op.Force, &res)
			case Delete:
				e.deleteOne(ctx, src, &res)
			default:
				res.fail(src, errors.Newf(errors.UnknownCommand, src, "unsupported operation %s", op.Kind))
			}
			if progress != nil {
				progress(i+1, len(sources), src)
			}
		}
	}
	if ctx.Err() != nil {
		res.Cancelled = true
	}

	for _, f := range res.Failed {
		e.log.Debug("file operation item failed", "id", op.ID, "path", f.Path, "err", f.Err)
	}
	e.log.Info("file operation finished", "id", op.ID, "kind", op.Kind.String(),
		"succeeded", len(res.Succeeded), "conflicts", len(res.Conflicts),
		"failed", len(res.Failed), "cancelled", res.Cancelled)
	return res
}

func (r *Result) succeed(path string) { r.Succeeded = append(r.Succeeded, path) }
func (r *Result) conflict(path string) { r.Conflicts = append(r.Conflicts, path) }

func (r *Result) fail(path string, err error) {
	r.Failed = append(r.Failed, Failure{Path: path, Err: err})
}

func (e *Engine) copyOne(ctx context.Context, src, destDir string, force bool, res *Result) {
	t, ok := e.prepareTransfer(src, destDir, force, res)
	if !ok {
		return
	}
	entry, err := e.gw.Stat(src)
	if err != nil {
		res.fail(src, err)
		return
	}
	if created, err := e.copyTree(ctx, entry, t.write); err != nil {
		if created {
			e.discard(t.write)
		}
		res.fail(src, err)
		return
	}
	if err := e.install(t); err != nil {
		e.discard(t.write)
		res.fail(src, err)
		return
	}
	res.succeed(src)
}

func (e *Engine) moveOne(ctx context.Context, src, destDir string, force bool, res *Result) {
	t, ok := e.prepareTransfer(src, destDir, force, res)
	if !ok {
		return
	}
	e.relocate(ctx, src, t, res)
}

// relocate renames src to its target, falling back to copy-verify-delete
// when the two are on different filesystems. The source is only removed
// once the data is in place at the final destination.
func (e *Engine) relocate(ctx context.Context, src string, t target, res *Result) {
	entry, err := e.gw.Stat(src)
	if err != nil {
		res.fail(src, err)
		return
	}
	err = e.gw.Rename(src, t.write)
	if err == nil {
		if err := e.install(t); err != nil {
			if rerr := e.gw.Rename(t.write, src); rerr != nil {
				e.log.Warn("could not restore moved source", "src", src, "from", t.write, "err", rerr)
			}
			res.fail(src, err)
			return
		}
		res.succeed(src)
		return
	}
	if !errors.Is(err, fsys.ErrCrossDevice) {
		res.fail(src, err)
		return
	}

	e.log.Debug("cross-device move, copying", "src", src, "dst", t.dst)
	created, err := e.copyTree(ctx, entry, t.write)
	if err != nil {
		if created {
			e.discard(t.write)
		}
		res.fail(src, err)
		return
	}
	if err := e.verify(ctx, src, t.write); err != nil {
		e.discard(t.write)
		res.fail(src, errors.New(errors.PartialFailure, src, err))
		return
	}
	if err := e.install(t); err != nil {
		e.discard(t.write)
		res.fail(src, err)
		return
	}
	if err := e.removeTree(ctx, src); err != nil {
		res.fail(src, errors.New(errors.PartialFailure, src,
			fmt.Errorf("copied to %s but source was not removed: %w", t.dst, err)))
		return
	}
	res.succeed(src)
}

// target is where a transfer ends up. Data is written to write; when
// replace is set write is a temporary sibling of dst that is swapped in by
// install once it is complete.
type target struct {
	dst, write string
	replace    bool
}

// tempSibling names an unused hidden entry next to dst.
func tempSibling(dst, tag string) string {
	return filepath.Join(filepath.Dir(dst), ".dfm-"+filepath.Base(dst)+"-"+tag+"-"+uuid.NewString()[:8])
}

// install moves a finished temporary copy over the existing destination.
// The old destination is set aside first and put back if the swap fails.
func (e *Engine) install(t target) error {
	if !t.replace {
		return nil
	}
	old := tempSibling(t.dst, "old")
	if err := e.gw.Rename(t.dst, old); err != nil {
		return fmt.Errorf("replace %s: %w", t.dst, err)
	}
	if err := e.gw.Rename(t.write, t.dst); err != nil {
		if rerr := e.gw.Rename(old, t.dst); rerr != nil {
			e.log.Warn("could not restore replaced destination", "dst", t.dst, "saved", old, "err", rerr)
		}
		return fmt.Errorf("replace %s: %w", t.dst, err)
	}
	if err := e.removeTree(context.Background(), old); err != nil {
		e.log.Warn("could not remove replaced destination", "path", old, "err", err)
	}
	return nil
}

// prepareTransfer resolves the destination of a copy or move. An existing
// entry there is a conflict unless force is set, in which case the data
// goes to a temporary sibling and the entry is only replaced once the
// transfer has succeeded. ok is false when the item has been recorded as a
// conflict or failure.
func (e *Engine) prepareTransfer(src, destDir string, force bool, res *Result) (target, bool) {
	src = filepath.Clean(src)
	dst := filepath.Join(destDir, filepath.Base(src))
	if dst == src {
		res.fail(src, errors.Newf(errors.NameConflict, src, "source and destination are the same"))
		return target{}, false
	}
	if strings.HasPrefix(dst, src+string(filepath.Separator)) {
		res.fail(src, errors.Newf(errors.InvalidName, dst, "destination is inside the source"))
		return target{}, false
	}
	exists, err := e.gw.Exists(dst)
	if err != nil {
		res.fail(src, err)
		return target{}, false
	}
	if !exists {
		return target{dst: dst, write: dst}, true
	}
	if !force {
		res.conflict(src)
		return target{}, false
	}
	return target{dst: dst, write: tempSibling(dst, "new"), replace: true}, true
}

func (e *Engine) deleteOne(ctx context.Context, src string, res *Result) {
	if err := e.removeTree(ctx, src); err != nil {
		res.fail(src, err)
		return
	}
	res.succeed(src)
}

func (e *Engine) rename(ctx context.Context, op PendingOperation, res *Result) {
	if len(op.Sources) != 1 {
		for _, src := range op.Sources {
			res.fail(src, errors.Newf(errors.InvalidName, src, "rename takes exactly one source"))
		}
		return
	}
	src := filepath.Clean(op.Sources[0])
	if err := ValidateName(op.NewName); err != nil {
		res.fail(src, err)
		return
	}
	dir := op.DestDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	dst := filepath.Join(dir, op.NewName)
	exists, err := e.gw.Exists(dst)
	if err != nil {
		res.fail(src, err)
		return
	}
	if exists {
		res.fail(src, errors.New(errors.NameConflict, dst, nil))
		return
	}
	e.relocate(ctx, src, target{dst: dst, write: dst}, res)
}

func (e *Engine) create(op PendingOperation, res *Result) {
	path := filepath.Join(op.DestDir, op.NewName)
	if err := ValidateName(op.NewName); err != nil {
		res.fail(path, err)
		return
	}
	exists, err := e.gw.Exists(path)
	if err != nil {
		res.fail(path, err)
		return
	}
	if exists {
		res.fail(path, errors.New(errors.NameConflict, path, nil))
		return
	}
	if op.Kind == CreateDir {
		err = e.gw.CreateDir(path)
	} else {
		err = e.gw.CreateFile(path)
	}
	if err != nil {
		res.fail(path, err)
		return
	}
	res.succeed(path)
}

// copyTree copies entry to dst, recursing into real directories. Symlinks
// are copied as links. created reports whether dst was created, so the
// caller knows whether there is a partial copy to discard.
func (e *Engine) copyTree(ctx context.Context, entry fsys.Entry, dst string) (created bool, err error) {
	if entry.Kind != fsys.Directory {
		if err := e.gw.Copy(entry.Path, dst); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := e.gw.CreateDir(dst); err != nil {
		return false, err
	}
	children, err := e.gw.List(entry.Path)
	if err != nil {
		return true, err
	}
	slices.SortFunc(children, func(a, b fsys.Entry) int { return strings.Compare(a.Name, b.Name) })
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if _, err := e.copyTree(ctx, child, filepath.Join(dst, child.Name)); err != nil {
			return true, err
		}
	}
	return true, nil
}

// removeTree deletes path and everything below it. A child that cannot be
// removed keeps its parent directories, but its siblings are still deleted;
// the child errors are joined.
func (e *Engine) removeTree(ctx context.Context, path string) error {
	entry, err := e.gw.Stat(path)
	if err != nil {
		return err
	}
	if entry.Kind == fsys.Directory {
		children, err := e.gw.List(path)
		if err != nil {
			return err
		}
		var errs []error
		for _, child := range children {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			if err := e.removeTree(ctx, child.Path); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	return e.gw.Delete(path)
}

// discard removes a partial or unverified copy. Failures are only logged:
// the item is already being reported as failed.
func (e *Engine) discard(path string) {
	if err := e.removeTree(context.Background(), path); err != nil {
		e.log.Warn("could not remove partial copy", "path", path, "err", err)
	}
}

// verify compares the total size of the source and destination trees,
// measuring both concurrently.
func (e *Engine) verify(ctx context.Context, src, dst string) error {
	var srcSize, dstSize int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		srcSize, err = e.treeSize(gctx, src)
		return err
	})
	g.Go(func() (err error) {
		dstSize, err = e.treeSize(gctx, dst)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	if srcSize != dstSize {
		return fmt.Errorf("verify copy: size mismatch, source %d bytes, copy %d bytes", srcSize, dstSize)
	}
	return nil
}

func (e *Engine) treeSize(ctx context.Context, path string) (int64, error) {
	entry, err := e.gw.Stat(path)
	if err != nil {
		return 0, err
	}
	if entry.Kind != fsys.Directory {
		return entry.Size, nil
	}
	children, err := e.gw.List(path)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := e.treeSize(ctx, child.Path)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ValidateName rejects names that are empty or would escape the target
// directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.Newf(errors.InvalidName, "", "name is empty")
	case name == "." || name == "..":
		return errors.Newf(errors.InvalidName, name, "reserved name")
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, filepath.Separator):
		return errors.Newf(errors.InvalidName, name, "name contains a path separator")
	case strings.ContainsRune(name, 0):
		return errors.Newf(errors.InvalidName, name, "name contains a NUL byte")
	}
	return nil
}
