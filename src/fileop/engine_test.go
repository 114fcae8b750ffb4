package fileop_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dfm/src/errors"
	"dfm/src/fileop"
	"dfm/src/fsys"
	"dfm/src/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedGateway refuses to delete the configured paths.
type lockedGateway struct {
	fsys.Gateway
	locked map[string]bool
}

func (g lockedGateway) Delete(path string) error {
	if g.locked[path] {
		return errors.New(errors.AccessDenied, path, os.ErrPermission)
	}
	return g.Gateway.Delete(path)
}

// crossDeviceGateway makes every rename look like it spans two filesystems.
// With pad set, each copied file gets an extra byte.
type crossDeviceGateway struct {
	fsys.Gateway
	pad bool
}

func (g crossDeviceGateway) Rename(from, to string) error {
	return errors.New(errors.IOFailure, from, fmt.Errorf("%w: simulated", fsys.ErrCrossDevice))
}

func (g crossDeviceGateway) Copy(from, to string) error {
	if err := g.Gateway.Copy(from, to); err != nil {
		return err
	}
	if !g.pad {
		return nil
	}
	f, err := os.OpenFile(to, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString("x")
	return err
}

// failingCopyGateway fails every file copy.
type failingCopyGateway struct {
	fsys.Gateway
}

func (g failingCopyGateway) Copy(from, to string) error {
	return errors.New(errors.IOFailure, from, fmt.Errorf("disk full"))
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func dirs(t *testing.T) (string, string) {
	t.Helper()
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "a.txt"), "alpha")
	write(t, filepath.Join(src, "b.txt"), "beta")
	write(t, filepath.Join(src, "tree", "one.txt"), "1")
	write(t, filepath.Join(src, "tree", "sub", "two.txt"), "22")
	return src, dst
}

func TestCopyFilesAndDirectories(t *testing.T) {
	src, dst := dirs(t)
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{
		filepath.Join(src, "tree"),
		filepath.Join(src, "a.txt"),
	}, dst, "")
	res := e.Execute(context.Background(), op)

	require.True(t, res.OK(), res.Summary())
	assert.Equal(t, op.ID, res.OperationID)
	assert.Equal(t, []string{filepath.Join(src, "a.txt"), filepath.Join(src, "tree")}, res.Succeeded)
	assert.Equal(t, "alpha", read(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "22", read(t, filepath.Join(dst, "tree", "sub", "two.txt")))
	assert.FileExists(t, filepath.Join(src, "a.txt"))
}

func TestCopyConflictIsSkippedThenRetried(t *testing.T) {
	src, dst := dirs(t)
	write(t, filepath.Join(dst, "a.txt"), "old")
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{
		filepath.Join(src, "a.txt"),
		filepath.Join(src, "b.txt"),
	}, dst, "")
	res := e.Execute(context.Background(), op)

	assert.Equal(t, []string{filepath.Join(src, "a.txt")}, res.Conflicts)
	assert.Equal(t, []string{filepath.Join(src, "b.txt")}, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Equal(t, "old", read(t, filepath.Join(dst, "a.txt")))

	retry, ok := fileop.Retry(op, res)
	require.True(t, ok)
	assert.True(t, retry.Force)
	assert.NotEqual(t, op.ID, retry.ID)

	res = e.Execute(context.Background(), retry)
	require.True(t, res.OK(), res.Summary())
	assert.Equal(t, "alpha", read(t, filepath.Join(dst, "a.txt")))
}

func TestForcedCopyReplacesDirectory(t *testing.T) {
	src, dst := dirs(t)
	write(t, filepath.Join(dst, "tree", "stale.txt"), "stale")
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{filepath.Join(src, "tree")}, dst, "")
	op.Force = true
	res := e.Execute(context.Background(), op)

	require.True(t, res.OK(), res.Summary())
	assert.NoFileExists(t, filepath.Join(dst, "tree", "stale.txt"))
	assert.FileExists(t, filepath.Join(dst, "tree", "one.txt"))
}

func TestFailedForcedCopyKeepsDestination(t *testing.T) {
	src, dst := dirs(t)
	write(t, filepath.Join(dst, "a.txt"), "precious")
	write(t, filepath.Join(dst, "tree", "keep.txt"), "keep")
	e := fileop.New(failingCopyGateway{Gateway: fsys.Local{}}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{
		filepath.Join(src, "a.txt"),
		filepath.Join(src, "tree"),
	}, dst, "")
	op.Force = true
	res := e.Execute(context.Background(), op)

	assert.Len(t, res.Failed, 2)
	assert.Equal(t, "precious", read(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "keep", read(t, filepath.Join(dst, "tree", "keep.txt")))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary copies left behind")
}

func TestFailedForcedMoveKeepsBothSides(t *testing.T) {
	src, dst := dirs(t)
	write(t, filepath.Join(dst, "tree", "keep.txt"), "keep")
	e := fileop.New(crossDeviceGateway{Gateway: fsys.Local{}, pad: true}, logging.Discard())

	op := fileop.NewOperation(fileop.Move, []string{filepath.Join(src, "tree")}, dst, "")
	op.Force = true
	res := e.Execute(context.Background(), op)

	require.Len(t, res.Failed, 1)
	assert.FileExists(t, filepath.Join(src, "tree", "sub", "two.txt"))
	assert.Equal(t, "keep", read(t, filepath.Join(dst, "tree", "keep.txt")))
	assert.NoFileExists(t, filepath.Join(dst, "tree", "one.txt"))
}

func TestForcedMoveReplacesFile(t *testing.T) {
	src, dst := dirs(t)
	write(t, filepath.Join(dst, "a.txt"), "old")
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Move, []string{filepath.Join(src, "a.txt")}, dst, "")
	op.Force = true
	res := e.Execute(context.Background(), op)

	require.True(t, res.OK(), res.Summary())
	assert.Equal(t, "alpha", read(t, filepath.Join(dst, "a.txt")))
	assert.NoFileExists(t, filepath.Join(src, "a.txt"))
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyOntoItselfFails(t *testing.T) {
	src, _ := dirs(t)
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{filepath.Join(src, "a.txt")}, src, "")
	op.Force = true
	res := e.Execute(context.Background(), op)

	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrNameConflict)
	assert.Equal(t, "alpha", read(t, filepath.Join(src, "a.txt")))
}

func TestCopyIntoOwnSubtreeFails(t *testing.T) {
	src, _ := dirs(t)
	e := fileop.New(fsys.Local{}, logging.Discard())

	op := fileop.NewOperation(fileop.Copy, []string{filepath.Join(src, "tree")}, filepath.Join(src, "tree", "sub"), "")
	res := e.Execute(context.Background(), op)

	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrInvalidName)
	assert.NoDirExists(t, filepath.Join(src, "tree", "sub", "tree"))
}

func TestMoveSameDevice(t *testing.T) {
	src, dst := dirs(t)
	e := fileop.New(fsys.Local{}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Move, []string{filepath.Join(src, "tree")}, dst, ""))

	require.True(t, res.OK(), res.Summary())
	assert.NoDirExists(t, filepath.Join(src, "tree"))
	assert.Equal(t, "1", read(t, filepath.Join(dst, "tree", "one.txt")))
}

func TestMoveAcrossDevicesCopiesThenDeletes(t *testing.T) {
	src, dst := dirs(t)
	e := fileop.New(crossDeviceGateway{Gateway: fsys.Local{}}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Move, []string{
		filepath.Join(src, "tree"),
		filepath.Join(src, "a.txt"),
	}, dst, ""))

	require.True(t, res.OK(), res.Summary())
	assert.NoDirExists(t, filepath.Join(src, "tree"))
	assert.NoFileExists(t, filepath.Join(src, "a.txt"))
	assert.Equal(t, "22", read(t, filepath.Join(dst, "tree", "sub", "two.txt")))
	assert.Equal(t, "alpha", read(t, filepath.Join(dst, "a.txt")))
}

func TestMoveAcrossDevicesSizeMismatchKeepsSource(t *testing.T) {
	src, dst := dirs(t)
	e := fileop.New(crossDeviceGateway{Gateway: fsys.Local{}, pad: true}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Move, []string{filepath.Join(src, "tree")}, dst, ""))

	require.Len(t, res.Failed, 1)
	assert.Empty(t, res.Succeeded)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrPartialFailure)
	assert.Contains(t, res.Failed[0].Err.Error(), "size mismatch")
	assert.Equal(t, "22", read(t, filepath.Join(src, "tree", "sub", "two.txt")))
	assert.NoDirExists(t, filepath.Join(dst, "tree"))
}

func TestMoveAcrossDevicesSourceDeleteFails(t *testing.T) {
	src, dst := dirs(t)
	a := filepath.Join(src, "a.txt")
	gw := lockedGateway{Gateway: crossDeviceGateway{Gateway: fsys.Local{}}, locked: map[string]bool{a: true}}
	e := fileop.New(gw, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Move, []string{a}, dst, ""))

	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrPartialFailure)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrAccessDenied)
	assert.FileExists(t, a)
	assert.Equal(t, "alpha", read(t, filepath.Join(dst, "a.txt")))
}

func TestDeleteContinuesPastLockedFile(t *testing.T) {
	dir := t.TempDir()
	var sources []string
	for i := range 5 {
		p := filepath.Join(dir, fmt.Sprintf("f%d", i))
		write(t, p, "x")
		sources = append(sources, p)
	}
	locked := sources[2]
	e := fileop.New(lockedGateway{Gateway: fsys.Local{}, locked: map[string]bool{locked: true}}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Delete, sources, "", ""))

	assert.Len(t, res.Succeeded, 4)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, locked, res.Failed[0].Path)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrAccessDenied)
	assert.FileExists(t, locked)
	assert.NoFileExists(t, sources[0])
	assert.NoFileExists(t, sources[4])
}

func TestDeleteKeepsOnlyTheFailingBranch(t *testing.T) {
	src, _ := dirs(t)
	one := filepath.Join(src, "tree", "one.txt")
	e := fileop.New(lockedGateway{Gateway: fsys.Local{}, locked: map[string]bool{one: true}}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Delete, []string{
		filepath.Join(src, "tree"),
		filepath.Join(src, "b.txt"),
	}, "", ""))

	assert.Equal(t, []string{filepath.Join(src, "b.txt")}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, filepath.Join(src, "tree"), res.Failed[0].Path)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrAccessDenied)
	assert.FileExists(t, one)
	assert.NoDirExists(t, filepath.Join(src, "tree", "sub"), "siblings of the locked file are removed")
	assert.NoFileExists(t, filepath.Join(src, "b.txt"))
}

func TestRenameValidation(t *testing.T) {
	src, _ := dirs(t)
	a := filepath.Join(src, "a.txt")
	e := fileop.New(fsys.Local{}, logging.Discard())

	for _, name := range []string{"", "  ", ".", "..", "x/y"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			res := e.Execute(context.Background(), fileop.NewOperation(fileop.Rename, []string{a}, src, name))
			require.Len(t, res.Failed, 1)
			assert.ErrorIs(t, res.Failed[0].Err, errors.ErrInvalidName)
			assert.FileExists(t, a)
		})
	}

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.Rename, []string{a}, src, "b.txt"))
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrNameConflict)
	assert.Equal(t, "beta", read(t, filepath.Join(src, "b.txt")))

	res = e.Execute(context.Background(), fileop.NewOperation(fileop.Rename, []string{a}, src, "c.txt"))
	require.True(t, res.OK(), res.Summary())
	assert.Equal(t, "alpha", read(t, filepath.Join(src, "c.txt")))
	assert.NoFileExists(t, a)
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	e := fileop.New(fsys.Local{}, logging.Discard())

	res := e.Execute(context.Background(), fileop.NewOperation(fileop.CreateFile, nil, dir, "notes.txt"))
	require.True(t, res.OK(), res.Summary())
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, res.Succeeded)
	assert.Empty(t, read(t, filepath.Join(dir, "notes.txt")))

	res = e.Execute(context.Background(), fileop.NewOperation(fileop.CreateDir, nil, dir, "sub"))
	require.True(t, res.OK(), res.Summary())
	assert.DirExists(t, filepath.Join(dir, "sub"))

	res = e.Execute(context.Background(), fileop.NewOperation(fileop.CreateDir, nil, dir, "notes.txt"))
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrNameConflict)

	res = e.Execute(context.Background(), fileop.NewOperation(fileop.CreateFile, nil, dir, ".."))
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, errors.ErrInvalidName)
}

func TestCancelledBeforeStart(t *testing.T) {
	src, dst := dirs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := fileop.New(fsys.Local{}, logging.Discard()).Execute(ctx, fileop.NewOperation(fileop.Copy, []string{filepath.Join(src, "a.txt")}, dst, ""))

	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Succeeded)
	assert.NoFileExists(t, filepath.Join(dst, "a.txt"))
}

func TestCancelBetweenSourcesKeepsPartialProgress(t *testing.T) {
	src, dst := dirs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	res := fileop.New(fsys.Local{}, logging.Discard()).ExecuteWithProgress(ctx, fileop.NewOperation(fileop.Copy, []string{
		filepath.Join(src, "a.txt"),
		filepath.Join(src, "b.txt"),
	}, dst, ""), func(done, total int, current string) {
		calls++
		assert.Equal(t, 2, total)
		cancel()
	})

	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{filepath.Join(src, "a.txt")}, res.Succeeded)
	assert.FileExists(t, filepath.Join(dst, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dst, "b.txt"))
}

func TestRetryOnlyForTransfers(t *testing.T) {
	op := fileop.NewOperation(fileop.Delete, []string{"/x"}, "", "")
	_, ok := fileop.Retry(op, fileop.Result{Conflicts: []string{"/x"}})
	assert.False(t, ok)

	op = fileop.NewOperation(fileop.Copy, []string{"/x", "/y"}, "/d", "")
	_, ok = fileop.Retry(op, fileop.Result{Succeeded: []string{"/x", "/y"}})
	assert.False(t, ok)
}

func TestSummary(t *testing.T) {
	r := fileop.Result{
		Kind:      fileop.Copy,
		Succeeded: []string{"a", "b"},
		Conflicts: []string{"c"},
		Failed:    []fileop.Failure{{Path: "d"}},
	}
	assert.Equal(t, "copy: 2 done, 1 conflict(s), 1 failed", r.Summary())
	assert.False(t, r.OK())
}
