package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"dfm/src/app"
	"dfm/src/editor"
	"dfm/src/errors"
	"dfm/src/fileop"
	"dfm/src/fsys"
	"dfm/src/logging"
	"dfm/src/panel"
	"dfm/src/search"
	"dfm/src/sorting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*app.App, string, string) {
	t.Helper()
	left, right := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(left, "a.txt"), []byte("alpha\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(left, "b.txt"), []byte("beta\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(left, "dir"), 0755))

	l, err := panel.New(fsys.Local{}, left, sorting.Default())
	require.NoError(t, err)
	r, err := panel.New(fsys.Local{}, right, sorting.Default())
	require.NoError(t, err)
	return app.New(fsys.Local{}, panel.NewController(l, r), app.WithLogger(logging.Discard())), left, right
}

func handle(t *testing.T, a *app.App, cmds ...app.Command) app.Outcome {
	t.Helper()
	var out app.Outcome
	for _, c := range cmds {
		var err error
		out, err = a.Handle(c)
		require.NoError(t, err, c.Kind.String())
	}
	return out
}

func cursorTo(t *testing.T, a *app.App, name string) {
	t.Helper()
	require.True(t, a.Controller().Active().Focus(name), name)
}

func TestCopyRoundTrip(t *testing.T) {
	a, left, right := newApp(t)
	cursorTo(t, a, "a.txt")

	out := handle(t, a, app.Command{Kind: app.ToggleSelection})
	assert.Nil(t, out.Pending)
	out = handle(t, a, app.Command{Kind: app.RequestCopy})
	require.NotNil(t, out.Pending)
	assert.Equal(t, right, out.Pending.DestDir)

	res, err := a.Execute(context.Background(), *out.Pending)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Summary())
	require.NoError(t, a.Complete(*out.Pending, res))

	v := a.Snapshot()
	assert.Equal(t, 0, v.Panels.Left.SelectedCount)
	var names []string
	for _, r := range v.Panels.Right.Rows {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "a.txt")
	assert.FileExists(t, filepath.Join(left, "a.txt"))
}

func TestConflictRetry(t *testing.T) {
	a, _, right := newApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(right, "a.txt"), []byte("old\n"), 0644))
	cursorTo(t, a, "a.txt")

	out := handle(t, a, app.Command{Kind: app.RequestCopy})
	res, err := a.Execute(context.Background(), *out.Pending)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	require.NoError(t, a.Complete(*out.Pending, res))

	retry, ok := a.Retry()
	require.True(t, ok)
	res, err = a.Execute(context.Background(), retry)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Summary())

	b, err := os.ReadFile(filepath.Join(right, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", string(b))
}

func TestCreateFocusesNewEntry(t *testing.T) {
	a, left, _ := newApp(t)
	out := handle(t, a, app.Command{Kind: app.CreateDir, Text: "zzz"})
	res, err := a.Execute(context.Background(), *out.Pending)
	require.NoError(t, err)
	require.NoError(t, a.Complete(*out.Pending, res))

	assert.DirExists(t, filepath.Join(left, "zzz"))
	cur, ok := a.Controller().Active().Current()
	require.True(t, ok)
	assert.Equal(t, "zzz", cur.Name)
}

func TestEditorCapturesInput(t *testing.T) {
	a, left, _ := newApp(t)
	cursorTo(t, a, "b.txt")

	out := handle(t, a, app.Command{Kind: app.OpenInEditor})
	assert.True(t, out.EditorOpened)
	require.NotNil(t, a.Snapshot().Editor)

	_, err := a.Handle(app.Command{Kind: app.SwapSide})
	assert.ErrorIs(t, err, app.ErrEditorOpen)
	assert.Equal(t, panel.Left, a.Controller().ActiveSide())

	key := func(r rune) app.Command { return app.Command{Kind: app.EditorKey, Key: editor.RuneKey(r)} }
	handle(t, a, key('A'), key('!'), app.Command{Kind: app.EditorKey, Key: editor.SpecialKey(editor.Escape)})

	_, err = a.Handle(app.Command{Kind: app.CloseEditor})
	assert.ErrorIs(t, err, errors.ErrUnsavedChanges)
	require.NotNil(t, a.Editor())
	assert.True(t, a.Snapshot().Editor.Confirming)

	out = handle(t, a, app.Command{Kind: app.ResolveEditorClose, Decision: editor.Save})
	assert.True(t, out.EditorClosed)
	assert.Nil(t, a.Editor())
	assert.Nil(t, a.Snapshot().Editor)

	b, err := os.ReadFile(filepath.Join(left, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta!\n", string(b))
}

func TestOpenDirectoryInEditorFails(t *testing.T) {
	a, _, _ := newApp(t)
	cursorTo(t, a, "dir")
	_, err := a.Handle(app.Command{Kind: app.OpenInEditor})
	assert.Error(t, err)
	assert.Nil(t, a.Editor())

	a.Controller().Active().CursorTop()
	_, err = a.Handle(app.Command{Kind: app.OpenInEditor})
	assert.ErrorIs(t, err, panel.ErrNothingSelected)
}

func TestNavigationErrorsLeaveStateUnchanged(t *testing.T) {
	a, left, _ := newApp(t)
	cursorTo(t, a, "a.txt")
	before := a.Snapshot()

	_, err := a.Handle(app.Command{Kind: app.NavigateInto})
	assert.ErrorIs(t, err, errors.ErrNotADirectory)
	assert.Equal(t, before, a.Snapshot())
	assert.Equal(t, left, a.Controller().Active().Path())
}

func TestSortAndFilterCommands(t *testing.T) {
	a, _, _ := newApp(t)
	p := sorting.Policy{Key: sorting.BySize, Order: sorting.Descending}
	handle(t, a,
		app.Command{Kind: app.SetSort, Policy: p},
		app.Command{Kind: app.SetFilter, Text: "a"},
	)
	v := a.Snapshot().Panels.Left
	assert.Equal(t, p, v.Sort)
	assert.Equal(t, "a", v.Filter)
	assert.Equal(t, sorting.Default(), a.Snapshot().Panels.Right.Sort)
}

func TestBusyRejectsSecondOperation(t *testing.T) {
	a, _, right := newApp(t)
	cursorTo(t, a, "a.txt")
	out := handle(t, a, app.Command{Kind: app.RequestCopy})

	var inner error
	var innerOut app.Outcome
	res, err := a.ExecuteWithProgress(context.Background(), *out.Pending, func(done, total int, current string) {
		assert.True(t, a.Busy())
		_, inner = a.Execute(context.Background(), *out.Pending)
		innerOut, _ = a.Handle(app.Command{Kind: app.RequestDelete})
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.ErrorIs(t, inner, app.ErrBusy)
	assert.Nil(t, innerOut.Pending)
	assert.False(t, a.Busy())
	assert.FileExists(t, filepath.Join(right, "a.txt"))
}

func TestSearchAndReveal(t *testing.T) {
	a, left, _ := newApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(left, "dir", "needle.md"), nil, 0644))

	var found []fsys.Entry
	for e := range a.Search(search.NameContains("needle")).Matches(context.Background()) {
		found = append(found, e)
	}
	require.Len(t, found, 1)

	require.NoError(t, a.Reveal(found[0].Path))
	assert.Equal(t, filepath.Join(left, "dir"), a.Controller().Active().Path())
	cur, _ := a.Controller().Active().Current()
	assert.Equal(t, "needle.md", cur.Name)
}

func TestRefreshDir(t *testing.T) {
	a, _, right := newApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(right, "new"), nil, 0644))
	require.NoError(t, a.RefreshDir(right))
	assert.Len(t, a.Snapshot().Panels.Right.Rows, 2)
}

func TestDeleteRequestAndComplete(t *testing.T) {
	a, left, _ := newApp(t)
	cursorTo(t, a, "a.txt")
	handle(t, a, app.Command{Kind: app.ToggleSelection}, app.Command{Kind: app.ToggleSelection})

	out := handle(t, a, app.Command{Kind: app.RequestDelete})
	require.Equal(t, fileop.Delete, out.Pending.Kind)
	assert.Len(t, out.Pending.Sources, 2)

	res, err := a.Execute(context.Background(), *out.Pending)
	require.NoError(t, err)
	require.NoError(t, a.Complete(*out.Pending, res))
	assert.NoFileExists(t, filepath.Join(left, "a.txt"))
	assert.NoFileExists(t, filepath.Join(left, "b.txt"))
	assert.Equal(t, 0, a.Snapshot().Panels.Left.SelectedCount)
}

func TestChangeDir(t *testing.T) {
	a, left, _ := newApp(t)
	handle(t, a, app.Command{Kind: app.ChangeDir, Text: filepath.Join(left, "dir")})
	assert.Equal(t, filepath.Join(left, "dir"), a.Controller().Active().Path())

	_, err := a.Handle(app.Command{Kind: app.ChangeDir, Text: filepath.Join(left, "missing")})
	assert.Error(t, err)
	assert.Equal(t, filepath.Join(left, "dir"), a.Controller().Active().Path())
}

func TestSaveEditorKeepsItOpen(t *testing.T) {
	a, left, _ := newApp(t)
	cursorTo(t, a, "a.txt")
	handle(t, a,
		app.Command{Kind: app.OpenInEditor},
		app.Command{Kind: app.EditorKey, Key: editor.RuneKey('x')},
	)
	out := handle(t, a, app.Command{Kind: app.SaveEditor})
	assert.False(t, out.EditorClosed)
	require.NotNil(t, a.Snapshot().Editor)
	assert.False(t, a.Snapshot().Editor.Dirty)

	b, err := os.ReadFile(filepath.Join(left, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "lpha\n", string(b))

	out = handle(t, a, app.Command{Kind: app.CloseEditor})
	assert.True(t, out.EditorClosed)
}

func TestToggleHidden(t *testing.T) {
	a, left, _ := newApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(left, ".secret"), nil, 0644))
	require.NoError(t, a.RefreshDir(left))

	names := func() []string {
		var out []string
		for _, r := range a.Snapshot().Panels.Left.Rows {
			out = append(out, r.Name)
		}
		return out
	}
	assert.Contains(t, names(), ".secret")
	handle(t, a, app.Command{Kind: app.ToggleHidden})
	assert.NotContains(t, names(), ".secret")
	handle(t, a, app.Command{Kind: app.ToggleHidden})
	assert.Contains(t, names(), ".secret")
}

func TestNewBufferSavesIntoActiveDirectory(t *testing.T) {
	a, left, _ := newApp(t)
	handle(t, a, app.Command{Kind: app.NewBuffer})
	for _, r := range "ihi" {
		handle(t, a, app.Command{Kind: app.EditorKey, Key: editor.RuneKey(r)})
	}
	handle(t, a, app.Command{Kind: app.EditorKey, Key: editor.SpecialKey(editor.Escape)})
	for _, r := range ":w new.txt" {
		handle(t, a, app.Command{Kind: app.EditorKey, Key: editor.RuneKey(r)})
	}
	handle(t, a, app.Command{Kind: app.EditorKey, Key: editor.SpecialKey(editor.Enter)})

	b, err := os.ReadFile(filepath.Join(left, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(b))
	assert.Equal(t, filepath.Join(left, "new.txt"), a.Snapshot().Editor.Path)
}

func TestEditorsLogThroughAppLogger(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(left, "a.txt"), []byte("alpha\n"), 0644))
	l, err := panel.New(fsys.Local{}, left, sorting.Default())
	require.NoError(t, err)
	r, err := panel.New(fsys.Local{}, right, sorting.Default())
	require.NoError(t, err)
	var logs bytes.Buffer
	a := app.New(fsys.Local{}, panel.NewController(l, r), app.WithLogger(logging.New(&logs, true)))

	cursorTo(t, a, "a.txt")
	handle(t, a, app.Command{Kind: app.OpenInEditor}, app.Command{Kind: app.SaveEditor})
	assert.Contains(t, logs.String(), "editor saved")
}
