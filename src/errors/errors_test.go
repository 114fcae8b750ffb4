package errors_test

import (
	"fmt"
	"io/fs"
	"testing"

	"dfm/src/errors"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchesByKind(t *testing.T) {
	err := errors.New(errors.NameConflict, "/tmp/a", nil)
	assert.ErrorIs(t, err, errors.ErrNameConflict)
	assert.NotErrorIs(t, err, errors.ErrInvalidName)

	wrapped := fmt.Errorf("copy: %w", err)
	assert.ErrorIs(t, wrapped, errors.ErrNameConflict)
	assert.Equal(t, errors.NameConflict, errors.KindOf(wrapped))
}

func TestUnwrapReachesCause(t *testing.T) {
	err := errors.New(errors.IOFailure, "/x", fs.ErrNotExist)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "/x")
	assert.Contains(t, err.Error(), "i/o failure")
}

func TestFromFS(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, errors.FromFS("/x", nil))
	})

	t.Run("permission becomes access denied", func(t *testing.T) {
		err := errors.FromFS("/x", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission})
		assert.ErrorIs(t, err, errors.ErrAccessDenied)
		assert.ErrorIs(t, err, fs.ErrPermission)
	})

	t.Run("other errors become io failure", func(t *testing.T) {
		err := errors.FromFS("/x", fs.ErrNotExist)
		assert.ErrorIs(t, err, errors.ErrIOFailure)
	})

	t.Run("kinded errors pass through", func(t *testing.T) {
		in := errors.New(errors.NotADirectory, "/x", nil)
		assert.Same(t, in, errors.FromFS("/y", in))
	})
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, errors.Unknown, errors.KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "unsaved changes", errors.UnsavedChanges.String())
}
