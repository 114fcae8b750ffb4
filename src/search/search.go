// Package search walks a directory tree lazily and yields the entries
// that satisfy a predicate.
//
// Traversal is depth-first with an explicit stack, so a caller can stop
// after any match and resume later, or cancel through the context passed
// to Next. Directory symlinks are followed unless they lead back to a
// directory that is already on the current path.
package search

import (
	"context"
	stderrors "errors"
	"iter"
	"slices"
	"strings"

	"dfm/src/fsys"
)

// ErrCycle is the cause reported for a directory skipped because it is
// already being traversed higher up the current path.
var ErrCycle = stderrors.New("symlink cycle")

// EventKind distinguishes matches from skipped directories.
type EventKind int

const (
	Match EventKind = iota
	Skipped
)

func (k EventKind) String() string {
	if k == Skipped {
		return "skipped"
	}
	return "match"
}

// Event is one item produced by an Iterator. For Match, Entry is the
// matching entry. For Skipped, Path is the directory that could not be
// read and Err says why.
type Event struct {
	Kind  EventKind
	Entry fsys.Entry
	Path  string
	Err   error
}

type frame struct {
	id      fsys.FileID
	entries []fsys.Entry
	next    int
}

// Iterator is a single traversal. It is not safe for concurrent use.
type Iterator struct {
	gw    fsys.Gateway
	root  string
	match Predicate

	started bool
	done    bool
	stack   []*frame
	queued  []Event
	cur     Event
	err     error
}

// Search starts a new traversal of root. Nothing is read until the first
// call to Next. The root itself is never reported.
func Search(gw fsys.Gateway, root string, match Predicate) *Iterator {
	if match == nil {
		match = Any
	}
	return &Iterator{gw: gw, root: root, match: match}
}

// Next advances to the next event. It returns false when the traversal is
// exhausted or ctx is done; Err distinguishes the two.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		it.descend(it.root)
	}
	for {
		if err := ctx.Err(); err != nil {
			it.err = err
			it.done = true
			return false
		}
		if len(it.queued) > 0 {
			it.cur = it.queued[0]
			it.queued = it.queued[1:]
			return true
		}
		if len(it.stack) == 0 {
			it.done = true
			return false
		}
		top := it.stack[len(it.stack)-1]
		if top.next >= len(top.entries) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		e := top.entries[top.next]
		top.next++
		matched := it.match(e)
		if e.IsDir() {
			it.descend(e.Path)
		}
		if matched {
			it.cur = Event{Kind: Match, Entry: e, Path: e.Path}
			return true
		}
	}
}

// Event returns the event produced by the last successful Next.
func (it *Iterator) Event() Event { return it.cur }

// Err returns the context error that stopped the traversal, if any.
func (it *Iterator) Err() error { return it.err }

// All adapts the iterator to a range-over-func sequence. Breaking out of
// the loop leaves the iterator resumable.
func (it *Iterator) All(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for it.Next(ctx) {
			if !yield(it.Event()) {
				return
			}
		}
	}
}

// Matches is All restricted to matching entries.
func (it *Iterator) Matches(ctx context.Context) iter.Seq[fsys.Entry] {
	return func(yield func(fsys.Entry) bool) {
		for ev := range it.All(ctx) {
			if ev.Kind == Match && !yield(ev.Entry) {
				return
			}
		}
	}
}

// descend pushes dir onto the stack, or queues a Skipped event when it
// cannot be listed or would close a cycle.
func (it *Iterator) descend(dir string) {
	id, err := it.gw.Identity(dir)
	if err != nil {
		it.skip(dir, err)
		return
	}
	for _, f := range it.stack {
		if f.id == id {
			it.skip(dir, ErrCycle)
			return
		}
	}
	entries, err := it.gw.List(dir)
	if err != nil {
		it.skip(dir, err)
		return
	}
	slices.SortFunc(entries, func(a, b fsys.Entry) int { return strings.Compare(a.Name, b.Name) })
	it.stack = append(it.stack, &frame{id: id, entries: entries})
}

func (it *Iterator) skip(path string, err error) {
	it.queued = append(it.queued, Event{Kind: Skipped, Path: path, Err: err})
}
