// Package sorting orders directory listings.
package sorting

import (
	"fmt"
	"slices"
	"strings"

	"dfm/src/fsys"

	"golang.org/x/text/unicode/norm"
)

type Key int

const (
	ByName Key = iota
	BySize
	ByModTime
)

var Keys = []Key{ByName, BySize, ByModTime}

func (k Key) String() string {
	switch k {
	case BySize:
		return "size"
	case ByModTime:
		return "modified"
	default:
		return "name"
	}
}

type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// Policy is a sort key plus direction.
type Policy struct {
	Key   Key
	Order Order
}

func Default() Policy { return Policy{Key: ByName, Order: Ascending} }

func (p Policy) String() string {
	return p.Key.String() + " " + p.Order.String()
}

// Reversed returns the same key in the opposite direction.
func (p Policy) Reversed() Policy {
	if p.Order == Ascending {
		p.Order = Descending
	} else {
		p.Order = Ascending
	}
	return p
}

func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "":
		return ByName, nil
	case "size":
		return BySize, nil
	case "modified", "mtime", "date", "time":
		return ByModTime, nil
	}
	return ByName, fmt.Errorf("unknown sort key %q", s)
}

func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown sort order %q", s)
}

// Sort orders entries in place. Ties on the key are broken by folded name,
// then raw name, then path, so the ascending order is total and descending
// is its exact reverse. Parent ("..") entries stay in front.
func (p Policy) Sort(entries []fsys.Entry) {
	rest := entries
	for i := range entries {
		if entries[i].Parent {
			entries[0], entries[i] = entries[i], entries[0]
			rest = entries[1:]
			break
		}
	}

	folded := make(map[string]string, len(rest))
	for _, e := range rest {
		folded[e.Path] = fold(e.Name)
	}
	slices.SortFunc(rest, func(a, b fsys.Entry) int {
		if c := p.compareKey(a, b); c != 0 {
			return c
		}
		if c := strings.Compare(folded[a.Path], folded[b.Path]); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	if p.Order == Descending {
		slices.Reverse(rest)
	}
}

// Sorted returns a sorted copy of entries.
func (p Policy) Sorted(entries []fsys.Entry) []fsys.Entry {
	out := slices.Clone(entries)
	p.Sort(out)
	return out
}

func (p Policy) compareKey(a, b fsys.Entry) int {
	switch p.Key {
	case BySize:
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		}
	case ByModTime:
		return a.ModTime.Compare(b.ModTime)
	}
	return 0
}

func fold(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}
