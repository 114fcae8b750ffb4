package search

import (
	"strings"

	"dfm/src/fsys"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/unicode/norm"
)

// Predicate decides whether an entry is reported as a match.
type Predicate func(fsys.Entry) bool

// Any matches everything.
func Any(fsys.Entry) bool { return true }

func fold(s string) string { return strings.ToLower(norm.NFC.String(s)) }

// NameContains matches names containing sub, ignoring case and Unicode
// normalization form.
func NameContains(sub string) Predicate {
	sub = fold(sub)
	return func(e fsys.Entry) bool {
		return strings.Contains(fold(e.Name), sub)
	}
}

// NameGlob matches names against a shell-style pattern such as "*.go" or
// "{main,util}_test.go".
func NameGlob(pattern string) (Predicate, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return func(e fsys.Entry) bool { return g.Match(e.Name) }, nil
}

// NameFuzzy matches names that contain the characters of pattern in order.
func NameFuzzy(pattern string) Predicate {
	return func(e fsys.Entry) bool {
		return len(fuzzy.Find(pattern, []string{e.Name})) > 0
	}
}

// ContentContains matches regular files up to maxSize bytes whose text
// contains sub. Unreadable files do not match.
func ContentContains(gw fsys.Gateway, sub string, maxSize int64) Predicate {
	return func(e fsys.Entry) bool {
		if e.Kind != fsys.File || (maxSize > 0 && e.Size > maxSize) {
			return false
		}
		lines, err := gw.ReadText(e.Path)
		if err != nil {
			return false
		}
		for _, l := range lines {
			if strings.Contains(l, sub) {
				return true
			}
		}
		return false
	}
}

// FilesOnly excludes directories and directory symlinks.
func FilesOnly(e fsys.Entry) bool { return !e.IsDir() }

// And matches when every predicate matches.
func And(ps ...Predicate) Predicate {
	return func(e fsys.Entry) bool {
		for _, p := range ps {
			if !p(e) {
				return false
			}
		}
		return true
	}
}
