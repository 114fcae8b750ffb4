package editor

import "slices"

// Buffer holds the text being edited as runes, one slice per line. It always
// has at least one line. The column may sit one past the last rune.
type Buffer struct {
	lines [][]rune
	line  int
	col   int
	dirty bool
}

func NewBuffer(lines []string) *Buffer {
	b := &Buffer{}
	for _, l := range lines {
		b.lines = append(b.lines, []rune(l))
	}
	if len(b.lines) == 0 {
		b.lines = [][]rune{{}}
	}
	return b
}

func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return out
}

func (b *Buffer) Cursor() (line, col int) { return b.line, b.col }
func (b *Buffer) Dirty() bool             { return b.dirty }
func (b *Buffer) MarkClean()              { b.dirty = false }

// Apply performs a buffer action. RunCommand and NoAction are ignored.
func (b *Buffer) Apply(a Action, pageSize int) {
	switch a.Kind {
	case Move:
		b.move(a.Motion, pageSize)
	case InsertRune:
		b.insert(a.Rune)
	case SplitLine:
		b.split()
	case DeleteBack:
		b.backspace()
	case DeleteUnder:
		cur := b.lines[b.line]
		if b.col < len(cur) {
			b.lines[b.line] = slices.Delete(cur, b.col, b.col+1)
			b.dirty = true
		}
	case AppendAfter:
		b.col = min(b.col+1, len(b.lines[b.line]))
	case AppendEOL:
		b.col = len(b.lines[b.line])
	case OpenBelow:
		b.lines = slices.Insert(b.lines, b.line+1, []rune{})
		b.line++
		b.col = 0
		b.dirty = true
	}
}

func (b *Buffer) move(m Motion, pageSize int) {
	if pageSize < 1 {
		pageSize = 1
	}
	switch m {
	case MoveLeft:
		b.col = max(b.col-1, 0)
	case MoveRight:
		b.col = min(b.col+1, len(b.lines[b.line]))
	case MoveUp:
		b.setLine(b.line - 1)
	case MoveDown:
		b.setLine(b.line + 1)
	case MovePageUp:
		b.setLine(b.line - pageSize)
	case MovePageDown:
		b.setLine(b.line + pageSize)
	case MoveLineStart:
		b.col = 0
	case MoveLineEnd:
		b.col = len(b.lines[b.line])
	case MoveLastLine:
		b.setLine(len(b.lines) - 1)
	}
}

func (b *Buffer) setLine(n int) {
	b.line = min(max(n, 0), len(b.lines)-1)
	b.col = min(b.col, len(b.lines[b.line]))
}

func (b *Buffer) insert(r rune) {
	b.lines[b.line] = slices.Insert(b.lines[b.line], b.col, r)
	b.col++
	b.dirty = true
}

func (b *Buffer) split() {
	cur := b.lines[b.line]
	tail := slices.Clone(cur[b.col:])
	b.lines[b.line] = cur[:b.col:b.col]
	b.lines = slices.Insert(b.lines, b.line+1, tail)
	b.line++
	b.col = 0
	b.dirty = true
}

func (b *Buffer) backspace() {
	switch {
	case b.col > 0:
		b.lines[b.line] = slices.Delete(b.lines[b.line], b.col-1, b.col)
		b.col--
	case b.line > 0:
		prev := b.lines[b.line-1]
		b.col = len(prev)
		b.lines[b.line-1] = append(prev, b.lines[b.line]...)
		b.lines = slices.Delete(b.lines, b.line, b.line+1)
		b.line--
	default:
		return
	}
	b.dirty = true
}
