package editor

// Mode is the input mode of an editor.
type Mode int

const (
	Normal Mode = iota
	Insert
	Command
)

func (m Mode) String() string {
	switch m {
	case Insert:
		return "INSERT"
	case Command:
		return "COMMAND"
	default:
		return "NORMAL"
	}
}

// Special names the non-character keys the editor understands.
type Special int

const (
	NoSpecial Special = iota
	Escape
	Enter
	Backspace
	Tab
	Up
	Down
	Left
	Right
	PageUp
	PageDown
	Home
	End
)

// Key is either a printable rune or a special key.
type Key struct {
	Rune    rune
	Special Special
}

func RuneKey(r rune) Key       { return Key{Rune: r} }
func SpecialKey(s Special) Key { return Key{Special: s} }

// Motion is a cursor movement that never changes the text.
type Motion int

const (
	MoveLeft Motion = iota
	MoveRight
	MoveUp
	MoveDown
	MovePageUp
	MovePageDown
	MoveLineStart
	MoveLineEnd
	MoveLastLine
)

// ActionKind is the buffer mutation or side effect produced by a key.
type ActionKind int

const (
	NoAction ActionKind = iota
	Move
	InsertRune
	SplitLine
	DeleteBack
	DeleteUnder
	AppendAfter
	AppendEOL
	OpenBelow
	RunCommand
)

// Action is what a Transition asks the buffer or editor to do.
type Action struct {
	Kind    ActionKind
	Motion  Motion
	Rune    rune
	Command string
}

var (
	normalMotions = map[rune]Motion{
		'h': MoveLeft,
		'j': MoveDown,
		'k': MoveUp,
		'l': MoveRight,
		'0': MoveLineStart,
		'$': MoveLineEnd,
		'G': MoveLastLine,
	}
	specialMotions = map[Special]Motion{
		Left:     MoveLeft,
		Right:    MoveRight,
		Up:       MoveUp,
		Down:     MoveDown,
		PageUp:   MovePageUp,
		PageDown: MovePageDown,
		Home:     MoveLineStart,
		End:      MoveLineEnd,
	}
)

// Transition maps a key pressed in mode, with pending holding the command
// line typed so far, to the next mode, the next pending text and the action
// to apply. It performs no I/O and touches no buffer.
func Transition(mode Mode, pending string, k Key) (Mode, string, Action) {
	if m, ok := specialMotions[k.Special]; ok && mode != Command {
		return mode, pending, Action{Kind: Move, Motion: m}
	}
	switch mode {
	case Insert:
		switch k.Special {
		case Escape:
			return Normal, "", Action{}
		case Enter:
			return Insert, "", Action{Kind: SplitLine}
		case Backspace:
			return Insert, "", Action{Kind: DeleteBack}
		case Tab:
			return Insert, "", Action{Kind: InsertRune, Rune: '\t'}
		case NoSpecial:
			if k.Rune != 0 {
				return Insert, "", Action{Kind: InsertRune, Rune: k.Rune}
			}
		}
		return Insert, "", Action{}

	case Command:
		switch k.Special {
		case Escape:
			return Normal, "", Action{}
		case Enter:
			return Normal, "", Action{Kind: RunCommand, Command: pending}
		case Backspace:
			if pending == "" {
				return Normal, "", Action{}
			}
			r := []rune(pending)
			return Command, string(r[:len(r)-1]), Action{}
		case NoSpecial:
			if k.Rune != 0 {
				return Command, pending + string(k.Rune), Action{}
			}
		}
		return Command, pending, Action{}
	}

	if k.Special != NoSpecial {
		return Normal, "", Action{}
	}
	if m, ok := normalMotions[k.Rune]; ok {
		return Normal, "", Action{Kind: Move, Motion: m}
	}
	switch k.Rune {
	case 'i':
		return Insert, "", Action{}
	case ':':
		return Command, "", Action{}
	case 'a':
		return Insert, "", Action{Kind: AppendAfter}
	case 'A':
		return Insert, "", Action{Kind: AppendEOL}
	case 'o':
		return Insert, "", Action{Kind: OpenBelow}
	case 'x':
		return Normal, "", Action{Kind: DeleteUnder}
	}
	return Normal, "", Action{}
}
