package src

import (
	"dfm/src/editor"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	explorerMode mode = iota
	editorMode
	progressMode
	promptMode
	confirmMode
	searchMode
)

type keyMap struct {
	quit      key.Binding
	execute   key.Binding
	save      key.Binding
	cancel    key.Binding
	close     key.Binding
	refresh   key.Binding
	back      key.Binding
	selectIt  key.Binding
	filter    key.Binding
	hidden    key.Binding
	sortNext  key.Binding
	sortFlip  key.Binding
	tab       key.Binding
	down      key.Binding
	up        key.Binding
	pageDown  key.Binding
	pageUp    key.Binding
	top       key.Binding
	bottom    key.Binding
	right     key.Binding
	view      key.Binding
	edit      key.Binding
	newBuffer key.Binding
	copy      key.Binding
	move      key.Binding
	rename    key.Binding
	mkdir     key.Binding
	touch     key.Binding
	delete    key.Binding
	search    key.Binding
	command   key.Binding
	yank      key.Binding
	subshell  key.Binding
	help      key.Binding
	yes       key.Binding
	no        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:      key.NewBinding(key.WithKeys("ctrl+c", "q", "f10"), key.WithHelp("q/F10", "quit")),
		execute:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save file")),
		cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		close:     key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "close editor")),
		refresh:   key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		back:      key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace", "cd ..")),
		selectIt:  key.NewBinding(key.WithKeys(" ", "insert"), key.WithHelp("space", "select item")),
		filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		hidden:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "hidden files")),
		sortNext:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort key")),
		sortFlip:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sort order")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
		down:      key.NewBinding(key.WithKeys("j", "down")),
		up:        key.NewBinding(key.WithKeys("k", "up")),
		pageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+f")),
		pageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+b")),
		top:       key.NewBinding(key.WithKeys("home", "g")),
		bottom:    key.NewBinding(key.WithKeys("end", "G")),
		right:     key.NewBinding(key.WithKeys("l", "right")),
		view:      key.NewBinding(key.WithKeys("f3", "v"), key.WithHelp("F3", "quick view")),
		edit:      key.NewBinding(key.WithKeys("f4", "e"), key.WithHelp("F4", "edit")),
		newBuffer: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new buffer")),
		copy:      key.NewBinding(key.WithKeys("f5", "c"), key.WithHelp("F5", "copy")),
		move:      key.NewBinding(key.WithKeys("f6", "m"), key.WithHelp("F6", "move")),
		rename:    key.NewBinding(key.WithKeys("f2", "R"), key.WithHelp("F2", "rename")),
		mkdir:     key.NewBinding(key.WithKeys("f7"), key.WithHelp("F7", "mkdir")),
		touch:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new file")),
		delete:    key.NewBinding(key.WithKeys("f8", "delete"), key.WithHelp("F8", "delete")),
		search:    key.NewBinding(key.WithKeys("ctrl+p", "f9"), key.WithHelp("ctrl+p", "search")),
		command:   key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		yank:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		subshell:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "sub-shell")),
		help:      key.NewBinding(key.WithKeys("f1", "?"), key.WithHelp("F1", "help")),
		yes:       key.NewBinding(key.WithKeys("y", "Y", "enter")),
		no:        key.NewBinding(key.WithKeys("n", "N")),
	}
}

func helpString(b key.Binding) string {
	h := b.Help()
	return h.Key + ": " + h.Desc
}

// editorKeys translates a terminal key into editor keys. Pasted text
// arrives as one message with several runes.
func editorKeys(msg tea.KeyMsg) []editor.Key {
	switch msg.Type {
	case tea.KeyRunes:
		keys := make([]editor.Key, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			keys = append(keys, editor.RuneKey(r))
		}
		return keys
	case tea.KeySpace:
		return []editor.Key{editor.RuneKey(' ')}
	}
	if s, ok := specialKeys[msg.Type]; ok {
		return []editor.Key{editor.SpecialKey(s)}
	}
	return nil
}

var specialKeys = map[tea.KeyType]editor.Special{
	tea.KeyEsc:       editor.Escape,
	tea.KeyEnter:     editor.Enter,
	tea.KeyBackspace: editor.Backspace,
	tea.KeyTab:       editor.Tab,
	tea.KeyUp:        editor.Up,
	tea.KeyDown:      editor.Down,
	tea.KeyLeft:      editor.Left,
	tea.KeyRight:     editor.Right,
	tea.KeyPgUp:      editor.PageUp,
	tea.KeyPgDown:    editor.PageDown,
	tea.KeyHome:      editor.Home,
	tea.KeyEnd:       editor.End,
}
