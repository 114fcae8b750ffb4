package app

import (
	"fmt"

	"dfm/src/editor"
	"dfm/src/sorting"
)

// CommandKind enumerates the inputs the application accepts. Key bindings
// are translated into Commands before they reach the core.
type CommandKind int

const (
	NavigateUp CommandKind = iota
	NavigateInto
	ChangeDir
	MoveCursor
	CursorTop
	CursorBottom
	ToggleSelection
	ClearSelection
	SwapSide
	Refresh
	SetSort
	SetFilter
	ToggleHidden
	RequestCopy
	RequestMove
	RequestDelete
	RequestRename
	CreateFile
	CreateDir
	OpenInEditor
	NewBuffer
	EditorKey
	SaveEditor
	CloseEditor
	ResolveEditorClose
)

var commandNames = [...]string{
	NavigateUp:         "navigate-up",
	NavigateInto:       "navigate-into",
	ChangeDir:          "change-dir",
	MoveCursor:         "move-cursor",
	CursorTop:          "cursor-top",
	CursorBottom:       "cursor-bottom",
	ToggleSelection:    "toggle-selection",
	ClearSelection:     "clear-selection",
	SwapSide:           "swap-side",
	Refresh:            "refresh",
	SetSort:            "set-sort",
	SetFilter:          "set-filter",
	ToggleHidden:       "toggle-hidden",
	RequestCopy:        "copy",
	RequestMove:        "move",
	RequestDelete:      "delete",
	RequestRename:      "rename",
	CreateFile:         "create-file",
	CreateDir:          "create-dir",
	OpenInEditor:       "open-in-editor",
	NewBuffer:          "new-buffer",
	EditorKey:          "editor-key",
	SaveEditor:         "save-editor",
	CloseEditor:        "close-editor",
	ResolveEditorClose: "resolve-editor-close",
}

func (k CommandKind) String() string {
	if int(k) >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is one normalized input. Only the fields relevant to Kind are read.
type Command struct {
	Kind     CommandKind
	Delta    int            // MoveCursor
	Policy   sorting.Policy // SetSort
	Text     string         // ChangeDir, SetFilter, RequestRename, CreateFile, CreateDir
	Force    bool           // RequestCopy, RequestMove
	Key      editor.Key
	Decision editor.CloseDecision
}

func (c Command) editorCommand() bool {
	switch c.Kind {
	case EditorKey, SaveEditor, CloseEditor, ResolveEditorClose:
		return true
	}
	return false
}
