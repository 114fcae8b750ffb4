package src

import (
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

const (
	appName         = "dfm"
	maxPreviewBytes = 1024 * 1024
	previewLines    = 200
	dateLayout      = "2006-01-02 15:04"
)

// Version is set by the CLI entry point.
var Version = "dev"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Background(lipgloss.Color("#1E1E1E")).
			Padding(0, 1).
			Bold(true)
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Italic(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#808080")).
			Padding(0, 1)
	activeListStyle = listStyle.Copy().
			BorderForeground(lipgloss.Color("#00FFFF"))
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Background(lipgloss.Color("#2F2F2F"))
	editorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#808080")).
			Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#00FFFF"))
	inactiveCursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#3A3A3A"))
	markedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)
	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF")).
			Bold(true)
	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D787FF"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080"))
	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD700")).
			Padding(0, 1).
			Bold(true)
	fBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Background(lipgloss.Color("#000000")).
			Padding(0, 1).
			Bold(true)
	fBarContent = "1Help  2Rename  3View  4Edit  5Copy  6Move  7Mkdir  8Delete  9Search  10Quit"
)

var chromaFormatter = formatters.TTY256

// chromaStyle resolves a configured style name; unknown names get chroma's
// fallback style.
var chromaStyle = styles.Get
