package src

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dfm/src/app"
	"dfm/src/sorting"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandResult is the output of a shell command run from the command line.
type CommandResult struct {
	Output string
	Err    error
}

// executeCommand runs one line typed at the ":" prompt.
func (m *Model) executeCommand(cmdStr string) tea.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if shell, ok := strings.CutPrefix(cmdStr, "!"); ok {
		return m.runSystemCommand(strings.TrimSpace(shell))
	}
	args := strings.Fields(cmdStr)
	if len(args) == 0 {
		return nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(cmdStr, args[0]))
	switch args[0] {
	case "cd":
		dir := rest
		if dir == "" || dir == "~" || strings.HasPrefix(dir, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				m.fail(err)
				return nil
			}
			dir = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(dir, "~"), "/"))
		}
		return m.do(app.Command{Kind: app.ChangeDir, Text: dir})
	case "mkdir":
		return m.requireArg(args[0], rest, app.CreateDir)
	case "touch":
		return m.requireArg(args[0], rest, app.CreateFile)
	case "mv", "rename":
		return m.requireArg(args[0], rest, app.RequestRename)
	case "cp", "copy":
		return m.do(app.Command{Kind: app.RequestCopy, Force: rest == "-f"})
	case "move":
		return m.do(app.Command{Kind: app.RequestMove, Force: rest == "-f"})
	case "rm", "delete":
		return m.do(app.Command{Kind: app.RequestDelete})
	case "find":
		return m.startSearch(rest)
	case "filter":
		return m.do(app.Command{Kind: app.SetFilter, Text: rest})
	case "hidden":
		return m.do(app.Command{Kind: app.ToggleHidden})
	case "sort":
		p, err := parseSort(m.app.Controller().Active().Policy(), args[1:])
		if err != nil {
			m.fail(err)
			return nil
		}
		return m.do(app.Command{Kind: app.SetSort, Policy: p})
	case "edit":
		if rest != "" && !m.app.Controller().Active().Focus(rest) {
			m.fail(fmt.Errorf("%s: not in this directory", rest))
			return nil
		}
		return m.do(app.Command{Kind: app.OpenInEditor})
	case "new":
		return m.do(app.Command{Kind: app.NewBuffer})
	case "refresh":
		return m.do(app.Command{Kind: app.Refresh})
	case "q", "quit":
		m.quitting = true
		m.stop()
		return tea.Quit
	}
	m.fail(fmt.Errorf("unknown command %q", args[0]))
	return nil
}

func (m *Model) requireArg(name, arg string, kind app.CommandKind) tea.Cmd {
	if arg == "" {
		m.fail(fmt.Errorf("%s requires a name", name))
		return nil
	}
	return m.do(app.Command{Kind: kind, Text: arg})
}

// parseSort reads "sort <key> [asc|desc]". Without an order the current one
// is kept.
func parseSort(cur sorting.Policy, args []string) (sorting.Policy, error) {
	if len(args) == 0 || len(args) > 2 {
		return cur, fmt.Errorf("usage: sort name|size|modified [asc|desc]")
	}
	k, err := sorting.ParseKey(args[0])
	if err != nil {
		return cur, err
	}
	p := sorting.Policy{Key: k, Order: cur.Order}
	if len(args) == 2 {
		if p.Order, err = sorting.ParseOrder(args[1]); err != nil {
			return cur, err
		}
	}
	return p, nil
}

// runSystemCommand runs line with sh -c in the active panel's directory
// and reports its combined output.
func (m *Model) runSystemCommand(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	dir := m.app.Controller().Active().Path()
	m.statusMsg = "Running " + line
	m.log.Info("shell command", "dir", dir, "cmd", line)
	return func() tea.Msg {
		cmd := exec.Command("sh", "-c", line)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		return CommandResult{Output: strings.TrimSpace(string(out)), Err: err}
	}
}

func (m *Model) commandFinished(msg CommandResult) {
	if msg.Err != nil {
		m.statusMsg = errorStyle.Render(fmt.Sprintf("Command failed: %v %s", msg.Err, firstLine(msg.Output)))
	} else {
		m.statusMsg = successStyle.Render(firstLine(msg.Output))
	}
	m.refresh()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// completeCommand completes the last word of input against the names in
// the active panel's directory.
func (m *Model) completeCommand(input string) string {
	args := strings.Fields(input)
	if len(args) < 2 || strings.HasSuffix(input, " ") {
		return input
	}
	last := args[len(args)-1]
	dir, prefix := filepath.Split(last)
	full := dir
	if !filepath.IsAbs(dir) {
		full = filepath.Join(m.app.Controller().Active().Path(), dir)
	}
	entries, err := m.app.Gateway().List(full)
	if err != nil {
		return input
	}
	var matches []string
	isDir := map[string]bool{}
	for _, e := range entries {
		if strings.HasPrefix(e.Name, prefix) {
			matches = append(matches, e.Name)
			isDir[e.Name] = e.IsDir()
		}
	}
	if len(matches) == 0 {
		return input
	}
	common := commonPrefix(matches)
	if len(matches) > 1 {
		m.statusMsg = strings.Join(matches, " ")
	}
	if common == "" {
		return input
	}
	newLast := dir + common
	if len(matches) == 1 && isDir[common] {
		newLast += "/"
	}
	return strings.TrimSuffix(input, last) + newLast
}

func commonPrefix(strs []string) string {
	if len(strs) == 0 {
		return ""
	}
	prefix := strs[0]
	for _, s := range strs[1:] {
		i := 0
		for ; i < len(prefix) && i < len(s) && prefix[i] == s[i]; i++ {
		}
		prefix = prefix[:i]
		if prefix == "" {
			return ""
		}
	}
	return prefix
}
