package panel

import (
	"time"

	"dfm/src/fsys"
	"dfm/src/sorting"
)

// Row is one rendered line of a panel.
type Row struct {
	Name     string
	Path     string
	Kind     fsys.Kind
	Size     int64
	ModTime  time.Time
	IsDir    bool
	Parent   bool
	Selected bool
}

// View is a read-only copy of a panel for the renderer.
type View struct {
	Path          string
	Rows          []Row
	Cursor        int
	Sort          sorting.Policy
	Filter        string
	SelectedCount int
	SelectedBytes int64
	Active        bool
}

// DualView is the render model of the controller.
type DualView struct {
	Left   View
	Right  View
	Active Side
}

func (s *State) Snapshot() View {
	v := View{
		Path:   s.path,
		Rows:   make([]Row, 0, len(s.entries)),
		Cursor: s.cursor,
		Sort:   s.policy,
		Filter: s.filter,
	}
	for _, e := range s.entries {
		sel := s.selected[e.Name]
		if sel {
			v.SelectedCount++
			v.SelectedBytes += e.Size
		}
		v.Rows = append(v.Rows, Row{
			Name:     e.Name,
			Path:     e.Path,
			Kind:     e.Kind,
			Size:     e.Size,
			ModTime:  e.ModTime,
			IsDir:    e.IsDir(),
			Parent:   e.Parent,
			Selected: sel,
		})
	}
	return v
}

func (c *Controller) Snapshot() DualView {
	left, right := c.panels[Left].Snapshot(), c.panels[Right].Snapshot()
	left.Active = c.active == Left
	right.Active = c.active == Right
	return DualView{Left: left, Right: right, Active: c.active}
}
