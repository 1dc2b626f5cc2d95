package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/reghover/internal/hover"
	"github.com/dshills/reghover/internal/integration/debug/registers"
)

// RegisterRow is one line of the register table.
type RegisterRow struct {
	Name    string
	Value   string
	Width   int
	Changed bool
	Text    string
}

var plainDecimal = hover.NewDecimalFormatter(false, "")

// RegisterRows formats register values sorted by name. A row is marked
// changed when prev holds a different value for it; a nil prev marks
// nothing.
func RegisterRows(values, prev map[string]string) []RegisterRow {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)

	rows := make([]RegisterRow, 0, len(names))
	for _, n := range names {
		v := values[n]
		width := registers.Classify(n)
		if width == 0 {
			width, _ = registers.ArchWidth(n)
		}
		row := RegisterRow{
			Name:  n,
			Value: v,
			Width: width,
			Text:  fmt.Sprintf("%-8s [%d] %-28s %s", n, width, v, plainDecimal.Format(v)),
		}
		if prev != nil {
			old, ok := prev[n]
			row.Changed = !ok || old != v
		}
		rows = append(rows, row)
	}
	return rows
}

var (
	watchHeaderStyle  = tcell.StyleDefault.Reverse(true)
	watchChangedStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// watchView draws the live register table.
type watchView struct {
	app    *Application
	screen tcell.Screen

	prev   map[string]string
	rows   []RegisterRow
	offset int
	status string
}

// RunWatch shows the register table until q or Escape. It redraws after
// every stopped-event refresh; r refreshes on demand.
func RunWatch(ctx context.Context, app *Application) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	v := &watchView{app: app, screen: screen}
	return v.run(ctx)
}

func (v *watchView) run(ctx context.Context) error {
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	v.update(false)
	for {
		v.draw()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.app.Refreshed():
			v.update(true)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
			case *tcell.EventKey:
				if v.handleKey(ctx, ev) {
					return nil
				}
			}
		}
	}
}

// handleKey reports whether the view should close.
func (v *watchView) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.scroll(-1)
	case tcell.KeyDown:
		v.scroll(1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'r':
			rctx, cancel := v.app.requestContext(ctx)
			res := v.app.Refresh(rctx)
			cancel()
			v.status = "refresh: " + res.String()
			v.update(true)
		case 'k':
			v.scroll(-1)
		case 'j':
			v.scroll(1)
		}
	}
	return false
}

func (v *watchView) scroll(delta int) {
	_, h := v.screen.Size()
	maxOffset := len(v.rows) - (h - 2)
	v.offset += delta
	if v.offset > maxOffset {
		v.offset = maxOffset
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// update reloads rows from the cache. With diff set, rows that changed
// since the last update are highlighted.
func (v *watchView) update(diff bool) {
	values := v.app.controller.Cache().Snapshot()
	prev := v.prev
	if !diff {
		prev = nil
	}
	v.rows = RegisterRows(values, prev)
	v.prev = values
}

func (v *watchView) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()

	header := "registers"
	if id := v.app.gateway.ActiveSessionID(); id != "" {
		header += " - session " + id
	} else {
		header += " - no session"
	}
	header += " - r refresh, q quit"
	drawLine(v.screen, 0, w, header, watchHeaderStyle)

	y := 1
	for _, row := range v.rows[min(v.offset, len(v.rows)):] {
		if y >= h-1 {
			break
		}
		style := tcell.StyleDefault
		if row.Changed {
			style = watchChangedStyle
		}
		drawLine(v.screen, y, w, row.Text, style)
		y++
	}
	if len(v.rows) == 0 {
		drawLine(v.screen, 1, w, "no registers", tcell.StyleDefault)
	}

	drawLine(v.screen, h-1, w, v.status, tcell.StyleDefault)
	v.screen.Show()
}

func drawLine(s tcell.Screen, y, width int, text string, style tcell.Style) {
	x := 0
	for _, r := range text {
		if x >= width {
			break
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
	if style != tcell.StyleDefault {
		for ; x < width; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
}
