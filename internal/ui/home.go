// Package ui renders the session sidebar and drives the manager from
// keyboard input.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/leoustc/muxbar/internal/group"
	"github.com/leoustc/muxbar/internal/logging"
	"github.com/leoustc/muxbar/internal/manager"
)

var uiLog = logging.ForComponent(logging.CompUI)

// tickInterval drives the periodic session refresh. The session cache
// absorbs ticks that land inside its TTL.
const tickInterval = 2 * time.Second

// Version is set by main for the title bar.
var Version = "dev"

// ConfigReloadedMsg is sent from outside the program when the config file
// changes on disk; the model refetches groups so new tools appear.
type ConfigReloadedMsg struct{}

type groupsMsg []manager.GroupInfo

type groupsErrMsg struct{ err error }

type tickMsg time.Time

type attachFinishedMsg struct{ err error }

type departedMsg []string

type sessionCreatedMsg struct {
	name string
	err  error
}

type sessionDeletedMsg struct {
	name string
	err  error
}

// Home is the root bubbletea model.
type Home struct {
	mgr *manager.Manager

	groups    []manager.GroupInfo
	items     []Item
	cursor    int
	collapsed map[string]bool

	filter    textinput.Model
	filtering bool

	confirmDelete string

	status string
	errMsg string

	width  int
	height int
}

// NewHome creates the root model around a manager.
func NewHome(mgr *manager.Manager) *Home {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter sessions"
	ti.CharLimit = 64

	return &Home{
		mgr:       mgr,
		collapsed: make(map[string]bool),
		filter:    ti,
	}
}

func (h *Home) Init() tea.Cmd {
	return tea.Batch(h.loadGroups(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (h *Home) loadGroups() tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		groups, err := mgr.Groups(ctx)
		if err != nil {
			return groupsErrMsg{err: err}
		}
		return groupsMsg(groups)
	}
}

// reconcile asks the manager which sessions vanished since the last pass.
// Only reports when frontends should react to departures.
func (h *Home) reconcile() tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		departed, err := mgr.Reconcile(ctx)
		if err != nil || len(departed) == 0 || !mgr.AutoCloseEnabled() {
			return nil
		}
		return departedMsg(departed)
	}
}

func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		return h, nil

	case tickMsg:
		return h, tea.Batch(h.loadGroups(), h.reconcile(), tick())

	case departedMsg:
		if len(msg) > 0 {
			h.status = fmt.Sprintf("%d session(s) ended: %s", len(msg), strings.Join(msg, ", "))
		}
		return h, nil

	case ConfigReloadedMsg:
		h.status = "config reloaded"
		return h, h.loadGroups()

	case groupsMsg:
		h.groups = msg
		h.errMsg = ""
		h.rebuildItems()
		return h, nil

	case groupsErrMsg:
		h.errMsg = msg.err.Error()
		return h, nil

	case attachFinishedMsg:
		if msg.err != nil {
			h.errMsg = "attach failed: " + msg.err.Error()
		}
		h.mgr.Refresh()
		return h, h.loadGroups()

	case sessionCreatedMsg:
		if msg.err != nil {
			h.errMsg = "create failed: " + msg.err.Error()
			return h, nil
		}
		h.status = "created " + msg.name
		return h, h.loadGroups()

	case sessionDeletedMsg:
		if msg.err != nil {
			h.errMsg = "delete failed: " + msg.err.Error()
			return h, nil
		}
		h.status = "deleted " + msg.name
		return h, h.loadGroups()

	case tea.KeyMsg:
		return h.handleKey(msg)
	}

	return h, nil
}

func (h *Home) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if h.filtering {
		return h.handleFilterKey(msg)
	}

	// A pending delete only accepts confirm or cancel.
	if h.confirmDelete != "" {
		name := h.confirmDelete
		h.confirmDelete = ""
		if msg.String() == "y" {
			return h, h.deleteSession(name)
		}
		h.status = "delete cancelled"
		return h, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return h, tea.Quit

	case "up", "k":
		h.cursor = NextSelectable(h.items, h.cursor, -1)

	case "down", "j":
		h.cursor = NextSelectable(h.items, h.cursor, 1)

	case "enter":
		item, ok := h.current()
		if !ok {
			return h, nil
		}
		if item.Kind == ItemGroup {
			h.collapsed[item.Group.Name] = !h.collapsed[item.Group.Name]
			h.rebuildItems()
			return h, nil
		}
		return h, h.attach(item.Session.Name)

	case "n":
		item, ok := h.current()
		if ok && item.Kind == ItemGroup && item.Group.Command != "" {
			return h, h.createTool(item.Group.Command)
		}
		return h, h.createTerminal()

	case "d", "x":
		item, ok := h.current()
		if !ok || item.Kind != ItemSession {
			return h, nil
		}
		h.confirmDelete = item.Session.Name
		h.status = ""
		return h, nil

	case "f":
		item, ok := h.current()
		if !ok || item.Kind != ItemSession {
			return h, nil
		}
		fav, err := h.mgr.ToggleFavorite(item.Session.Name)
		if err != nil {
			h.errMsg = "favorite failed: " + err.Error()
			return h, nil
		}
		if fav {
			h.status = "favorited " + item.Session.Name
		} else {
			h.status = "unfavorited " + item.Session.Name
		}
		return h, h.loadGroups()

	case "r":
		if h.mgr.Refresh() {
			h.status = "refreshed"
		}
		return h, h.loadGroups()

	case "/":
		h.filtering = true
		h.filter.Focus()
		return h, textinput.Blink
	}

	return h, nil
}

func (h *Home) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		h.filtering = false
		h.filter.SetValue("")
		h.filter.Blur()
		h.rebuildItems()
		return h, nil
	case "enter":
		h.filtering = false
		h.filter.Blur()
		return h, nil
	}

	var cmd tea.Cmd
	h.filter, cmd = h.filter.Update(msg)
	h.rebuildItems()
	return h, cmd
}

func (h *Home) current() (Item, bool) {
	if h.cursor < 0 || h.cursor >= len(h.items) {
		return Item{}, false
	}
	return h.items[h.cursor], true
}

func (h *Home) rebuildItems() {
	items := Flatten(h.groups, h.collapsed)
	items = FilterSessions(items, h.filter.Value())
	h.items = items
	if h.cursor >= len(items) {
		h.cursor = len(items) - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
}

func (h *Home) attach(name string) tea.Cmd {
	cmdLine := h.mgr.AttachCommand(name)
	uiLog.Debug("attach", slog.String("session", name))
	c := exec.Command("sh", "-c", cmdLine)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return attachFinishedMsg{err: err}
	})
}

func (h *Home) createTerminal() tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		name, err := mgr.NewTerminalSession(ctx, "")
		return sessionCreatedMsg{name: name, err: err}
	}
}

func (h *Home) createTool(command string) tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		name, err := mgr.NewToolSession(ctx, command, "")
		return sessionCreatedMsg{name: name, err: err}
	}
}

func (h *Home) deleteSession(name string) tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := mgr.DeleteSession(ctx, name)
		return sessionDeletedMsg{name: name, err: err}
	}
}

func (h *Home) View() string {
	var b strings.Builder

	title := fmt.Sprintf("muxbar %s · %s", Version, h.mgr.Backend())
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	if len(h.items) == 0 {
		b.WriteString(HelpStyle.Render("no sessions · press n to create one"))
		b.WriteString("\n")
	}

	maxRows := h.height - 6
	if maxRows < 1 {
		maxRows = len(h.items)
	}
	start := 0
	if h.cursor >= maxRows {
		start = h.cursor - maxRows + 1
	}

	for i := start; i < len(h.items) && i < start+maxRows; i++ {
		b.WriteString(h.renderItem(h.items[i], i == h.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if h.filtering || h.filter.Value() != "" {
		b.WriteString(FilterPromptStyle.Render(h.filter.View()))
		b.WriteString("\n")
	}

	switch {
	case h.confirmDelete != "":
		b.WriteString(ErrorStyle.Render("delete " + h.confirmDelete + "? (y/n)"))
	case h.errMsg != "":
		b.WriteString(ErrorStyle.Render(h.errMsg))
	case h.status != "":
		b.WriteString(StatusStyle.Render(h.status))
	default:
		b.WriteString(HelpStyle.Render("enter attach · n new · d delete · f fav · / filter · r refresh · q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (h *Home) renderItem(item Item, selected bool) string {
	var line string
	var style = SessionStyle

	switch item.Kind {
	case ItemGroup:
		arrow := "▼"
		if h.collapsed[item.Group.Name] {
			arrow = "▶"
		}
		label := fmt.Sprintf("%s %s (%d)", arrow, item.Group.Name, len(item.Group.Sessions))
		if item.Group.Name == group.FavoritesKey {
			label = fmt.Sprintf("%s ★ %s (%d)", arrow, item.Group.Name, len(item.Group.Sessions))
		}
		line = label
		style = GroupStyle
		if len(item.Group.Sessions) == 0 {
			style = GroupEmptyStyle
		}
	case ItemSession:
		marker := "  "
		if item.Session.Favorite {
			marker = "★ "
			style = FavoriteStyle
		}
		line = "  " + marker + item.Session.Name
	}

	if h.width > 0 {
		line = runewidth.Truncate(line, h.width-1, "…")
	}
	if selected {
		return SelectedStyle.Render(line)
	}
	return style.Render(line)
}
