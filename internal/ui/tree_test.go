package ui

import (
	"testing"

	"github.com/leoustc/muxbar/internal/manager"
)

func testGroups() []manager.GroupInfo {
	return []manager.GroupInfo{
		{Name: "terminal", Sessions: []manager.SessionInfo{
			{Name: "terminal-1", Group: "terminal"},
			{Name: "terminal-2", Group: "terminal"},
		}},
		{Name: "codex", Command: "codex", Sessions: []manager.SessionInfo{
			{Name: "codex-1", Group: "codex"},
		}},
	}
}

func TestFlatten(t *testing.T) {
	items := Flatten(testGroups(), nil)
	if len(items) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(items))
	}
	if items[0].Kind != ItemGroup || items[0].Group.Name != "terminal" {
		t.Errorf("row 0 = %+v", items[0])
	}
	if items[1].Kind != ItemSession || items[1].Session.Name != "terminal-1" {
		t.Errorf("row 1 = %+v", items[1])
	}
	if items[3].Kind != ItemGroup || items[3].Group.Name != "codex" {
		t.Errorf("row 3 = %+v", items[3])
	}
}

func TestFlattenCollapsed(t *testing.T) {
	items := Flatten(testGroups(), map[string]bool{"terminal": true})
	if len(items) != 3 {
		t.Fatalf("expected 3 rows with terminal collapsed, got %d", len(items))
	}
	if items[1].Kind != ItemGroup || items[1].Group.Name != "codex" {
		t.Errorf("row 1 = %+v", items[1])
	}
}

func TestFilterSessionsMatches(t *testing.T) {
	items := Flatten(testGroups(), nil)

	got := FilterSessions(items, "cdx1")
	if len(got) != 2 {
		t.Fatalf("expected group header + 1 session, got %d rows", len(got))
	}
	if got[0].Kind != ItemGroup || got[0].Group.Name != "codex" {
		t.Errorf("header = %+v", got[0])
	}
	if got[1].Session.Name != "codex-1" {
		t.Errorf("match = %+v", got[1])
	}
}

func TestFilterSessionsEmptyQueryPassesThrough(t *testing.T) {
	items := Flatten(testGroups(), nil)
	got := FilterSessions(items, "  ")
	if len(got) != len(items) {
		t.Errorf("empty query filtered rows: %d != %d", len(got), len(items))
	}
}

func TestFilterSessionsDropsEmptyGroups(t *testing.T) {
	items := Flatten(testGroups(), nil)
	got := FilterSessions(items, "terminal")
	for _, it := range got {
		if it.Kind == ItemGroup && it.Group.Name == "codex" {
			t.Error("codex header survived a terminal-only filter")
		}
	}
}

func TestNextSelectableClamps(t *testing.T) {
	items := Flatten(testGroups(), nil)
	if got := NextSelectable(items, 0, -1); got != 0 {
		t.Errorf("underflow = %d", got)
	}
	if got := NextSelectable(items, len(items)-1, 1); got != len(items)-1 {
		t.Errorf("overflow = %d", got)
	}
	if got := NextSelectable(items, 1, 1); got != 2 {
		t.Errorf("step = %d", got)
	}
	if got := NextSelectable(nil, 3, 1); got != 0 {
		t.Errorf("empty list = %d", got)
	}
}
