package ui

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/leoustc/muxbar/internal/manager"
)

// ItemKind discriminates sidebar rows.
type ItemKind int

const (
	ItemGroup ItemKind = iota
	ItemSession
)

// Item is one selectable sidebar row: a group header or a session under it.
type Item struct {
	Kind    ItemKind
	Group   manager.GroupInfo
	Session manager.SessionInfo
}

// Flatten turns grouped sessions into the ordered row list the sidebar
// renders. Collapsed groups contribute only their header row.
func Flatten(groups []manager.GroupInfo, collapsed map[string]bool) []Item {
	var items []Item
	for _, g := range groups {
		items = append(items, Item{Kind: ItemGroup, Group: g})
		if collapsed[g.Name] {
			continue
		}
		for _, s := range g.Sessions {
			items = append(items, Item{Kind: ItemSession, Group: g, Session: s})
		}
	}
	return items
}

// FilterSessions fuzzy-matches session rows against a query. Group headers
// are kept only when at least one of their sessions matches; an empty query
// returns the input unchanged.
func FilterSessions(items []Item, query string) []Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	var names []string
	var sessionIdx []int
	for i, it := range items {
		if it.Kind == ItemSession {
			names = append(names, it.Session.Name)
			sessionIdx = append(sessionIdx, i)
		}
	}

	matched := make(map[int]bool)
	for _, m := range fuzzy.Find(query, names) {
		matched[sessionIdx[m.Index]] = true
	}

	var out []Item
	for i, it := range items {
		if it.Kind != ItemGroup {
			continue
		}
		var members []Item
		for j := i + 1; j < len(items) && items[j].Kind == ItemSession; j++ {
			if matched[j] {
				members = append(members, items[j])
			}
		}
		if len(members) == 0 {
			continue
		}
		out = append(out, it)
		out = append(out, members...)
	}
	return out
}

// NextSelectable moves the cursor by delta, skipping nothing (every row is
// selectable) but clamping to the list bounds.
func NextSelectable(items []Item, cursor, delta int) int {
	if len(items) == 0 {
		return 0
	}
	cursor += delta
	if cursor < 0 {
		return 0
	}
	if cursor >= len(items) {
		return len(items) - 1
	}
	return cursor
}
