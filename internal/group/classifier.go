// Package group derives display groups from session names and tool commands.
package group

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultGroup is the fixed group every unclassifiable session lands in.
const DefaultGroup = "terminal"

// FavoritesKey is the pseudo-group holding favorited sessions. It is not a
// backend group and must never collide with one.
const FavoritesKey = "favorites"

// DefaultToolGroup is used when a tool command reduces to nothing.
const DefaultToolGroup = "tool"

var nonGroupChars = regexp.MustCompile(`[^a-z0-9]+`)

// genericSessionPattern infers a group from "<group>-<suffix>" when no known
// group prefix matches. The greedy first capture means a multi-hyphen name
// like "my-custom-thing-1" groups as "my-custom-thing"; the sidebar's
// grouping depends on that exact greediness, so keep it.
var genericSessionPattern = regexp.MustCompile(`^(.+)-([a-z0-9-]+)$`)

// ToolGroupName derives the group key for a tool command: first token,
// path basename, lowercased, runs of non [a-z0-9] collapsed to hyphens.
func ToolGroupName(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return DefaultToolGroup
	}
	token := command
	if idx := strings.IndexFunc(command, func(r rune) bool { return r == ' ' || r == '\t' }); idx >= 0 {
		token = command[:idx]
	}
	name := strings.ToLower(filepath.Base(token))
	name = nonGroupChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return DefaultToolGroup
	}
	return name
}

// KnownGroupNames returns the fixed "terminal" group plus one group per tool
// command, deduplicated and sorted by descending name length. Longer names
// sort first so a session like "codex-review-1" matches "codex-review"
// before the shorter "codex".
func KnownGroupNames(toolCommands []string) []string {
	names := []string{DefaultGroup}
	seen := map[string]bool{DefaultGroup: true, FavoritesKey: true}
	for _, cmd := range toolCommands {
		if strings.TrimSpace(cmd) == "" {
			continue
		}
		name := ToolGroupName(cmd)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})
	return names
}

// SessionGroup classifies a session name into a group. knownGroups must come
// from KnownGroupNames (length-descending order is what makes longest-prefix
// win). Unmatched names fall back to the generic "<group>-<suffix>" pattern,
// then to the terminal group.
func SessionGroup(session string, knownGroups []string) string {
	s := strings.ToLower(session)
	for _, g := range knownGroups {
		if strings.HasPrefix(s, g+"-") {
			return g
		}
	}

	if m := genericSessionPattern.FindStringSubmatch(s); m != nil {
		inferred := m[1]
		if inferred == FavoritesKey {
			return DefaultGroup
		}
		return inferred
	}

	return DefaultGroup
}
