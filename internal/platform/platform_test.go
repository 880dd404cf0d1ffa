package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ExpandPath("~/env.sh", "")
	want := filepath.Join(home, "env.sh")
	if got != want {
		t.Errorf("ExpandPath(~/env.sh) = %q, want %q", got, want)
	}

	if got := ExpandPath("~", ""); got != home {
		t.Errorf("ExpandPath(~) = %q, want %q", got, home)
	}
}

func TestExpandPathRelative(t *testing.T) {
	got := ExpandPath("scripts/env.sh", "/work/proj")
	want := filepath.Join("/work/proj", "scripts", "env.sh")
	if got != want {
		t.Errorf("ExpandPath relative = %q, want %q", got, want)
	}
}

func TestExpandPathAbsoluteUnchanged(t *testing.T) {
	if got := ExpandPath("/etc/profile", "/work/proj"); got != "/etc/profile" {
		t.Errorf("absolute path changed: %q", got)
	}
}

func TestExpandPathEmpty(t *testing.T) {
	if got := ExpandPath("", "/work"); got != "" {
		t.Errorf("ExpandPath(\"\") = %q, want empty", got)
	}
}

func TestDetectReturnsStable(t *testing.T) {
	first := Detect()
	second := Detect()
	if first != second {
		t.Errorf("Detect not stable: %v vs %v", first, second)
	}
	if first.String() == "" {
		t.Error("String() returned empty")
	}
}
