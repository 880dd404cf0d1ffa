// Package platform holds host-environment detection and path helpers shared
// by the config, store, and logging layers.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL     Platform = "wsl"
	PlatformUnknown Platform = "unknown"
)

// cached detection result
var detectedPlatform Platform
var detectionDone bool

// Detect returns the current platform, caching the result
func Detect() Platform {
	if detectionDone {
		return detectedPlatform
	}

	detectedPlatform = detectPlatform()
	detectionDone = true
	return detectedPlatform
}

func detectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "linux":
		if isWSL() {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// isWSL checks the WSL environment marker plus /proc/version signatures.
func isWSL() bool {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	procVersion, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := string(procVersion)
	return strings.Contains(v, "microsoft") || strings.Contains(v, "Microsoft")
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL:
		return "WSL"
	default:
		return "Unknown"
	}
}

// DataDir returns the per-user data directory (~/.muxbar), creating it if needed.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}
	dir := filepath.Join(homeDir, ".muxbar")
	_ = os.MkdirAll(dir, 0700)
	return dir
}

// ExpandPath resolves a leading ~ to the user home directory and, for
// relative paths, resolves against workspaceDir when it is non-empty.
// Absolute paths are returned unchanged.
func ExpandPath(path, workspaceDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) && workspaceDir != "" {
		return filepath.Join(workspaceDir, path)
	}
	return path
}

// CheckFsnotifySupport checks if a path's filesystem supports fsnotify events
// reliably. Returns a warning message on problematic filesystems (9p, nfs,
// cifs, sshfs), or an empty string if fsnotify should work normally. WSL2
// mounts Windows drives over 9p, where inotify events never arrive.
func CheckFsnotifySupport(path string) string {
	if runtime.GOOS != "linux" {
		return ""
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}

	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}

	// Longest mountpoint prefix wins.
	var matchedMount, matchedFsType string
	for _, line := range strings.Split(string(mounts), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint := fields[1]
		fsType := fields[2]
		if strings.HasPrefix(absPath, mountPoint) && len(mountPoint) > len(matchedMount) {
			matchedMount = mountPoint
			matchedFsType = fsType
		}
	}

	switch {
	case matchedFsType == "9p":
		return "config on 9p mount (WSL Windows filesystem): fsnotify disabled, use manual refresh"
	case matchedFsType == "nfs" || matchedFsType == "nfs4":
		return "config on NFS mount: fsnotify may be unreliable"
	case matchedFsType == "cifs" || matchedFsType == "smbfs":
		return "config on CIFS/SMB mount: fsnotify may be unreliable"
	case strings.HasPrefix(matchedFsType, "fuse.sshfs"):
		return "config on SSHFS mount: fsnotify disabled, use manual refresh"
	}

	return ""
}
