package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/leoustc/muxbar/internal/config"
	"github.com/leoustc/muxbar/internal/group"
	"github.com/leoustc/muxbar/internal/logging"
	"github.com/leoustc/muxbar/internal/manager"
	"github.com/leoustc/muxbar/internal/platform"
	"github.com/leoustc/muxbar/internal/store"
	"github.com/leoustc/muxbar/internal/ui"
)

const Version = "0.3.0"

func init() {
	initColorProfile()
}

// initColorProfile configures the lipgloss color profile. MUXBAR_COLOR
// overrides auto-detection: truecolor, 256, 16, none.
func initColorProfile() {
	if colorEnv := os.Getenv("MUXBAR_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	if ct := os.Getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	// ANSI256 works everywhere a TUI makes sense, including over SSH.
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("muxbar v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "list", "ls":
			handleList(args[1:])
			return
		case "new":
			handleNew(args[1:])
			return
		case "attach":
			handleAttach(args[1:])
			return
		case "kill", "rm":
			handleKill(args[1:])
			return
		case "groups":
			handleGroups(args[1:])
			return
		default:
			fmt.Fprintf(os.Stderr, "muxbar: unknown command %q\n\n", args[0])
			printHelp()
			os.Exit(1)
		}
	}

	runTUI()
}

func printHelp() {
	fmt.Print(`muxbar - terminal session sidebar for tmux and GNU screen

Usage:
  muxbar                 launch the interactive sidebar
  muxbar list            print live sessions, one per line
  muxbar groups          print groups with session counts
  muxbar new [flags]     create a session and print its name
  muxbar attach <name>   attach the current terminal to a session
  muxbar kill <name>     destroy a session
  muxbar version         print the version

Flags for new:
  -title string     session title (sanitized into the name)
  -tool string      tool command to run in the session
  -group string     launch into a configured tool group
  -dir string       working directory for the session

Config: ~/.muxbar/config.toml
`)
}

// setup loads config, initializes logging, and builds the manager. CLI
// subcommands and the TUI share it.
func setup() (*config.Config, *manager.Manager, func()) {
	cfg, cfgErr := config.Load()

	debug := cfg.Logs.Debug || os.Getenv("MUXBAR_DEBUG") != ""
	logCfg := logging.Config{
		Level:      cfg.Logs.Level,
		Format:     cfg.Logs.Format,
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.Backups,
		MaxAgeDays: cfg.Logs.RetentionDays,
		Compress:   true,
		Debug:      debug,
	}
	if debug {
		logCfg.LogDir = platform.DataDir()
	}
	logging.Init(logCfg)
	if cfgErr != nil {
		// Defaults are already in effect; tell the user once.
		fmt.Fprintf(os.Stderr, "muxbar: %v (using defaults)\n", cfgErr)
	}

	favorites, err := store.Open(store.DefaultPath())
	var fav manager.Favorites
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: favorites unavailable: %v\n", err)
	} else {
		fav = favorites
	}

	mgr, err := manager.New(cfg, fav)
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}

	cleanup := func() {
		if favorites != nil {
			_ = favorites.Close()
		}
		logging.Shutdown()
	}
	return cfg, mgr, cleanup
}

func handleList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	_ = fs.Parse(args)

	_, mgr, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := mgr.Sessions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}
	for _, name := range sessions {
		fmt.Println(name)
	}
}

func handleGroups(args []string) {
	fs := flag.NewFlagSet("groups", flag.ExitOnError)
	_ = fs.Parse(args)

	_, mgr, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	groups, err := mgr.Groups(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}
	for _, g := range groups {
		fmt.Printf("%s (%d)\n", g.Name, len(g.Sessions))
		for _, s := range g.Sessions {
			marker := " "
			if s.Favorite {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, s.Name)
		}
	}
}

func handleNew(args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	title := fs.String("title", "", "session title")
	tool := fs.String("tool", "", "tool command to run")
	groupName := fs.String("group", "", "launch into a configured tool group")
	dir := fs.String("dir", "", "working directory")
	_ = fs.Parse(args)

	cfg, mgr, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	command := *tool
	if *groupName != "" {
		found := ""
		for _, cmd := range cfg.Tools {
			if group.ToolGroupName(cmd) == *groupName {
				found = cmd
				break
			}
		}
		if found == "" {
			fmt.Fprintf(os.Stderr, "muxbar: no configured tool for group %q\n", *groupName)
			os.Exit(1)
		}
		command = found
	}

	var name string
	var err error
	switch {
	case command != "":
		name, err = mgr.NewToolSession(ctx, command, *dir)
	case *title != "":
		name, err = mgr.NewNamedSession(ctx, *title, *dir)
	default:
		name, err = mgr.NewTerminalSession(ctx, *dir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(name)
}

func handleAttach(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: muxbar attach <name>")
		os.Exit(1)
	}

	_, mgr, cleanup := setup()
	defer cleanup()

	cmdLine := mgr.AttachCommand(args[0])
	cmd := exec.Command("sh", "-c", cmdLine)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: attach: %v\n", err)
		os.Exit(1)
	}
}

func handleKill(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: muxbar kill <name>")
		os.Exit(1)
	}

	_, mgr, cleanup := setup()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mgr.DeleteSession(ctx, args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("killed %s\n", args[0])
}

func runTUI() {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "muxbar: the sidebar needs a terminal; try 'muxbar list'")
		os.Exit(1)
	}

	cfg, mgr, cleanup := setup()
	defer cleanup()

	if err := mgr.CheckBackend(); err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %s not found: %v\n", cfg.Backend, err)
		os.Exit(1)
	}

	ui.Version = Version
	ui.InitTheme(cfg.ResolveTheme())

	home := ui.NewHome(mgr)
	p := tea.NewProgram(home, tea.WithAltScreen())

	// Live-reload the config so edits to tools or theme show up without a
	// restart. Watch failures are non-fatal.
	watcher, err := config.NewWatcher(func(next *config.Config) {
		mgr.ApplyConfig(next)
		ui.InitTheme(next.ResolveTheme())
		p.Send(ui.ConfigReloadedMsg{})
	})
	if err == nil {
		if warn := watcher.Warning(); warn != "" {
			fmt.Fprintln(os.Stderr, "muxbar: "+warn)
		}
		go watcher.Start()
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "muxbar: %v\n", err)
		os.Exit(1)
	}
}
