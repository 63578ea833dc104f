package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mediascribe/config"
	"mediascribe/gemini"
	"mediascribe/media"
	"mediascribe/session"
	"mediascribe/tui"
)

// Build info - set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(tui.ColorPrimary).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(tui.ColorSecondary).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(tui.ColorSuccess)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(tui.ColorError)

	infoStyle = lipgloss.NewStyle().
			Foreground(tui.ColorSubtle)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(tui.ColorSecondary).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

const usage = `mediascribe - audio & video to transcript, summary and key takeaways

Usage:
  mediascribe                      full-screen terminal UI
  mediascribe wizard               guided step-by-step forms
  mediascribe transcribe [flags] <file-or-url>
  mediascribe serve [--addr host:port]
  mediascribe update               update to the latest release
  mediascribe version

Environment:
  GEMINI_API_KEY (or GOOGLE_API_KEY, API_KEY)   Gemini API key
  GEMINI_MODEL                                  model override
  MEDIASCRIBE_CONFIG                            YAML config file
  MEDIASCRIBE_OUTPUT_DIR, MEDIASCRIBE_ADDR, MEDIASCRIBE_DEBUG
`

// app carries what every subcommand needs
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	connect session.Connector
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd, rest := parseCommand(args)

	switch cmd {
	case "version":
		printVersion(os.Stdout)
		return 0
	case "help":
		fmt.Print(usage)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	logger, closeLog := setupLogger(cfg, cmd)
	defer closeLog()
	slog.SetDefault(logger)

	a := newApp(cfg, logger)

	switch cmd {
	case "wizard":
		return a.runWizard()
	case "transcribe":
		return a.runTranscribe(rest)
	case "serve":
		return a.runServe(rest)
	case "update":
		return a.runUpdate()
	case "tui":
		return a.runTUI()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// parseCommand picks the subcommand; no arguments means the TUI
func parseCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "tui", nil
	}
	switch args[0] {
	case "-v", "--version", "-version":
		return "version", nil
	case "-h", "--help", "-help", "help":
		return "help", nil
	}
	return args[0], args[1:]
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{
		cfg:     cfg,
		logger:  logger,
		connect: newConnector(cfg, logger),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// newConnector builds the Gemini client per transcription so that a key set
// after startup is picked up and a missing one surfaces as a session error
func newConnector(cfg *config.Config, logger *slog.Logger) session.Connector {
	return func() (gemini.Transcriber, error) {
		client, err := gemini.NewClientFromEnv(
			gemini.WithModel(cfg.Model),
			gemini.WithTimeout(cfg.RequestTimeout),
			gemini.WithDebug(cfg.Debug),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// setupLogger writes text logs to stderr, except for the full-screen UI
// where stderr would corrupt the display: there logs go to a file in debug
// mode and are discarded otherwise
func setupLogger(cfg *config.Config, cmd string) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if cmd != "tui" && cmd != "wizard" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	if !cfg.Debug {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}

	path := filepath.Join(os.TempDir(), "mediascribe-debug.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mediascribe %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", commit)
	fmt.Fprintf(w, "  built:  %s\n", date)
	fmt.Fprintf(w, "  go:     %s\n", runtime.Version())
	fmt.Fprintf(w, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func (a *app) runTUI() int {
	if err := config.CheckAPIKey(); err != nil {
		fmt.Fprintln(a.stderr, infoStyle.Render("Note: "+err.Error()+". Transcription will fail until it is set."))
	}

	err := tui.RunApp(tui.Options{
		Session:    session.New(a.connect, session.WithLogger(a.logger)),
		OutputDir:  a.cfg.OutputDir,
		HTTPClient: a.fetchClient(),
		Logger:     a.logger,
	})
	if err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// fetchClient is the HTTP client for remote media downloads
func (a *app) fetchClient() *http.Client {
	timeout := a.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = media.DefaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

// indent prefixes every line with two spaces
func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
