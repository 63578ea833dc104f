package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mediascribe/export"
	"mediascribe/media"
	"mediascribe/session"
)

// Step is the screen currently shown
type Step int

const (
	StepSelectSource Step = iota
	StepPickFile
	StepEnterPath
	StepEnterURL
	StepStaged
	StepWorking
	StepResults
	StepError
)

type resultTab int

const (
	tabSummary resultTab = iota
	tabKeyPoints
	tabTranscript
)

var tabTitles = []string{"Summary", "Key Takeaways", "Transcript"}

// copyFeedback is how long the "Copied!" acknowledgement stays visible
const copyFeedback = 2 * time.Second

var sourceOptions = []struct {
	name string
	desc string
}{
	{"Pick a local file", "Browse for an audio or video file"},
	{"Type a file path", "Paste the path of a local file"},
	{"Fetch from a URL", "Direct media link or Google Drive share link"},
}

var stagedOptions = []string{"Transcribe", "Remove file"}

// Options configures the app model
type Options struct {
	Session   *session.Session
	OutputDir string

	// HTTPClient is used for URL downloads; nil uses the media default
	HTTPClient *http.Client

	// Clipboard writes text to the system clipboard; nil uses atotto/clipboard
	Clipboard func(string) error

	Logger *slog.Logger
}

// AppModel is the Bubble Tea model for the whole intake, transcription and
// results workflow. Lifecycle decisions live in the session; the model only
// mirrors its snapshots.
type AppModel struct {
	step       Step
	returnStep Step

	sess       *session.Session
	snap       session.Snapshot
	outputDir  string
	httpClient *http.Client
	clipboard  func(string) error
	logger     *slog.Logger

	filepicker filepicker.Model
	textInput  textinput.Model
	spinner    spinner.Model
	viewport   viewport.Model

	sourceIndex int
	stagedIndex int

	working       string
	workingStatus session.Status
	startTime     time.Time

	notice      string
	noticeError bool

	tab     resultTab
	showRaw bool
	copied  bool
	copySeq int

	width    int
	height   int
	quitting bool

	ctx    context.Context
	cancel context.CancelFunc
}

type acquiredMsg struct{ err error }

type transcribedMsg struct{ err error }

type copiedMsg struct{ err error }

type copyExpiredMsg struct{ seq int }

type savedMsg struct {
	path string
	err  error
}

// NewApp creates the app model
func NewApp(opts Options) AppModel {
	if opts.Session == nil {
		opts.Session = session.New(nil)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	fp := filepicker.New()
	fp.AllowedTypes = media.SupportedExtensions()
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.ShowHidden = false
	fp.ShowSize = true
	fp.Height = 12
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	ti := textinput.New()
	ti.CharLimit = 2048
	ti.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	vp := viewport.New(72, 14)

	ctx, cancel := context.WithCancel(context.Background())

	return AppModel{
		step:       StepSelectSource,
		sess:       opts.Session,
		snap:       opts.Session.Snapshot(),
		outputDir:  opts.OutputDir,
		httpClient: opts.HTTPClient,
		clipboard:  opts.Clipboard,
		logger:     opts.Logger,
		filepicker: fp,
		textInput:  ti,
		spinner:    s,
		viewport:   vp,
		width:      80,
		height:     24,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Init initializes the model
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.filepicker.Init(),
	)
}

// Update handles messages
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case acquiredMsg:
		return m.afterAcquire(msg.err), nil

	case transcribedMsg:
		return m.afterTranscribe(msg.err), nil

	case copiedMsg:
		if msg.err != nil {
			m.setNotice("Could not copy to clipboard: "+msg.err.Error(), true)
			return m, nil
		}
		m.copied = true
		m.copySeq++
		seq := m.copySeq
		return m, tea.Tick(copyFeedback, func(time.Time) tea.Msg { return copyExpiredMsg{seq: seq} })

	case copyExpiredMsg:
		if msg.seq == m.copySeq {
			m.copied = false
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setNotice("Download failed: "+msg.err.Error(), true)
		} else {
			m.setNotice("Saved to "+msg.path, false)
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// updateComponents forwards messages to the widget of the current step
func (m AppModel) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case StepPickFile:
		m.filepicker, cmd = m.filepicker.Update(msg)
		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m.startAcquire(media.NewLocalSource(path))
		}
		if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
			m.setNotice(fmt.Sprintf("%s is not an audio or video file.", path), true)
		}
	case StepEnterPath, StepEnterURL:
		m.textInput, cmd = m.textInput.Update(msg)
	case StepResults:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey handles keyboard input for the current step
func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.step {
	case StepSelectSource:
		switch key {
		case "up", "k":
			if m.sourceIndex > 0 {
				m.sourceIndex--
			}
		case "down", "j":
			if m.sourceIndex < len(sourceOptions)-1 {
				m.sourceIndex++
			}
		case "enter":
			m.notice = ""
			switch m.sourceIndex {
			case 0:
				m.step = StepPickFile
				return m, m.filepicker.Init()
			case 1:
				return m.focusInput(StepEnterPath, "~/recordings/meeting.m4a")
			default:
				return m.focusInput(StepEnterURL, "https://drive.google.com/file/d/...")
			}
		case "q":
			return m.quit()
		}
		return m, nil

	case StepPickFile:
		switch key {
		case "esc":
			m.step = StepSelectSource
			return m, nil
		case "q":
			return m.quit()
		}

	case StepEnterPath, StepEnterURL:
		switch key {
		case "esc":
			m.textInput.Blur()
			m.step = StepSelectSource
			return m, nil
		case "enter":
			value := strings.TrimSpace(m.textInput.Value())
			if value == "" {
				return m, nil
			}
			m.textInput.Blur()
			if m.step == StepEnterPath {
				return m.startAcquire(media.NewLocalSource(value))
			}
			src := media.NewURLSource(value, m.httpClient)
			src.Logger = m.logger
			return m.startAcquire(src)
		}

	case StepStaged:
		switch key {
		case "up", "k":
			if m.stagedIndex > 0 {
				m.stagedIndex--
			}
		case "down", "j":
			if m.stagedIndex < len(stagedOptions)-1 {
				m.stagedIndex++
			}
		case "t":
			return m.startTranscribe()
		case "x":
			return m.reset(""), nil
		case "enter":
			if m.stagedIndex == 0 {
				return m.startTranscribe()
			}
			return m.reset(""), nil
		case "q":
			return m.quit()
		}
		return m, nil

	case StepWorking:
		if key == "esc" {
			return m.reset("Cancelled. The running request will be ignored."), nil
		}
		return m, nil

	case StepResults:
		switch key {
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % resultTab(len(tabTitles))
			m.refreshViewport()
			return m, nil
		case "shift+tab", "left", "h":
			m.tab = (m.tab + resultTab(len(tabTitles)) - 1) % resultTab(len(tabTitles))
			m.refreshViewport()
			return m, nil
		case "1", "2", "3":
			m.tab = resultTab(key[0] - '1')
			m.refreshViewport()
			return m, nil
		case "p":
			m.showRaw = !m.showRaw
			if m.tab == tabTranscript {
				m.refreshViewport()
			}
			return m, nil
		case "c":
			return m, m.copyActive()
		case "d":
			return m, m.saveActive()
		case "n":
			return m.reset(""), nil
		case "q":
			return m.quit()
		}

	case StepError:
		switch key {
		case "r":
			if m.snap.File != nil {
				return m.startTranscribe()
			}
		case "n", "enter":
			return m.reset(""), nil
		case "q":
			return m.quit()
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m AppModel) focusInput(step Step, placeholder string) (tea.Model, tea.Cmd) {
	m.step = step
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m, textinput.Blink
}

func (m *AppModel) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeError = isError
}

func (m AppModel) reset(notice string) AppModel {
	m.sess.Reset()
	m.snap = m.sess.Snapshot()
	m.step = StepSelectSource
	m.stagedIndex = 0
	m.tab = tabSummary
	m.showRaw = false
	m.copied = false
	m.setNotice(notice, false)
	return m
}

// startAcquire hands src to the session in the background
func (m AppModel) startAcquire(src media.Source) (tea.Model, tea.Cmd) {
	m.returnStep = m.step
	m.step = StepWorking
	m.working = "Reading " + src.Describe()
	m.workingStatus = session.StatusUploading
	m.startTime = time.Now()
	m.notice = ""

	sess, ctx := m.sess, m.ctx
	return m, func() tea.Msg {
		return acquiredMsg{err: sess.Acquire(ctx, src)}
	}
}

func (m AppModel) afterAcquire(err error) AppModel {
	if errors.Is(err, session.ErrStale) {
		return m
	}
	m.snap = m.sess.Snapshot()

	switch {
	case m.snap.State.Status == session.StatusError:
		m.step = StepError
	case err != nil:
		// rejected before anything started
		m.step = m.returnStep
		if m.step == StepEnterPath || m.step == StepEnterURL {
			m.textInput.Focus()
		}
		m.setNotice(describeError(err), true)
	default:
		m.step = StepStaged
		m.stagedIndex = 0
	}
	return m
}

// startTranscribe runs the session transcription in the background
func (m AppModel) startTranscribe() (tea.Model, tea.Cmd) {
	name := "file"
	if m.snap.File != nil {
		name = m.snap.File.Name
	}
	m.returnStep = m.step
	m.step = StepWorking
	m.working = "Transcribing " + name + " with Gemini"
	m.workingStatus = session.StatusTranscribing
	m.startTime = time.Now()
	m.notice = ""

	sess, ctx := m.sess, m.ctx
	return m, func() tea.Msg {
		return transcribedMsg{err: sess.Transcribe(ctx)}
	}
}

func (m AppModel) afterTranscribe(err error) AppModel {
	if errors.Is(err, session.ErrStale) {
		return m
	}
	m.snap = m.sess.Snapshot()

	switch m.snap.State.Status {
	case session.StatusCompleted:
		m.step = StepResults
		m.tab = tabSummary
		m.showRaw = false
		m.refreshViewport()
	case session.StatusError:
		m.step = StepError
	default:
		m.step = m.returnStep
		if err != nil {
			m.setNotice(describeError(err), true)
		}
	}
	return m
}

func describeError(err error) string {
	var acqErr *media.AcquisitionError
	if errors.As(err, &acqErr) {
		return media.UserMessage(err)
	}
	return err.Error()
}

// activeField maps the visible tab to an export field
func (m AppModel) activeField() export.Field {
	switch m.tab {
	case tabSummary:
		return export.FieldSummary
	case tabKeyPoints:
		return export.FieldKeyPoints
	default:
		if m.showRaw {
			return export.FieldRawTranscript
		}
		return export.FieldPolishedVersion
	}
}

func (m AppModel) copyActive() tea.Cmd {
	text := export.Text(m.snap.Result, m.activeField())
	write := m.clipboard
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func (m AppModel) saveActive() tea.Cmd {
	result, field, dir := m.snap.Result, m.activeField(), m.outputDir
	return func() tea.Msg {
		path, err := export.WriteField(dir, result, field, true)
		return savedMsg{path: path, err: err}
	}
}

func (m *AppModel) resizeViewport() {
	m.viewport.Width = max(m.width-8, 20)
	m.viewport.Height = max(m.height-18, 5)
	m.refreshViewport()
}

func (m *AppModel) refreshViewport() {
	text := export.Text(m.snap.Result, m.activeField())
	if strings.TrimSpace(text) == "" {
		text = MutedStyle.Render("(empty)")
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(text))
	m.viewport.GotoTop()
}

// Getter methods for external access
func (m AppModel) IsQuitting() bool           { return m.quitting }
func (m AppModel) HasError() bool             { return m.step == StepError }
func (m AppModel) CurrentStep() Step          { return m.step }
func (m AppModel) Snapshot() session.Snapshot { return m.snap }

// RunApp runs the full-screen UI until the user quits
func RunApp(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
