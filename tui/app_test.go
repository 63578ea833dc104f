package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mediascribe/export"
	"mediascribe/gemini"
	"mediascribe/session"
)

func testResult() *gemini.TranscriptResult {
	return &gemini.TranscriptResult{
		RawTranscript:   "um so the raw words",
		PolishedVersion: "The polished words.",
		Summary:         "A short summary.",
		KeyPoints:       []string{"first", "second"},
	}
}

func connectorFor(fn gemini.TranscriberFunc) session.Connector {
	return func() (gemini.Transcriber, error) { return fn, nil }
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and returns the updated model and command
func press(t *testing.T, m AppModel, msg tea.KeyMsg) (AppModel, tea.Cmd) {
	t.Helper()
	newModel, cmd := m.Update(msg)
	return newModel.(AppModel), cmd
}

// deliver runs cmd synchronously and feeds its message back into the model
func deliver(t *testing.T, m AppModel, cmd tea.Cmd) AppModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	newModel, _ := m.Update(cmd())
	return newModel.(AppModel)
}

func writeMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(path, []byte("ID3 fake audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// stage walks the path input flow and returns a model on the staged step
func stage(t *testing.T, m AppModel, path string) AppModel {
	t.Helper()
	m, _ = press(t, m, keyRunes("j"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != StepEnterPath {
		t.Fatalf("step = %v, want StepEnterPath", m.step)
	}
	m, _ = press(t, m, keyRunes(path))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != StepWorking {
		t.Fatalf("step = %v, want StepWorking", m.step)
	}
	return deliver(t, m, cmd)
}

func TestNewApp(t *testing.T) {
	m := NewApp(Options{})

	if m.step != StepSelectSource {
		t.Errorf("Expected initial step to be StepSelectSource, got %v", m.step)
	}
	if m.width != 80 || m.height != 24 {
		t.Errorf("Expected default size 80x24, got %dx%d", m.width, m.height)
	}
	if m.Init() == nil {
		t.Error("Expected Init to return a non-nil command")
	}
	if view := m.View(); !strings.Contains(view, "Where is your recording?") {
		t.Errorf("View() missing source menu:\n%s", view)
	}
}

func TestSourceMenuNavigation(t *testing.T) {
	m := NewApp(Options{})

	m, _ = press(t, m, keyRunes("j"))
	m, _ = press(t, m, keyRunes("j"))
	m, _ = press(t, m, keyRunes("j"))
	if m.sourceIndex != len(sourceOptions)-1 {
		t.Errorf("sourceIndex = %d, want %d", m.sourceIndex, len(sourceOptions)-1)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != StepEnterURL {
		t.Fatalf("step = %v, want StepEnterURL", m.step)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.step != StepSelectSource {
		t.Errorf("esc should return to the source menu, got %v", m.step)
	}

	m, _ = press(t, m, keyRunes("k"))
	if m.sourceIndex != 1 {
		t.Errorf("sourceIndex = %d, want 1", m.sourceIndex)
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewApp(Options{})
	m, cmd := press(t, m, keyRunes("q"))
	if !m.IsQuitting() || cmd == nil {
		t.Error("q on the source menu should quit")
	}

	m = NewApp(Options{})
	m, _ = press(t, m, keyRunes("j"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, keyRunes("q"))
	if m.IsQuitting() {
		t.Error("q while typing a path should not quit")
	}
	if got := m.textInput.Value(); got != "q" {
		t.Errorf("text input = %q, want %q", got, "q")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.IsQuitting() {
		t.Error("ctrl+c should always quit")
	}
}

func TestPathFlowToResults(t *testing.T) {
	var copied string
	outDir := t.TempDir()
	sess := session.New(connectorFor(func(ctx context.Context, payload, mimeType string) (*gemini.TranscriptResult, error) {
		if mimeType != "audio/mpeg" && mimeType != "audio/mp3" {
			t.Errorf("mimeType = %q", mimeType)
		}
		return testResult(), nil
	}))
	m := NewApp(Options{
		Session:   sess,
		OutputDir: outDir,
		Clipboard: func(s string) error { copied = s; return nil },
	})

	m = stage(t, m, writeMedia(t))
	if m.step != StepStaged {
		t.Fatalf("step = %v, want StepStaged (notice %q)", m.step, m.notice)
	}
	if m.snap.File == nil || m.snap.File.Name != "talk.mp3" {
		t.Fatalf("staged file = %+v", m.snap.File)
	}
	if view := m.View(); !strings.Contains(view, "talk.mp3") {
		t.Errorf("staged view should show the file name:\n%s", view)
	}

	m, cmd := press(t, m, keyRunes("t"))
	if m.step != StepWorking {
		t.Fatalf("step = %v, want StepWorking", m.step)
	}
	m = deliver(t, m, cmd)
	if m.step != StepResults {
		t.Fatalf("step = %v, want StepResults", m.step)
	}
	if m.activeField() != export.FieldSummary {
		t.Errorf("first tab should be the summary, got %v", m.activeField())
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.activeField() != export.FieldKeyPoints {
		t.Errorf("tab should move to key points, got %v", m.activeField())
	}
	m, _ = press(t, m, keyRunes("3"))
	if m.activeField() != export.FieldPolishedVersion {
		t.Errorf("transcript tab defaults to polished, got %v", m.activeField())
	}
	m, _ = press(t, m, keyRunes("p"))
	if m.activeField() != export.FieldRawTranscript {
		t.Errorf("p should switch to raw, got %v", m.activeField())
	}

	m, cmd = press(t, m, keyRunes("c"))
	m = deliver(t, m, cmd)
	if copied != "um so the raw words" {
		t.Errorf("clipboard = %q", copied)
	}
	if !m.copied {
		t.Error("copy acknowledgement should be visible")
	}
	newModel, _ := m.Update(copyExpiredMsg{seq: m.copySeq})
	m = newModel.(AppModel)
	if m.copied {
		t.Error("copy acknowledgement should expire")
	}

	m, cmd = press(t, m, keyRunes("d"))
	m = deliver(t, m, cmd)
	if m.noticeError {
		t.Fatalf("download failed: %s", m.notice)
	}
	data, err := os.ReadFile(filepath.Join(outDir, export.FieldRawTranscript.Filename()))
	if err != nil {
		t.Fatalf("download not written: %v", err)
	}
	if string(data) != "um so the raw words" {
		t.Errorf("downloaded %q", data)
	}

	m, _ = press(t, m, keyRunes("n"))
	if m.step != StepSelectSource {
		t.Errorf("n should start a new project, got %v", m.step)
	}
	if snap := sess.Snapshot(); snap.File != nil || snap.Result != nil {
		t.Errorf("session not reset: %+v", snap)
	}
}

func TestRejectedPathStaysOnInput(t *testing.T) {
	m := NewApp(Options{Session: session.New(nil)})

	m = stage(t, m, filepath.Join(t.TempDir(), "notes.txt"))
	if m.step != StepEnterPath {
		t.Errorf("step = %v, want StepEnterPath", m.step)
	}
	if !m.noticeError || m.notice == "" {
		t.Error("expected a rejection notice")
	}
}

func TestTranscriptionErrorAndRetry(t *testing.T) {
	calls := 0
	sess := session.New(connectorFor(func(ctx context.Context, payload, mimeType string) (*gemini.TranscriptResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("API error (status 400): unsupported")
		}
		return testResult(), nil
	}))
	m := NewApp(Options{Session: sess})

	m = stage(t, m, writeMedia(t))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = deliver(t, m, cmd)
	if !m.HasError() {
		t.Fatalf("step = %v, want StepError", m.step)
	}
	if m.snap.State.Message != session.MsgBadRequest {
		t.Errorf("message = %q", m.snap.State.Message)
	}
	if view := m.View(); !strings.Contains(view, session.MsgBadRequest) {
		t.Errorf("error view should show the message:\n%s", view)
	}

	m, cmd = press(t, m, keyRunes("r"))
	m = deliver(t, m, cmd)
	if m.step != StepResults {
		t.Errorf("retry should reach results, got %v", m.step)
	}
}

func TestCancelDiscardsLateResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	sess := session.New(connectorFor(func(ctx context.Context, payload, mimeType string) (*gemini.TranscriptResult, error) {
		close(started)
		<-release
		return testResult(), nil
	}))
	m := NewApp(Options{Session: sess})
	m = stage(t, m, writeMedia(t))

	m, cmd := press(t, m, keyRunes("t"))
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-started

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.step != StepSelectSource {
		t.Fatalf("esc should cancel to the source menu, got %v", m.step)
	}
	close(release)

	newModel, _ := m.Update(<-done)
	m = newModel.(AppModel)
	if m.step != StepSelectSource || m.snap.Result != nil {
		t.Errorf("late result should be ignored: step %v, result %+v", m.step, m.snap.Result)
	}
	if snap := sess.Snapshot(); snap.State.Status != session.StatusIdle || snap.Result != nil {
		t.Errorf("session = %+v, want idle without result", snap)
	}
}

func TestStagedRemove(t *testing.T) {
	m := NewApp(Options{Session: session.New(nil)})
	m = stage(t, m, writeMedia(t))

	m, _ = press(t, m, keyRunes("x"))
	if m.step != StepSelectSource || m.snap.File != nil {
		t.Errorf("x should remove the file: step %v, file %+v", m.step, m.snap.File)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{500, "500ms"},
		{1500, "1.5s"},
		{125000, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(time.Duration(tt.ms)*time.Millisecond); got != tt.want {
			t.Errorf("formatDuration(%dms) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
