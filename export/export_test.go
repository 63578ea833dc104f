package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediascribe/gemini"
)

func sampleResult() *gemini.TranscriptResult {
	return &gemini.TranscriptResult{
		RawTranscript:   "[00:00] Speaker 1: um, hello there\n[00:04] Speaker 2: hi",
		PolishedVersion: "Hello there.\n\nHi.",
		Summary:         "• Greeting exchanged",
		KeyPoints:       []string{"Two speakers", "Short call"},
	}
}

func TestText(t *testing.T) {
	r := sampleResult()
	tests := []struct {
		field Field
		want  string
	}{
		{FieldSummary, r.Summary},
		{FieldRawTranscript, r.RawTranscript},
		{FieldPolishedVersion, r.PolishedVersion},
		{FieldKeyPoints, "- Two speakers\n- Short call"},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := Text(r, tt.field); got != tt.want {
				t.Errorf("Text(%s) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}

	if got := Text(&gemini.TranscriptResult{KeyPoints: []string{}}, FieldKeyPoints); got != "" {
		t.Errorf("Text() with no key points = %q, want empty", got)
	}
	if got := Text(nil, FieldSummary); got != "" {
		t.Errorf("Text(nil) = %q, want empty", got)
	}
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		field Field
		want  string
	}{
		{FieldSummary, "executive_summary.txt"},
		{FieldKeyPoints, "key_takeaways.txt"},
		{FieldRawTranscript, "raw_transcript.txt"},
		{FieldPolishedVersion, "polished_version.txt"},
	}

	for _, tt := range tests {
		if got := tt.field.Filename(); got != tt.want {
			t.Errorf("%s.Filename() = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(" " + strings.ToUpper(string(f)) + " ")
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseField("everything"); err == nil {
		t.Error("ParseField() should reject unknown names")
	}
}

func TestWriteFieldRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := sampleResult()

	for _, f := range Fields {
		path, err := WriteField(dir, r, f, false)
		if err != nil {
			t.Fatalf("WriteField(%s) failed: %v", f, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() failed: %v", err)
		}
		if string(data) != Text(r, f) {
			t.Errorf("file %s = %q, want %q", filepath.Base(path), data, Text(r, f))
		}
	}

	_, err := WriteField(dir, r, FieldSummary, false)
	if !errors.Is(err, ErrExists) {
		t.Errorf("WriteField() without overwrite = %v, want ErrExists", err)
	}
	if _, err := WriteField(dir, r, FieldSummary, true); err != nil {
		t.Errorf("WriteField() with overwrite failed: %v", err)
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	meta := Metadata{
		Source:    "standup.m4a",
		MIMEType:  "audio/mp4",
		Size:      2048,
		Model:     gemini.DefaultModel,
		Generated: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	result, err := WriteAll(sampleResult(), meta, WriteOptions{OutputDir: dir, Report: true})
	if err != nil {
		t.Fatalf("WriteAll() failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("WriteAll() errors: %v", result.Errors)
	}
	if len(result.FilesWritten) != len(Fields)+1 {
		t.Errorf("WriteAll() wrote %d files, want %d", len(result.FilesWritten), len(Fields)+1)
	}

	report, err := os.ReadFile(filepath.Join(dir, ReportFilename))
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	for _, want := range []string{"---\nsource: standup.m4a\n", "mime_type: audio/mp4", "# standup.m4a", "## Key Takeaways\n\n- Two speakers"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	// second run without overwrite collects one error per file
	result, err = WriteAll(sampleResult(), meta, WriteOptions{OutputDir: dir, Report: true})
	if err != nil {
		t.Fatalf("WriteAll() failed: %v", err)
	}
	if len(result.Errors) != len(Fields)+1 || len(result.FilesWritten) != 0 {
		t.Errorf("WriteAll() rerun = %d written, %d errors", len(result.FilesWritten), len(result.Errors))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Executive Summary", "executive_summary"},
		{"Hello/World", "hello_world"},
		{"File:Name*With?Special<Chars>", "file_name_with_special_chars"},
		{"___Leading_Trailing___", "leading_trailing"},
		{"", "transcript"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
