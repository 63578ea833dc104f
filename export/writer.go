package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mediascribe/gemini"
)

// ReportFilename is the combined markdown written by WriteAll
const ReportFilename = "report.md"

// ErrExists is returned when a target file exists and overwrite is off
var ErrExists = errors.New("file exists")

// Metadata describes the transcribed source for the report front matter
type Metadata struct {
	Source    string    `yaml:"source,omitempty"`
	MIMEType  string    `yaml:"mime_type,omitempty"`
	Size      int64     `yaml:"size_bytes,omitempty"`
	Model     string    `yaml:"model,omitempty"`
	Generated time.Time `yaml:"generated"`
}

// WriteOptions configures WriteAll
type WriteOptions struct {
	// OutputDir is the directory to write files to
	OutputDir string

	// Overwrite allows overwriting existing files
	Overwrite bool

	// Report also writes report.md with YAML front matter
	Report bool
}

// WriteResult contains information about written files
type WriteResult struct {
	FilesWritten []string
	TotalBytes   int64
	Errors       []error
}

// WriteField writes Text(r, f) to dir/f.Filename() and returns the path.
// The file content is exactly the rendered text.
func WriteField(dir string, r *gemini.TranscriptResult, f Field, overwrite bool) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no transcript to write")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, f.Filename())
	if err := writeFile(path, Text(r, f), overwrite); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAll writes every field and, if requested, the combined report.
// Per-file failures are collected in the result instead of aborting.
func WriteAll(r *gemini.TranscriptResult, meta Metadata, opts WriteOptions) (*WriteResult, error) {
	if r == nil {
		return nil, fmt.Errorf("no transcript to write")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &WriteResult{
		FilesWritten: make([]string, 0, len(Fields)+1),
	}

	record := func(path, content string) {
		if err := writeFile(path, content, opts.Overwrite); err != nil {
			result.Errors = append(result.Errors, err)
			return
		}
		result.FilesWritten = append(result.FilesWritten, path)
		result.TotalBytes += int64(len(content))
	}

	for _, f := range Fields {
		record(filepath.Join(opts.OutputDir, f.Filename()), Text(r, f))
	}

	if opts.Report {
		report, err := RenderReport(meta, r)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			record(filepath.Join(opts.OutputDir, ReportFilename), report)
		}
	}

	return result, nil
}

// RenderReport builds a markdown document holding every field, preceded by
// YAML front matter
func RenderReport(meta Metadata, r *gemini.TranscriptResult) (string, error) {
	if meta.Generated.IsZero() {
		meta.Generated = time.Now()
	}
	front, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to render front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")

	title := "Transcript"
	if meta.Source != "" {
		title = meta.Source
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	for _, f := range Fields {
		fmt.Fprintf(&b, "## %s\n\n", f.Title())
		body := strings.TrimSpace(Text(r, f))
		if body == "" {
			body = "_(empty)_"
		}
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func writeFile(path, content string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --overwrite to replace)", ErrExists, path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
