package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"mediascribe/export"
	"mediascribe/media"
	"mediascribe/session"
)

// TranscribeOptions holds the flags of the transcribe command
type TranscribeOptions struct {
	Source    string
	OutputDir string
	Model     string
	Overwrite bool
	NoReport  bool
	Print     string
}

func parseTranscribeFlags(args []string, defaults TranscribeOptions) (TranscribeOptions, error) {
	opts := defaults
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	fs.StringVar(&opts.OutputDir, "o", opts.OutputDir, "output directory")
	fs.StringVar(&opts.OutputDir, "output", opts.OutputDir, "output directory")
	fs.StringVar(&opts.Model, "model", opts.Model, "Gemini model")
	fs.BoolVar(&opts.Overwrite, "overwrite", false, "replace existing files")
	fs.BoolVar(&opts.NoReport, "no-report", false, "skip the combined "+export.ReportFilename)
	fs.StringVar(&opts.Print, "print", "", "print one field (summary, key_points, polished_version, raw_transcript) instead of writing files")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, fmt.Errorf("expected exactly one file path or URL, got %d", fs.NArg())
	}
	opts.Source = fs.Arg(0)
	if opts.Print != "" {
		if _, err := export.ParseField(opts.Print); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// sourceFor treats http(s) arguments as URLs and everything else as a path
func (a *app) sourceFor(arg string) media.Source {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		src := media.NewURLSource(arg, a.fetchClient())
		src.Logger = a.logger
		return src
	}
	return media.NewLocalSource(arg)
}

// runTranscribe is the non-interactive command
func (a *app) runTranscribe(args []string) int {
	opts, err := parseTranscribeFlags(args, TranscribeOptions{
		OutputDir: a.cfg.OutputDir,
		Model:     a.cfg.Model,
	})
	if err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error: "+err.Error()))
		return 2
	}
	a.cfg.Model = opts.Model

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess := session.New(a.connect, session.WithLogger(a.logger))
	src := a.sourceFor(opts.Source)

	fmt.Fprintln(a.stderr, infoStyle.Render("Reading "+src.Describe()+"..."))
	if err := sess.Acquire(ctx, src); err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error: "+media.UserMessage(err)))
		if g := media.GuidanceFor(err); g != "" && g != media.UserMessage(err) {
			fmt.Fprintln(a.stderr, infoStyle.Render(g))
		}
		return 1
	}

	file := sess.Snapshot().File
	fmt.Fprintln(a.stderr, infoStyle.Render(fmt.Sprintf("Staged %s (%s, %s)",
		file.Name, file.Subtype(), media.FormatSize(file.Size))))
	fmt.Fprintln(a.stderr, infoStyle.Render("Transcribing with "+opts.Model+"..."))

	start := time.Now()
	if err := sess.Transcribe(ctx); err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Transcription failed: "+sess.Snapshot().State.Message))
		fmt.Fprintln(a.stderr, infoStyle.Render(err.Error()))
		return 1
	}
	result := sess.Snapshot().Result

	if opts.Print != "" {
		field, _ := export.ParseField(opts.Print)
		fmt.Fprintln(a.stdout, export.Text(result, field))
		return 0
	}

	writeResult, err := export.WriteAll(result, export.Metadata{
		Source:    file.Name,
		MIMEType:  file.MIMEType,
		Size:      file.Size,
		Model:     opts.Model,
		Generated: time.Now(),
	}, export.WriteOptions{
		OutputDir: opts.OutputDir,
		Overwrite: opts.Overwrite,
		Report:    !opts.NoReport,
	})
	if err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error writing files: "+err.Error()))
		return 1
	}

	fmt.Fprintln(a.stdout, successStyle.Render(fmt.Sprintf(
		"Done! Created %d files in %s (%s, took %s)",
		len(writeResult.FilesWritten),
		opts.OutputDir,
		media.FormatSize(writeResult.TotalBytes),
		formatElapsed(time.Since(start)),
	)))
	for _, path := range writeResult.FilesWritten {
		fmt.Fprintln(a.stdout, infoStyle.Render("  - "+path))
	}
	for _, werr := range writeResult.Errors {
		fmt.Fprintln(a.stderr, errorStyle.Render("  ! "+werr.Error()))
	}
	if len(writeResult.Errors) > 0 {
		return 1
	}
	return 0
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
