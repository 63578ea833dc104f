package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"

	"mediascribe/config"
	"mediascribe/export"
	"mediascribe/media"
	"mediascribe/session"
	"mediascribe/tui"
)

// runWizard walks through one file at a time with huh forms
func (a *app) runWizard() int {
	fmt.Println(titleStyle.Render(tui.Header()))

	if err := config.CheckAPIKey(); err != nil {
		fmt.Println(errorStyle.Render("Warning: " + err.Error()))
		fmt.Println(infoStyle.Render(config.APIKeyHelp()))
	}

	sess := session.New(a.connect, session.WithLogger(a.logger))
	for {
		if !a.wizardRound(sess) {
			break
		}
		sess.Reset()
	}

	fmt.Println(subtitleStyle.Render("\nThanks for using mediascribe!"))
	return 0
}

func runForm(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
}

// wizardRound stages, transcribes and presents one file. It reports whether
// the user wants another round.
func (a *app) wizardRound(sess *session.Session) bool {
	src, err := a.askSource()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false
		}
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return askToContinue()
	}

	var acquireErr error
	err = spinner.New().
		Title("Reading " + src.Describe() + "...").
		Action(func() {
			acquireErr = sess.Acquire(context.Background(), src)
		}).
		Run()
	if err == nil {
		err = acquireErr
	}
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + media.UserMessage(err)))
		if g := media.GuidanceFor(err); g != "" && g != media.UserMessage(err) {
			fmt.Println(infoStyle.Render(g))
		}
		return askToContinue()
	}

	file := sess.Snapshot().File
	fmt.Println(tui.FileCard(file.Name, file.Subtype(), media.FormatSize(file.Size), 60))

	var proceed bool
	err = runForm(huh.NewConfirm().
		Title("Transcribe this file?").
		Affirmative("Yes, transcribe!").
		Negative("No, remove it").
		Value(&proceed))
	if err != nil || !proceed {
		fmt.Println(infoStyle.Render("File removed."))
		return askToContinue()
	}

	for {
		if a.wizardTranscribe(sess) {
			break
		}
		var choice string
		err = runForm(huh.NewSelect[string]().
			Title("What next?").
			Options(
				huh.NewOption("Retry transcription", "retry"),
				huh.NewOption("Start over with another file", "another"),
				huh.NewOption("Exit", "exit"),
			).
			Value(&choice))
		if err != nil || choice == "exit" {
			return false
		}
		if choice == "another" {
			return true
		}
	}

	return a.wizardResults(sess)
}

// askSource asks for a local file or a URL
func (a *app) askSource() (media.Source, error) {
	var method string
	err := runForm(huh.NewSelect[string]().
		Title("Where is your recording?").
		Options(
			huh.NewOption("Pick a local audio or video file", "file"),
			huh.NewOption("Fetch from a URL (direct link or Google Drive)", "url"),
		).
		Value(&method))
	if err != nil {
		return nil, err
	}

	if method == "url" {
		var link string
		err = runForm(huh.NewInput().
			Title("Media URL").
			Description("Google Drive share links are converted to direct downloads.\nYouTube pages cannot be downloaded directly.").
			Placeholder("https://drive.google.com/file/d/...").
			Validate(func(s string) error {
				if err := media.NewURLSource(s, nil).Validate(); err != nil {
					return errors.New(media.UserMessage(err))
				}
				return nil
			}).
			Value(&link))
		if err != nil {
			return nil, err
		}
		src := media.NewURLSource(link, a.fetchClient())
		src.Logger = a.logger
		return src, nil
	}

	var path string
	startDir, _ := os.Getwd()
	err = runForm(huh.NewFilePicker().
		Title("Select an audio or video file").
		Description("Up to " + media.FormatSize(media.MaxFileSize)).
		Picking(true).
		CurrentDirectory(startDir).
		ShowHidden(false).
		ShowSize(true).
		Height(15).
		AllowedTypes(media.SupportedExtensions()).
		Value(&path))
	if err != nil {
		return nil, err
	}
	return media.NewLocalSource(path), nil
}

// wizardTranscribe runs one transcription attempt and reports success
func (a *app) wizardTranscribe(sess *session.Session) bool {
	start := time.Now()
	var transcribeErr error
	err := spinner.New().
		Title("Transcribing with " + a.cfg.Model + ", this can take a few minutes...").
		Action(func() {
			transcribeErr = sess.Transcribe(context.Background())
		}).
		Run()
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return false
	}
	if transcribeErr != nil {
		fmt.Println(errorStyle.Render("Error: " + sess.Snapshot().State.Message))
		a.logger.Debug("transcription error detail", slog.String("error", transcribeErr.Error()))
		return false
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Transcribed in %s", formatElapsed(time.Since(start)))))
	return true
}

// wizardResults shows the summary and offers copy, save and view actions
func (a *app) wizardResults(sess *session.Session) bool {
	snap := sess.Snapshot()
	result := snap.Result

	fmt.Println(boxStyle.Render(
		titleStyle.Render(export.FieldSummary.Title()) + "\n" + result.Summary + "\n\n" +
			titleStyle.Render(export.FieldKeyPoints.Title()) + "\n" + export.Text(result, export.FieldKeyPoints),
	))

	for {
		var action string
		err := runForm(huh.NewSelect[string]().
			Title("What would you like to do?").
			Options(
				huh.NewOption("Show the polished transcript", "show:"+string(export.FieldPolishedVersion)),
				huh.NewOption("Show the raw transcript", "show:"+string(export.FieldRawTranscript)),
				huh.NewOption("Copy the summary", "copy:"+string(export.FieldSummary)),
				huh.NewOption("Copy the key takeaways", "copy:"+string(export.FieldKeyPoints)),
				huh.NewOption("Copy the polished transcript", "copy:"+string(export.FieldPolishedVersion)),
				huh.NewOption("Copy the raw transcript", "copy:"+string(export.FieldRawTranscript)),
				huh.NewOption("Save all files", "save"),
				huh.NewOption("New project", "another"),
				huh.NewOption("Exit", "exit"),
			).
			Value(&action))
		if err != nil || action == "exit" {
			return false
		}
		if action == "another" {
			return true
		}

		verb, name, _ := strings.Cut(action, ":")
		switch verb {
		case "show":
			field := export.Field(name)
			fmt.Println(titleStyle.Render(field.Title()))
			fmt.Println(indent(export.Text(result, field)))
		case "copy":
			field := export.Field(name)
			if err := clipboard.WriteAll(export.Text(result, field)); err != nil {
				fmt.Println(errorStyle.Render("Could not copy: " + err.Error()))
			} else {
				fmt.Println(successStyle.Render("Copied " + field.Title() + "!"))
			}
		case "save":
			a.wizardSave(snap)
		}
	}
}

func (a *app) wizardSave(snap session.Snapshot) {
	outputDir := a.cfg.OutputDir
	err := runForm(huh.NewInput().
		Title("Output directory").
		Description("Where to save the text files and " + export.ReportFilename).
		Placeholder(outputDir).
		Value(&outputDir))
	if err != nil {
		return
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = a.cfg.OutputDir
	}

	res, err := export.WriteAll(snap.Result, export.Metadata{
		Source:    snap.File.Name,
		MIMEType:  snap.File.MIMEType,
		Size:      snap.File.Size,
		Model:     a.cfg.Model,
		Generated: time.Now(),
	}, export.WriteOptions{OutputDir: outputDir, Overwrite: true, Report: true})
	if err != nil {
		fmt.Println(errorStyle.Render("Error writing files: " + err.Error()))
		return
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Saved %d files (%s) to %s",
		len(res.FilesWritten), media.FormatSize(res.TotalBytes), outputDir)))
	for _, e := range res.Errors {
		fmt.Println(errorStyle.Render("  ! " + e.Error()))
	}
}

func askToContinue() bool {
	var choice string
	err := runForm(huh.NewSelect[string]().
		Title("What next?").
		Options(
			huh.NewOption("Transcribe another file", "another"),
			huh.NewOption("Exit", "exit"),
		).
		Value(&choice))
	if err != nil {
		return false
	}
	return choice == "another"
}
