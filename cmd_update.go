package main

import (
	"context"
	"fmt"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

// updateSlug is the GitHub repository releases are published to
var updateSlug = "harmonyvt/mediascribe"

// runUpdate replaces the running binary with the latest release
func (a *app) runUpdate() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintln(a.stdout, infoStyle.Render("Checking for updates..."))
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(updateSlug))
	if err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error checking for updates: "+err.Error()))
		return 1
	}
	if !found {
		fmt.Fprintln(a.stderr, errorStyle.Render("No release found for this platform"))
		return 1
	}
	if version != "dev" && latest.LessOrEqual(version) {
		fmt.Fprintln(a.stdout, successStyle.Render(fmt.Sprintf("Already up to date (%s)", version)))
		return 0
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Could not locate executable: "+err.Error()))
		return 1
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		fmt.Fprintln(a.stderr, errorStyle.Render("Error updating binary: "+err.Error()))
		return 1
	}

	fmt.Fprintln(a.stdout, successStyle.Render(fmt.Sprintf("Updated %s -> %s", version, latest.Version())))
	return 0
}
