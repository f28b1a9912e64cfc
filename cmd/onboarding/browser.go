// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// openURL starts the user's browser on the url without waiting for it.  The
// BROWSER environment variable overrides the platform's default opener.
func openURL(url string) error {
	name, args := browserCommand(runtime.GOOS, os.Getenv("BROWSER"), isWSL(), url)
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("unable to run %s: %w", name, err)
	}
	return nil
}

// browserCommand returns the command which opens url on goos.
func browserCommand(goos, browser string, wsl bool, url string) (string, []string) {
	switch {
	case browser != "":
		return browser, []string{url}
	case goos == "windows" || wsl:
		// cmd.exe treats & as a command separator
		return "cmd.exe", []string{"/c", "start", strings.ReplaceAll(url, "&", "^&")}
	case goos == "darwin":
		return "open", []string{url}
	default: // "linux", "freebsd", "openbsd", "netbsd"
		return "xdg-open", []string{url}
	}
}

// isWSL reports whether we're running in the Windows Subsystem for Linux
func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}
