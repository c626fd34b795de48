// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser opens paper URLs in the system web browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsafeURL is returned for anything other than an absolute http or https
// URL.
var ErrUnsafeURL = errors.New("refusing to open non-web URL")

// Opener launches URLs with a platform opener command.
type Opener struct {
	goos  string
	start func(*exec.Cmd) error
}

// New returns an Opener for the running platform.
func New() *Opener {
	return &Opener{
		goos:  runtime.GOOS,
		start: (*exec.Cmd).Start,
	}
}

// Open validates raw and hands it to the platform opener. It returns once the
// opener has started.
func (o *Opener) Open(raw string) error {
	if err := Validate(raw); err != nil {
		return err
	}
	cmd, err := o.command(raw)
	if err != nil {
		return err
	}
	if err := o.start(cmd); err != nil {
		return fmt.Errorf("launching %s: %w", cmd.Path, err)
	}
	return nil
}

// Validate checks that raw is an absolute http or https URL.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsafeURL, raw)
	}
	return nil
}

func (o *Opener) command(raw string) (*exec.Cmd, error) {
	switch o.goos {
	case "darwin":
		return exec.Command("open", raw), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", raw), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", raw), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", o.goos)
	}
}
