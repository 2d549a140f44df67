package audio

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Privacy pane URLs; the second is the fallback when the first fails.
const (
	MicrophonePrivacyURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone"
	SecurityPrivacyURL   = "x-apple.systempreferences:com.apple.preference.security"
)

// SettingsOpener opens the platform's microphone privacy settings.
type SettingsOpener interface {
	OpenPrivacySettings(ctx context.Context) error
}

// SystemSettingsOpener uses the macOS `open` command.
type SystemSettingsOpener struct {
	GOOS string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewSystemSettingsOpener targets the running platform.
func NewSystemSettingsOpener() *SystemSettingsOpener {
	return &SystemSettingsOpener{GOOS: runtime.GOOS, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (s *SystemSettingsOpener) OpenPrivacySettings(ctx context.Context) error {
	if s.GOOS != "darwin" {
		return fmt.Errorf("opening privacy settings is not supported on %s", s.GOOS)
	}
	run := s.run
	if run == nil {
		run = runCommand
	}
	if err := run(ctx, "open", MicrophonePrivacyURL); err == nil {
		return nil
	}
	if err := run(ctx, "open", SecurityPrivacyURL); err != nil {
		return fmt.Errorf("open privacy settings: %w", err)
	}
	return nil
}
