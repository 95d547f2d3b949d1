// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for yt-dlp, ffmpeg, ffprobe, the MP3
// encoder, and the loudnorm filter.
package check

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/backmassage/fetchmaster/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool or capability is missing.
var (
	ErrYtdlpNotFound   = errors.New("yt-dlp not found on PATH")
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrMP3EncodeFailed = errors.New("MP3 test encode failed (audio codec unusable)")
	ErrLoudnormMissing = errors.New("ffmpeg loudnorm filter unavailable")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints availability and
// versions of yt-dlp, ffmpeg, and ffprobe, and test-runs the configured
// audio codec and the loudnorm filter.
// This is informational only, it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkTool(log, "yt-dlp", "--version")
	checkTool(log, "ffmpeg", "-version")
	checkTool(log, "ffprobe", "-version")
	checkAudioCodec(cfg, log)
	checkLoudnorm(log)
}

// checkTool verifies a tool is on PATH and logs its version line.
func checkTool(log Logger, name, versionFlag string) {
	if _, err := exec.LookPath(name); err != nil {
		log.Error("%s not found", name)
		return
	}
	out, err := exec.Command(name, versionFlag).Output()
	if err != nil {
		log.Warn("%s found but %s failed: %v", name, versionFlag, err)
		return
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("%s: %s", name, firstLine)
}

// checkAudioCodec runs a minimal encode with the configured codec.
func checkAudioCodec(cfg *config.Config, log Logger) {
	log.Info("Testing audio codec %s...", cfg.AudioCodec)
	if runSilent("ffmpeg", audioTestArgs(cfg.AudioCodec)...) {
		log.Success("%s works", cfg.AudioCodec)
	} else {
		log.Error("%s test encode failed", cfg.AudioCodec)
	}
}

// checkLoudnorm runs a minimal loudness measurement pass.
func checkLoudnorm(log Logger) {
	log.Info("Testing loudnorm filter...")
	if runSilent("ffmpeg", loudnormTestArgs()...) {
		log.Success("loudnorm works")
	} else {
		log.Error("loudnorm test failed")
	}
}

// CheckDeps is the pre-run validation: it verifies yt-dlp, ffmpeg, and
// ffprobe are on PATH, that the configured audio codec encodes, and that
// the loudnorm filter is present. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		return ErrYtdlpNotFound
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent("ffmpeg", audioTestArgs(cfg.AudioCodec)...) {
		return ErrMP3EncodeFailed
	}
	if !runSilent("ffmpeg", loudnormTestArgs()...) {
		return ErrLoudnormMissing
	}
	return nil
}

// --- internal helpers ---

// audioTestArgs returns the ffmpeg arguments for a minimal encode with the
// given codec. Shared by checkAudioCodec and CheckDeps to avoid duplicating
// the argument list.
func audioTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", codec,
		"-f", "null", "-",
	}
}

// loudnormTestArgs returns the arguments for a minimal loudnorm pass.
func loudnormTestArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-af", "loudnorm=I=-14:LRA=7:TP=-2",
		"-f", "null", "-",
	}
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
