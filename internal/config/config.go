// Package config holds runtime configuration: defaults, an optional YAML
// defaults file, CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid from a YAML file by [LoadFile], and then mutated by
// the CLI flag set before being passed (by pointer) to packages that
// need it.
type Config struct {
	// Paths.
	InputList string `yaml:"input_list"` // Job-list file (required).
	OutputDir string `yaml:"output_dir"` // Output tree root (required).
	CoverDir  string `yaml:"cover_dir"`  // Cover image directory.
	WorkDir   string `yaml:"work_dir"`   // Scratch root. Default: "tmp".

	// Audio/video targets.
	AudioCodec     string `yaml:"audio_codec"`     // Fixed default: "libmp3lame".
	AudioBitrate   string `yaml:"audio_bitrate"`   // Default: "320k".
	VideoContainer string `yaml:"video_container"` // Fixed default: "mkv".
	SubtitleLang   string `yaml:"subtitle_lang"`   // Default: "en". Empty disables subtitles.

	// Scheduling.
	AcquireLimit   int           `yaml:"acquire_limit"`   // Default: 3 simultaneous acquires.
	TranscodeLimit int           `yaml:"transcode_limit"` // Default: 2 simultaneous transcodes.
	MaxAttempts    int           `yaml:"max_attempts"`    // Default: 3 attempts per stage.
	StageTimeout   time.Duration `yaml:"stage_timeout"`   // Default: 20m per stage call.

	// Behavior flags.
	Resume    bool // Default: true. Cleared by --no-resume.
	Overwrite bool // Replace existing destinations. Default: false.
	KeepWork  bool // Keep scratch dirs of succeeded jobs.
	DryRun    bool

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode
	LogFile   string // Optional log file path.
	CheckOnly bool   // Run --check diagnostics and exit.

	// Optional YAML defaults file (read before flags are applied).
	ConfigFile string
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		WorkDir:        "tmp",
		AudioCodec:     "libmp3lame",
		AudioBitrate:   "320k",
		VideoContainer: "mkv",
		SubtitleLang:   "en",
		AcquireLimit:   3,
		TranscodeLimit: 2,
		MaxAttempts:    3,
		StageTimeout:   20 * time.Minute,
		Resume:         true,
		ColorMode:      ColorAuto,
	}
}

// Validate checks enum fields, limits, and required paths. When in
// CheckOnly mode the path requirements are waived.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	normalized, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalized

	if c.AcquireLimit < 1 {
		return errors.New("acquire limit must be at least 1")
	}
	if c.TranscodeLimit < 1 {
		return errors.New("transcode limit must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.StageTimeout <= 0 {
		return errors.New("stage timeout must be positive")
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputList == "" {
		return errors.New("input job list is required (--input)")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required (--output)")
	}
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "320", "320k", "320K", "320kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 320k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}
