package config

// This file binds CLI flags to Config fields on a pflag flag set.
// Negated flags (e.g. --no-resume) are captured separately and applied
// after parsing so Config defaults (and YAML file values) hold unless
// the user passes the flag.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// NegatedFlags holds boolean flags that invert a default and are applied
// after parsing by [ApplyNegatedFlags].
type NegatedFlags struct {
	NoResume   bool
	NoColor    bool
	ForceColor bool
}

// BindFlags registers all CLI flags on fs. Values land directly in cfg
// except for the negated flags, which land in n.
func BindFlags(fs *pflag.FlagSet, cfg *Config, n *NegatedFlags) {
	// Paths.
	fs.StringVarP(&cfg.InputList, "input", "i", cfg.InputList, "Job list file (CSV with # comments)")
	fs.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Output tree root")
	fs.StringVarP(&cfg.CoverDir, "covers", "c", cfg.CoverDir, "Cover image directory")
	fs.StringVar(&cfg.WorkDir, "work", cfg.WorkDir, "Scratch directory root")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML defaults file")

	// Targets.
	fs.StringVar(&cfg.AudioBitrate, "audio-bitrate", cfg.AudioBitrate, "Target MP3 bitrate (e.g. 320k)")
	fs.StringVar(&cfg.SubtitleLang, "sub-lang", cfg.SubtitleLang, "Subtitle language to embed (empty disables)")

	// Scheduling.
	fs.IntVar(&cfg.AcquireLimit, "acquire-limit", cfg.AcquireLimit, "Max simultaneous acquisitions")
	fs.IntVar(&cfg.TranscodeLimit, "transcode-limit", cfg.TranscodeLimit, "Max simultaneous transcodes")
	fs.IntVar(&cfg.MaxAttempts, "retries", cfg.MaxAttempts, "Attempts per stage for transient failures")
	fs.DurationVar(&cfg.StageTimeout, "stage-timeout", cfg.StageTimeout, "Per-stage call timeout")

	// Behavior.
	fs.BoolVar(&n.NoResume, "no-resume", false, "Redo completed stages instead of reusing them")
	fs.BoolVarP(&cfg.Overwrite, "force", "f", cfg.Overwrite, "Replace existing destination files")
	fs.BoolVar(&cfg.KeepWork, "keep-work", cfg.KeepWork, "Keep scratch directories of succeeded jobs")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", cfg.DryRun, "Preview jobs and destinations without running")

	// Display and logging.
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output (tool stderr, debug logs)")
	fs.BoolVar(&n.ForceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.NoColor, "no-color", false, "Disable colored logs")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Append logs to file")
	fs.BoolVar(&cfg.CheckOnly, "check", cfg.CheckOnly, "Run system diagnostics and exit")
}

// ApplyNegatedFlags copies negated flag values into cfg.
func ApplyNegatedFlags(cfg *Config, n *NegatedFlags) {
	if n.NoResume {
		cfg.Resume = false
	}
	if n.NoColor {
		cfg.ColorMode = ColorNever
	} else if n.ForceColor {
		cfg.ColorMode = ColorAlways
	}
}

// ParseColorMode parses a --color-mode style value. Kept exported for the
// YAML loader and tests.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
}
