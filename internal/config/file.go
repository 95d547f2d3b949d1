package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML defaults file. All fields are pointers so
// only keys the user actually set override the built-in defaults; flags
// applied afterwards override both.
type fileConfig struct {
	InputList      *string `yaml:"input_list"`
	OutputDir      *string `yaml:"output_dir"`
	CoverDir       *string `yaml:"cover_dir"`
	WorkDir        *string `yaml:"work_dir"`
	AudioCodec     *string `yaml:"audio_codec"`
	AudioBitrate   *string `yaml:"audio_bitrate"`
	VideoContainer *string `yaml:"video_container"`
	SubtitleLang   *string `yaml:"subtitle_lang"`
	AcquireLimit   *int    `yaml:"acquire_limit"`
	TranscodeLimit *int    `yaml:"transcode_limit"`
	MaxAttempts    *int    `yaml:"max_attempts"`
	StageTimeout   *string `yaml:"stage_timeout"` // Go duration string, e.g. "20m".
	Resume         *bool   `yaml:"resume"`
	Overwrite      *bool   `yaml:"overwrite"`
	KeepWork       *bool   `yaml:"keep_work"`
	LogFile        *string `yaml:"log_file"`
	ColorMode      *string `yaml:"color_mode"`
}

// LoadFile overlays settings from a YAML file onto cfg. Unknown keys are
// rejected so typos surface instead of being silently ignored.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.InputList, fc.InputList)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.CoverDir, fc.CoverDir)
	setString(&cfg.WorkDir, fc.WorkDir)
	setString(&cfg.AudioCodec, fc.AudioCodec)
	setString(&cfg.AudioBitrate, fc.AudioBitrate)
	setString(&cfg.VideoContainer, fc.VideoContainer)
	setString(&cfg.SubtitleLang, fc.SubtitleLang)
	setInt(&cfg.AcquireLimit, fc.AcquireLimit)
	setInt(&cfg.TranscodeLimit, fc.TranscodeLimit)
	setInt(&cfg.MaxAttempts, fc.MaxAttempts)
	setString(&cfg.LogFile, fc.LogFile)
	if fc.Resume != nil {
		cfg.Resume = *fc.Resume
	}
	if fc.Overwrite != nil {
		cfg.Overwrite = *fc.Overwrite
	}
	if fc.KeepWork != nil {
		cfg.KeepWork = *fc.KeepWork
	}
	if fc.StageTimeout != nil {
		d, err := time.ParseDuration(*fc.StageTimeout)
		if err != nil {
			return fmt.Errorf("config file %s: invalid stage_timeout %q", path, *fc.StageTimeout)
		}
		cfg.StageTimeout = d
	}
	if fc.ColorMode != nil {
		mode, err := ParseColorMode(*fc.ColorMode)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		cfg.ColorMode = mode
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
