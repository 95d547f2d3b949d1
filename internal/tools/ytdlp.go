package tools

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/backmassage/fetchmaster/internal/stage"
)

// Artifact name prefixes within a job's working directory. Stages locate
// their inputs by these prefixes, never by guessing extensions.
const (
	acquireAudioPrefix = "acquire.audio."
	acquireVideoPrefix = "acquire.video."
)

// Acquirer fetches source streams with yt-dlp. Jobs that want a video
// output fetch best video+audio merged into one container; audio-only
// jobs fetch the best audio stream alone. An "av" job therefore fetches
// the merged container once and the audio branch extracts from it; the
// source is never downloaded twice.
type Acquirer struct {
	VideoContainer string // Merge container for video fetches ("mkv").
	SubtitleLang   string // Subtitle language to fetch; empty disables.
	Verbose        bool
}

// Execute implements stage.Executor for the Acquire stage.
func (a *Acquirer) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	if req.Job.Kind.WantsVideo() {
		return a.fetchVideo(ctx, req)
	}
	return a.fetchAudio(ctx, req)
}

func (a *Acquirer) fetchAudio(ctx context.Context, req stage.Request) (stage.Result, error) {
	args := []string{
		"--no-playlist",
		"--newline",
		"-f", "bestaudio",
		"-o", acquireAudioPrefix + "%(ext)s",
		req.Job.SourceLocator,
	}

	res := run(ctx, req.WorkDir, a.Verbose, "yt-dlp", args...)
	if res.Err != nil {
		return stage.Result{}, classify(ctx, "yt-dlp", res)
	}

	artifact, err := findArtifact(req.WorkDir, acquireAudioPrefix)
	if err != nil {
		return stage.Result{}, &stage.ToolError{Tool: "yt-dlp", Err: err}
	}
	return stage.Result{Artifacts: []string{artifact}}, nil
}

func (a *Acquirer) fetchVideo(ctx context.Context, req stage.Request) (stage.Result, error) {
	container := a.VideoContainer
	if container == "" {
		container = "mkv"
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", container,
		"-o", acquireVideoPrefix + "%(ext)s",
	}
	if a.SubtitleLang != "" {
		args = append(args,
			"--write-subs",
			"--sub-langs", a.SubtitleLang,
			"--convert-subs", "srt",
		)
	}
	args = append(args, req.Job.SourceLocator)

	res := run(ctx, req.WorkDir, a.Verbose, "yt-dlp", args...)
	if res.Err != nil {
		return stage.Result{}, classify(ctx, "yt-dlp", res)
	}

	video, err := findArtifact(req.WorkDir, acquireVideoPrefix+container)
	if err != nil {
		return stage.Result{}, &stage.ToolError{Tool: "yt-dlp", Err: err}
	}
	artifacts := []string{video}

	// Subtitles are optional: many sources have none for the requested
	// language, which is not a failure.
	if a.SubtitleLang != "" {
		if subs := subtitleArtifact(req.WorkDir, a.SubtitleLang); subs != "" {
			artifacts = append(artifacts, subs)
		}
	}
	return stage.Result{Artifacts: artifacts}, nil
}

// subtitleArtifact returns the downloaded .srt file for lang, or "".
func subtitleArtifact(dir, lang string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, acquireVideoPrefix+"*."+lang+".srt"))
	if len(matches) == 1 {
		return matches[0]
	}
	// yt-dlp may name subs with a region variant (en-US).
	matches, _ = filepath.Glob(filepath.Join(dir, acquireVideoPrefix+"*.srt"))
	for _, m := range matches {
		if strings.Contains(filepath.Base(m), "."+lang) {
			return m
		}
	}
	return ""
}
