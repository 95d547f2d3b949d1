package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/backmassage/fetchmaster/internal/probe"
	"github.com/backmassage/fetchmaster/internal/stage"
)

const (
	assembleAudioName = "assemble.audio.mp3"
	assembleVideoName = "assemble.video" // container extension appended
)

// Assembler produces the target-format artifact from acquired streams:
// for the audio branch it transcodes the best available audio into MP3;
// for the video branch it remuxes the merged container and embeds any
// downloaded subtitle track without re-encoding.
type Assembler struct {
	AudioCodec     string // "libmp3lame"
	AudioBitrate   string // "320k"
	VideoContainer string // "mkv"
	Verbose        bool
}

// Execute implements stage.Executor for the Assemble stage.
func (a *Assembler) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	switch req.Stage.Target {
	case stage.TargetAudio:
		return a.assembleAudio(ctx, req)
	case stage.TargetVideo:
		return a.assembleVideo(ctx, req)
	default:
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("assemble stage has no target"),
		}
	}
}

// assembleAudio transcodes the acquired audio into the target codec. For
// "av" jobs there is no standalone audio download; the audio is extracted
// from the shared merged container.
func (a *Assembler) assembleAudio(ctx context.Context, req stage.Request) (stage.Result, error) {
	input := inputWithPrefix(req.Inputs, acquireAudioPrefix)
	if input == "" {
		input = inputWithPrefix(req.Inputs, acquireVideoPrefix)
	}
	if input == "" {
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("no acquired audio source among inputs %v", req.Inputs),
		}
	}

	pr, err := probe.Probe(ctx, input)
	if err != nil {
		return stage.Result{}, &stage.ToolError{Tool: "ffprobe", Err: err}
	}
	if !pr.HasAudio() {
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("acquired source %s has no audio stream", filepath.Base(input)),
		}
	}

	out := filepath.Join(req.WorkDir, assembleAudioName)
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-vn",
		"-c:a", a.AudioCodec,
		"-b:a", a.AudioBitrate,
		out,
	}

	res := run(ctx, req.WorkDir, a.Verbose, "ffmpeg", args...)
	if res.Err != nil {
		return stage.Result{}, classify(ctx, "ffmpeg", res)
	}
	return stage.Result{Artifacts: []string{out}}, nil
}

// assembleVideo remuxes the acquired container, embedding a subtitle
// track when one was downloaded. Streams are copied, never re-encoded.
func (a *Assembler) assembleVideo(ctx context.Context, req stage.Request) (stage.Result, error) {
	input := inputWithPrefix(req.Inputs, acquireVideoPrefix)
	if input == "" {
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("no acquired video source among inputs %v", req.Inputs),
		}
	}

	container := a.VideoContainer
	if container == "" {
		container = "mkv"
	}
	out := filepath.Join(req.WorkDir, assembleVideoName+"."+container)

	args := []string{"-hide_banner", "-y", "-i", input}
	subs := subtitleInput(req.Inputs)
	if subs != "" && subs != input {
		args = append(args, "-i", subs, "-map", "0", "-map", "1:0", "-c:s", "srt")
	} else {
		args = append(args, "-map", "0")
	}
	args = append(args, "-c:v", "copy", "-c:a", "copy", out)

	res := run(ctx, req.WorkDir, a.Verbose, "ffmpeg", args...)
	if res.Err != nil {
		return stage.Result{}, classify(ctx, "ffmpeg", res)
	}
	return stage.Result{Artifacts: []string{out}}, nil
}

// subtitleInput returns the .srt predecessor artifact, or "".
func subtitleInput(inputs []string) string {
	for _, in := range inputs {
		if filepath.Ext(in) == ".srt" {
			return in
		}
	}
	return ""
}
