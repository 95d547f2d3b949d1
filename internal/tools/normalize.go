package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/backmassage/fetchmaster/internal/probe"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Loudness normalization targets. The integrated loudness target is fixed
// program-wide; EBU R128 is the measurement procedure behind ffmpeg's
// loudnorm filter.
const (
	TargetLUFS     = -14.0
	TargetLRA      = 7.0
	TargetTruePeak = -2.0
)

const (
	normalizeAudioName = "normalize.audio.mp3"
	normalizeVideoName = "normalize.video" // container extension appended
)

// Normalizer rewrites an artifact's audio loudness to the fixed target
// using ffmpeg's loudnorm filter in two passes: an analysis pass that
// measures the source, then an apply pass that feeds the measured values
// back in linear mode. Video streams are copied untouched.
type Normalizer struct {
	AudioCodec   string // "libmp3lame"
	AudioBitrate string // "320k"
	Verbose      bool
}

// Execute implements stage.Executor for the Normalize stage.
func (n *Normalizer) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	var input, out string
	switch req.Stage.Target {
	case stage.TargetAudio:
		input = inputWithPrefix(req.Inputs, "assemble.audio.")
		out = filepath.Join(req.WorkDir, normalizeAudioName)
	case stage.TargetVideo:
		input = inputWithPrefix(req.Inputs, "assemble.video.")
		if input != "" {
			out = filepath.Join(req.WorkDir, normalizeVideoName+filepath.Ext(input))
		}
	}
	if input == "" {
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("no assembled artifact among inputs %v", req.Inputs),
		}
	}

	m, err := n.measure(ctx, req.WorkDir, input)
	if err != nil {
		return stage.Result{}, err
	}
	if err := n.apply(ctx, req, input, out, m); err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Artifacts: []string{out}}, nil
}

// measure runs the analysis pass and parses the loudnorm JSON summary.
func (n *Normalizer) measure(ctx context.Context, dir, input string) (*probe.Measurement, error) {
	args := []string{
		"-hide_banner",
		"-i", input,
		"-af", analysisFilter(),
		"-f", "null", "-",
	}

	res := run(ctx, dir, false, "ffmpeg", args...)
	if res.Err != nil {
		return nil, classify(ctx, "ffmpeg", res)
	}

	m, err := probe.ParseLoudnorm(res.Stderr)
	if err != nil {
		return nil, &stage.ToolError{Tool: "ffmpeg", Err: err, Stderr: stderrTail(res.Stderr, 20)}
	}
	return m, nil
}

// apply runs the second pass with the measured values in linear mode.
func (n *Normalizer) apply(ctx context.Context, req stage.Request, input, out string, m *probe.Measurement) error {
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-af", applyFilter(m),
	}
	if req.Stage.Target == stage.TargetVideo {
		args = append(args, "-map", "0", "-c:v", "copy", "-c:s", "copy")
	}
	args = append(args,
		"-c:a", n.AudioCodec,
		"-b:a", n.AudioBitrate,
		out,
	)

	res := run(ctx, req.WorkDir, n.Verbose, "ffmpeg", args...)
	if res.Err != nil {
		return classify(ctx, "ffmpeg", res)
	}
	return nil
}

// analysisFilter builds the first-pass loudnorm filter spec.
func analysisFilter() string {
	return fmt.Sprintf(
		"loudnorm=I=%g:LRA=%g:TP=%g:dual_mono=true:print_format=json",
		TargetLUFS, TargetLRA, TargetTruePeak,
	)
}

// applyFilter builds the second-pass filter spec with measured values.
func applyFilter(m *probe.Measurement) string {
	parts := []string{
		fmt.Sprintf("loudnorm=I=%g:LRA=%g:TP=%g", TargetLUFS, TargetLRA, TargetTruePeak),
		"measured_I=" + m.InputI,
		"measured_TP=" + m.InputTP,
		"measured_LRA=" + m.InputLRA,
		"measured_thresh=" + m.InputThresh,
		"offset=" + m.TargetOffset,
		"dual_mono=true",
		"linear=true",
	}
	return strings.Join(parts, ":")
}
