package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Measurement holds the first-pass loudnorm analysis values that the
// second pass feeds back as measured_* parameters. ffmpeg prints them as
// JSON strings, so they stay strings here and are passed through verbatim.
type Measurement struct {
	InputI            string `json:"input_i"`
	InputTP           string `json:"input_tp"`
	InputLRA          string `json:"input_lra"`
	InputThresh       string `json:"input_thresh"`
	OutputI           string `json:"output_i"`
	OutputTP          string `json:"output_tp"`
	OutputLRA         string `json:"output_lra"`
	OutputThresh      string `json:"output_thresh"`
	NormalizationType string `json:"normalization_type"`
	TargetOffset      string `json:"target_offset"`
}

// ParseLoudnorm extracts the loudnorm JSON block that ffmpeg prints to
// stderr at the end of a print_format=json analysis pass. The block is the
// last balanced {...} region in the output; everything before it is
// ordinary ffmpeg logging.
func ParseLoudnorm(stderr string) (*Measurement, error) {
	start := strings.LastIndex(stderr, "{")
	end := strings.LastIndex(stderr, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no loudnorm JSON block in ffmpeg output")
	}

	var m Measurement
	if err := json.Unmarshal([]byte(stderr[start:end+1]), &m); err != nil {
		return nil, fmt.Errorf("parse loudnorm JSON: %w", err)
	}
	if m.InputI == "" {
		return nil, fmt.Errorf("loudnorm JSON block missing input_i")
	}
	return &m, nil
}
