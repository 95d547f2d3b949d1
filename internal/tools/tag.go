package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/backmassage/fetchmaster/internal/stage"
)

const tagAudioName = "tag.audio.mp3"

// Tagger embeds descriptive metadata and optional cover art into a
// normalized audio artifact. It remuxes with stream copy, so tagging
// never re-encodes: the normalized audio passes through bit-identical.
type Tagger struct {
	Verbose bool
}

// Execute implements stage.Executor for the Tag stage.
func (t *Tagger) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	input := inputWithPrefix(req.Inputs, "normalize.audio.")
	if input == "" {
		return stage.Result{}, &stage.ToolError{
			Tool: "ffmpeg",
			Err:  fmt.Errorf("no normalized audio among inputs %v", req.Inputs),
		}
	}

	out := filepath.Join(req.WorkDir, tagAudioName)
	spec := req.Job

	args := []string{"-hide_banner", "-y", "-i", input}
	if spec.CoverImagePath != "" {
		args = append(args, "-i", spec.CoverImagePath,
			"-map", "0:a", "-map", "1:0",
			"-disposition:v", "attached_pic",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	} else {
		args = append(args, "-map", "0:a")
	}
	args = append(args,
		"-c", "copy",
		"-id3v2_version", "3",
		"-metadata", "album_artist="+spec.AlbumArtist,
		"-metadata", "album="+spec.AlbumName,
		"-metadata", "title="+spec.TrackTitle,
		"-metadata", "artist="+spec.TrackArtist,
		"-metadata", "genre="+spec.Genre,
		"-metadata", "date="+strconv.Itoa(spec.Year),
		"-metadata", "comment="+spec.SourceLocator,
		out,
	)

	res := run(ctx, req.WorkDir, t.Verbose, "ffmpeg", args...)
	if res.Err != nil {
		return stage.Result{}, classify(ctx, "ffmpeg", res)
	}
	return stage.Result{Artifacts: []string{out}}, nil
}
