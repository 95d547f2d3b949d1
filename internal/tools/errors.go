package tools

import (
	"context"
	"fmt"
	"regexp"

	"github.com/backmassage/fetchmaster/internal/stage"
)

// Pre-compiled regexes for classifying tool stderr into the retryable
// (transient) and terminal (tool) error categories. Patterns cover the
// failure modes yt-dlp and ffmpeg actually report for network faults,
// rate limiting, and unavailable sources.
var (
	reTransient = regexp.MustCompile(
		`(?i)HTTP Error (429|5\d\d)|` +
			`rate.?limit|` +
			`timed? ?out|` +
			`temporary failure|` +
			`connection (reset|refused|aborted)|` +
			`network is unreachable|` +
			`unable to download webpage|` +
			`read error|` +
			`EOF occurred`)

	reNotFound = regexp.MustCompile(
		`(?i)HTTP Error (403|404|410)|` +
			`video unavailable|` +
			`this video is not available|` +
			`private video|` +
			`account.*terminated|` +
			`no video formats found`)
)

// classify wraps a failed tool invocation into the stage error taxonomy:
// cancellation first, then transient patterns, then a terminal ToolError
// carrying the stderr tail for diagnostics.
func classify(ctx context.Context, tool string, res runResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tail := stderrTail(res.Stderr, 20)
	if reNotFound.MatchString(res.Stderr) {
		return &stage.ToolError{
			Tool:   tool,
			Err:    fmt.Errorf("source not found or unavailable: %w", res.Err),
			Stderr: tail,
		}
	}
	if reTransient.MatchString(res.Stderr) {
		return &stage.TransientError{
			Err: fmt.Errorf("%s: %w: %s", tool, res.Err, lastLine(tail)),
		}
	}
	return &stage.ToolError{Tool: tool, Err: res.Err, Stderr: tail}
}

func lastLine(s string) string {
	return stderrTail(s, 1)
}
