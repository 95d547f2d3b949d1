// Package tools implements the concrete stage executors that drive the
// external collaborators: yt-dlp for acquisition and ffmpeg for assembly,
// loudness normalization, and tagging. Each executor builds one command,
// runs it with captured stderr, and classifies failures into the stage
// error taxonomy.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runResult holds the outcome of a single tool invocation.
type runResult struct {
	Stderr string
	Err    error
}

// run executes one external command with its working directory set to dir.
// When verbose is enabled, stderr is tee'd to os.Stderr in real time;
// otherwise it is captured silently for error classification.
func run(ctx context.Context, dir string, verbose bool, name string, args ...string) runResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderrBuf bytes.Buffer
	if verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return runResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// stderrTail returns the last n lines of tool output for diagnostics.
func stderrTail(stderr string, n int) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// findArtifact locates the single file in dir whose base name starts with
// prefix. Tools like yt-dlp choose the extension themselves, so outputs
// are located by prefix after the run.
func findArtifact(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"))
	if err != nil {
		return "", err
	}
	// Ignore partial downloads.
	var files []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() && fi.Size() > 0 {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no artifact matching %s* in %s", prefix, dir)
	}
	if len(files) > 1 {
		return "", fmt.Errorf("ambiguous artifacts matching %s* in %s: %v", prefix, dir, files)
	}
	return files[0], nil
}

// inputWithPrefix selects the predecessor artifact whose base name starts
// with prefix, or "" when none matches.
func inputWithPrefix(inputs []string, prefix string) string {
	for _, in := range inputs {
		if strings.HasPrefix(filepath.Base(in), prefix) {
			return in
		}
	}
	return ""
}
