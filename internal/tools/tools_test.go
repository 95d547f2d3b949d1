package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/fetchmaster/internal/probe"
	"github.com/backmassage/fetchmaster/internal/stage"
)

func touch(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindArtifact(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "acquire.audio.webm", 10)
	touch(t, dir, "acquire.audio.webm.part", 10) // partial download, ignored
	touch(t, dir, "acquire.audio.webm.ytdl", 10)
	touch(t, dir, "unrelated.txt", 10)

	got, err := findArtifact(dir, "acquire.audio.")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("findArtifact = %q, want %q", got, want)
	}
}

func TestFindArtifact_IgnoresEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acquire.audio.webm", 0)

	if _, err := findArtifact(dir, "acquire.audio."); err == nil {
		t.Error("empty file should not count as an artifact")
	}
}

func TestFindArtifact_AmbiguousMatches(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "acquire.audio.webm", 10)
	touch(t, dir, "acquire.audio.m4a", 10)

	_, err := findArtifact(dir, "acquire.audio.")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("err = %v, want ambiguous error", err)
	}
}

func TestFindArtifact_NoMatch(t *testing.T) {
	if _, err := findArtifact(t.TempDir(), "acquire.audio."); err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestInputWithPrefix(t *testing.T) {
	inputs := []string{
		"/work/x/acquire.video.mkv",
		"/work/x/acquire.audio.webm",
		"/work/x/acquire.en.srt",
	}
	if got := inputWithPrefix(inputs, "acquire.audio."); filepath.Base(got) != "acquire.audio.webm" {
		t.Errorf("got %q", got)
	}
	if got := inputWithPrefix(inputs, "assemble."); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestStderrTail(t *testing.T) {
	in := "one\ntwo\nthree\nfour\n"
	if got := stderrTail(in, 2); got != "three\nfour" {
		t.Errorf("stderrTail = %q", got)
	}
	if got := stderrTail("only", 5); got != "only" {
		t.Errorf("stderrTail = %q", got)
	}
}

func TestClassify_TransientPatterns(t *testing.T) {
	transient := []string{
		"ERROR: unable to download video data: HTTP Error 429: Too Many Requests",
		"ERROR: HTTP Error 503: Service Unavailable",
		"error: connection reset by peer",
		"Connection refused",
		"read error: timed out",
		"rate-limit exceeded, retry later",
		"ERROR: unable to download webpage",
	}
	for _, s := range transient {
		err := classify(context.Background(), "yt-dlp", runResult{Stderr: s, Err: errors.New("exit status 1")})
		if !stage.IsTransient(err) {
			t.Errorf("stderr %q should classify as transient, got %v", s, err)
		}
	}
}

func TestClassify_TerminalPatterns(t *testing.T) {
	terminal := []string{
		"ERROR: Video unavailable",
		"ERROR: Private video. Sign in if you've been granted access",
		"ERROR: HTTP Error 404: Not Found",
		"ERROR: HTTP Error 403: Forbidden",
		"something completely unrecognized went wrong",
	}
	for _, s := range terminal {
		err := classify(context.Background(), "yt-dlp", runResult{Stderr: s, Err: errors.New("exit status 1")})
		if stage.IsTransient(err) {
			t.Errorf("stderr %q should not be transient", s)
		}
		var te *stage.ToolError
		if !errors.As(err, &te) {
			t.Errorf("stderr %q should classify as ToolError, got %T", s, err)
		}
	}
}

func TestClassify_CancellationWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := classify(ctx, "ffmpeg", runResult{Stderr: "HTTP Error 429", Err: errors.New("killed")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClassify_ToolErrorCarriesStderrTail(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "noise")
	}
	lines = append(lines, "the actual failure reason")
	err := classify(context.Background(), "ffmpeg",
		runResult{Stderr: strings.Join(lines, "\n"), Err: errors.New("exit status 1")})

	var te *stage.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T", err)
	}
	if !strings.Contains(te.Stderr, "the actual failure reason") {
		t.Error("stderr tail should keep the final line")
	}
	if strings.Count(te.Stderr, "\n") > 20 {
		t.Error("stderr tail should be bounded")
	}
}

func TestAnalysisFilter(t *testing.T) {
	f := analysisFilter()
	for _, want := range []string{"loudnorm=I=-14", "LRA=7", "TP=-2", "dual_mono=true", "print_format=json"} {
		if !strings.Contains(f, want) {
			t.Errorf("analysisFilter() = %q, missing %q", f, want)
		}
	}
}

func TestApplyFilter(t *testing.T) {
	m := &probe.Measurement{
		InputI:       "-23.1",
		InputTP:      "-4.5",
		InputLRA:     "9.8",
		InputThresh:  "-33.6",
		TargetOffset: "0.3",
	}
	f := applyFilter(m)
	for _, want := range []string{
		"loudnorm=I=-14:LRA=7:TP=-2",
		"measured_I=-23.1",
		"measured_TP=-4.5",
		"measured_LRA=9.8",
		"measured_thresh=-33.6",
		"offset=0.3",
		"linear=true",
	} {
		if !strings.Contains(f, want) {
			t.Errorf("applyFilter() = %q, missing %q", f, want)
		}
	}
}

func TestSubtitleInput(t *testing.T) {
	inputs := []string{"/w/acquire.video.mkv", "/w/acquire.en.srt"}
	if got := subtitleInput(inputs); filepath.Base(got) != "acquire.en.srt" {
		t.Errorf("subtitleInput = %q", got)
	}
	if got := subtitleInput([]string{"/w/acquire.video.mkv"}); got != "" {
		t.Errorf("subtitleInput = %q, want empty", got)
	}
}
