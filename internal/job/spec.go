// Package job defines the validated in-memory model of one media
// acquisition job: what to fetch, which outputs to produce, and the
// descriptive metadata to embed.
package job

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects which output targets a job produces.
type Kind string

const (
	KindAudio Kind = "a"  // Audio only (MP3).
	KindVideo Kind = "v"  // Video only (MKV, with its own audio track).
	KindBoth  Kind = "av" // Both audio and video outputs from one source.
)

// ParseKind parses a job-list kind column value ("a", "v", "av",
// case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return KindAudio, nil
	case "v":
		return KindVideo, nil
	case "av":
		return KindBoth, nil
	default:
		return "", fmt.Errorf("invalid kind %q (use 'a', 'v' or 'av')", s)
	}
}

// WantsAudio reports whether the kind produces a standalone audio output.
func (k Kind) WantsAudio() bool { return k == KindAudio || k == KindBoth }

// WantsVideo reports whether the kind produces a video output.
func (k Kind) WantsVideo() bool { return k == KindVideo || k == KindBoth }

// Spec is one validated row of the job list. It is constructed once by the
// joblist parser and read-only afterwards; no pipeline stage mutates it.
type Spec struct {
	// Index is the job's zero-based position in the input list. The run
	// report is ordered by it.
	Index int

	Kind          Kind
	SourceLocator string // URL of exactly one source item, never a playlist.

	// Descriptive metadata, all required non-empty.
	AlbumArtist string
	AlbumName   string
	TrackTitle  string
	TrackArtist string
	Genre       string
	Year        int

	// CoverImagePath is the resolved absolute path of the cover art file,
	// or empty when the row referenced none.
	CoverImagePath string
}

// Validate checks the field invariants. All problems are reported in one
// error so a bad row surfaces every defect at once.
func (s *Spec) Validate() error {
	var problems []string

	switch s.Kind {
	case KindAudio, KindVideo, KindBoth:
	default:
		problems = append(problems, fmt.Sprintf("invalid kind %q", string(s.Kind)))
	}
	if strings.TrimSpace(s.SourceLocator) == "" {
		problems = append(problems, "source locator is empty")
	}
	for _, f := range []struct{ name, value string }{
		{"album artist", s.AlbumArtist},
		{"album name", s.AlbumName},
		{"track title", s.TrackTitle},
		{"track artist", s.TrackArtist},
		{"genre", s.Genre},
	} {
		if strings.TrimSpace(f.value) == "" {
			problems = append(problems, f.name+" is empty")
		}
	}
	if s.Year <= 0 {
		problems = append(problems, fmt.Sprintf("year %d is not a positive integer", s.Year))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// Label returns a short human-readable identifier used in logs and the
// run report.
func (s *Spec) Label() string {
	return fmt.Sprintf("%s - %s", s.AlbumArtist, s.TrackTitle)
}
