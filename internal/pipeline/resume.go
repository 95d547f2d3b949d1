package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Completion markers make re-running a job list cheap: each succeeded
// stage writes a marker file in the working directory recording a
// fingerprint of its declared inputs and the artifacts it produced. A
// later run skips the stage when the marker's fingerprint still matches
// and every recorded artifact still exists non-empty.
//
// Marker format (one line each): fingerprint, then artifact paths
// relative to the working directory.

// markerPath returns the marker file path for a stage. Stage IDs contain
// ':' which is unfriendly in filenames.
func markerPath(workDir, stageID string) string {
	return filepath.Join(workDir, ".done-"+strings.ReplaceAll(stageID, ":", "-"))
}

// fingerprint derives the identifier of a stage's declared inputs: the
// stage identity, the job's immutable source coordinates, and the name
// and size of every input artifact. Any change invalidates the marker.
func fingerprint(spec job.Spec, st stage.Stage, inputs []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n", st.ID, spec.SourceLocator, spec.Kind)
	for _, in := range inputs {
		size := int64(-1)
		if fi, err := os.Stat(in); err == nil {
			size = fi.Size()
		}
		fmt.Fprintf(h, "%s %d\n", filepath.Base(in), size)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeMarker records a stage completion. Artifacts outside the working
// directory (final destinations) are recorded as absolute paths.
func writeMarker(workDir string, spec job.Spec, st stage.Stage, inputs, artifacts []string) error {
	var b strings.Builder
	b.WriteString(fingerprint(spec, st, inputs))
	b.WriteByte('\n')
	for _, a := range artifacts {
		if rel, err := filepath.Rel(workDir, a); err == nil && !strings.HasPrefix(rel, "..") {
			a = rel
		}
		b.WriteString(a)
		b.WriteByte('\n')
	}
	return os.WriteFile(markerPath(workDir, st.ID), []byte(b.String()), 0o644)
}

// checkMarker reports whether a prior run completed this stage with the
// same inputs and its artifacts are still present and non-empty. On
// success it returns the artifact paths to reuse.
func checkMarker(workDir string, spec job.Spec, st stage.Stage, inputs []string) ([]string, bool) {
	data, err := os.ReadFile(markerPath(workDir, st.ID))
	if err != nil {
		return nil, false
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return nil, false
	}
	if lines[0] != fingerprint(spec, st, inputs) {
		return nil, false
	}

	var artifacts []string
	for _, line := range lines[1:] {
		path := line
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		fi, err := os.Stat(path)
		if err != nil || fi.Size() == 0 {
			return nil, false
		}
		artifacts = append(artifacts, path)
	}
	return artifacts, true
}
