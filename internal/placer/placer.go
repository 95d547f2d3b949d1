// Package placer computes deterministic destination paths and performs
// the final atomic move of finished artifacts into the output tree.
package placer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/backmassage/fetchmaster/internal/job"
	"github.com/backmassage/fetchmaster/internal/stage"
)

// Placer implements the Place stage. It tracks destinations claimed by
// jobs within the batch so two jobs targeting the same path surface as a
// collision instead of silently racing. All methods are goroutine-safe:
// many pipelines place concurrently.
type Placer struct {
	Root      string
	Overwrite bool

	mu     sync.Mutex
	owners map[string]string // destination path → source locator that owns it
}

// New returns a Placer rooted at root.
func New(root string, overwrite bool) *Placer {
	return &Placer{
		Root:      root,
		Overwrite: overwrite,
		owners:    make(map[string]string),
	}
}

// DestDir returns the fixed destination directory for a job:
// root/albumArtist/albumName/trackTitle, each segment sanitized.
func (p *Placer) DestDir(spec job.Spec) string {
	return filepath.Join(p.Root,
		Sanitize(spec.AlbumArtist),
		Sanitize(spec.AlbumName),
		Sanitize(spec.TrackTitle),
	)
}

// Execute implements stage.Executor for the Place stage: each input
// artifact is moved atomically into the job's destination directory,
// named after the track title with the artifact's extension.
func (p *Placer) Execute(ctx context.Context, req stage.Request) (stage.Result, error) {
	if len(req.Inputs) == 0 {
		return stage.Result{}, &stage.PlacementError{
			Path: p.DestDir(req.Job),
			Err:  fmt.Errorf("nothing to place"),
		}
	}

	var placed []string
	for _, artifact := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return stage.Result{}, err
		}
		dest, err := p.place(req.Job, artifact)
		if err != nil {
			return stage.Result{}, err
		}
		placed = append(placed, dest)
	}
	return stage.Result{Artifacts: placed}, nil
}

// place moves one artifact to its final destination.
func (p *Placer) place(spec job.Spec, artifact string) (string, error) {
	destDir := p.DestDir(spec)
	dest := filepath.Join(destDir, Sanitize(spec.TrackTitle)+filepath.Ext(artifact))

	if err := p.claim(dest, spec.SourceLocator); err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", &stage.PlacementError{Path: destDir, Err: err}
	}

	if _, err := os.Lstat(dest); err == nil && !p.Overwrite {
		return "", &stage.PlacementError{
			Path: dest,
			Err:  fmt.Errorf("destination already exists"),
		}
	}

	if err := atomicMove(artifact, dest); err != nil {
		return "", &stage.PlacementError{Path: dest, Err: err}
	}
	return dest, nil
}

// claim registers dest for the given source. A destination already claimed
// by a different source in this batch is a collision; the overwrite flag
// does not bypass it because the jobs would clobber each other.
func (p *Placer) claim(dest, source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, exists := p.owners[dest]
	if exists && owner != source {
		return &stage.PlacementError{
			Path: dest,
			Err:  fmt.Errorf("destination claimed by another job in this batch (%s)", owner),
		}
	}
	p.owners[dest] = source
	return nil
}

// atomicMove renames src to dest. Across filesystems (where rename fails
// with EXDEV) it copies to a temp file beside dest and renames that, so
// the destination never holds a partially written file.
func atomicMove(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	tmp := dest + ".part"
	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
