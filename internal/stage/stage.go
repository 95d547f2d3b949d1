// Package stage defines the pipeline stage vocabulary: stage identities,
// the per-kind stage sequences with their declared predecessors, the
// executor boundary to external tools, and the error taxonomy shared by
// the pipeline driver and the tool adapters.
package stage

import "github.com/backmassage/fetchmaster/internal/job"

// Name is one of the five processing steps a job can run.
type Name string

const (
	Acquire   Name = "acquire"   // Fetch source streams (yt-dlp).
	Assemble  Name = "assemble"  // Mux video or transcode audio (ffmpeg).
	Normalize Name = "normalize" // EBU R128 loudness normalization (ffmpeg).
	Tag       Name = "tag"       // Embed metadata and cover art (ffmpeg).
	Place     Name = "place"     // Atomic move into the output tree.
)

// Target distinguishes the audio and video branches of an "av" job.
type Target string

const (
	TargetAudio Target = "audio"
	TargetVideo Target = "video"
	// TargetNone marks stages shared by both branches (Acquire).
	TargetNone Target = ""
)

// Class groups stages by the resource they contend for. The scheduler
// bounds each class with its own semaphore.
type Class string

const (
	ClassNetwork   Class = "network"   // Acquire: bounded by the network limit.
	ClassTranscode Class = "transcode" // Assemble, Normalize: CPU/IO-bound.
	ClassLocal     Class = "local"     // Tag, Place: cheap, unbounded.
)

// Stage is one node of a job's stage sequence. Deps lists the IDs of the
// stages that must have succeeded (or been skipped via resumption) before
// this one may start.
type Stage struct {
	ID     string
	Name   Name
	Target Target
	Class  Class
	Deps   []string
}

func node(name Name, target Target, class Class, deps ...string) Stage {
	id := string(name)
	if target != TargetNone {
		id += ":" + string(target)
	}
	return Stage{ID: id, Name: name, Target: target, Class: class, Deps: deps}
}

// SequenceFor returns the ordered stage sequence for a job kind. Stages
// are executed strictly in slice order; Deps only gate whether a stage
// may run at all (a failed dependency marks it skipped, not reordered).
//
//	a:  acquire → assemble:audio → normalize:audio → tag:audio → place:audio
//	v:  acquire → assemble:video → normalize:video → place:video
//	av: acquire, then the audio branch followed by the video branch; both
//	    branches depend only on the shared acquire stage, so a failure in
//	    one branch never skips the other.
func SequenceFor(kind job.Kind) []Stage {
	acquire := node(Acquire, TargetNone, ClassNetwork)

	audio := []Stage{
		node(Assemble, TargetAudio, ClassTranscode, acquire.ID),
		node(Normalize, TargetAudio, ClassTranscode, "assemble:audio"),
		node(Tag, TargetAudio, ClassLocal, "normalize:audio"),
		node(Place, TargetAudio, ClassLocal, "tag:audio"),
	}
	// Video outputs carry no descriptive tags, so the video branch places
	// directly after normalization.
	video := []Stage{
		node(Assemble, TargetVideo, ClassTranscode, acquire.ID),
		node(Normalize, TargetVideo, ClassTranscode, "assemble:video"),
		node(Place, TargetVideo, ClassLocal, "normalize:video"),
	}

	seq := []Stage{acquire}
	if kind.WantsAudio() {
		seq = append(seq, audio...)
	}
	if kind.WantsVideo() {
		seq = append(seq, video...)
	}
	return seq
}
