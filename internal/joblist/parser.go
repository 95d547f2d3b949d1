// Package joblist parses the delimited job-list file into validated job
// specs. The pipeline core never sees raw text; everything downstream of
// this package works on job.Spec values.
package joblist

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backmassage/fetchmaster/internal/job"
)

// columnCount is the fixed field layout of one row: kind, source locator,
// album artist, album name, track title, track artist, genre, year, cover
// image filename.
const columnCount = 9

// commentChar starts an inline comment; it and everything after it on the
// line is discarded before field parsing.
const commentChar = "#"

// RowError ties a row-level defect to its 1-based line number in the
// input file.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ValidationError collects every malformed row found in one parse pass.
// Validation is exhaustive: a bad row never hides the defects of the rows
// after it.
type ValidationError struct {
	Rows []*RowError
}

func (e *ValidationError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d invalid rows:", len(e.Rows))
	for _, r := range e.Rows {
		b.WriteString("\n  ")
		b.WriteString(r.Error())
	}
	return b.String()
}

// Result is the outcome of one parse pass: the valid specs in input
// order, warnings worth surfacing (duplicates), and the collected row
// errors, if any.
type Result struct {
	Specs    []job.Spec
	Warnings []string
	Invalid  *ValidationError
}

// ParseFile reads and parses a job-list file. A read failure is fatal;
// row-level defects are collected into Result.Invalid while the valid
// rows still parse, so a batch with one bad row still runs the rest.
func ParseFile(path, coverDir string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read job list: %w", err)
	}
	return Parse(string(data), coverDir), nil
}

// Parse parses job-list content. coverDir is the directory cover image
// filenames are resolved against; a row naming a cover that does not
// exist there is invalid.
func Parse(content, coverDir string) *Result {
	res := &Result{}
	var invalid []*RowError
	seen := make(map[string]int) // locator+kind → first line

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		if idx := strings.Index(line, commentChar); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		spec, err := parseRow(line, coverDir)
		if err != nil {
			invalid = append(invalid, &RowError{Line: lineNo, Err: err})
			continue
		}

		key := spec.SourceLocator + "|" + string(spec.Kind)
		if first, dup := seen[key]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"line %d: duplicate of line %d (%s, kind %s); both will run",
				lineNo, first, spec.SourceLocator, spec.Kind))
		} else {
			seen[key] = lineNo
		}

		spec.Index = len(res.Specs)
		res.Specs = append(res.Specs, spec)
	}

	if len(invalid) > 0 {
		res.Invalid = &ValidationError{Rows: invalid}
	}
	return res
}

// parseRow parses one comment-stripped, non-blank line into a spec.
func parseRow(line string, coverDir string) (job.Spec, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return job.Spec{}, fmt.Errorf("malformed row: %w", err)
	}
	if len(fields) != columnCount {
		return job.Spec{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	kind, err := job.ParseKind(fields[0])
	if err != nil {
		return job.Spec{}, err
	}

	year := 0
	if fields[7] != "" {
		year, err = strconv.Atoi(fields[7])
		if err != nil {
			return job.Spec{}, fmt.Errorf("invalid year %q", fields[7])
		}
	}

	spec := job.Spec{
		Kind:          kind,
		SourceLocator: fields[1],
		AlbumArtist:   fields[2],
		AlbumName:     fields[3],
		TrackTitle:    fields[4],
		TrackArtist:   fields[5],
		Genre:         fields[6],
		Year:          year,
	}

	if fields[8] != "" {
		cover := filepath.Join(coverDir, fields[8])
		if fi, err := os.Stat(cover); err != nil || fi.IsDir() {
			return job.Spec{}, fmt.Errorf("cover image %q not found in %s", fields[8], coverDir)
		}
		spec.CoverImagePath = cover
	}

	if err := spec.Validate(); err != nil {
		return job.Spec{}, err
	}
	return spec, nil
}
