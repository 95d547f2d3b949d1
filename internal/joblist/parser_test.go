package joblist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/fetchmaster/internal/job"
)

const goodRow = `a,https://example.com/watch?v=abc,Queen Singer,Immortal Songs,Every Night,Queen Singer,Pop,2021,`

func writeCover(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("jpegdata"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParse_SingleValidRow(t *testing.T) {
	res := Parse(goodRow, "")
	if res.Invalid != nil {
		t.Fatalf("unexpected invalid rows: %v", res.Invalid)
	}
	if len(res.Specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(res.Specs))
	}
	s := res.Specs[0]
	if s.Kind != job.KindAudio || s.TrackTitle != "Every Night" || s.Year != 2021 {
		t.Errorf("parsed spec = %+v", s)
	}
	if s.Index != 0 {
		t.Errorf("Index = %d, want 0", s.Index)
	}
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	content := strings.Join([]string{
		"# full-line comment",
		"",
		"   ",
		goodRow + " # trailing comment",
		"# another",
	}, "\n")

	res := Parse(content, "")
	if res.Invalid != nil {
		t.Fatalf("unexpected invalid rows: %v", res.Invalid)
	}
	if len(res.Specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(res.Specs))
	}
}

func TestParse_MalformedRowDoesNotAbortBatch(t *testing.T) {
	content := strings.Join([]string{
		"a,https://example.com/1,Artist,Album,Title,Artist,Pop,not-a-year,", // bad year
		goodRow,
		"zz,https://example.com/2,Artist,Album,Title,Artist,Pop,2020,", // bad kind
	}, "\n")

	res := Parse(content, "")
	if len(res.Specs) != 1 {
		t.Fatalf("got %d valid specs, want 1", len(res.Specs))
	}
	if res.Invalid == nil || len(res.Invalid.Rows) != 2 {
		t.Fatalf("Invalid = %v, want 2 row errors", res.Invalid)
	}
	if res.Invalid.Rows[0].Line != 1 || res.Invalid.Rows[1].Line != 3 {
		t.Errorf("row error lines = %d, %d", res.Invalid.Rows[0].Line, res.Invalid.Rows[1].Line)
	}
	// Valid specs are indexed by their position among valid rows.
	if res.Specs[0].Index != 0 {
		t.Errorf("Index = %d, want 0", res.Specs[0].Index)
	}
}

func TestParse_WrongColumnCount(t *testing.T) {
	res := Parse("a,https://example.com/1,Artist,Album,Title", "")
	if res.Invalid == nil || len(res.Invalid.Rows) != 1 {
		t.Fatalf("Invalid = %v, want 1 row error", res.Invalid)
	}
	if !strings.Contains(res.Invalid.Rows[0].Error(), "columns") {
		t.Errorf("error = %q, want column count message", res.Invalid.Rows[0].Error())
	}
}

func TestParse_DuplicateIsWarningNotError(t *testing.T) {
	content := goodRow + "\n" + goodRow
	res := Parse(content, "")
	if res.Invalid != nil {
		t.Fatalf("duplicates must not be errors: %v", res.Invalid)
	}
	if len(res.Specs) != 2 {
		t.Fatalf("got %d specs, want 2 (both instances run)", len(res.Specs))
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "duplicate") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestParse_SameSourceDifferentKindIsNotDuplicate(t *testing.T) {
	content := goodRow + "\n" +
		`v,https://example.com/watch?v=abc,Queen Singer,Immortal Songs,Every Night,Queen Singer,Pop,2021,`
	res := Parse(content, "")
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestParse_QuotedFieldWithComma(t *testing.T) {
	row := `a,https://example.com/q,"Singer, The",Album,Title,"Singer, The",Pop,1999,`
	res := Parse(row, "")
	if res.Invalid != nil {
		t.Fatalf("unexpected invalid rows: %v", res.Invalid)
	}
	if res.Specs[0].AlbumArtist != "Singer, The" {
		t.Errorf("AlbumArtist = %q", res.Specs[0].AlbumArtist)
	}
}

func TestParse_CoverResolution(t *testing.T) {
	covers := t.TempDir()
	writeCover(t, covers, "album.jpg")

	withCover := `a,https://example.com/c,Artist,Album,Title,Artist,Pop,2021,album.jpg`
	res := Parse(withCover, covers)
	if res.Invalid != nil {
		t.Fatalf("unexpected invalid rows: %v", res.Invalid)
	}
	want := filepath.Join(covers, "album.jpg")
	if res.Specs[0].CoverImagePath != want {
		t.Errorf("CoverImagePath = %q, want %q", res.Specs[0].CoverImagePath, want)
	}
}

func TestParse_MissingCoverIsRowError(t *testing.T) {
	covers := t.TempDir()
	row := `a,https://example.com/c,Artist,Album,Title,Artist,Pop,2021,nope.jpg`
	res := Parse(row, covers)
	if res.Invalid == nil || len(res.Invalid.Rows) != 1 {
		t.Fatalf("Invalid = %v, want 1 row error", res.Invalid)
	}
	if !strings.Contains(res.Invalid.Rows[0].Error(), "cover") {
		t.Errorf("error = %q", res.Invalid.Rows[0].Error())
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.csv")
	if err := os.WriteFile(path, []byte("# jobs\n"+goodRow+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := ParseFile(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Specs) != 1 {
		t.Errorf("got %d specs, want 1", len(res.Specs))
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.csv"), ""); err == nil {
		t.Error("ParseFile should fail on a missing file")
	}
}
