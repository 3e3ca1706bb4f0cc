package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestScanOneFindsFilesAndSubdirs(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "a.txt", "hello")
	mustWrite(t, dir, "b.txt", "world!")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	res, err := ScanOne(dir, Options{})
	if err != nil {
		t.Fatalf("ScanOne: %v", err)
	}

	if len(res.Files) != 2 {
		t.Errorf("len(Files) = %d, want 2", len(res.Files))
	}
	if len(res.Subdirs) != 1 {
		t.Errorf("len(Subdirs) = %d, want 1", len(res.Subdirs))
	}
}

func TestScanOneSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := mustWrite(t, dir, "real.txt", "content")
	if err := os.Symlink(target, filepath.Join(dir, "link.txt")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	res, err := ScanOne(dir, Options{})
	if err != nil {
		t.Fatalf("ScanOne: %v", err)
	}
	if len(res.Files) != 1 {
		t.Errorf("len(Files) = %d, want 1 (symlink should be skipped)", len(res.Files))
	}
}

func TestScanOneAppliesMinSize(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "small.txt", "ab")
	mustWrite(t, dir, "large.txt", "abcdefghij")

	res, err := ScanOne(dir, Options{MinSize: 5})
	if err != nil {
		t.Fatalf("ScanOne: %v", err)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0].Path) != "large.txt" {
		t.Errorf("expected only large.txt to survive the size gate, got %+v", res.Files)
	}
}

func TestScanOneSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "empty.txt", "")

	res, err := ScanOne(dir, Options{})
	if err != nil {
		t.Fatalf("ScanOne: %v", err)
	}
	if len(res.Files) != 0 {
		t.Errorf("expected zero-length file to be skipped, got %+v", res.Files)
	}
}

func TestScanOneAppliesPatternFullMatch(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "keep.log", "content")
	mustWrite(t, dir, "keep.log.bak", "content")

	res, err := ScanOne(dir, Options{Pattern: regexp.MustCompile(`.*\.log`)})
	if err != nil {
		t.Fatalf("ScanOne: %v", err)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0].Path) != "keep.log" {
		t.Errorf("expected only keep.log to full-match the pattern, got %+v", res.Files)
	}
}

func TestScanOneNonexistentDir(t *testing.T) {
	_, err := ScanOne(filepath.Join(t.TempDir(), "missing"), Options{})
	if err == nil {
		t.Fatal("expected error for nonexistent directory")
	}
}

func mustWrite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
