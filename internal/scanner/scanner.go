// Package scanner lists one directory's direct entries at a time.
//
// Unlike a classic recursive walker, ScanOne never spawns work for the
// subdirectories it finds — it only reports them. Fan-out across a
// directory tree is the dedup coordinator's job (spec §4.3/§4.4): "walk one
// directory non-recursively, emit found subdirs and candidate files."
//
// Grounded on the teacher's internal/scanner/scanner.go (batched
// dir.ReadDir(1000) for bounded memory, entry.Type().IsRegular() /
// symlink-skip via the DirEntry mode bit rather than a stat-and-follow) and
// internal/scanner/types.go (newFileInfo's use of link-metadata), adapted
// from a self-spawning recursive walker into the single-directory,
// coordinator-driven shape spec §4.3 requires.
package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/extentdedup/extentdedup/internal/platform"
	"github.com/extentdedup/extentdedup/internal/types"
)

// Error wraps a directory-scan failure with the directory it concerns.
type Error struct {
	Dir string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("scan %s: %v", e.Dir, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Options configures a single ScanOne call.
type Options struct {
	MinSize int64          // files strictly smaller are ignored; zero-length always ignored
	Pattern *regexp.Regexp // nil means no filtering; the whole file name must match
}

// Result is everything one directory listing yields.
type Result struct {
	Files   []types.FileRecord
	Subdirs []string
}

const batchSize = 1000

// ScanOne lists dir's direct entries, classifying each as a subdirectory to
// fan out to, a candidate file to hand to the coordinator, or something to
// skip (symlinks, devices, sockets, filtered-out names, too-small files).
//
// On error, callers decide via spec's ignore_scan_errors flag whether to
// demote this into an empty Result (never a partial one, so downstream
// invariants about "this directory was fully seen" are preserved) or treat
// it as fatal.
func ScanOne(dir string, opts Options) (Result, error) {
	d, err := os.Open(dir)
	if err != nil {
		return Result{}, &Error{Dir: dir, Err: err}
	}
	defer d.Close() //nolint:errcheck // read-only descriptor

	var res Result
	for {
		entries, rerr := d.ReadDir(batchSize)
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			switch {
			case entry.Type()&os.ModeSymlink != 0:
				// Symlinks are skipped, not resolved (spec §4.3/§1 non-goal).
				continue
			case entry.IsDir():
				res.Subdirs = append(res.Subdirs, full)
			case entry.Type().IsRegular():
				if rec, ok, ferr := classifyFile(full, entry, opts); ferr != nil {
					return Result{}, &Error{Dir: dir, Err: ferr}
				} else if ok {
					res.Files = append(res.Files, rec)
				}
			default:
				// devices, sockets, etc. — skipped
			}
		}
		if len(entries) == 0 {
			if rerr != nil && rerr != io.EOF {
				return Result{}, &Error{Dir: dir, Err: rerr}
			}
			break
		}
	}
	return res, nil
}

// classifyFile applies the size gate, the optional full-match regex gate,
// and consults the platform adapter for extent identity. Returns ok=false
// for entries that should simply be dropped (not an error).
func classifyFile(path string, entry os.DirEntry, opts Options) (types.FileRecord, bool, error) {
	if opts.Pattern != nil {
		loc := opts.Pattern.FindStringIndex(entry.Name())
		if loc == nil || loc[0] != 0 || loc[1] != len(entry.Name()) {
			return types.FileRecord{}, false, nil
		}
	}

	info, err := entry.Info()
	if err != nil {
		// Raced with deletion or permissions; treat as "not there".
		return types.FileRecord{}, false, nil
	}
	size := info.Size()
	if size <= 0 || size < opts.MinSize {
		return types.FileRecord{}, false, nil
	}

	id, err := platform.Stat(path)
	if err != nil {
		return types.FileRecord{}, false, err
	}

	return types.FileRecord{
		Path:   path,
		Size:   size,
		Volume: id.Volume,
		Extent: id.Extent,
	}, true, nil
}
