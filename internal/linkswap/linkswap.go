// Package linkswap atomically replaces a redundant path with a hard link to
// a representative path (spec §4.5).
//
// Grounded on the teacher's internal/deduper/links.go (CreateHardlink,
// tryCleanupOrphanedTmp): the stage-at-suffixed-path → atomic rename-over →
// delete-staging-on-failure protocol is kept verbatim in shape. Generalized
// for this spec to (a) use a configurable staging suffix instead of the
// teacher's hardcoded ".dupedog.tmp", (b) perform the read-only repair
// spec §4.5 steps 3 and 5 require (clear redundant's read-only bit before
// rename, set original's read-only bit after) which the teacher has no
// equivalent of, and (c) support a distinct dry-run log glyph, both
// grounded in original_source/src/main.rs's merge_with_hard_link.
package linkswap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// orphanedStageMaxAge is the minimum age for a leftover staging file to be
// considered safe to clean up and retry past (adapted from the teacher's
// orphanedTmpMaxAge).
const orphanedStageMaxAge = 1 * time.Minute

// DryRunGlyph and RealGlyph distinguish a planned action from an executed
// one in log output (spec §6/§4.5 "distinct glyph from the real-run glyph").
const (
	DryRunGlyph = "⇢"
	RealGlyph   = "→"
)

// Error wraps a link-swap failure. Per spec §7, link-io failures are always
// fatal to the run.
type Error struct {
	Original, Redundant string
	Err                 error
}

func (e *Error) Error() string {
	return fmt.Sprintf("link %s -> %s: %v", e.Redundant, e.Original, e.Err)
}
func (e *Error) Unwrap() error { return e.Err }

// Options configures a Swap call.
type Options struct {
	Suffix      string // staging path suffix, default "hard_link"
	DryRun      bool
	NotReadonly bool // suppress setting the representative read-only
}

// Result describes what Swap did (or would do, in dry-run mode), for
// logging.
type Result struct {
	Original, Redundant string
	DryRun              bool
	SetOriginalReadonly bool
}

func (r Result) Glyph() string {
	if r.DryRun {
		return DryRunGlyph
	}
	return RealGlyph
}

// Swap replaces redundant on disk with a hard link to original, without any
// window in which redundant is missing or partially written (spec §4.5
// algorithm, steps 1-4), then optionally applies read-only repair (step 5).
//
// original and redundant must resolve to different (volume, extent) pairs;
// callers re-check this immediately before calling Swap as defense in depth
// (spec §9 "Self-reference guard") — Swap itself does not re-stat, since
// that check belongs to the coordinator which already has both identities
// in hand.
func Swap(original, redundant string, opts Options) (Result, error) {
	suffix := opts.Suffix
	if suffix == "" {
		suffix = "hard_link"
	}

	base := filepath.Base(redundant)
	if base == "." || base == string(filepath.Separator) || base == "" {
		panic("linkswap: redundant path has no filename component: " + redundant)
	}
	staging := redundant + "." + suffix

	res := Result{Original: original, Redundant: redundant, DryRun: opts.DryRun}

	if opts.DryRun {
		if !opts.NotReadonly {
			ro, err := isReadonly(original)
			if err == nil && !ro {
				res.SetOriginalReadonly = true
			}
		}
		return res, nil
	}

	if err := createStagedLink(original, staging); err != nil {
		return Result{}, &Error{Original: original, Redundant: redundant, Err: err}
	}

	if err := clearReadonly(redundant); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(staging)
		return Result{}, &Error{Original: original, Redundant: redundant, Err: fmt.Errorf("clear readonly on %s: %w", redundant, err)}
	}

	if err := os.Rename(staging, redundant); err != nil {
		_ = os.Remove(staging)
		return Result{}, &Error{Original: original, Redundant: redundant, Err: err}
	}

	if !opts.NotReadonly {
		ro, err := isReadonly(original)
		if err != nil {
			return Result{}, &Error{Original: original, Redundant: redundant, Err: err}
		}
		if !ro {
			if err := setReadonly(original); err != nil {
				return Result{}, &Error{Original: original, Redundant: redundant, Err: err}
			}
			res.SetOriginalReadonly = true
		}
	}

	return res, nil
}

// createStagedLink creates a hard link at staging pointing at original,
// cleaning up and retrying once if a leftover staging file from a crashed
// prior run is found to be safely removable (adapted from the teacher's
// tryCleanupOrphanedTmp).
func createStagedLink(original, staging string) error {
	err := os.Link(original, staging)
	if errors.Is(err, os.ErrExist) {
		if cleanupErr := tryCleanupOrphaned(staging, orphanedStageMaxAge); cleanupErr != nil {
			return fmt.Errorf("staging file exists and cannot be cleaned: %w", cleanupErr)
		}
		err = os.Link(original, staging)
	}
	return err
}

// tryCleanupOrphaned removes a stale staging file left behind by a crashed
// prior run, but only when it is provably safe: old enough to not be part
// of an in-flight swap, and either a symlink or a regular file with other
// hardlinks (so this copy is not the only one).
func tryCleanupOrphaned(path string, maxAge time.Duration) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("lstat: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	if info.ModTime().After(cutoff) {
		return fmt.Errorf("file too recent (mtime %v, cutoff %v)", info.ModTime(), cutoff)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return os.Remove(path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file or symlink (mode %v)", info.Mode())
	}

	multi, err := hasMultipleLinks(path, info)
	if err != nil {
		return err
	}
	if !multi {
		return fmt.Errorf("nlink<=1, may be only copy of data")
	}
	return os.Remove(path)
}

func isReadonly(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0o222 == 0, nil
}

func clearReadonly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o200 != 0 {
		return nil
	}
	return os.Chmod(path, info.Mode().Perm()|0o200)
}

func setReadonly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()&^0o222)
}
