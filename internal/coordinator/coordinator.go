// Package coordinator implements the dedup coordinator: the state machine
// tying directory scans, content hashes, and link-swaps into one task graph
// (spec §4.4). It is new code, grounded directly in spec.md's event tables
// and in original_source/src/main.rs's two-armed mpsc receive loop (the
// Rust original implements the identical Event A / Event B state machine
// over a channel; this package is its Go-idiomatic twin, one goroutine
// owning the bucket/file-entry maps exactly as spec §5 requires).
//
// Unlike the teacher (ivoronin/dupedog), which runs scanning, screening,
// verification, and linking as four sequential batch phases each with
// their own worker pool, this package runs a single event loop: scan
// results and hash results arrive on two channels in arbitrary interleaving
// and are processed synchronously, one at a time, by the coordinator
// goroutine — so no locks are ever needed on the bucket/entry maps.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/extentdedup/extentdedup/internal/cache"
	"github.com/extentdedup/extentdedup/internal/hasher"
	"github.com/extentdedup/extentdedup/internal/linkswap"
	"github.com/extentdedup/extentdedup/internal/progress"
	"github.com/extentdedup/extentdedup/internal/scanner"
	"github.com/extentdedup/extentdedup/internal/types"
)

// Config holds the immutable parameters of a run, translated 1:1 from the
// CLI flags in spec §6.
type Config struct {
	MinSize          int64
	Pattern          *regexp.Regexp
	MaxHashThreads   int
	BufferSize       int // bytes
	StagingSuffix    string
	DryRun           bool
	NotReadonly      bool
	IgnoreScanErrors bool
	IgnoreHashErrors bool
	Debug            bool
}

// EventSink receives human-readable notifications as the run progresses:
// link-swap lines and demoted-error warnings (spec §6). A nil sink
// discards everything.
type EventSink interface {
	LinkSwapped(original, redundant string, glyph string)
	Demoted(err error)
}

// Coordinator runs one dedup pass over a set of root directories.
type Coordinator struct {
	cfg   Config
	hash  *hasher.Hasher
	cache *cache.Cache
	sink  EventSink
	bar   *progress.Bar
}

// New creates a Coordinator. cache may be nil (disabled); sink may be nil
// (discard notifications).
func New(cfg Config, c *cache.Cache, sink EventSink) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		hash:  hasher.New(cfg.MaxHashThreads, cfg.BufferSize),
		cache: c,
		sink:  sink,
		bar:   progress.New(false, -1),
	}
}

// WithProgress attaches a spinner-mode progress bar (spec §6 "kept from
// teacher"): since the task graph's size isn't known up front, a spinner
// describing running totals fits better than a determinate bar.
func (c *Coordinator) WithProgress(enabled bool) *Coordinator {
	c.bar = progress.New(enabled, -1)
	return c
}

// scanOutcome is what a spawned scan task reports back.
type scanOutcome struct {
	dir    string
	result scanner.Result
	err    error
}

// progressLabel renders the spinner description between ticks.
type progressLabel struct {
	scanned, hashed, links int
}

func (p progressLabel) String() string {
	return fmt.Sprintf("%d dirs scanned, %d files hashed, %d links made", p.scanned, p.hashed, p.links)
}

// hashOutcome is what a spawned hash task reports back. ok is false for a
// demoted hash failure (spec §4.4 Event B: "On a demoted hash failure
// (None digest), the row is left Pending").
type hashOutcome struct {
	key    types.ExtentKey
	size   int64
	digest types.Digest
	ok     bool  // true if digest is valid
	err    error // non-nil only for an undemoted (fatal) hash failure
}

// Run scans every root, deduplicating byte-identical files as their
// identity resolves, and returns a summary Report. The run terminates when
// the task graph (spec §4.4 "Termination") drains: every scan enqueues
// further work only for subdirectories it actually observed, and every
// hash is paired with an extent created earlier, so the graph is finite.
func (c *Coordinator) Run(ctx context.Context, roots []string) (*Report, error) {
	scanCh := make(chan scanOutcome)
	hashCh := make(chan hashOutcome)

	st := newState()
	report := &Report{}
	pending := 0
	var fatal error

	spawnScan := func(dir string) {
		pending++
		go func() {
			res, err := scanner.ScanOne(dir, scanner.Options{MinSize: c.cfg.MinSize, Pattern: c.cfg.Pattern})
			scanCh <- scanOutcome{dir: dir, result: res, err: err}
		}()
	}

	spawnHash := func(key types.ExtentKey, path string, size int64) {
		pending++
		go func() {
			digest, err := c.hashExtent(ctx, key, path, size)
			if err == nil {
				hashCh <- hashOutcome{key: key, size: size, digest: digest, ok: true}
				return
			}
			if c.cfg.IgnoreHashErrors {
				c.demote(fmt.Errorf("%s: %w", path, err))
				hashCh <- hashOutcome{key: key, size: size, ok: false}
				return
			}
			hashCh <- hashOutcome{key: key, size: size, ok: false, err: err}
		}()
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("coordinator: resolve root %s: %w", root, err)
		}
		spawnScan(abs)
	}

	var scanned, hashed int

	for pending > 0 {
		select {
		case so := <-scanCh:
			pending--
			scanned++
			c.bar.Describe(progressLabel{scanned: scanned, hashed: hashed, links: report.LinksMade})
			if fatal != nil {
				continue // draining: let in-flight tasks finish without starting new ones
			}
			if so.err != nil {
				if c.cfg.IgnoreScanErrors {
					c.demote(so.err)
					continue
				}
				fatal = so.err
				continue
			}
			for _, sub := range so.result.Subdirs {
				spawnScan(sub)
			}
			for _, rec := range so.result.Files {
				if err := c.handleFileRecord(rec, st, spawnHash, report); err != nil {
					fatal = err
					break
				}
			}
		case ho := <-hashCh:
			pending--
			hashed++
			c.bar.Describe(progressLabel{scanned: scanned, hashed: hashed, links: report.LinksMade})
			if fatal != nil {
				continue
			}
			if ho.err != nil {
				fatal = ho.err
				continue
			}
			if err := c.handleHashResult(ho, st, report); err != nil {
				fatal = err
			}
		}
	}
	c.bar.Finish(progressLabel{scanned: scanned, hashed: hashed, links: report.LinksMade})

	if fatal != nil {
		return nil, fatal
	}
	if c.cfg.Debug {
		report.Entries = st.entries
	}
	return report, nil
}

// hashExtent hashes the representative path of an extent, consulting and
// filling the cache (if enabled). Errors are returned as-is; the
// ignore_hash_errors demotion is applied by the caller in Run's spawnHash.
func (c *Coordinator) hashExtent(ctx context.Context, key types.ExtentKey, path string, size int64) (types.Digest, error) {
	if c.cache != nil {
		if digest, ok, err := c.cache.Lookup(key, size); err == nil && ok {
			return digest, nil
		}
	}

	digest, err := c.hash.Hash(ctx, path, size)
	if err != nil {
		return types.Digest{}, err
	}

	if c.cache != nil {
		_ = c.cache.Store(key, size, digest)
	}
	return digest, nil
}

func (c *Coordinator) demote(err error) {
	if c.sink != nil {
		c.sink.Demoted(err)
	}
}

// swap issues a link-swap from original to redundant, re-checking the
// self-reference guard immediately before the syscall as defense in depth
// (spec §9), and folds the result into report.
func (c *Coordinator) swap(originalKey, redundantKey types.ExtentKey, originalPath, redundantPath string, size int64, report *Report) error {
	if originalKey == redundantKey {
		return nil // invariant 5: never link a path to itself
	}

	res, err := linkswap.Swap(originalPath, redundantPath, linkswap.Options{
		Suffix:      c.cfg.StagingSuffix,
		DryRun:      c.cfg.DryRun,
		NotReadonly: c.cfg.NotReadonly,
	})
	if err != nil {
		return err // link-io is always fatal (spec §7)
	}

	if c.sink != nil {
		c.sink.LinkSwapped(originalPath, redundantPath, res.Glyph())
	}
	report.SavedBytes += size
	report.LinksMade++
	return nil
}
