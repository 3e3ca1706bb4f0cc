package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/extentdedup/extentdedup/internal/cache"
	"github.com/extentdedup/extentdedup/internal/coordinator"
	"github.com/extentdedup/extentdedup/internal/logging"
)

// dedupeOptions holds the dedupe subcommand's flags before parsing.
type dedupeOptions struct {
	pattern             string
	dryRun              bool
	minFileSizeStr      string
	bufferSizeStr       string
	maxHashThreads      int
	temporaryExtension  string
	notReadonly         bool
	ignoreScanErrors    bool
	ignoreHashErrors    bool
	debug               bool
	noProgress          bool
	cacheFile           string
	logFormat           string
}

func newDedupeCmd() *cobra.Command {
	opts := &dedupeOptions{
		minFileSizeStr:     "1024",
		bufferSizeStr:      "2048",
		maxHashThreads:     10,
		temporaryExtension: "hard_link",
		logFormat:          "text",
	}

	cmd := &cobra.Command{
		Use:   "dedupe [paths...]",
		Short: "Scan for byte-identical files and replace them with hard links",
		Long: `Scans directory trees for files whose content is byte-identical and
replaces the redundant copies with hard links to one representative file.

Use --dry-run to preview the links that would be made without touching disk.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedupe(cmd.Context(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.pattern, "pattern", "", "Only consider file names fully matching this regex")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview link swaps without making changes")
	f.StringVar(&opts.minFileSizeStr, "min-file-size", opts.minFileSizeStr, "Minimum file size to consider, in KiB unless another unit is given (e.g. 1024, 4MiB)")
	f.StringVar(&opts.bufferSizeStr, "buffer-size", opts.bufferSizeStr, "Read buffer size for hashing, in KiB unless another unit is given (e.g. 2048, 4MiB)")
	f.IntVar(&opts.maxHashThreads, "max-hash-threads", opts.maxHashThreads, "Maximum number of files hashed concurrently")
	f.StringVar(&opts.temporaryExtension, "temporary-extension", opts.temporaryExtension, "Suffix used for staged hard links during a swap")
	f.BoolVar(&opts.notReadonly, "not-readonly", false, "Do not mark representative files read-only after linking")
	f.BoolVar(&opts.ignoreScanErrors, "ignore-scan-errors", false, "Log and skip directories that fail to scan instead of aborting")
	f.BoolVar(&opts.ignoreHashErrors, "ignore-hash-errors", false, "Log and skip files that fail to hash instead of aborting")
	f.BoolVar(&opts.debug, "debug", false, "Dump the final file-entry table")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	f.StringVar(&opts.cacheFile, "cache-file", "", "Path to a hash cache file (enables caching across runs)")
	f.StringVar(&opts.logFormat, "log-format", opts.logFormat, "Log output format: text or json")

	return cmd
}

func runDedupe(ctx context.Context, paths []string, opts *dedupeOptions) error {
	minSize, err := parseSize(opts.minFileSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --min-file-size: %w", err)
	}
	bufferSize, err := parseSize(opts.bufferSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --buffer-size: %w", err)
	}
	pattern, err := compilePattern(opts.pattern)
	if err != nil {
		return fmt.Errorf("invalid --pattern: %w", err)
	}

	level := "info"
	if opts.debug {
		level = "debug" // the file-entry table dump below is logged at debug level
	}
	log := logging.New(level, opts.logFormat, nil)

	hashCache, err := cache.Open(opts.cacheFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := hashCache.Close(); err != nil {
			log.Warn("cache close failed", "error", err)
		}
	}()

	maxHashThreads := opts.maxHashThreads
	if maxHashThreads <= 0 {
		maxHashThreads = runtime.NumCPU()
	}

	coord := coordinator.New(coordinator.Config{
		MinSize:          minSize,
		Pattern:          pattern,
		MaxHashThreads:   maxHashThreads,
		BufferSize:       int(bufferSize),
		StagingSuffix:    opts.temporaryExtension,
		DryRun:           opts.dryRun,
		NotReadonly:      opts.notReadonly,
		IgnoreScanErrors: opts.ignoreScanErrors,
		IgnoreHashErrors: opts.ignoreHashErrors,
		Debug:            opts.debug,
	}, hashCache, log)
	coord.WithProgress(!opts.noProgress)

	report, err := coord.Run(ctx, paths)
	if err != nil {
		return err
	}

	if opts.debug {
		for key, entry := range report.Entries {
			log.Debug("file entry", "extent", key.String(), "state", entry.State().String(), "paths", entry.SortedPaths())
		}
	}

	fmt.Println(report.Summary(opts.dryRun))
	return nil
}
