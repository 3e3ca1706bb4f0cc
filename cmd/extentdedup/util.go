package main

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

// kibCount matches a value with no unit, or an explicit Ki/KiB/KB/K unit —
// the forms spec.md §6 means by "KiB" for --min-file-size/--buffer-size.
var kibCount = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(?:ki?b?)?\s*$`)

// parseSize parses a --min-file-size/--buffer-size value. Both flags are
// denominated in KiB (spec.md §6): a bare number, or one with an explicit
// Ki/KiB/KB/K suffix, is a KiB count and is scaled up to bytes. Any other
// humanize unit (e.g. "4MiB", "10M") already names an absolute byte count
// and is taken literally.
func parseSize(s string) (int64, error) {
	if m := kibCount.FindStringSubmatch(s); m != nil {
		kib, err := humanize.ParseBytes(m[1])
		if err != nil {
			return 0, err
		}
		return int64(kib) * 1024, nil
	}

	b, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return int64(b), nil
}

// compilePattern compiles the optional --pattern regex, returning nil (no
// filtering) for an empty string.
func compilePattern(s string) (*regexp.Regexp, error) {
	if s == "" {
		return nil, nil
	}
	return regexp.Compile(s)
}
