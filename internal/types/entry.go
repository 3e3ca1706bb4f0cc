package types

// EntryState is the lifecycle state of a FileEntry (spec §3).
type EntryState int

const (
	// Pending: path known, hash not yet computed.
	Pending EntryState = iota
	// Representative: this extent is the canonical one for its (length, hash).
	Representative
	// Alias: this extent's content matched another; see AliasOf.
	Alias
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Representative:
		return "representative"
	case Alias:
		return "alias"
	default:
		return "unknown"
	}
}

// FileEntry is one row of the file-entry table (spec §3): a per-extent
// record tracking which paths share it and whether its content identity has
// been resolved yet.
//
// Only Pending or Representative entries are ever targets of new path
// additions; Alias entries are terminal (invariant 2). No entry is ever
// destroyed during a run (Lifecycle, spec §3).
type FileEntry struct {
	state   EntryState
	size    int64
	paths   []string  // Pending: extra paths riding along to hashing. Representative: canonical paths.
	aliasOf ExtentKey // valid only when state == Alias
}

// NewPendingEntry creates a Pending row for a freshly observed extent.
func NewPendingEntry(path string, size int64) *FileEntry {
	return &FileEntry{state: Pending, size: size, paths: []string{path}}
}

// State returns the entry's current lifecycle state.
func (e *FileEntry) State() EntryState { return e.state }

// Size returns the byte length shared by every path naming this extent.
func (e *FileEntry) Size() int64 { return e.size }

// Paths returns the known paths for a Pending or Representative entry, in
// scan-discovery order. The slice is owned by the entry; callers must not
// mutate it.
func (e *FileEntry) Paths() []string { return e.paths }

// SortedPaths returns the entry's paths sorted lexically. --debug dumps the
// file-entry table keyed by a map, which iterates in random order; sorting
// each row's own paths keeps every row's path list stable run to run, while
// the order of the rows themselves still follows map iteration.
func (e *FileEntry) SortedPaths() []string {
	return NewSorted(e.paths, func(p string) string { return p }).Items()
}

// AliasOf returns the representative extent this entry was merged into, and
// whether the entry is actually an Alias (false for Pending/Representative).
func (e *FileEntry) AliasOf() (ExtentKey, bool) {
	if e.state != Alias {
		return ExtentKey{}, false
	}
	return e.aliasOf, true
}

// AddPath appends an additional path sharing this extent. Only valid while
// the entry is Pending or Representative (invariant 2); callers must check
// State() first — calling this on an Alias entry is a precondition
// violation and panics, since Alias rows are terminal by construction.
func (e *FileEntry) AddPath(path string) {
	if e.state == Alias {
		panic("types: AddPath on terminal Alias entry for " + path)
	}
	e.paths = append(e.paths, path)
}

// MarkRepresentative transitions a Pending entry to Representative: its
// stored paths become the canonical paths for this content class.
func (e *FileEntry) MarkRepresentative() {
	if e.state != Pending {
		panic("types: MarkRepresentative on non-Pending entry")
	}
	e.state = Representative
}

// MarkAlias transitions a Pending entry to Alias, pointing at rep. The
// entry's accumulated paths are returned so the caller can issue link-swaps
// for each of them; the entry itself retains no path list once aliased.
func (e *FileEntry) MarkAlias(rep ExtentKey) []string {
	if e.state != Pending {
		panic("types: MarkAlias on non-Pending entry")
	}
	paths := e.paths
	e.state = Alias
	e.aliasOf = rep
	e.paths = nil
	return paths
}
