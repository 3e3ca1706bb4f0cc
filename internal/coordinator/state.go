package coordinator

import (
	"fmt"

	"github.com/extentdedup/extentdedup/internal/types"
)

// volumeState holds the size-bucket and hash-bucket maps for one storage
// volume (spec §3 "Size bucket"/"Hash bucket"); buckets are partitioned by
// volume so cross-volume files are never compared (invariant 6).
type volumeState struct {
	sizeBuckets map[int64]*types.SizeBucket
	hashBuckets map[types.HashKey]types.ExtentKey
}

func newVolumeState() *volumeState {
	return &volumeState{
		sizeBuckets: make(map[int64]*types.SizeBucket),
		hashBuckets: make(map[types.HashKey]types.ExtentKey),
	}
}

// state is the coordinator's full mutable world: the file-entry table
// (spec §3) plus one volumeState per volume seen so far. It is touched only
// from the coordinator goroutine (spec §5), so it carries no locks.
type state struct {
	volumes map[types.VolumeID]*volumeState
	entries map[types.ExtentKey]*types.FileEntry
}

func newState() *state {
	return &state{
		volumes: make(map[types.VolumeID]*volumeState),
		entries: make(map[types.ExtentKey]*types.FileEntry),
	}
}

func (s *state) volume(id types.VolumeID) *volumeState {
	vs, ok := s.volumes[id]
	if !ok {
		vs = newVolumeState()
		s.volumes[id] = vs
	}
	return vs
}

// resolveChain follows Alias pointers starting at key without flattening
// (spec §9 "Alias chains vs. flattening"), returning the terminal key and
// its entry. A chain must terminate at a Pending or Representative entry
// (invariant 1); a cycle or a reference to an unknown extent is a
// precondition violation — unreachable by construction, so it panics
// rather than returning an error (spec §7 "precondition ... unreachable;
// treated as bugs").
func (s *state) resolveChain(key types.ExtentKey) (types.ExtentKey, *types.FileEntry) {
	seen := make(map[types.ExtentKey]bool)
	cur := key
	for {
		if seen[cur] {
			panic(fmt.Sprintf("coordinator: alias cycle detected at %s", cur))
		}
		seen[cur] = true

		e, ok := s.entries[cur]
		if !ok {
			panic(fmt.Sprintf("coordinator: alias chain references unknown extent %s", cur))
		}
		if e.State() != types.Alias {
			return cur, e
		}
		target, _ := e.AliasOf()
		cur = target
	}
}

// handleFileRecord processes Event A (spec §4.4) for one scanned file. A
// non-nil error means a link-swap failed and the whole run is now fatal
// (spec §7 "link-io failures are always fatal").
func (c *Coordinator) handleFileRecord(rec types.FileRecord, st *state, spawnHash func(types.ExtentKey, string, int64), report *Report) error {
	key := rec.Key()

	if existing, present := st.entries[key]; present {
		return c.handleKnownExtent(key, existing, rec, st, report)
	}

	entry := types.NewPendingEntry(rec.Path, rec.Size)
	st.entries[key] = entry

	vs := st.volume(rec.Volume)
	bucket, bucketExists := vs.sizeBuckets[rec.Size]
	switch {
	case !bucketExists:
		// First extent of this size: record it as the sole representative,
		// no hashing triggered yet (invariant 5).
		sole := key
		vs.sizeBuckets[rec.Size] = &types.SizeBucket{Sole: &sole}

	case bucket.Hashing():
		// A third-or-later extent of this size: hashing is already under
		// way for the class, so only the new arrival needs to be queued.
		spawnHash(key, rec.Path, rec.Size)

	default:
		// Second extent of this size: the bucket transitions to "hashing in
		// progress" and both the prior sole extent and this one are queued.
		priorKey := *bucket.Sole
		bucket.Sole = nil
		priorEntry := st.entries[priorKey]
		spawnHash(priorKey, priorEntry.Paths()[0], priorEntry.Size())
		spawnHash(key, rec.Path, rec.Size)
	}
	return nil
}

// handleKnownExtent processes Event A's "row is present" branch: rec names
// an extent already in the file-entry table (i.e. a hard link the scanner
// found under a second path, or a repeat sighting within the same run).
func (c *Coordinator) handleKnownExtent(key types.ExtentKey, existing *types.FileEntry, rec types.FileRecord, st *state, report *Report) error {
	_ = existing
	resolvedKey, resolvedEntry := st.resolveChain(key)

	switch resolvedEntry.State() {
	case types.Pending:
		// Still waiting on a hash; this path rides along and will be linked
		// (or not) once hashing resolves it one way or the other.
		resolvedEntry.AddPath(rec.Path)

	case types.Representative:
		if resolvedKey == key {
			// This extent already is the canonical one for its content;
			// nothing to link, just record the path for bookkeeping.
			resolvedEntry.AddPath(rec.Path)
			return nil
		}
		// key was merged into resolvedKey by an earlier hash result, but
		// this path is newly discovered under it — make it point at the
		// representative's file too.
		repPath := resolvedEntry.Paths()[0]
		if err := c.swap(resolvedKey, key, repPath, rec.Path, rec.Size, report); err != nil {
			return err
		}
	}
	return nil
}

// handleHashResult processes Event B (spec §4.4) for one completed hash.
func (c *Coordinator) handleHashResult(ho hashOutcome, st *state, report *Report) error {
	entry := st.entries[ho.key]
	if entry == nil {
		panic(fmt.Sprintf("coordinator: hash result for unknown extent %s", ho.key))
	}

	if !ho.ok {
		// Demoted failure: leave Pending for the remainder of the run.
		return nil
	}

	vs := st.volume(ho.key.Volume)
	hk := types.HashKey{Size: ho.size, Digest: ho.digest}

	repKey, exists := vs.hashBuckets[hk]
	if !exists {
		vs.hashBuckets[hk] = ho.key
		entry.MarkRepresentative()
		return nil
	}

	repEntry := st.entries[repKey]
	repPath := repEntry.Paths()[0]
	paths := entry.MarkAlias(repKey)
	for _, p := range paths {
		if err := c.swap(repKey, ho.key, repPath, p, ho.size, report); err != nil {
			return err
		}
	}
	return nil
}
