package types

import "fmt"

// VolumeID identifies a storage volume (device) on the local machine.
// On Unix this is the device number (syscall.Stat_t.Dev); on Windows it is
// the 32-bit volume serial number reported by GetFileInformationByHandle.
type VolumeID uint64

// ExtentID names an on-disk extent within a volume. On Unix this is the
// inode number; on Windows it is the 64-bit combination of
// FileIndexHigh/FileIndexLow.
type ExtentID uint64

// DigestSize is the width, in bytes, of the fixed cryptographic hash used to
// confirm byte-identical content (BLAKE3, 256 bits).
const DigestSize = 32

// Digest is a fixed-width content hash.
type Digest [DigestSize]byte

// ExtentKey uniquely names an on-disk extent: two FileRecords with equal
// ExtentKeys refer to the same inode-equivalent and are therefore already
// deduplicated (spec §3, invariant implied by the data model).
type ExtentKey struct {
	Volume VolumeID
	Extent ExtentID
}

func (k ExtentKey) String() string {
	return fmt.Sprintf("vol=%d/ext=%d", k.Volume, k.Extent)
}

// FileRecord describes one scanned regular file: its path (immutable after
// creation), byte length, and the extent it names.
type FileRecord struct {
	Path   string
	Size   int64
	Volume VolumeID
	Extent ExtentID
}

// Key returns the ExtentKey this record names.
func (f FileRecord) Key() ExtentKey { return ExtentKey{Volume: f.Volume, Extent: f.Extent} }

// HashKey is the composite key of the hash bucket: (length, digest) maps to
// the canonical representative extent for that content.
type HashKey struct {
	Size   int64
	Digest Digest
}

// SizeBucket tracks, per file length and volume, whether a lone extent has
// been seen or whether hashing has already begun for that size class.
// "Nothing seen yet" is represented by the absence of a bucket: buckets are
// only materialized in the coordinator's map once a first extent of that
// size has been observed. A bucket with a nil Sole (including the zero
// value) is in the "hashing in progress" state.
type SizeBucket struct {
	// Sole holds the one extent seen so far for this size, or nil once a
	// second distinct extent has appeared and the bucket transitioned to
	// "hashing in progress". The transition is one-way (spec §3).
	Sole *ExtentKey
}

// Hashing reports whether this size bucket has already moved past "one
// representative extent seen" into "hashing in progress".
func (b *SizeBucket) Hashing() bool { return b.Sole == nil }
