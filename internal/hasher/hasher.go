// Package hasher streams files through a cryptographic hash under a
// global concurrency cap (spec §4.2).
package hasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/extentdedup/extentdedup/internal/types"
)

// ErrOutOfMemory is returned when even the smallest allowed read buffer
// (512 bytes) cannot be allocated.
var ErrOutOfMemory = errors.New("hasher: out of memory allocating read buffer")

// minBufferSize is the floor the fallible buffer allocator halves down to
// before giving up (spec §4.2).
const minBufferSize = 512

// Error wraps a hashing failure with the path it concerns.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("hash %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ErrTruncatedOrGrown indicates the file's observed length differed from
// the expected length passed in by the coordinator — the hash is discarded
// so a file that changed under the scanner is never falsely equated with an
// older sibling (spec §4.2 invariant).
var ErrTruncatedOrGrown = errors.New("file size changed during hashing")

// Hasher streams files through BLAKE3 under a bounded concurrency and
// memory budget.
type Hasher struct {
	sem        types.Semaphore
	bufferSize int // configured cap, in bytes
}

// New creates a Hasher. maxConcurrent bounds simultaneous hash operations
// (default 10); bufferSize is the configured per-hash read buffer cap in
// bytes (default 2 MiB).
func New(maxConcurrent, bufferSize int) *Hasher {
	return &Hasher{sem: types.NewSemaphore(maxConcurrent), bufferSize: bufferSize}
}

// Hash streams path through BLAKE3 and returns its digest. expectedSize is
// the length observed by the scanner; a mismatch at read time fails with
// ErrTruncatedOrGrown rather than returning a digest that might falsely
// match. The concurrency-limiting permit is held for the entire read, not
// merely I/O submission, so read-buffer memory pressure is bounded too
// (spec §4.2).
func (h *Hasher) Hash(ctx context.Context, path string, expectedSize int64) (types.Digest, error) {
	h.sem.Acquire()
	defer h.sem.Release()

	f, err := os.Open(path)
	if err != nil {
		return types.Digest{}, &Error{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck // read-only descriptor, nothing to flush

	want := h.bufferSize
	if expectedSize > 0 && int64(want) > expectedSize {
		want = int(expectedSize) // never over-allocate for small files
	}
	buf, err := allocateBuffer(want)
	if err != nil {
		return types.Digest{}, &Error{Path: path, Err: err}
	}

	hasher := blake3.New()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return types.Digest{}, &Error{Path: path, Err: err}
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n]) //nolint:errcheck // hash.Hash.Write never fails
			total += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return types.Digest{}, &Error{Path: path, Err: rerr}
		}
	}

	if total != expectedSize {
		return types.Digest{}, &Error{Path: path, Err: fmt.Errorf("%w: expected %d, read %d", ErrTruncatedOrGrown, expectedSize, total)}
	}

	var digest types.Digest
	hasher.Sum(digest[:0])
	return digest, nil
}

// allocateBuffer attempts a fallible reservation of `want` bytes. Go has no
// try_reserve equivalent; make() instead panics with a runtime.Error for
// allocation sizes the allocator cannot satisfy, so that panic is recovered
// and treated as the allocation failure the spec asks this function to
// absorb by halving the request, down to a 512-byte floor, before
// surfacing ErrOutOfMemory.
func allocateBuffer(want int) (buf []byte, err error) {
	if want < minBufferSize {
		want = minBufferSize
	}
	for size := want; size >= minBufferSize; size /= 2 {
		if ok := tryAllocate(size, &buf); ok {
			return buf, nil
		}
		if size == minBufferSize {
			break
		}
	}
	return nil, ErrOutOfMemory
}

// tryAllocate makes a []byte of the given size into *out, reporting whether
// the allocation succeeded (false on a recovered out-of-memory panic).
func tryAllocate(size int, out *[]byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	*out = make([]byte, size)
	return true
}
