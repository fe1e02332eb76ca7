package triedex

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// fileHeaderByte is the single byte every triedex file opens with.
const fileHeaderByte byte = 0x00

// Options configures Open.
type Options struct {
	// ReadOnly opens the file without taking the write lock; Flush on a
	// read-only Index fails. Insert still stages values in memory only.
	ReadOnly bool

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives operational counters. Defaults to a no-op set; pass
	// the result of NewMetrics, then Register it with the opened Index, to
	// export them.
	Metrics *Metrics

	// DecodedCacheSize bounds the number of decoded clean Radix nodes kept
	// in memory. Zero disables the cache.
	DecodedCacheSize int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = newNopLogger()
	}

	if o.Metrics == nil {
		o.Metrics = newNopMetrics()
	}

	return o
}

// Index is a single open handle on one on-disk file. An Index opened for
// writing owns the file's advisory write lock for its lifetime; any number
// of read-only Indexes may be open concurrently alongside it.
type Index struct {
	mu sync.RWMutex

	path     string
	file     *os.File
	data     []byte
	readOnly bool

	root uint64

	arena   *arena
	cache   *decodedCache
	metrics *Metrics
	logger  *zap.Logger
	lock    *writeLock
}

// Open opens path, creating it with a fresh Header if it does not exist,
// and discovers the current root by scanning backward from the file tail.
func Open(path string, opts Options) (*Index, error) {
	return openIndex(path, nullOffset, false, opts)
}

// OpenAt opens path exactly as Open does, but trusts the caller-supplied
// rootOffset instead of performing root discovery. rootOffset must name a
// valid Radix record (or be nullOffset, for an empty tree); it is the
// caller's responsibility to have obtained it from a prior flush.
func OpenAt(path string, rootOffset uint64, opts Options) (*Index, error) {
	return openIndex(path, rootOffset, true, opts)
}

func openIndex(path string, rootOffset uint64, trustCaller bool, opts Options) (*Index, error) {
	opts = opts.withDefaults()

	flag := os.O_RDWR | os.O_CREATE
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	var lock *writeLock
	if !opts.ReadOnly {
		lock, err = acquireWriteLock(path)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	idx := &Index{
		path:     path,
		file:     f,
		readOnly: opts.ReadOnly,
		arena:    newArena(),
		cache:    newDecodedCache(opts.DecodedCacheSize),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		lock:     lock,
	}

	if err := idx.initOrLoad(); err != nil {
		idx.closeHandles()
		return nil, err
	}

	if trustCaller {
		idx.root = rootOffset
	} else {
		root, err := discoverRoot(idx.data)
		if err != nil {
			idx.closeHandles()
			return nil, err
		}

		idx.root = root
	}

	idx.logger.Debug("triedex index opened", zap.String("path", path), zap.Uint64("root", idx.root))

	return idx, nil
}

// initOrLoad writes a fresh 1-byte Header if the file is empty, then maps
// it read-only.
func (idx *Index) initOrLoad() error {
	fi, err := idx.file.Stat()
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}

	if fi.Size() == 0 {
		if idx.readOnly {
			return errors.Wrap(ErrInvalidData, "cannot initialize a new file in read-only mode")
		}

		if _, err := idx.file.Write([]byte{fileHeaderByte}); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}

		if err := idx.file.Sync(); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
	} else if fi.Size() > 0 {
		var hdr [1]byte
		if _, err := idx.file.ReadAt(hdr[:], 0); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}

		if entryKind(hdr[0]) != kindHeader {
			return errors.Wrapf(ErrInvalidData, "file does not start with a triedex header byte, got %d", hdr[0])
		}
	}

	return idx.remap()
}

// remap re-establishes the mmap over the file's current extent, invalidates
// the decoded-node cache (new mapping address, though offsets are stable),
// and should be called after every flush.
func (idx *Index) remap() error {
	if idx.data != nil {
		if err := munmapFile(idx.data); err != nil {
			return err
		}

		idx.data = nil
	}

	data, err := mmapFile(idx.file)
	if err != nil {
		return err
	}

	idx.data = data
	idx.cache.invalidate()

	return nil
}

// discoverRoot finds the current Root by treating the file's final byte as
// a candidate root_len, stepping back that many bytes, and checking for a
// well-formed Root record there. If that fails (a crash mid-flush can
// leave a partially written dirty subgraph past the last real Root), it
// walks one byte further back at a time and retries, so any trailing
// garbage left by an interrupted flush is skipped rather than trusted.
func discoverRoot(data []byte) (uint64, error) {
	if len(data) <= 1 {
		return nullOffset, nil
	}

	for end := len(data); end > 1; end-- {
		candidateLen := int(data[end-1])
		if candidateLen < 3 {
			continue
		}

		start := end - candidateLen
		if start < 1 {
			continue
		}

		if entryKind(data[start]) != kindRoot {
			continue
		}

		root, n, err := readRootAt(data, start)
		if err != nil {
			continue
		}

		if start+n == end {
			return root.radixOffset, nil
		}
	}

	return nullOffset, errors.Wrap(ErrInvalidData, "no valid root record found scanning back from file tail")
}

// FileSize returns the current on-disk size of the underlying file.
func (idx *Index) FileSize() (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	fi, err := idx.file.Stat()
	if err != nil {
		return 0, errors.Wrap(ErrIO, err.Error())
	}

	return fi.Size(), nil
}

// Root returns the current root offset: clean after a flush (as would be
// passed to OpenAt), dirty while inserts are pending, or nullOffset for an
// empty tree.
func (idx *Index) Root() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.root
}

func (idx *Index) closeHandles() {
	if idx.data != nil {
		munmapFile(idx.data)
		idx.data = nil
	}

	if idx.lock != nil {
		idx.lock.release()
	}

	if idx.file != nil {
		idx.file.Close()
	}
}

// Close releases the mmap, the write lock (if held), and the file handle.
// Unflushed mutations are discarded.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.arena.reset()
	idx.closeHandles()

	return nil
}

// Remove closes idx (if non-nil) and deletes the underlying file and its
// lock file. Intended for tests and scratch indexes.
func Remove(path string, idx *Index) error {
	if idx != nil {
		if err := idx.Close(); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(ErrIO, err.Error())
	}

	if err := os.Remove(path + ".lock"); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(ErrIO, err.Error())
	}

	return nil
}
