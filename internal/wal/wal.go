package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/vcslog/internal/fs"
)

// Durability controls when appended records reach stable storage.
type Durability int

const (
	// DurabilityAsync relies on the OS page cache; records are fsync'd by Sync.
	DurabilityAsync Durability = iota
	// DurabilitySync waits for an fsync after every append.
	// Concurrent appenders share one fsync (group commit).
	DurabilitySync
)

func (d Durability) String() string {
	switch d {
	case DurabilityAsync:
		return "async"
	case DurabilitySync:
		return "sync"
	default:
		return fmt.Sprintf("Durability(%d)", int(d))
	}
}

const (
	logMagic   = "VCSLGMAP" // 8 bytes
	logVersion = 1          // 4 bytes
	// HeaderSize is the size of the file header preceding the first record.
	HeaderSize = 12
)

var (
	ErrIncompatibleVersion = errors.New("incompatible log version")
	ErrInvalidHeader       = errors.New("invalid log header")
)

type Options struct {
	Durability Durability
}

func DefaultOptions() Options {
	return Options{Durability: DurabilityAsync}
}

// Position locates an appended record in the log file.
type Position struct {
	Offset      int64 // start of the record
	ValueOffset int64 // start of the value bytes
	ValueLen    int
	End         int64 // first byte after the record
}

// WAL is an append-only record log with random access to record values.
type WAL struct {
	mu   sync.Mutex
	fs   fs.FileSystem
	file fs.File
	cw   *countingWriter
	path string
	opts Options

	// Group commit state
	syncedOffset int64
	syncCond     *sync.Cond // signals the syncer that there is data to sync
	doneCond     *sync.Cond // signals waiters that a sync completed
	closed       bool
	lastErr      error // terminal error of the background syncer
	wg           sync.WaitGroup
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (cw *countingWriter) Flush() error {
	return cw.w.Flush()
}

// Open opens or creates the log at path.
func Open(fsys fs.FileSystem, path string, opts Options) (*WAL, error) {
	fsys = fs.OrDefault(fsys)
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	offset := stat.Size()

	if offset == 0 {
		header := make([]byte, HeaderSize)
		copy(header[0:8], logMagic)
		binary.LittleEndian.PutUint32(header[8:12], uint32(logVersion))
		if _, err := f.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
		offset = HeaderSize
	} else {
		if err := checkHeader(f, offset); err != nil {
			f.Close()
			return nil, err
		}
	}

	w := &WAL{
		fs:           fsys,
		file:         f,
		cw:           &countingWriter{w: bufio.NewWriter(f), n: offset},
		path:         path,
		opts:         opts,
		syncedOffset: offset,
	}
	w.syncCond = sync.NewCond(&w.mu)
	w.doneCond = sync.NewCond(&w.mu)

	if opts.Durability == DurabilitySync {
		w.wg.Add(1)
		go w.runSyncer()
	}

	return w, nil
}

func checkHeader(f fs.File, size int64) error {
	if size < HeaderSize {
		return fmt.Errorf("%w: file too small (%d < %d)", ErrInvalidHeader, size, HeaderSize)
	}
	header := make([]byte, HeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return err
	}
	if string(header[0:8]) != logMagic {
		return fmt.Errorf("%w: invalid magic %q", ErrInvalidHeader, header[0:8])
	}
	if ver := binary.LittleEndian.Uint32(header[8:12]); ver != logVersion {
		return fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, ver, logVersion)
	}
	return nil
}

// Path returns the file path of the log.
func (w *WAL) Path() string { return w.path }

// Size returns the current size of the log in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cw.n
}

func (w *WAL) runSyncer() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		for w.cw.n <= w.syncedOffset && !w.closed {
			w.syncCond.Wait()
		}
		if w.closed && w.cw.n <= w.syncedOffset {
			return
		}

		target := w.cw.n

		w.mu.Unlock()
		err := w.file.Sync()
		w.mu.Lock()

		if err != nil {
			w.lastErr = fmt.Errorf("log sync failed: %w", err)
			w.doneCond.Broadcast()
			return
		}

		if target > w.syncedOffset {
			w.syncedOffset = target
		}
		w.doneCond.Broadcast()
	}
}

// Append writes a record and honors the configured durability mode.
func (w *WAL) Append(rec *Record) (Position, error) {
	pos, err := w.AppendAsync(rec)
	if err != nil {
		return Position{}, err
	}
	if w.opts.Durability == DurabilitySync {
		return pos, w.WaitFor(pos.End)
	}
	return pos, nil
}

// AppendAsync writes a record to the file but does not wait for fsync.
func (w *WAL) AppendAsync(rec *Record) (Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return Position{}, os.ErrClosed
	}
	if w.lastErr != nil {
		return Position{}, w.lastErr
	}

	if rec.Size()-recordHeaderSize > MaxRecordSize {
		return Position{}, ErrRecordTooLarge
	}

	start := w.cw.n
	if err := rec.Encode(w.cw); err != nil {
		w.lastErr = fmt.Errorf("log append failed: %w", err)
		return Position{}, err
	}
	if err := w.cw.Flush(); err != nil {
		w.lastErr = fmt.Errorf("log append failed: %w", err)
		return Position{}, err
	}

	pos := Position{
		Offset:      start,
		ValueOffset: start + recordHeaderSize + int64(len(rec.Key)),
		ValueLen:    len(rec.Value),
		End:         w.cw.n,
	}

	if w.opts.Durability == DurabilitySync {
		w.syncCond.Signal()
	}
	return pos, nil
}

// ReadAt reads n bytes at off. Appended records are visible immediately.
func (w *WAL) ReadAt(off int64, n int) ([]byte, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, os.ErrClosed
	}
	buf := make([]byte, n)
	if _, err := w.file.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// WaitFor waits until the log is synced up to offset.
func (w *WAL) WaitFor(offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.syncedOffset < offset && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if w.closed && w.syncedOffset < offset {
		return os.ErrClosed
	}
	return nil
}

// Sync commits all appended records to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if err := w.cw.Flush(); err != nil {
		return err
	}

	if w.opts.Durability == DurabilityAsync {
		if err := w.file.Sync(); err != nil {
			return err
		}
		w.syncedOffset = w.cw.n
		return nil
	}

	target := w.cw.n
	w.syncCond.Signal()
	for w.syncedOffset < target && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	return w.lastErr
}

// Truncate cuts the log back to size, discarding a torn tail.
func (w *WAL) Truncate(size int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if size < HeaderSize || size > w.cw.n {
		return fmt.Errorf("truncate to %d outside [%d, %d]", size, HeaderSize, w.cw.n)
	}
	if err := w.cw.Flush(); err != nil {
		return err
	}
	if err := w.file.Truncate(size); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.cw.n = size
	if w.syncedOffset > size {
		w.syncedOffset = size
	}
	w.lastErr = nil
	return nil
}

// Close flushes buffered records and closes the file. It does not fsync
// in async mode; call Sync first for a durability boundary.
func (w *WAL) Close() error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return os.ErrClosed
	}

	if err := w.cw.Flush(); err != nil {
		w.closed = true
		w.syncCond.Signal()
		w.mu.Unlock()
		w.wg.Wait()
		w.file.Close()
		return err
	}

	w.closed = true
	w.syncCond.Signal()
	w.mu.Unlock()

	w.wg.Wait()

	return w.file.Close()
}

// Reader returns a reader replaying records that start at offset.
// An offset below the header is moved past it.
func (w *WAL) Reader(offset int64) (*Reader, error) {
	f, err := w.fs.OpenFile(w.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if offset < HeaderSize {
		offset = HeaderSize
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{f: f, r: bufio.NewReader(f), offset: offset}, nil
}

// Reader iterates over log records.
type Reader struct {
	f      fs.File
	r      *bufio.Reader
	offset int64
}

// Next reads the next record and its position. Returns io.EOF when done.
func (r *Reader) Next() (*Record, Position, error) {
	start := r.offset
	rec, n, err := Decode(r.r)
	if err != nil {
		return nil, Position{}, err
	}
	r.offset += n
	return rec, Position{
		Offset:      start,
		ValueOffset: start + recordHeaderSize + int64(len(rec.Key)),
		ValueLen:    len(rec.Value),
		End:         r.offset,
	}, nil
}

// Offset returns the end of the last valid record read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.f.Close()
}
