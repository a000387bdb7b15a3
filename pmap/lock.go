package pmap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// held guards against a second instance in this process on platforms
// without advisory file locks.
var held sync.Map

type dirLock struct {
	key  string
	file *os.File
}

func acquireLock(dir string) (*dirLock, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ioError("lock", dir, err)
	}
	if _, loaded := held.LoadOrStore(abs, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	path := filepath.Join(abs, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		held.Delete(abs)
		return nil, ioError("lock", path, err)
	}
	if err := flock(f); err != nil {
		f.Close()
		held.Delete(abs)
		return nil, err
	}
	return &dirLock{key: abs, file: f}, nil
}

// LockDir takes the exclusive lock on dir that LogMap holds while open.
// Other Map implementations storing their files in dir use it too.
func LockDir(dir string) (io.Closer, error) {
	return acquireLock(dir)
}

// Close releases the lock.
func (l *dirLock) Close() error {
	defer held.Delete(l.key)
	if err := funlock(l.file); err != nil {
		l.file.Close()
		return ioError("unlock", l.file.Name(), err)
	}
	if err := l.file.Close(); err != nil {
		return ioError("unlock", l.file.Name(), err)
	}
	return nil
}
