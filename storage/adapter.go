package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opd-ai/leo/logging"
	"github.com/opd-ai/leo/wire"
)

// Root is a filesystem sandbox. Every path it accepts is resolved against
// its canonical root directory and rejected if it would escape it.
type Root struct {
	abs string
}

// NewRoot canonicalizes path and returns a Root rooted there. The directory
// must already exist.
func NewRoot(path string) (*Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root %q: %w", path, err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root %q is not a directory", abs)
	}

	return &Root{abs: abs}, nil
}

// resolve joins userPath onto the root and verifies, lexically and before
// any filesystem access, that the result does not escape it. Any ".."
// segment that would climb above the root is rejected; a leading "/" is
// not an escape, since the path is joined under the root.
func (r *Root) resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrInvalidPath
	}

	candidate := filepath.Join(r.abs, filepath.Clean(userPath))

	if candidate != r.abs && !strings.HasPrefix(candidate, r.abs+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return candidate, nil
}

// WriteWhole creates or truncates the file at path and writes data to it in
// one call, creating parent directories as needed.
func (r *Root) WriteWhole(path string, data []byte) error {
	log := logging.For("storage").WithField("path", path)

	abs, err := r.resolve(path)
	if err != nil {
		log.WithError(err).Warn("rejected path escaping root")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		log.WithError(err).Warn("create parent directories failed")
		return fmt.Errorf("storage: mkdir for %q: %w", path, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		log.WithError(err).Warn("write failed")
		return fmt.Errorf("storage: write %q: %w", path, err)
	}

	log.WithField("bytes", len(data)).Debug("wrote file")
	return nil
}

// WriteChunk writes data at the given byte offset within path, creating the
// file and its parent directories if they do not already exist. Callers are
// expected to issue chunks with monotonically increasing offsets for a
// given path, as the PUT_CHUNK sequence requires.
func (r *Root) WriteChunk(path string, offset uint64, data []byte) error {
	log := logging.For("storage").WithField("path", path).WithField("offset", offset)

	abs, err := r.resolve(path)
	if err != nil {
		log.WithError(err).Warn("rejected path escaping root")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		log.WithError(err).Warn("create parent directories failed")
		return fmt.Errorf("storage: mkdir for %q: %w", path, err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Warn("open failed")
		return fmt.Errorf("storage: open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		log.WithError(err).Warn("write at offset failed")
		return fmt.Errorf("storage: write %q at offset %d: %w", path, offset, err)
	}

	log.WithField("bytes", len(data)).Debug("wrote chunk")
	return nil
}

// ReadChunk reads up to len(buf) bytes from path starting at offset,
// returning the number of bytes read. io.EOF is returned whenever the read
// reaches the end of the file before buf is full, possibly together with
// n > 0, consistent with io.ReaderAt.
func (r *Root) ReadChunk(path string, offset uint64, buf []byte) (int, error) {
	log := logging.For("storage").WithField("path", path).WithField("offset", offset)

	abs, err := r.resolve(path)
	if err != nil {
		log.WithError(err).Warn("rejected path escaping root")
		return 0, err
	}

	f, err := os.Open(abs)
	if err != nil {
		log.WithError(err).Debug("open for read failed")
		return 0, fmt.Errorf("storage: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("storage: stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, ErrNotAFile
	}

	n, err := f.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		log.WithError(err).Warn("read at offset failed")
		return n, fmt.Errorf("storage: read %q at offset %d: %w", path, offset, err)
	}
	return n, err
}

// FileSize returns the size in bytes of the regular file at path.
func (r *Root) FileSize(path string) (uint64, error) {
	abs, err := r.resolve(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("storage: stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, ErrNotAFile
	}
	return uint64(info.Size()), nil
}

// List returns the entries of the directory at path, sorted by Name as
// returned by the OS.
func (r *Root) List(path string) ([]wire.ListItem, error) {
	log := logging.For("storage").WithField("path", path)

	abs, err := r.resolve(path)
	if err != nil {
		log.WithError(err).Warn("rejected path escaping root")
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		log.WithError(err).Debug("readdir failed")
		return nil, fmt.Errorf("storage: list %q: %w", path, err)
	}

	items := make([]wire.ListItem, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			items = append(items, wire.ListItem{Name: e.Name(), Type: "dir"})
			continue
		}

		info, err := e.Info()
		if err != nil {
			log.WithError(err).Warn("stat entry failed")
			return nil, fmt.Errorf("storage: stat entry %q: %w", e.Name(), err)
		}
		size := uint64(info.Size())
		items = append(items, wire.ListItem{Name: e.Name(), Type: "file", Size: &size})
	}

	log.WithField("count", len(items)).Debug("listed directory")
	return items, nil
}

// DeleteFile removes the regular file at path. It refuses to remove
// directories.
func (r *Root) DeleteFile(path string) error {
	log := logging.For("storage").WithField("path", path)

	abs, err := r.resolve(path)
	if err != nil {
		log.WithError(err).Warn("rejected path escaping root")
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		log.WithError(err).Debug("stat before delete failed")
		return fmt.Errorf("storage: stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return ErrNotAFile
	}

	if err := os.Remove(abs); err != nil {
		log.WithError(err).Warn("delete failed")
		return fmt.Errorf("storage: delete %q: %w", path, err)
	}

	log.Debug("deleted file")
	return nil
}
