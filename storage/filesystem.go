package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dchest/uniuri"
)

const copyBufferSize = 32 * 1024

// FilesystemStore writes artifacts under a single root directory, one file
// per artifact named "{id}-{sanitized name}".
type FilesystemStore struct {
	root     string
	maxBytes int64
}

// NewFilesystemStore returns a store rooted at root. maxBytes caps the size
// of a single artifact; zero means unlimited.
func NewFilesystemStore(root string, maxBytes int64) *FilesystemStore {
	return &FilesystemStore{root: root, maxBytes: maxBytes}
}

// EnsureRoot creates the storage root if needed and verifies it is writable.
// Called once at startup, before the store accepts any writes.
func (s *FilesystemStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating storage root %s: %w", s.root, err)
	}

	probe := filepath.Join(s.root, ".probe-"+uniuri.New())
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("storage root %s is not writable: %w", s.root, err)
	}
	f.Close()
	if err := os.Remove(probe); err != nil {
		slog.Warn("Failed to remove storage probe file", "path", probe, "error", err)
	}
	return nil
}

func (s *FilesystemStore) Write(ctx context.Context, id string, declaredName string, source io.Reader) (*WriteReceipt, error) {
	name := SanitizeFilename(declaredName)
	if name == "" {
		return nil, fmt.Errorf("declared name %q sanitizes to nothing", declaredName)
	}

	// an id maps to at most one file, regardless of the name suffix
	matches, err := filepath.Glob(filepath.Join(s.root, id+"-*"))
	if err != nil {
		return nil, fmt.Errorf("checking for existing artifact %s: %w", id, err)
	}
	if len(matches) > 0 {
		return nil, ErrConflict
	}

	location := filepath.Join(s.root, id+"-"+name)
	f, err := os.OpenFile(location, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("creating artifact file %s: %w", location, err)
	}

	written, err := s.copy(ctx, f, source)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rmErr := os.Remove(location); rmErr != nil {
			slog.Error("Failed to remove partial artifact after write failure",
				"location", location, "error", rmErr, "writeError", err)
		}
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("writing artifact %s: %w", id, err)
	}

	slog.Debug("Stored artifact", "id", id, "location", location, "bytes", written)
	return &WriteReceipt{Location: location, BytesWritten: written}, nil
}

// copy streams source into dst through a fixed-size buffer, honouring
// cancellation and the size ceiling on every iteration.
func (s *FilesystemStore) copy(ctx context.Context, dst io.Writer, source io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, rerr := source.Read(buf)
		if n > 0 {
			if s.maxBytes > 0 && written+int64(n) > s.maxBytes {
				return written, ErrTooLarge
			}
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn < n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("reading source: %w", rerr)
		}
	}
}

func (s *FilesystemStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !s.withinRoot(location) {
		return nil, ErrNotFound
	}
	f, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening artifact %s: %w", location, err)
	}
	return f, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, location string) error {
	if !s.withinRoot(location) {
		return ErrNotFound
	}
	if err := os.Remove(location); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting artifact %s: %w", location, err)
	}
	slog.Debug("Deleted artifact", "location", location)
	return nil
}

func (s *FilesystemStore) withinRoot(location string) bool {
	rel, err := filepath.Rel(s.root, location)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
