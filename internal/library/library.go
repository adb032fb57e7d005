package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/pixelforge/internal/generation"
)

const (
	indexFile   = "index.json"
	elementsDir = "elements"
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FileLibrary is a generation.Library backed by a directory.
// It is safe for concurrent use within one process.
type FileLibrary struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ generation.Library = (*FileLibrary)(nil)

// NewFileLibrary creates a library rooted at dir. The directory is created
// lazily by the first Save.
func NewFileLibrary(dir string, logger *slog.Logger) (*FileLibrary, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: library directory cannot be empty", ErrInvalidElement)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLibrary{
		dir:    dir,
		logger: logger.With("component", "library", "dir", dir),
	}, nil
}

// Dir returns the root directory of the library.
func (l *FileLibrary) Dir() string {
	return l.dir
}

// List returns the indexed entries whose SVG content exists, in index order.
func (l *FileLibrary) List(ctx context.Context) ([]generation.LibraryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries, err := l.readIndex(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]generation.LibraryEntry, 0, len(entries))
	for _, e := range entries {
		if _, err := os.Stat(l.elementPath(e.ID)); err != nil {
			continue
		}
		available = append(available, e)
	}
	return available, nil
}

// Get returns the SVG content of the element with the given id.
func (l *FileLibrary) Get(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	content, err := os.ReadFile(l.elementPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("reading library element %q: %w", id, err)
	}
	return string(content), nil
}

// Save stores the element content and upserts its index entry by id.
func (l *FileLibrary) Save(ctx context.Context, entry generation.LibraryEntry, svg string) error {
	if !validID(entry.ID) {
		return fmt.Errorf("%w: id %q", ErrInvalidElement, entry.ID)
	}
	if strings.TrimSpace(svg) == "" {
		return fmt.Errorf("%w: empty content for %q", ErrInvalidElement, entry.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(l.dir, elementsDir), 0o755); err != nil {
		return fmt.Errorf("creating library directory: %w", err)
	}

	entries, err := l.readIndex(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}

	if err := writeFileAtomic(l.elementPath(entry.ID), []byte(svg)); err != nil {
		return fmt.Errorf("writing library element %q: %w", entry.ID, err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding library index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(l.dir, indexFile), data); err != nil {
		return fmt.Errorf("writing library index: %w", err)
	}

	l.logger.InfoContext(ctx, "library element saved",
		"element_id", entry.ID,
		"element_type", entry.Type,
		"replaced", replaced)
	return nil
}

// readIndex loads the index. A missing index is an empty library; an
// unreadable one is logged and treated the same way.
func (l *FileLibrary) readIndex(ctx context.Context) ([]generation.LibraryEntry, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading library index: %w", err)
	}

	var entries []generation.LibraryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.WarnContext(ctx, "ignoring corrupt library index", "error", err)
		return nil, nil
	}
	return entries, nil
}

func (l *FileLibrary) elementPath(id string) string {
	return filepath.Join(l.dir, elementsDir, id+".svg")
}

// NewElementID returns the id of a new element of type t created at now,
// in the form <type>_<unix millis>.
func NewElementID(t generation.ElementType, now time.Time) string {
	safe := unsafeIDChars.ReplaceAllString(strings.TrimSpace(string(t)), "_")
	if safe == "" {
		safe = string(generation.ElementOther)
	}
	return fmt.Sprintf("%s_%d", safe, now.UnixMilli())
}

func validID(id string) bool {
	return id != "" && !unsafeIDChars.MatchString(id)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
