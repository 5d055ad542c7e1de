package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"toolshed/pkg/logging"
)

const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// ErrNotDirectory is returned when a directory operation meets a file.
var ErrNotDirectory = errors.New("not a directory")

// FileStore reads and writes configuration files.
type FileStore struct {
	secondary *LazyFormat
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithSecondaryFormat replaces the factory for the secondary format.
func WithSecondaryFormat(factory func() Format) Option {
	return func(s *FileStore) {
		s.secondary = NewLazyFormat(factory)
	}
}

// NewFileStore creates a FileStore. The secondary format defaults to TOML.
func NewFileStore(opts ...Option) *FileStore {
	s := &FileStore{secondary: NewLazyFormat(NewTOMLFormat)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadStructured reads and decodes a structured file.
func (s *FileStore) ReadStructured(path string) ReadResult[map[string]any] {
	data, res, ok := readBytes[map[string]any](path)
	if !ok {
		return res
	}

	f := s.formatFor(path)
	doc, err := f.Decode(data)
	if err != nil {
		return failed[map[string]any](path, "%v", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return found(doc)
}

// ReadText reads a text file such as a markdown definition.
func (s *FileStore) ReadText(path string) ReadResult[string] {
	data, res, ok := readBytes[string](path)
	if !ok {
		return res
	}
	return found(string(data))
}

// readBytes returns the file content, or the terminal result for the
// absent and failed cases with ok set to false.
func readBytes[T any](path string) ([]byte, ReadResult[T], bool) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, absent[T](), false
		}
		return nil, failed[T](path, "stat: %v", err), false
	}
	if info.IsDir() {
		return nil, failed[T](path, "is a directory"), false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, absent[T](), false
		}
		return nil, failed[T](path, "read: %v", err), false
	}
	return data, ReadResult[T]{}, true
}

// WriteStructured serializes doc deterministically and writes it atomically.
func (s *FileStore) WriteStructured(path string, doc map[string]any) error {
	data, err := s.Encode(path, doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// WriteText writes content atomically.
func (s *FileStore) WriteText(path string, content string) error {
	return writeFileAtomic(path, []byte(content))
}

// Exists reports whether anything exists at path.
func (s *FileStore) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// ListSubdirectories returns the sorted names of directories in dir.
// A missing directory yields an empty list.
func (s *FileStore) ListSubdirectories(dir string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListFiles returns the sorted names of regular files in dir whose names
// end in one of suffixes (all files when none are given).
func (s *FileStore) ListFiles(dir string, suffixes ...string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if len(suffixes) == 0 || hasAnySuffix(e.Name(), suffixes) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func readDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
				return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
			}
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Rename moves from to to. It refuses to replace an existing target.
func (s *FileStore) Rename(from, to string) error {
	if s.Exists(to) {
		return fmt.Errorf("rename %s: target %s already exists: %w", from, to, fs.ErrExist)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	logging.Debug("Store", "Renamed %s to %s", from, to)
	return nil
}

// Remove deletes a single file.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	logging.Debug("Store", "Removed %s", path)
	return nil
}

// RemoveAll deletes a directory tree.
func (s *FileStore) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	logging.Debug("Store", "Removed tree %s", path)
	return nil
}

// CopyDir copies the tree at src to dst, which must not exist yet. Each
// file is written atomically; on error the partial copy is left for the
// caller to clean up.
func (s *FileStore) CopyDir(src, dst string) error {
	if s.Exists(dst) {
		return fmt.Errorf("copy %s: target %s already exists: %w", src, dst, fs.ErrExist)
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy %s: %w", src, ErrNotDirectory)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, defaultDirMode)
		}
		if !d.Type().IsRegular() {
			logging.Debug("Store", "Skipping non-regular file %s", path)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("copy %s: %w", path, err)
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return writeFileAtomicMode(target, data, fi.Mode().Perm())
	})
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place, keeping the mode of any file it replaces.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(defaultFileMode)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return writeFileAtomicMode(path, data, mode)
}

func writeFileAtomicMode(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tempName := temp.Name()
	shouldCleanup := true
	defer func() {
		if shouldCleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tempName, mode); err != nil {
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	shouldCleanup = false

	logging.Debug("Store", "Wrote %d bytes to %s", len(data), path)
	return nil
}
