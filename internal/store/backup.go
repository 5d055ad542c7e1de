package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"toolshed/pkg/logging"
)

// Backup captures a file's content immediately before it is overwritten
// or deleted. A failed snapshot must abort the pending write.
type Backup interface {
	Snapshot(path string) error
}

// NopBackup is used when backups are disabled.
type NopBackup struct{}

func (NopBackup) Snapshot(string) error { return nil }

const manifestName = "manifest.json"

// Snapshot describes one stored backup.
type Snapshot struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"createdAt"`
	IsDirectory bool      `json:"isDirectory"`

	dir string
}

// ContentPath is where the snapshot's copy of the file (or tree) lives.
func (s Snapshot) ContentPath() string {
	return filepath.Join(s.dir, filepath.Base(s.Path))
}

// DirBackup stores snapshots under a root directory, one subdirectory per
// original path, keeping the newest Keep snapshots of each.
type DirBackup struct {
	Root string
	Keep int

	now func() time.Time
}

// NewDirBackup creates a DirBackup. keep <= 0 keeps every snapshot.
func NewDirBackup(root string, keep int) *DirBackup {
	return &DirBackup{Root: root, Keep: keep, now: time.Now}
}

// Snapshot copies path (a file or a directory tree) into the backup root.
// A path that does not exist has nothing to capture and succeeds.
func (b *DirBackup) Snapshot(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("backup %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("backup %s: %w", abs, err)
	}

	created := b.now().UTC()
	snap := Snapshot{
		ID:          created.Format("20060102T150405.000000000Z") + "-" + uuid.NewString()[:8],
		Path:        abs,
		CreatedAt:   created,
		IsDirectory: info.IsDir(),
	}
	snap.dir = filepath.Join(b.pathDir(abs), snap.ID)

	if err := os.MkdirAll(snap.dir, defaultDirMode); err != nil {
		return fmt.Errorf("backup %s: %w", abs, err)
	}
	if info.IsDir() {
		err = copyTree(abs, snap.ContentPath())
	} else {
		err = copyFile(abs, snap.ContentPath(), info.Mode().Perm())
	}
	if err != nil {
		_ = os.RemoveAll(snap.dir)
		return fmt.Errorf("backup %s: %w", abs, err)
	}

	manifest, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("backup %s: %w", abs, err)
	}
	if err := os.WriteFile(filepath.Join(snap.dir, manifestName), append(manifest, '\n'), defaultFileMode); err != nil {
		_ = os.RemoveAll(snap.dir)
		return fmt.Errorf("backup %s: write manifest: %w", abs, err)
	}

	logging.Debug("Backup", "Snapshot %s of %s", snap.ID, abs)
	b.prune(abs)
	return nil
}

// List returns the snapshots of path, newest first.
func (b *DirBackup) List(path string) ([]Snapshot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := b.pathDir(abs)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups of %s: %w", abs, err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snapDir := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(filepath.Join(snapDir, manifestName))
		if err != nil {
			logging.Warn("Backup", "Ignoring snapshot without manifest: %s", snapDir)
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			logging.Warn("Backup", "Ignoring snapshot with corrupt manifest: %s", snapDir)
			continue
		}
		snap.dir = snapDir
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID > snaps[j].ID })
	return snaps, nil
}

// Latest returns the newest snapshot of path.
func (b *DirBackup) Latest(path string) (Snapshot, bool, error) {
	snaps, err := b.List(path)
	if err != nil || len(snaps) == 0 {
		return Snapshot{}, false, err
	}
	return snaps[0], true, nil
}

// Restore writes a snapshot back to its original location. The current
// content is snapshotted first so a restore can itself be undone.
func (b *DirBackup) Restore(snap Snapshot) error {
	if err := b.Snapshot(snap.Path); err != nil {
		return fmt.Errorf("restore %s: %w", snap.ID, err)
	}

	src := snap.ContentPath()
	if snap.IsDirectory {
		if err := copyTree(src, snap.Path); err != nil {
			return fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	} else {
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("restore %s: %w", snap.ID, err)
		}
		if err := writeFileAtomic(snap.Path, data); err != nil {
			return fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	}

	logging.Info("Backup", "Restored %s from snapshot %s", snap.Path, snap.ID)
	return nil
}

func (b *DirBackup) prune(abs string) {
	if b.Keep <= 0 {
		return
	}
	snaps, err := b.List(abs)
	if err != nil {
		logging.Warn("Backup", "Could not prune snapshots of %s: %v", abs, err)
		return
	}
	for _, old := range snaps[min(len(snaps), b.Keep):] {
		if err := os.RemoveAll(old.dir); err != nil {
			logging.Warn("Backup", "Could not remove old snapshot %s: %v", old.dir, err)
		}
	}
}

func (b *DirBackup) pathDir(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(b.Root, hex.EncodeToString(sum[:8]))
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
