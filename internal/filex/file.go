// Package filex holds the on-disk layout of an output root and small file
// helpers shared by the pipeline.
package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
)

// Layout resolves every path under an output root:
//
//	<root>/logs/completed_ledger.txt
//	<root>/logs/download_log_<ts>.tsv
//	<root>/logs/failed_items.txt
//	<root>/logs/history.db
//	<root>/data/<id>/<filename>
type Layout struct {
	Root string
}

func NewLayout(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve output root %s: %w", root, err)
	}
	return Layout{Root: abs}, nil
}

func (l Layout) LogsDir() string     { return filepath.Join(l.Root, common.LogsDirName) }
func (l Layout) DataDir() string     { return filepath.Join(l.Root, common.DataDirName) }
func (l Layout) LedgerPath() string  { return filepath.Join(l.LogsDir(), common.LedgerFileName) }
func (l Layout) FailedPath() string  { return filepath.Join(l.LogsDir(), common.FailedItemsFileName) }
func (l Layout) HistoryPath() string { return filepath.Join(l.LogsDir(), common.HistoryDBFileName) }

// ItemDir is the per-identifier folder.
func (l Layout) ItemDir(id string) string {
	return filepath.Join(l.DataDir(), id)
}

// ItemPath is the final destination of a transfer unit.
func (l Layout) ItemPath(id, filename string) string {
	return filepath.Join(l.ItemDir(id), filename)
}

// Prepare creates the logs and data directories.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.LogsDir(), l.DataDir()} {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDir creates dir (and parents) if needed. Failures wrap common.ErrLocalIO.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", common.ErrLocalIO, dir, err)
	}
	return nil
}

// FileSize returns the size of a regular file and whether it exists.
func FileSize(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return 0, false
	}
	return fi.Size(), true
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a half-written file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
