// Package fileutil holds the file replacement helpers shared by the ledger and
// config writers.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teranos/callsheet/errors"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// WriteAtomic replaces path with data. The bytes go to a temporary file in the
// same directory which is synced and renamed over path, so readers see either
// the old content or the new content and never a truncated file.
func WriteAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

// BackupPath returns the name of the n-th backup of path (n starts at 1).
func BackupPath(path string, n int) string {
	return fmt.Sprintf("%s.back%d", path, n)
}

// RotateBackups copies path to .back1 after shifting older backups up by one.
// The oldest backup beyond keep is deleted. keep <= 0 disables backups.
// A missing path is not an error: there is nothing to back up yet.
func RotateBackups(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	oldest := BackupPath(path, keep)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete old backup %s", oldest)
	}

	for n := keep - 1; n >= 1; n-- {
		from := BackupPath(path, n)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, BackupPath(path, n+1)); err != nil {
			return errors.Wrapf(err, "failed to rotate %s", from)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s for backup", path)
	}
	if err := os.WriteFile(BackupPath(path, 1), content, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", BackupPath(path, 1))
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dir and any missing parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	return nil
}
