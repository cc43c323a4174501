package system

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/martijn/harvestd/internal/errors"
)

// Adapter wraps the filesystem operations the stores rely on
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// CreateDirectory creates a directory with the given permissions
func (a *Adapter) CreateDirectory(path string, perm uint32) error {
	if err := os.MkdirAll(path, os.FileMode(perm)); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}
	return nil
}

// WriteFileAtomic replaces path with data so readers see either the old or
// the new content, never a partial write
func (a *Adapter) WriteFileAtomic(path string, data []byte, perm uint32) error {
	dir := filepath.Dir(path)
	if err := a.CreateDirectory(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	if err := os.Chmod(tmpName, os.FileMode(perm)); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

// MoveFile renames src to dst, copying across filesystems when a rename is
// not possible. Returns os.ErrNotExist (wrapped) when src is missing.
func (a *Adapter) MoveFile(src, dst string) error {
	if err := a.CreateDirectory(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return errors.Wrapf(err, "source %s", src)
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return errors.Wrapf(err, "failed to move %s to %s", src, dst)
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return errors.Wrapf(err, "failed to remove %s after copy", src)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", dst)
	}
	return nil
}
