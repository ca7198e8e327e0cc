// Package imagefs reads the kernel image from the volume the loader was
// started from.
package imagefs

import (
	"gopherboot/kernel"
	"io"
	"io/fs"

	"github.com/pkg/errors"
)

var (
	// ErrVolume is returned when the boot volume cannot be opened.
	ErrVolume = &kernel.Error{Module: "imagefs", Message: "unable to open boot volume"}

	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = &kernel.Error{Module: "imagefs", Message: "file not found"}

	// ErrNotARegularFile is returned when the requested path names a
	// directory or another non-regular file.
	ErrNotARegularFile = &kernel.Error{Module: "imagefs", Message: "not a regular file"}

	// ErrRead is returned when the file contents cannot be read in full.
	ErrRead = &kernel.Error{Module: "imagefs", Message: "read error"}
)

// VolumeOpener is implemented by firmware objects that can open the boot
// volume.
type VolumeOpener interface {
	OpenVolume() (fs.FS, error)
}

// OpenVolume returns the root directory of the boot volume.
func OpenVolume(fw VolumeOpener) (fs.FS, error) {
	root, err := fw.OpenVolume()
	if err != nil {
		return nil, errors.Wrap(ErrVolume, err.Error())
	}

	return root, nil
}

// OpenFile opens the regular file name inside dir.
func OpenFile(dir fs.FS, name string) (fs.File, error) {
	f, err := dir.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, errors.Wrapf(ErrRead, "%s: %s", name, err.Error())
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(ErrRead, "%s: %s", name, err.Error())
	}

	if !info.Mode().IsRegular() {
		f.Close()
		return nil, errors.Wrapf(ErrNotARegularFile, "%s", name)
	}

	return f, nil
}

// ReadAll reads the entire contents of f into a buffer sized by the length
// that f reports.
func ReadAll(f fs.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(ErrRead, err.Error())
	}

	buf := make([]byte, info.Size())
	if _, err = io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrapf(ErrRead, "%s: %s", info.Name(), err.Error())
	}

	return buf, nil
}

// ReadFile opens the regular file name inside dir and returns its contents.
func ReadFile(dir fs.FS, name string) ([]byte, error) {
	f, err := OpenFile(dir, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadAll(f)
}
