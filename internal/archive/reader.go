// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package archive

import (
	"archive/tar"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/gzip"

	"grimm.is/caretaker/internal/errors"
)

// Reader extracts a tar.gz archive produced by a Writer. Every member is
// validated before a single byte is written: the archive is scanned in
// full first, so an invalid member leaves the destination untouched.
type Reader struct {
	src string
}

// NewReader wraps an archive file for extraction.
func NewReader(src string) (*Reader, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, errors.Wrapf(err, errors.KindArchiveRead, "opening archive %s", src)
	}
	return &Reader{src: src}, nil
}

// Path returns the archive path.
func (r *Reader) Path() string { return r.src }

// ExtractTo validates and extracts the archive into dest.
func (r *Reader) ExtractTo(dest string) error {
	if err := r.validate(); err != nil {
		return err
	}
	return r.extract(dest)
}

// validate walks all headers without writing anything.
func (r *Reader) validate() error {
	tr, closeFn, err := r.open()
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.KindArchiveRead, "reading archive")
		}
		if err := validateMember(hdr); err != nil {
			return err
		}
	}
}

func validateMember(hdr *tar.Header) error {
	name := hdr.Name
	if filepath.IsAbs(name) {
		return errors.Errorf(errors.KindInvalidArchiveMember, "absolute member path %q", name)
	}
	if escapesRoot(name) {
		return errors.Errorf(errors.KindInvalidArchiveMember, "member path escapes destination: %q", name)
	}

	switch hdr.Typeflag {
	case tar.TypeReg, tar.TypeDir:
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return errors.Errorf(errors.KindInvalidArchiveMember, "absolute symlink target %q in %q", hdr.Linkname, name)
		}
		if escapesRoot(path.Join(path.Dir(name), hdr.Linkname)) {
			return errors.Errorf(errors.KindInvalidArchiveMember, "symlink target escapes destination: %q -> %q", name, hdr.Linkname)
		}
	default:
		return errors.Errorf(errors.KindInvalidArchiveMember, "unsupported member type %d for %q", hdr.Typeflag, name)
	}
	return nil
}

// escapesRoot reports whether the cleaned slash path climbs above its
// root.
func escapesRoot(name string) bool {
	clean := path.Clean(name)
	return clean == ".." || strings.HasPrefix(clean, "../")
}

func (r *Reader) extract(dest string) error {
	tr, closeFn, err := r.open()
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.KindArchiveRead, "reading archive")
		}

		// Join through securejoin so symlinks already present under
		// dest cannot redirect the write outside it.
		target, err := securejoin.SecureJoin(dest, hdr.Name)
		if err != nil {
			return errors.Wrapf(err, errors.KindInvalidArchiveMember, "resolving member %q", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return errors.Wrapf(err, errors.KindArchiveRead, "creating directory %q", hdr.Name)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, errors.KindArchiveRead, "creating parent of %q", hdr.Name)
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return errors.Wrapf(err, errors.KindArchiveRead, "writing %q", hdr.Name)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, errors.KindArchiveRead, "creating parent of %q", hdr.Name)
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, errors.KindArchiveRead, "linking %q", hdr.Name)
			}
		}
	}
}

func writeFile(target string, src io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Reader) open() (*tar.Reader, func(), error) {
	f, err := os.Open(r.src)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.KindArchiveRead, "opening archive %s", r.src)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, errors.KindArchiveRead, "reading archive %s", r.src)
	}
	closeFn := func() {
		gz.Close()
		f.Close()
	}
	return tar.NewReader(gz), closeFn, nil
}
