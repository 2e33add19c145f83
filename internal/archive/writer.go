// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package archive provides atomic tar.gz creation and validated
// extraction for instance backups. A Writer never exposes a partial
// archive at its destination path: content goes to a temporary file and
// is renamed into place only on Commit.
package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/gzip"

	"grimm.is/caretaker/internal/errors"
)

// Writer builds one tar.gz archive. Lifecycle: NewWriter -> AddDir ->
// Commit, with Discard deferred on every path. Discard after a
// successful Commit is a no-op.
type Writer struct {
	dst       string
	tmp       *os.File
	gz        *gzip.Writer
	tw        *tar.Writer
	committed bool
	discarded bool
}

// NewWriter opens a temporary file next to dst and prepares the tar
// stream.
func NewWriter(dst string) (*Writer, error) {
	tmp, err := os.OpenFile(dst+".tmp", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindArchiveWrite, "creating archive %s", dst)
	}
	gz := gzip.NewWriter(tmp)
	return &Writer{
		dst: dst,
		tmp: tmp,
		gz:  gz,
		tw:  tar.NewWriter(gz),
	}, nil
}

// Path returns the final destination path.
func (w *Writer) Path() string { return w.dst }

// AddDir recursively adds the contents of root, skipping entries whose
// slash-separated path relative to root matches any exclude pattern.
func (w *Writer) AddDir(root string, excludes []string) error {
	globs := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, errors.KindValidation, "invalid exclude pattern %q", pattern)
		}
		globs = append(globs, g)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		slashRel := filepath.ToSlash(rel)
		for _, g := range globs {
			if g.Match(slashRel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return w.addEntry(path, "./"+slashRel, d)
	})
	if err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "populating archive from %s", root)
	}
	return nil
}

func (w *Writer) addEntry(path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w.tw, f)
	return err
}

// Commit finalizes the stream and atomically moves the archive to its
// destination.
func (w *Writer) Commit() error {
	if w.committed || w.discarded {
		return errors.New(errors.KindArchiveWrite, "archive writer already closed")
	}
	if err := w.tw.Close(); err != nil {
		return errors.Wrap(err, errors.KindArchiveWrite, "closing tar stream")
	}
	if err := w.gz.Close(); err != nil {
		return errors.Wrap(err, errors.KindArchiveWrite, "closing gzip stream")
	}
	if err := w.tmp.Sync(); err != nil {
		return errors.Wrap(err, errors.KindArchiveWrite, "syncing archive")
	}
	if err := w.tmp.Close(); err != nil {
		return errors.Wrap(err, errors.KindArchiveWrite, "closing archive")
	}
	if err := os.Rename(w.tmp.Name(), w.dst); err != nil {
		return errors.Wrapf(err, errors.KindArchiveWrite, "finalizing archive %s", w.dst)
	}
	w.committed = true
	return nil
}

// Discard abandons the archive and removes the temporary file. Safe to
// call multiple times and after Commit.
func (w *Writer) Discard() {
	if w.committed || w.discarded {
		return
	}
	w.discarded = true
	w.tw.Close()
	w.gz.Close()
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
