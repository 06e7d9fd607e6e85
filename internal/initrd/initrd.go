// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initrd builds initramfs cpio archives for guest images. The init
// binary is placed at /init where the kernel expects it; additional files
// keep their absolute paths.
package initrd

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cavaliergopher/cpio"
)

const dirMode = cpio.TypeDir | 0o755

// Builder collects files for a guest initramfs archive.
type Builder struct {
	initFile string
	files    []string
}

// New creates a [Builder] with the given file as the init binary.
func New(initFile string) *Builder {
	return &Builder{initFile: initFile}
}

// AddFiles adds the given files to the archive. They are archived at their
// source path.
func (b *Builder) AddFiles(paths ...string) {
	b.files = append(b.files, paths...)
}

// WriteInto writes the archive in cpio (newc) format into the given writer.
func (b *Builder) WriteInto(w io.Writer) error {
	writer := newWriter(w)

	if err := writer.writeRegular("init", b.initFile, 0o755); err != nil {
		return err
	}

	for _, file := range b.files {
		name := strings.TrimPrefix(filepath.ToSlash(file), "/")

		if err := writer.writeParents(name); err != nil {
			return err
		}

		if err := writer.writeRegular(name, file, 0); err != nil {
			return err
		}
	}

	if err := writer.cpioWriter.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

type writer struct {
	cpioWriter *cpio.Writer
	dirs       map[string]bool
}

func newWriter(w io.Writer) *writer {
	return &writer{
		cpioWriter: cpio.NewWriter(w),
		dirs:       map[string]bool{".": true, "/": true},
	}
}

// writeParents adds directory entries for all missing parents of the given
// archive path.
func (w *writer) writeParents(name string) error {
	dir := path.Dir(name)
	if w.dirs[dir] {
		return nil
	}

	if err := w.writeParents(dir); err != nil {
		return err
	}

	header := &cpio.Header{
		Name: dir,
		Mode: dirMode,
	}

	if err := w.cpioWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", dir, err)
	}

	w.dirs[dir] = true

	return nil
}

// writeRegular copies the file from source into the archive under the given
// name. If mode is zero the source file's mode is kept.
func (w *writer) writeRegular(name, source string, mode cpio.FileMode) error {
	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("read info: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", source)
	}

	header, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}

	header.Name = name
	if mode != 0 {
		header.Mode = cpio.TypeReg | mode
	}

	if err := w.cpioWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	if _, err := io.Copy(w.cpioWriter, file); err != nil {
		return fmt.Errorf("write body for %s: %w", name, err)
	}

	return nil
}
