// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// mkinitrd packs a guestinit binary and additional files into an initramfs
// cpio archive, written to stdout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandvm/guestinit/internal/initrd"
)

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mkinitrd <init-binary> [files...]")
	}

	initFile, err := absPath(args[0])
	if err != nil {
		return err
	}

	builder := initrd.New(initFile)

	for _, file := range args[1:] {
		path, err := absPath(file)
		if err != nil {
			return err
		}

		builder.AddFiles(path)
	}

	if err := builder.WriteInto(os.Stdout); err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	return nil
}

func absPath(file string) (string, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("lookup absolute path for %s: %w", file, err)
	}

	return path, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
