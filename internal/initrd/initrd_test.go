// SPDX-FileCopyrightText: 2025 The guestinit authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cavaliergopher/cpio"
	"github.com/sandvm/guestinit/internal/initrd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, archive []byte) map[string]*cpio.Header {
	t.Helper()

	entries := map[string]*cpio.Header{}

	reader := cpio.NewReader(bytes.NewReader(archive))

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries
		}

		require.NoError(t, err)
		entries[header.Name] = header
	}
}

func TestBuilderWriteInto(t *testing.T) {
	dir := t.TempDir()

	initFile := filepath.Join(dir, "guestinit")
	require.NoError(t, os.WriteFile(initFile, []byte("binary"), 0o700))

	extraDir := filepath.Join(dir, "opt", "agent")
	require.NoError(t, os.MkdirAll(extraDir, 0o755))

	extraFile := filepath.Join(extraDir, "index.js")
	require.NoError(t, os.WriteFile(extraFile, []byte("js"), 0o644))

	builder := initrd.New(initFile)
	builder.AddFiles(extraFile)

	var buf bytes.Buffer
	require.NoError(t, builder.WriteInto(&buf))

	entries := readArchive(t, buf.Bytes())

	require.Contains(t, entries, "init")
	assert.True(t, entries["init"].Mode.IsRegular())
	assert.Equal(t, cpio.FileMode(0o755), entries["init"].Mode.Perm())
	assert.Equal(t, int64(len("binary")), entries["init"].Size)

	extraName := strings.TrimPrefix(extraFile, "/")
	require.Contains(t, entries, extraName)
	assert.True(t, entries[extraName].Mode.IsRegular())

	parent := strings.TrimPrefix(extraDir, "/")
	require.Contains(t, entries, parent)
	assert.True(t, entries[parent].Mode.IsDir())
}

func TestBuilderMissingInit(t *testing.T) {
	builder := initrd.New(filepath.Join(t.TempDir(), "missing"))

	var buf bytes.Buffer
	assert.Error(t, builder.WriteInto(&buf))
}
