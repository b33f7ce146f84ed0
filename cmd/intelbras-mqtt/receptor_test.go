package main

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartReceptorMissing(t *testing.T) {
	_, err := startReceptor(testContext(t), filepath.Join(t.TempDir(), "receptorip"), "config.cfg")
	require.ErrorIs(t, err, ErrProcessUnavailable)
}

func TestStartReceptor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a posix shell")
	}
	bin := filepath.Join(t.TempDir(), "receptorip")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho \"config $1\"\necho 'Panico audivel' >&2\n"), 0o755))

	r, err := startReceptor(testContext(t), bin, "config.cfg")
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "config config.cfg\nPanico audivel\n", string(out))
}
