package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRotatesPreviousRun(t *testing.T) {
	name := filepath.Join(t.TempDir(), "logs", "mega1.log")

	f, err := Open(name, 2)
	require.NoError(t, err)
	f.WriteString("first run\n")
	f.Close()

	f, err = Open(name, 2)
	require.NoError(t, err)
	f.WriteString("second run\n")
	f.Close()

	f, err = Open(name, 2)
	require.NoError(t, err)
	f.Close()

	b, _ := os.ReadFile(name)
	assert.Empty(t, string(b))
	b, _ = os.ReadFile(name + ".1")
	assert.Equal(t, "second run\n", string(b))
	b, _ = os.ReadFile(name + ".2")
	assert.Equal(t, "first run\n", string(b))
}

func TestOpenWithoutBackupsTruncates(t *testing.T) {
	name := filepath.Join(t.TempDir(), "mount.log")
	require.NoError(t, os.WriteFile(name, []byte("stale"), 0o644))

	f, err := Open(name, 0)
	require.NoError(t, err)
	f.Close()

	b, _ := os.ReadFile(name)
	assert.Empty(t, b)
	_, err = os.Stat(name + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestFindLine(t *testing.T) {
	name := filepath.Join(t.TempDir(), "mega1.log")
	require.NoError(t, os.WriteFile(name, []byte("starting\nServing via webdav /a: http://127.0.0.1:8080/x\nServing via webdav /b: other\n"), 0o644))

	line, ok, err := FindLine(name, "Serving via webdav")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Serving via webdav /a: http://127.0.0.1:8080/x", line)

	_, ok, err = FindLine(name, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindLineMissingFile(t *testing.T) {
	_, ok, err := FindLine(filepath.Join(t.TempDir(), "nope.log"), "x")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReadTail(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tail.log")
	require.NoError(t, os.WriteFile(name, []byte("0123456789"), 0o644))

	s, err := ReadTail(name, 4)
	require.NoError(t, err)
	assert.Equal(t, "6789", s)

	s, err = ReadTail(name, 100)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", s)

	_, err = ReadTail(name, -1)
	assert.Error(t, err)
}
