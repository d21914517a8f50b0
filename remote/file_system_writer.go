package remote

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileWriter writes generated files, leaving a file alone when its content
// already matches
type FileWriter struct {
	fs   afero.Afero
	hash hash.Hash
}

// NewFileWriter creates a FileWriter comparing content by sha256
func NewFileWriter(fs afero.Fs) *FileWriter {
	return &FileWriter{
		fs:   afero.Afero{Fs: fs},
		hash: sha256.New(),
	}
}

// Write replaces the content of path, creating its directory. It reports
// whether the file changed.
func (v *FileWriter) Write(path string, content []byte) (bool, error) {
	dir := filepath.Dir(path)
	if ok, err := v.fs.DirExists(dir); err != nil {
		return false, fmt.Errorf("DirExists error: %q: %w", dir, err)
	} else if !ok {
		if err := v.fs.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("unable to create dir %q: %w", dir, err)
		}
	}

	var dstHash []byte
	if ok, err := v.fs.Exists(path); err != nil {
		return false, fmt.Errorf("exists error: %q: %w", path, err)
	} else if ok {
		v.hash.Reset()
		if file, err := v.fs.Open(path); err == nil {
			_, _ = io.Copy(v.hash, file)
			file.Close()
		}
		dstHash = v.hash.Sum(nil)
	}

	v.hash.Reset()
	_, _ = v.hash.Write(content)
	if bytes.Equal(v.hash.Sum(nil), dstHash) {
		return false, nil
	}

	if err := v.fs.WriteFile(path, content, os.FileMode(0o600)); err != nil {
		return false, fmt.Errorf("unable to write file %q: %w", path, err)
	}
	return true, nil
}
