package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Open creates a fresh log file for a child process. A log left by a
// previous run is rotated to name.1 .. name.<backups> first, so nothing
// from that run can be mistaken for output of this one.
func Open(name string, backups int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", name, err)
	}
	if _, err := os.Stat(name); err == nil && backups > 0 {
		backupFiles(name, backups)
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return f, nil
}

func backupFiles(name string, backups int) {
	for i := backups - 1; i > 0; i-- {
		src := fmt.Sprintf("%s.%d", name, i)
		dest := fmt.Sprintf("%s.%d", name, i+1)
		if _, err := os.Stat(src); err == nil {
			os.Rename(src, dest)
		}
	}
	os.Rename(name, fmt.Sprintf("%s.1", name))
}

// FindLine returns the first line of the file containing marker. A missing
// file is not an error, it just has no lines yet.
func FindLine(name, marker string) (string, bool, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); strings.Contains(line, marker) {
			return line, true, nil
		}
	}
	return "", false, scanner.Err()
}

// ReadTail reads at most length bytes from the end of the file
func ReadTail(name string, length int64) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid length: value ≥ 0")
	}
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	statInfo, err := f.Stat()
	if err != nil {
		return "", err
	}
	fileLen := statInfo.Size()

	offset := fileLen - length
	if offset < 0 {
		offset = 0
	}
	b := make([]byte, fileLen-offset)
	n, err := f.ReadAt(b, offset)
	if err != nil && err != io.EOF {
		return "", err
	}
	return string(b[:n]), nil
}
