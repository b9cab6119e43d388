// Package logio opens engine log files, plain or compressed, and streams
// their lines.
package logio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// File is an open log file. Reads return decompressed bytes.
type File struct {
	io.Reader
	closers []func() error
}

// Open opens path, decompressing .gz and .zst files transparently. A missing
// or unreadable file yields the *fs.PathError from os.Open, wrapped.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	lf := &File{Reader: f, closers: []func() error{f.Close}}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip log %s: %w", path, err)
		}
		lf.Reader = zr
		lf.closers = append([]func() error{zr.Close}, lf.closers...)
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd log %s: %w", path, err)
		}
		lf.Reader = zr
		lf.closers = append([]func() error{func() error { zr.Close(); return nil }}, lf.closers...)
	}
	return lf, nil
}

// Close releases the decompressor, if any, and the underlying file.
func (f *File) Close() error {
	var first error
	for _, c := range f.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
