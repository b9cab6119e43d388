package logio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// EachLine calls fn for every line of r with the line terminator removed.
// Lines that are not valid UTF-8 are skipped. Iteration stops early when fn
// returns false or ctx is done; the latter returns ctx.Err().
func EachLine(ctx context.Context, r io.Reader, fn func(line string) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if utf8.ValidString(line) && !fn(line) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
	}
}

// Head returns up to n lines from the start of path.
func Head(path string, n int) ([]string, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([]string, 0, n)
	err = EachLine(context.Background(), f, func(line string) bool {
		lines = append(lines, line)
		return len(lines) < n
	})
	if err != nil {
		return nil, fmt.Errorf("read head of %s: %w", path, err)
	}
	return lines, nil
}
