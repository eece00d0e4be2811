package source

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

const maxLineSize = 1024 * 1024

// Reader scans a stream into lines split by a separator. A trailing
// unterminated line is still emitted.
type Reader struct {
	r       io.Reader
	scanner *bufio.Scanner
	once    sync.Once
	err     error
}

func NewReader(r io.Reader, separator string) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if separator != "\n" {
		sc.Split(splitOn([]byte(separator)))
	}
	return &Reader{r: r, scanner: sc}
}

func (r *Reader) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close closes the underlying reader when it is closable.
func (r *Reader) Close() error {
	r.once.Do(func() {
		if c, ok := r.r.(io.Closer); ok {
			r.err = c.Close()
		}
	})
	return r.err
}

func splitOn(sep []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
