package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Follow tails a file, waiting for appended data until the context ends.
// Only complete separator-terminated lines are emitted.
type Follow struct {
	path      string
	separator []byte
	offset    int64
	file      *os.File
	reader    *bufio.Reader
	buf       []byte
	idle      *backoff.ExponentialBackOff

	// mu guards file against a concurrent Close
	mu     sync.Mutex
	closed bool
}

func NewFollow(path, separator string, poll, maxPoll time.Duration) (*Follow, error) {
	if separator == "" {
		return nil, errors.New("separator must not be empty")
	}
	idle := backoff.NewExponentialBackOff()
	idle.InitialInterval = poll
	idle.MaxInterval = maxPoll
	idle.MaxElapsedTime = 0
	idle.Reset()

	f := &Follow{path: path, separator: []byte(separator), idle: idle}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Follow) open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		_ = file.Close()
		return err
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	return nil
}

// Offset reports how many bytes have been consumed as complete lines.
func (f *Follow) Offset() int64 { return f.offset }

func (f *Follow) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, err := f.readNextChunk()
		if err == nil {
			f.idle.Reset()
			f.offset += int64(len(chunk))
			return string(chunk[:len(chunk)-len(f.separator)]), nil
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if err := f.checkReplaced(); err != nil {
			return "", err
		}
		t := time.NewTimer(f.idle.NextBackOff())
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func (f *Follow) readNextChunk() ([]byte, error) {
	sep := f.separator
	for {
		if idx := bytes.Index(f.buf, sep); idx >= 0 {
			end := idx + len(sep)
			chunk := f.buf[:end]
			f.buf = append([]byte{}, f.buf[end:]...)
			return chunk, nil
		}
		data, err := f.reader.ReadBytes(sep[len(sep)-1])
		f.buf = append(f.buf, data...)
		if err != nil {
			return nil, err
		}
	}
}

// checkReplaced reopens the path from the start when the file was rotated away
// or shrank below the consumed offset.
func (f *Follow) checkReplaced() error {
	st, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// rotation in progress; the next poll picks up the new file
			return nil
		}
		return err
	}
	cur, err := f.file.Stat()
	if err != nil {
		return err
	}
	switch {
	case !os.SameFile(st, cur):
		slog.Info("input rotated, reading new file", "path", f.path, "offset", f.offset)
	case st.Size() < f.offset:
		slog.Warn("input truncated, reading from start", "path", f.path, "offset", f.offset, "size", st.Size())
	default:
		return nil
	}
	f.mu.Lock()
	_ = f.file.Close()
	f.mu.Unlock()
	f.offset = 0
	f.buf = nil
	return f.open()
}

// Close may be called from another goroutine to interrupt a pending Next.
func (f *Follow) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}
