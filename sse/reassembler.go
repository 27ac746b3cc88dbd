package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// Reassembler turns arbitrarily split byte chunks into complete frames.
// The zero value is ready to use.
type Reassembler struct {
	buf []byte
}

// Write appends chunk to the buffer and returns every frame completed by it,
// in order. The trailing partial line, possibly empty, stays buffered.
func (r *Reassembler) Write(chunk []byte) []string {
	r.buf = append(r.buf, chunk...)
	var frames []string
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			break
		}
		if frame, ok := frameOf(r.buf[:i]); ok {
			frames = append(frames, frame)
		}
		r.buf = r.buf[i+1:]
	}
	// Compact so the retained tail does not pin the whole history.
	if len(r.buf) == 0 {
		r.buf = nil
	} else if cap(r.buf) > 2*len(r.buf)+512 {
		r.buf = append([]byte(nil), r.buf...)
	}
	return frames
}

// Flush returns the buffered remainder as a final frame when it carries the
// prefix, and empties the buffer.
func (r *Reassembler) Flush() (string, bool) {
	line := r.buf
	r.buf = nil
	return frameOf(line)
}

// Buffered returns the number of bytes held for the next chunk.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

func frameOf(line []byte) (string, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if !bytes.HasPrefix(line, []byte(Prefix)) {
		return "", false
	}
	return strings.ToValidUTF8(string(line), "\uFFFD"), true
}

// DefaultReadSize is the chunk size Reader requests per read.
const DefaultReadSize = 4096

// Reader pulls frames from an io.Reader with exactly one read outstanding at
// a time.
type Reader struct {
	src     io.Reader
	chunk   []byte
	r       Reassembler
	pending []string
	err     error
}

// NewReader creates a [Reader] over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, chunk: make([]byte, DefaultReadSize)}
}

// Next returns the next complete frame. It returns io.EOF after the source is
// exhausted and the remainder has been flushed, or the source's error.
func (r *Reader) Next() (string, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return "", r.err
		}
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.pending = r.r.Write(r.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if frame, ok := r.r.Flush(); ok {
					r.pending = append(r.pending, frame)
				}
			}
			r.err = err
		}
	}
	frame := r.pending[0]
	r.pending = r.pending[1:]
	return frame, nil
}
