// Package mbox implements a streaming reader over a flat mbox archive.
//
// The archive is a single concatenated file where each message is preceded
// by a line beginning with "From ". Boundary detection is a plain prefix
// match: no envelope-line grammar is applied and no >From quoting is assumed
// on input, so a body line that happens to start with "From " is a known
// false positive of the format. Every emitted message carries its exact byte
// extent (offset and length, boundary line included); concatenating all
// extents in order reproduces the archive byte-for-byte.
package mbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const maxLineBytes = 32 << 20 // 32 MiB

// Message is a single message cut out of the archive.
type Message struct {
	// Offset is the byte position of the message's "From " boundary line
	// (or of the start of the stream for leading unmarked content).
	Offset int64

	// Length is the total byte length up to the next boundary or EOF.
	// Length == len(Raw) always holds.
	Length int64

	// Raw holds the message bytes, boundary line included.
	Raw []byte
}

type offsetReader struct {
	r io.Reader
	n int64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	o.n += int64(n)
	return n, err
}

// Reader reads messages from an mbox stream one at a time. It is a
// forward-only, non-restartable pass; it never buffers more than a single
// message.
type Reader struct {
	or *offsetReader
	br *bufio.Reader

	buf   bytes.Buffer
	start int64
	eof   bool
}

var fromPrefix = []byte("From ")

// NewReader creates a Reader positioned at the start of the stream.
func NewReader(r io.Reader) *Reader {
	or := &offsetReader{r: r}
	return &Reader{
		or: or,
		br: bufio.NewReaderSize(or, 64<<10),
	}
}

// Offset reports the logical read position within the stream, accounting for
// buffered data.
func (r *Reader) Offset() int64 {
	return r.or.n - int64(r.br.Buffered())
}

// Next returns the next message. It returns io.EOF when the stream is
// exhausted. A "From " line closes the accumulated message only when the
// accumulator is non-empty, so content before the first boundary line
// becomes part of the first message rather than being dropped.
func (r *Reader) Next() (*Message, error) {
	if r.eof {
		return nil, io.EOF
	}

	for {
		lineStart := r.Offset()
		line, err := r.readLineBytes()

		if len(line) > 0 {
			if bytes.HasPrefix(line, fromPrefix) && r.buf.Len() > 0 {
				msg := r.cut()
				r.start = lineStart
				r.buf.Write(line)
				return msg, nil
			}
			if r.buf.Len() == 0 {
				r.start = lineStart
			}
			r.buf.Write(line)
		}

		if err != nil {
			if err == io.EOF {
				r.eof = true
				if r.buf.Len() > 0 {
					return r.cut(), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

func (r *Reader) cut() *Message {
	raw := make([]byte, r.buf.Len())
	copy(raw, r.buf.Bytes())
	r.buf.Reset()
	return &Message{
		Offset: r.start,
		Length: int64(len(raw)),
		Raw:    raw,
	}
}

func (r *Reader) readLineBytes() ([]byte, error) {
	// ReadBytes returns bufio.ErrBufferFull when the buffer fills before
	// finding the delimiter. Treat that as a partial line and keep going.
	var out []byte
	for {
		b, err := r.br.ReadBytes('\n')
		out = append(out, b...)
		if len(out) > maxLineBytes {
			return nil, fmt.Errorf("mbox line exceeds max length (%d bytes)", maxLineBytes)
		}
		if err == nil {
			return out, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == io.EOF {
			return out, io.EOF
		}
		return out, err
	}
}

// StripFromLine removes the leading "From " boundary line from raw message
// bytes so the remainder parses as an RFC 5322 message. Raw bytes that do
// not start with a boundary line are returned unchanged.
func StripFromLine(raw []byte) []byte {
	if !bytes.HasPrefix(raw, fromPrefix) {
		return raw
	}
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return raw[i+1:]
	}
	return nil
}

// Validate reads up to maxBytes from the stream and reports an error if no
// "From " boundary line is found. This is a cheap heuristic sanity check.
func Validate(r io.Reader, maxBytes int64) error {
	if maxBytes <= 0 {
		return fmt.Errorf("maxBytes must be > 0")
	}
	br := bufio.NewReader(io.LimitReader(r, maxBytes))
	for {
		line, err := br.ReadBytes('\n')
		if bytes.HasPrefix(line, fromPrefix) {
			return nil
		}
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("no \"From \" separators found (not an mbox file?)")
			}
			return err
		}
	}
}
