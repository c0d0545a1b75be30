package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Encode returns tag ++ body for m.
func Encode(m Message) []byte {
	out := make([]byte, 0, 1+m.bodySize())
	out = append(out, byte(m.Type()))
	return m.appendBody(out)
}

// Decode parses buf as a message of type t. Extra trailing bytes are ignored.
func Decode(t Type, buf []byte) (Message, error) {
	size, ok := BodySize(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	if len(buf) < 1+size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrNotEnoughData, t, 1+size, len(buf))
	}
	if Type(buf[0]) != t {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidType, t, Type(buf[0]))
	}
	return decodeBody(t, buf[1:1+size])
}

// DecodeNext parses the message at the head of buf, using its tag to pick the
// layout, and reports how many bytes it consumed.
func DecodeNext(buf []byte) (Message, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("%w: empty buffer", ErrNotEnoughData)
	}
	t := Type(buf[0])
	m, err := Decode(t, buf)
	if err != nil {
		return nil, 0, err
	}
	return m, 1 + m.bodySize(), nil
}

// DecodeStream decodes every complete message in buf and returns the leftover
// bytes of a trailing partial message. An unknown tag is fatal.
func DecodeStream(buf []byte) ([]Message, []byte, error) {
	var out []Message
	for len(buf) > 0 {
		m, n, err := DecodeNext(buf)
		if errors.Is(err, ErrNotEnoughData) {
			break
		}
		if err != nil {
			return out, buf, err
		}
		out = append(out, m)
		buf = buf[n:]
	}
	return out, buf, nil
}

// Reader reads one framed message at a time from a byte stream.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), buf: make([]byte, 0, 64)}
}

// ReadMessage blocks until a full message is available. A stream that ends
// inside a message yields ErrNotEnoughData; a clean end yields io.EOF.
func (r *Reader) ReadMessage() (Message, error) {
	tag, err := r.r.ReadByte()
	if err != nil {
		return nil, err
	}
	t := Type(tag)
	size, ok := BodySize(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	r.buf = append(r.buf[:0], tag)
	r.buf = append(r.buf, make([]byte, size)...)
	if _, err := io.ReadFull(r.r, r.buf[1:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ended inside %s", ErrNotEnoughData, t)
		}
		return nil, err
	}
	return Decode(t, r.buf)
}

func appendFixed(dst []byte, s string, width int) []byte {
	n := len(s)
	if n > width {
		n = width
	}
	dst = append(dst, s[:n]...)
	for i := n; i < width; i++ {
		dst = append(dst, 0)
	}
	return dst
}

func readFixed(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
