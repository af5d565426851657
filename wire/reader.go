package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

var errShortBuffer = errors.New("wire: frame truncated")

// reader is a bounds-checked cursor over a frame buffer. Unlike
// zre/msg, which reads via encoding/binary.Read and discards the
// error, every read here fails loudly the instant the frame doesn't
// have enough bytes left, so a truncated frame is rejected instead of
// silently handed to the caller half-zeroed.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) int64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *reader) float32() (float32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// string reads a 1-byte-length-prefixed string (putString's counterpart).
func (r *reader) string() (string, error) {
	size, err := r.uint8()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(size))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// bytes reads a 4-byte-length-prefixed byte slice (putBytes's counterpart).
func (r *reader) bytes() ([]byte, error) {
	size, err := r.uint32()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(size))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// float32s reads a 4-byte-length-prefixed (count) vector of float32s.
func (r *reader) float32s() ([]float32, error) {
	count, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]float32, count)
	for i := range out {
		if out[i], err = r.float32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *reader) optionalFloat32() (*float32, error) {
	present, err := r.uint8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	v, err := r.float32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *reader) optionalInt64() (*int64, error) {
	present, err := r.uint8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	v, err := r.int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// putString marshals a string into the buffer, truncating to
// stringMax as zre/msg's putString does for its 1-byte length prefix.
func putString(buf *bytes.Buffer, s string) {
	size := len(s)
	if size > stringMax {
		size = stringMax
	}
	binary.Write(buf, binary.BigEndian, byte(size))
	buf.WriteString(s[:size])
}

// putBytes marshals a length-prefixed byte slice.
func putBytes(buf *bytes.Buffer, data []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

func putFloat32s(buf *bytes.Buffer, vals []float32) {
	binary.Write(buf, binary.BigEndian, uint32(len(vals)))
	for _, v := range vals {
		binary.Write(buf, binary.BigEndian, v)
	}
}

func putOptionalFloat32(buf *bytes.Buffer, v *float32) {
	if v == nil {
		binary.Write(buf, binary.BigEndian, byte(0))
		return
	}
	binary.Write(buf, binary.BigEndian, byte(1))
	binary.Write(buf, binary.BigEndian, *v)
}

func putOptionalInt64(buf *bytes.Buffer, v *int64) {
	if v == nil {
		binary.Write(buf, binary.BigEndian, byte(0))
		return
	}
	binary.Write(buf, binary.BigEndian, byte(1))
	binary.Write(buf, binary.BigEndian, *v)
}
