package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader decodes bancho packet data from a byte slice.
// All multi-byte values are Little-Endian.
type Reader struct {
	data []byte
	pos  int
}

// Frame is one self-delimiting packet: uint16 id, pad byte, uint32 payload
// length, payload bytes.
type Frame struct {
	ID      uint16
	Payload []byte
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadFrame reads the next framed packet. Returns io.EOF when the input is
// cleanly exhausted. A header promising more payload than remains is an
// error: the rest of the request cannot be trusted after a bad length.
func (r *Reader) ReadFrame() (Frame, error) {
	if r.pos == len(r.data) {
		return Frame{}, io.EOF
	}
	if r.Remaining() < 7 {
		return Frame{}, fmt.Errorf("ReadFrame: truncated header (remaining=%d)", r.Remaining())
	}

	id := binary.LittleEndian.Uint16(r.data[r.pos:])
	length := binary.LittleEndian.Uint32(r.data[r.pos+3:])
	r.pos += 7

	if uint64(length) > uint64(r.Remaining()) {
		return Frame{}, fmt.Errorf("ReadFrame: payload length %d exceeds remaining %d", length, r.Remaining())
	}

	payload := r.data[r.pos : r.pos+int(length)]
	r.pos += int(length)
	return Frame{ID: id, Payload: payload}, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a uint16 (2 bytes, LE).
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadUint16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ReadUint32 reads a uint32 (4 bytes, LE).
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadUint32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return val, nil
}

// ReadUint64 reads a uint64 (8 bytes, LE).
func (r *Reader) ReadUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadUint64: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return val, nil
}

// ReadInt32 reads an int32 (4 bytes, LE).
func (r *Reader) ReadInt32() (int32, error) {
	val, err := r.ReadUint32()
	return int32(val), err
}

// ReadFloat32 reads an IEEE 754 float32 (4 bytes, LE).
func (r *Reader) ReadFloat32() (float32, error) {
	bits, err := r.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("ReadFloat32: %w", err)
	}
	return math.Float32frombits(bits), nil
}

// ReadString reads a bancho string: one presence byte (0x00 = empty,
// 0x0B = present), then ULEB128 byte length, then UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("ReadString: %w", err)
	}
	switch flag {
	case 0x00:
		return "", nil
	case 0x0B:
	default:
		return "", fmt.Errorf("ReadString: invalid presence flag 0x%02X", flag)
	}

	length, err := r.readULEB128()
	if err != nil {
		return "", fmt.Errorf("ReadString: %w", err)
	}
	if uint64(length) > uint64(r.Remaining()) {
		return "", fmt.Errorf("ReadString: length %d exceeds remaining %d", length, r.Remaining())
	}

	s := string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)
	return s, nil
}

// ReadIntList reads a uint16 count followed by that many int32 values.
func (r *Reader) ReadIntList() ([]int32, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("ReadIntList: %w", err)
	}
	if int(count)*4 > r.Remaining() {
		return nil, fmt.Errorf("ReadIntList: count %d exceeds remaining %d bytes", count, r.Remaining())
	}

	list := make([]int32, count)
	for i := range list {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("ReadIntList: element %d: %w", i, err)
		}
		list[i] = v
	}
	return list, nil
}

// ReadBytes reads n bytes. Zero-copy: the returned slice shares the
// underlying array, callers must not modify it.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readULEB128 decodes an unsigned LEB128 value capped at 32 bits.
func (r *Reader) readULEB128() (uint32, error) {
	var val uint32
	var shift uint
	for {
		if shift > 28 {
			return 0, fmt.Errorf("readULEB128: value exceeds 32 bits")
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("readULEB128: %w", err)
		}
		val |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return val, nil
		}
		shift += 7
	}
}
