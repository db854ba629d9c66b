package protocol

import (
	"encoding/binary"
	"math"
)

// Writer builds bancho packet bytes. All multi-byte values are
// Little-Endian. The zero value is not usable, use NewWriter or NewPacket.
type Writer struct {
	buf    []byte
	framed bool
}

// NewWriter creates a writer for raw payload bytes (no frame header).
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// NewPacket creates a writer with a 7-byte frame header for the given
// packet id already written. Finish patches the payload length in.
func NewPacket(id uint16) *Writer {
	w := &Writer{buf: make([]byte, 7, 32), framed: true}
	binary.LittleEndian.PutUint16(w.buf, id)
	return w
}

// Finish returns the completed packet bytes. For framed writers the
// payload length field is filled in first.
func (w *Writer) Finish() []byte {
	if w.framed {
		binary.LittleEndian.PutUint32(w.buf[3:], uint32(len(w.buf)-7))
	}
	return w.buf
}

// WriteByte appends a single byte. The error is always nil, the
// signature satisfies io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteUint16 appends a uint16 (2 bytes, LE).
func (w *Writer) WriteUint16(val uint16) {
	w.buf = append(w.buf, byte(val), byte(val>>8))
}

// WriteUint32 appends a uint32 (4 bytes, LE).
func (w *Writer) WriteUint32(val uint32) {
	w.buf = append(w.buf, byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
}

// WriteUint64 appends a uint64 (8 bytes, LE).
func (w *Writer) WriteUint64(val uint64) {
	w.buf = append(w.buf,
		byte(val), byte(val>>8), byte(val>>16), byte(val>>24),
		byte(val>>32), byte(val>>40), byte(val>>48), byte(val>>56))
}

// WriteInt32 appends an int32 (4 bytes, LE).
func (w *Writer) WriteInt32(val int32) {
	w.WriteUint32(uint32(val))
}

// WriteFloat32 appends an IEEE 754 float32 (4 bytes, LE).
func (w *Writer) WriteFloat32(val float32) {
	w.WriteUint32(math.Float32bits(val))
}

// WriteString appends a bancho string: 0x00 for empty, otherwise 0x0B,
// ULEB128 byte length, UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	if len(s) == 0 {
		w.buf = append(w.buf, 0x00)
		return
	}
	w.buf = append(w.buf, 0x0B)
	w.writeULEB128(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteIntList appends a uint16 count followed by the int32 values.
func (w *Writer) WriteIntList(list []int32) {
	w.WriteUint16(uint16(len(list)))
	for _, v := range list {
		w.WriteInt32(v)
	}
}

// WriteBytes appends raw bytes as-is.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated bytes without finishing the frame.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) writeULEB128(val uint32) {
	for val >= 0x80 {
		w.buf = append(w.buf, byte(val)|0x80)
		val >>= 7
	}
	w.buf = append(w.buf, byte(val))
}
