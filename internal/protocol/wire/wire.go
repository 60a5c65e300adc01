package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrBufferTooShort = errors.New("wire: buffer too short")
	ErrLengthOverflow = errors.New("wire: length overflow")
)

// Readers take a buffer and an offset and return the decoded value plus the
// offset just past it. Variable-length readers return a view into buf; the
// caller copies if the value must outlive the buffer.

func ReadU8(buf []byte, off int) (uint8, int, error) {
	if off < 0 || len(buf)-off < 1 {
		return 0, off, errors.Wrapf(ErrBufferTooShort, "u8 at offset %d", off)
	}
	return buf[off], off + 1, nil
}

func ReadU16(buf []byte, off int) (uint16, int, error) {
	if off < 0 || len(buf)-off < 2 {
		return 0, off, errors.Wrapf(ErrBufferTooShort, "u16 at offset %d", off)
	}
	return binary.BigEndian.Uint16(buf[off:]), off + 2, nil
}

func ReadU32(buf []byte, off int) (uint32, int, error) {
	if off < 0 || len(buf)-off < 4 {
		return 0, off, errors.Wrapf(ErrBufferTooShort, "u32 at offset %d", off)
	}
	return binary.BigEndian.Uint32(buf[off:]), off + 4, nil
}

// ReadStr1 reads a 1-byte length prefix followed by that many bytes.
func ReadStr1(buf []byte, off int) ([]byte, int, error) {
	n, next, err := ReadU8(buf, off)
	if err != nil {
		return nil, off, err
	}
	if len(buf)-next < int(n) {
		return nil, off, errors.Wrapf(ErrBufferTooShort, "str1 value at offset %d", next)
	}
	return buf[next : next+int(n)], next + int(n), nil
}

// ReadArg2 reads a 2-byte big-endian length prefix followed by that many bytes.
func ReadArg2(buf []byte, off int) ([]byte, int, error) {
	n, next, err := ReadU16(buf, off)
	if err != nil {
		return nil, off, err
	}
	if len(buf)-next < int(n) {
		return nil, off, errors.Wrapf(ErrBufferTooShort, "arg2 value at offset %d", next)
	}
	return buf[next : next+int(n)], next + int(n), nil
}

func WriteU8(buf []byte, off int, v uint8) (int, error) {
	if off < 0 || len(buf)-off < 1 {
		return off, errors.Wrapf(ErrBufferTooShort, "u8 at offset %d", off)
	}
	buf[off] = v
	return off + 1, nil
}

func WriteU16(buf []byte, off int, v uint16) (int, error) {
	if off < 0 || len(buf)-off < 2 {
		return off, errors.Wrapf(ErrBufferTooShort, "u16 at offset %d", off)
	}
	binary.BigEndian.PutUint16(buf[off:], v)
	return off + 2, nil
}

func WriteU32(buf []byte, off int, v uint32) (int, error) {
	if off < 0 || len(buf)-off < 4 {
		return off, errors.Wrapf(ErrBufferTooShort, "u32 at offset %d", off)
	}
	binary.BigEndian.PutUint32(buf[off:], v)
	return off + 4, nil
}

func WriteStr1(buf []byte, off int, v []byte) (int, error) {
	if len(v) > 0xff {
		return off, errors.Wrapf(ErrLengthOverflow, "str1 of %d bytes", len(v))
	}
	next, err := WriteU8(buf, off, uint8(len(v)))
	if err != nil {
		return off, err
	}
	if len(buf)-next < len(v) {
		return off, errors.Wrapf(ErrBufferTooShort, "str1 value at offset %d", next)
	}
	copy(buf[next:], v)
	return next + len(v), nil
}

func WriteArg2(buf []byte, off int, v []byte) (int, error) {
	if len(v) > 0xffff {
		return off, errors.Wrapf(ErrLengthOverflow, "arg2 of %d bytes", len(v))
	}
	next, err := WriteU16(buf, off, uint16(len(v)))
	if err != nil {
		return off, err
	}
	if len(buf)-next < len(v) {
		return off, errors.Wrapf(ErrBufferTooShort, "arg2 value at offset %d", next)
	}
	copy(buf[next:], v)
	return next + len(v), nil
}

// Str1Length returns the encoded size of v as a str1, length prefix included.
func Str1Length(v []byte) (int, error) {
	if len(v) > 0xff {
		return 0, errors.Wrapf(ErrLengthOverflow, "str1 of %d bytes", len(v))
	}
	return 1 + len(v), nil
}

// Arg2Length returns the encoded size of v as an arg2, length prefix included.
func Arg2Length(v []byte) (int, error) {
	if len(v) > 0xffff {
		return 0, errors.Wrapf(ErrLengthOverflow, "arg2 of %d bytes", len(v))
	}
	return 2 + len(v), nil
}
