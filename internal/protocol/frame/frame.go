package frame

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/call"
)

const (
	// HeaderSize is the fixed envelope: size:2 type:1 reserved:1 id:4 reserved:8.
	HeaderSize = 16
	// MaxSize bounds a whole frame, header included.
	MaxSize = 0xffff
)

// Type is the frame type byte. Types other than the two call types pass
// through this layer undecoded.
type Type uint8

const (
	TypeCallReq Type = 0x03
	TypeCallRes Type = 0x04
)

var (
	ErrShortHeader   = errors.New("frame: short fixed header")
	ErrSizeTooSmall  = errors.New("frame: declared size smaller than header")
	ErrFrameTooLarge = errors.New("frame: frame exceeds size limit")
	ErrTypeMismatch  = errors.New("frame: frame type mismatch")
)

// Limits constrains frame decode memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: MaxSize}
}

// Frame is one received or built wire frame: a contiguous buffer holding the
// envelope and body, plus the lazily created offset cache for call frames.
// Cont optionally links the continuation frame carrying overflow args; the
// relation is forward-only and owned by this layer.
type Frame struct {
	Type Type
	ID   uint32
	Cont *Frame

	buf  []byte
	lazy *call.Lazy
}

// Size returns the declared frame size, header included.
func (f *Frame) Size() int { return len(f.buf) }

// Body returns the frame bytes past the envelope.
func (f *Frame) Body() []byte { return f.buf[HeaderSize:] }

// Bytes returns the full frame buffer. Borrowed: valid only until the frame
// is released.
func (f *Frame) Bytes() []byte { return f.buf }

// Lazy returns the frame's lazy call reader, creating it and its offset
// cache on first use. ok=false for non-call frame types. Options apply on
// the creating call only; the reader lives as long as the frame.
func (f *Frame) Lazy(opts ...call.LazyOption) (*call.Lazy, bool) {
	if f.lazy != nil {
		return f.lazy, true
	}
	var kind call.Kind
	switch f.Type {
	case TypeCallReq:
		kind = call.KindRequest
	case TypeCallRes:
		kind = call.KindResponse
	default:
		return nil, false
	}
	f.lazy = call.NewLazy(f.buf, HeaderSize, kind, opts...)
	return f.lazy, true
}

// DecodeRequest fully decodes the body of a CallRequest frame.
func (f *Frame) DecodeRequest() (*call.Request, error) {
	if f.Type != TypeCallReq {
		return nil, errors.Wrapf(ErrTypeMismatch, "got 0x%02x want 0x%02x", uint8(f.Type), uint8(TypeCallReq))
	}
	var req call.Request
	if err := req.Decode(f.Body()); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeResponse fully decodes the body of a CallResponse frame.
func (f *Frame) DecodeResponse() (*call.Response, error) {
	if f.Type != TypeCallRes {
		return nil, errors.Wrapf(ErrTypeMismatch, "got 0x%02x want 0x%02x", uint8(f.Type), uint8(TypeCallRes))
	}
	var res call.Response
	if err := res.Decode(f.Body()); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReadFrame reads one complete frame from r into a single contiguous buffer.
func ReadFrame(r io.Reader, limits Limits) (*Frame, error) {
	var fixed [HeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	size := int(binary.BigEndian.Uint16(fixed[0:2]))
	if size < HeaderSize {
		return nil, errors.Wrapf(ErrSizeTooSmall, "declared %d", size)
	}
	if limits.MaxFrameBytes > 0 && size > limits.MaxFrameBytes {
		return nil, errors.Wrapf(ErrFrameTooLarge, "declared %d limit %d", size, limits.MaxFrameBytes)
	}

	buf := make([]byte, size)
	copy(buf, fixed[:])
	if size > HeaderSize {
		if _, err := io.ReadFull(r, buf[HeaderSize:]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, errors.Wrapf(ErrShortHeader, "body of %d bytes", size-HeaderSize)
			}
			return nil, err
		}
	}

	return &Frame{
		Type: Type(fixed[2]),
		ID:   binary.BigEndian.Uint32(fixed[4:8]),
		buf:  buf,
	}, nil
}

// WriteFrame writes the frame's buffer to w.
func WriteFrame(w io.Writer, f *Frame) error {
	_, err := w.Write(f.buf)
	return err
}

// FromBytes wraps an already-received contiguous frame buffer.
func FromBytes(buf []byte) (*Frame, error) {
	if len(buf) < HeaderSize {
		return nil, ErrShortHeader
	}
	size := int(binary.BigEndian.Uint16(buf[0:2]))
	if size < HeaderSize {
		return nil, errors.Wrapf(ErrSizeTooSmall, "declared %d", size)
	}
	if size > len(buf) {
		return nil, errors.Wrapf(ErrShortHeader, "declared %d have %d", size, len(buf))
	}
	return &Frame{
		Type: Type(buf[2]),
		ID:   binary.BigEndian.Uint32(buf[4:8]),
		buf:  buf[:size],
	}, nil
}

// NewRequestFrame sizes and encodes req into a fresh frame. more raises the
// Fragment bit while args are written.
func NewRequestFrame(id uint32, req *call.Request, more bool) (*Frame, error) {
	n, err := req.ByteLength()
	if err != nil {
		return nil, err
	}
	buf, err := newFrameBuf(TypeCallReq, id, n)
	if err != nil {
		return nil, err
	}
	if _, err := req.Encode(buf[HeaderSize:], more); err != nil {
		return nil, err
	}
	return &Frame{Type: TypeCallReq, ID: id, buf: buf}, nil
}

// NewResponseFrame sizes and encodes res into a fresh frame.
func NewResponseFrame(id uint32, res *call.Response, more bool) (*Frame, error) {
	n, err := res.ByteLength()
	if err != nil {
		return nil, err
	}
	buf, err := newFrameBuf(TypeCallRes, id, n)
	if err != nil {
		return nil, err
	}
	if _, err := res.Encode(buf[HeaderSize:], more); err != nil {
		return nil, err
	}
	return &Frame{Type: TypeCallRes, ID: id, buf: buf}, nil
}

func newFrameBuf(t Type, id uint32, bodyLen int) ([]byte, error) {
	size := HeaderSize + bodyLen
	if size > MaxSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "body of %d bytes", bodyLen)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf[0:2], uint16(size))
	buf[2] = uint8(t)
	binary.BigEndian.PutUint32(buf[4:8], id)
	return buf, nil
}
