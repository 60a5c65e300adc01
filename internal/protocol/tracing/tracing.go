package tracing

import (
	"github.com/farcall/farcall/internal/protocol/wire"
)

// Length is the fixed wire size of a tracing record.
const Length = 25

const FlagEnabled uint8 = 0x01

// Span is the tracing record carried by every call body:
// spanid(8) parentid(8) traceid(8) flags(1). Each id travels as a
// high-then-low u32 pair, which is byte-identical to one big-endian u64.
type Span struct {
	SpanID   uint64
	ParentID uint64
	TraceID  uint64
	Flags    uint8
}

func (s Span) WriteInto(buf []byte, off int) (int, error) {
	next, err := writeID(buf, off, s.SpanID)
	if err != nil {
		return off, err
	}
	if next, err = writeID(buf, next, s.ParentID); err != nil {
		return off, err
	}
	if next, err = writeID(buf, next, s.TraceID); err != nil {
		return off, err
	}
	if next, err = wire.WriteU8(buf, next, s.Flags); err != nil {
		return off, err
	}
	return next, nil
}

func ReadFrom(buf []byte, off int) (Span, int, error) {
	var s Span
	var err error
	next := off
	if s.SpanID, next, err = readID(buf, next); err != nil {
		return Span{}, off, err
	}
	if s.ParentID, next, err = readID(buf, next); err != nil {
		return Span{}, off, err
	}
	if s.TraceID, next, err = readID(buf, next); err != nil {
		return Span{}, off, err
	}
	if s.Flags, next, err = wire.ReadU8(buf, next); err != nil {
		return Span{}, off, err
	}
	return s, next, nil
}

func writeID(buf []byte, off int, id uint64) (int, error) {
	next, err := wire.WriteU32(buf, off, uint32(id>>32))
	if err != nil {
		return off, err
	}
	return wire.WriteU32(buf, next, uint32(id))
}

func readID(buf []byte, off int) (uint64, int, error) {
	hi, next, err := wire.ReadU32(buf, off)
	if err != nil {
		return 0, off, err
	}
	lo, next, err := wire.ReadU32(buf, next)
	if err != nil {
		return 0, off, err
	}
	return uint64(hi)<<32 | uint64(lo), next, nil
}
