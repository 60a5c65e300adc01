package call

import (
	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/checksum"
	"github.com/farcall/farcall/internal/protocol/tracing"
	"github.com/farcall/farcall/internal/protocol/wire"
)

// Request is a decoded CallRequest body.
//
// Wire layout:
//
//	flags:1 ttl:4 tracing:25 service~1 nh:1 (hk~1 hv~1){nh} csumtype:1 (csum:w){0|1} (arg~2)*
type Request struct {
	Flags    Flags
	TTL      uint32 // milliseconds, always positive
	Tracing  tracing.Span
	Service  string
	Headers  Headers
	Checksum checksum.Checksum
	Args     [][]byte
}

// ByteLength returns the encoded body size. It fails the same way Encode
// would on oversized fields, so a successful sizing guarantees Encode fits.
func (r *Request) ByteLength() (int, error) {
	if r.TTL == 0 {
		return 0, ErrInvalidTTL
	}
	total := 1 + 4 + tracing.Length
	n, err := wire.Str1Length([]byte(r.Service))
	if err != nil {
		return 0, errors.Wrap(err, "service")
	}
	total += n
	if n, err = headersByteLength(r.Headers); err != nil {
		return 0, err
	}
	total += n
	if n, err = checksumByteLength(r.Checksum); err != nil {
		return 0, err
	}
	total += n
	if n, err = argsByteLength(r.Args); err != nil {
		return 0, err
	}
	return total + n, nil
}

// Encode writes the body into buf and returns the bytes written. The flags
// byte is reserved first and stamped last: writing args may raise the
// Fragment bit when more bodies of the logical call follow.
func (r *Request) Encode(buf []byte, more bool) (int, error) {
	if r.TTL == 0 {
		return 0, ErrInvalidTTL
	}
	next, err := wire.WriteU32(buf, 1, r.TTL)
	if err != nil {
		return 0, errors.Wrap(err, "ttl")
	}
	if next, err = r.Tracing.WriteInto(buf, next); err != nil {
		return 0, errors.Wrap(err, "tracing")
	}
	if next, err = wire.WriteStr1(buf, next, []byte(r.Service)); err != nil {
		return 0, errors.Wrap(err, "service")
	}
	if next, err = writeHeaders(buf, next, r.Headers); err != nil {
		return 0, err
	}
	if next, err = writeChecksum(buf, next, r.Checksum); err != nil {
		return 0, err
	}
	next, raised, err := writeArgs(buf, next, r.Args, more)
	if err != nil {
		return 0, err
	}
	if _, err = wire.WriteU8(buf, 0, uint8(r.Flags|raised)); err != nil {
		return 0, errors.Wrap(err, "flags")
	}
	return next, nil
}

// EncodeBytes sizes and encodes the body into a fresh buffer.
func (r *Request) EncodeBytes(more bool) ([]byte, error) {
	n, err := r.ByteLength()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := r.Encode(buf, more); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode reads a full body from buf. Every byte must be consumed.
func (r *Request) Decode(buf []byte) error {
	flags, next, err := wire.ReadU8(buf, 0)
	if err != nil {
		return errors.Wrap(err, "flags")
	}
	ttl, next, err := wire.ReadU32(buf, next)
	if err != nil {
		return errors.Wrap(err, "ttl")
	}
	if ttl == 0 {
		return errors.Wrap(ErrInvalidTTL, "at offset 1")
	}
	span, next, err := tracing.ReadFrom(buf, next)
	if err != nil {
		return errors.Wrap(err, "tracing")
	}
	service, next, err := wire.ReadStr1(buf, next)
	if err != nil {
		return errors.Wrap(err, "service")
	}
	headers, next, err := readHeaders(buf, next)
	if err != nil {
		return err
	}
	csum, next, err := readChecksum(buf, next)
	if err != nil {
		return err
	}
	args, _, err := readArgs(buf, next)
	if err != nil {
		return err
	}

	r.Flags = Flags(flags)
	r.TTL = ttl
	r.Tracing = span
	r.Service = string(service)
	r.Headers = headers
	r.Checksum = csum
	r.Args = args
	return nil
}
