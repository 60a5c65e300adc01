package call

import (
	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/checksum"
	"github.com/farcall/farcall/internal/protocol/tracing"
	"github.com/farcall/farcall/internal/protocol/wire"
)

// Response codes. Codes beyond these two pass through undecoded.
const (
	CodeOK    uint8 = 0x00
	CodeError uint8 = 0x01
)

// Response is a decoded CallResponse body.
//
// Wire layout:
//
//	flags:1 code:1 tracing:25 nh:1 (hk~1 hv~1){nh} csumtype:1 (csum:w){0|1} (arg~2)*
type Response struct {
	Flags    Flags
	Code     uint8
	Tracing  tracing.Span
	Headers  Headers
	Checksum checksum.Checksum
	Args     [][]byte
}

func (r *Response) ByteLength() (int, error) {
	total := 1 + 1 + tracing.Length
	n, err := headersByteLength(r.Headers)
	if err != nil {
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

// Encode writes the body into buf, stamping the flags byte after args the
// same way the request writer does.
func (r *Response) Encode(buf []byte, more bool) (int, error) {
	next, err := wire.WriteU8(buf, 1, r.Code)
	if err != nil {
		return 0, errors.Wrap(err, "code")
	}
	if next, err = r.Tracing.WriteInto(buf, next); err != nil {
		return 0, errors.Wrap(err, "tracing")
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

func (r *Response) EncodeBytes(more bool) ([]byte, error) {
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

func (r *Response) Decode(buf []byte) error {
	flags, next, err := wire.ReadU8(buf, 0)
	if err != nil {
		return errors.Wrap(err, "flags")
	}
	code, next, err := wire.ReadU8(buf, next)
	if err != nil {
		return errors.Wrap(err, "code")
	}
	span, next, err := tracing.ReadFrom(buf, next)
	if err != nil {
		return errors.Wrap(err, "tracing")
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
	r.Code = code
	r.Tracing = span
	r.Headers = headers
	r.Checksum = csum
	r.Args = args
	return nil
}
