package call

import (
	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/checksum"
	"github.com/farcall/farcall/internal/protocol/wire"
)

// Flags is the body flags byte. Only the Fragment bit is interpreted here;
// the remaining bits round-trip untouched.
type Flags uint8

const FlagFragment Flags = 0x01

var (
	ErrInvalidTTL  = errors.New("call: ttl must be positive")
	ErrDigestWidth = errors.New("call: checksum digest width mismatch")
)

func readChecksum(buf []byte, off int) (checksum.Checksum, int, error) {
	tag, next, err := wire.ReadU8(buf, off)
	if err != nil {
		return checksum.Checksum{}, off, err
	}
	c := checksum.Checksum{Type: checksum.Type(tag)}
	width, err := c.Type.Width()
	if err != nil {
		return checksum.Checksum{}, off, errors.Wrapf(err, "at offset %d", off)
	}
	if width == 0 {
		return c, next, nil
	}
	if len(buf)-next < width {
		return checksum.Checksum{}, off, errors.Wrapf(wire.ErrBufferTooShort, "checksum digest at offset %d", next)
	}
	c.Digest = make([]byte, width)
	copy(c.Digest, buf[next:next+width])
	return c, next + width, nil
}

func writeChecksum(buf []byte, off int, c checksum.Checksum) (int, error) {
	width, err := c.Type.Width()
	if err != nil {
		return off, err
	}
	if len(c.Digest) != width {
		return off, errors.Wrapf(ErrDigestWidth, "tag 0x%02x carries %d bytes, want %d", uint8(c.Type), len(c.Digest), width)
	}
	next, err := wire.WriteU8(buf, off, uint8(c.Type))
	if err != nil {
		return off, err
	}
	if width == 0 {
		return next, nil
	}
	if len(buf)-next < width {
		return off, errors.Wrapf(wire.ErrBufferTooShort, "checksum digest at offset %d", next)
	}
	copy(buf[next:], c.Digest)
	return next + width, nil
}

func checksumByteLength(c checksum.Checksum) (int, error) {
	width, err := c.Type.Width()
	if err != nil {
		return 0, err
	}
	return 1 + width, nil
}
