package checksum

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	farm "github.com/dgryski/go-farm"
	"github.com/pkg/errors"
)

// Type is the 1-byte checksum tag carried on the wire. The tag space is a
// closed enumeration; every known tag has a fixed digest width.
type Type uint8

const (
	None     Type = 0x00
	CRC32    Type = 0x01
	Farmhash Type = 0x02
	CRC32C   Type = 0x03
)

var (
	ErrUnknownType = errors.New("checksum: unknown checksum type")
	ErrMismatch    = errors.New("checksum: digest mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Width returns the digest width in bytes for the tag.
func (t Type) Width() (int, error) {
	switch t {
	case None:
		return 0, nil
	case CRC32, Farmhash, CRC32C:
		return 4, nil
	default:
		return 0, errors.Wrapf(ErrUnknownType, "tag 0x%02x", uint8(t))
	}
}

// Checksum is a decoded checksum field: the tag and, for tags other than
// None, a digest of exactly Width bytes.
type Checksum struct {
	Type   Type
	Digest []byte
}

// Compute produces the digest of args under tag t, treating args as one
// contiguous byte sequence.
func Compute(t Type, args [][]byte) ([]byte, error) {
	switch t {
	case None:
		return nil, nil
	case CRC32:
		var sum uint32
		for _, arg := range args {
			sum = crc32.Update(sum, crc32.IEEETable, arg)
		}
		return digestBytes(sum), nil
	case CRC32C:
		var sum uint32
		for _, arg := range args {
			sum = crc32.Update(sum, castagnoli, arg)
		}
		return digestBytes(sum), nil
	case Farmhash:
		// Fingerprint32 is not incremental; hash the joined args.
		return digestBytes(farm.Fingerprint32(bytes.Join(args, nil))), nil
	default:
		return nil, errors.Wrapf(ErrUnknownType, "tag 0x%02x", uint8(t))
	}
}

// Verify recomputes the digest over args and compares it to c.Digest.
func (c Checksum) Verify(args [][]byte) error {
	want, err := Compute(c.Type, args)
	if err != nil {
		return err
	}
	if !bytes.Equal(c.Digest, want) {
		return errors.Wrapf(ErrMismatch, "tag 0x%02x", uint8(c.Type))
	}
	return nil
}

func digestBytes(sum uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, sum)
	return buf
}
