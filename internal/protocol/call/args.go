package call

import (
	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/wire"
)

var ErrTrailingBytes = errors.New("call: trailing bytes after body")

// readArgs consumes the rest of buf as a packed arg2 sequence. The decoded
// args own their bytes. A single leftover byte cannot start an arg and is
// reported as trailing garbage.
func readArgs(buf []byte, off int) ([][]byte, int, error) {
	var args [][]byte
	for off < len(buf) {
		if len(buf)-off < 2 {
			return nil, off, errors.Wrapf(ErrTrailingBytes, "%d bytes at offset %d", len(buf)-off, off)
		}
		view, next, err := wire.ReadArg2(buf, off)
		if err != nil {
			return nil, off, errors.Wrapf(err, "arg %d", len(args))
		}
		arg := make([]byte, len(view))
		copy(arg, view)
		args = append(args, arg)
		off = next
	}
	return args, off, nil
}

// writeArgs packs args at off. When more is set the caller is emitting a
// non-final body of a larger logical call, so the Fragment bit is raised
// here; the body writer stamps the flags byte afterwards.
func writeArgs(buf []byte, off int, args [][]byte, more bool) (int, Flags, error) {
	var flags Flags
	next := off
	var err error
	for i, arg := range args {
		if next, err = wire.WriteArg2(buf, next, arg); err != nil {
			return off, 0, errors.Wrapf(err, "arg %d", i)
		}
	}
	if more {
		flags |= FlagFragment
	}
	return next, flags, nil
}

func argsByteLength(args [][]byte) (int, error) {
	total := 0
	for i, arg := range args {
		n, err := wire.Arg2Length(arg)
		if err != nil {
			return 0, errors.Wrapf(err, "arg %d", i)
		}
		total += n
	}
	return total, nil
}
