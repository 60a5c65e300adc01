package call

import (
	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/wire"
)

// Transport header keys inspected on the routing fast path.
const (
	HeaderCallerName      = "cn"
	HeaderRoutingDelegate = "rd"
)

var ErrTooManyHeaders = errors.New("call: more than 255 transport headers")

// Header is one transport header entry.
type Header struct {
	Key   string
	Value string
}

// Headers is the ordered transport header list. Wire order is preserved and
// duplicate keys are legal.
type Headers []Header

// Get returns the value of the first header with the given key.
func (hs Headers) Get(key string) (string, bool) {
	for _, h := range hs {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func readHeaders(buf []byte, off int) (Headers, int, error) {
	n, next, err := wire.ReadU8(buf, off)
	if err != nil {
		return nil, off, err
	}
	if n == 0 {
		return nil, next, nil
	}
	hs := make(Headers, 0, n)
	for i := 0; i < int(n); i++ {
		key, after, err := wire.ReadStr1(buf, next)
		if err != nil {
			return nil, off, errors.Wrapf(err, "header %d key", i)
		}
		value, after, err := wire.ReadStr1(buf, after)
		if err != nil {
			return nil, off, errors.Wrapf(err, "header %d value", i)
		}
		hs = append(hs, Header{Key: string(key), Value: string(value)})
		next = after
	}
	return hs, next, nil
}

func writeHeaders(buf []byte, off int, hs Headers) (int, error) {
	if len(hs) > 0xff {
		return off, ErrTooManyHeaders
	}
	next, err := wire.WriteU8(buf, off, uint8(len(hs)))
	if err != nil {
		return off, err
	}
	for i, h := range hs {
		if next, err = wire.WriteStr1(buf, next, []byte(h.Key)); err != nil {
			return off, errors.Wrapf(err, "header %d key", i)
		}
		if next, err = wire.WriteStr1(buf, next, []byte(h.Value)); err != nil {
			return off, errors.Wrapf(err, "header %d value", i)
		}
	}
	return next, nil
}

func headersByteLength(hs Headers) (int, error) {
	if len(hs) > 0xff {
		return 0, ErrTooManyHeaders
	}
	total := 1
	for i, h := range hs {
		kn, err := wire.Str1Length([]byte(h.Key))
		if err != nil {
			return 0, errors.Wrapf(err, "header %d key", i)
		}
		vn, err := wire.Str1Length([]byte(h.Value))
		if err != nil {
			return 0, errors.Wrapf(err, "header %d value", i)
		}
		total += kn + vn
	}
	return total, nil
}

// skipHeaders walks the header block without materializing entries and
// returns the offset just past it.
func skipHeaders(buf []byte, off int) (int, error) {
	n, next, err := wire.ReadU8(buf, off)
	if err != nil {
		return off, err
	}
	for i := 0; i < int(n); i++ {
		if _, next, err = wire.ReadStr1(buf, next); err != nil {
			return off, errors.Wrapf(err, "header %d key", i)
		}
		if _, next, err = wire.ReadStr1(buf, next); err != nil {
			return off, errors.Wrapf(err, "header %d value", i)
		}
	}
	return next, nil
}
