package call

import (
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/farcall/farcall/internal/protocol/checksum"
	"github.com/farcall/farcall/internal/protocol/tracing"
	"github.com/farcall/farcall/internal/protocol/wire"
)

// Kind selects the body layout a lazy reader walks.
type Kind int

const (
	KindRequest Kind = iota
	KindResponse
)

var (
	ErrInvalidUTF8 = errors.New("call: invalid utf-8 in string field")
	ErrWrongKind   = errors.New("call: field not present on this frame kind")
)

// Fast-path transport header keys, compared as big-endian u16. The scan
// dispatches on this pair; new fast-path keys extend the switch in ensureScan.
const (
	keyCallerName      uint16 = uint16('c')<<8 | uint16('n')
	keyRoutingDelegate uint16 = uint16('r')<<8 | uint16('d')
)

// Fixed field offsets relative to the body start.
const (
	reqTTLOff     = 1
	reqTracingOff = 5
	reqServiceOff = 5 + tracing.Length
	resCodeOff    = 1
	resTracingOff = 2
	resHeadersOff = 2 + tracing.Length
)

// Lazy extracts single fields straight out of a framed call buffer,
// memoizing computed offsets so repeated access is O(1). Accessors never
// fail loudly: when the buffer is truncated or malformed they return their
// zero value with ok=false and record the reason on the cache. An ok=false
// with a nil LastError means the field is legitimately absent.
//
// A Lazy must not outlive the frame buffer it wraps.
type Lazy struct {
	buf        []byte
	bodyOff    int
	kind       Kind
	rawStrings bool
	cache      Cache
}

// LazyOption adjusts lazy reader behavior.
type LazyOption func(*Lazy)

// WithRawStrings forwards non-UTF-8 bytes as raw strings instead of treating
// them as unavailable. Compatibility switch for callers that route on opaque
// service bytes.
func WithRawStrings() LazyOption {
	return func(l *Lazy) { l.rawStrings = true }
}

// NewLazy wraps a full frame buffer whose call body starts at bodyOff.
func NewLazy(buf []byte, bodyOff int, kind Kind, opts ...LazyOption) *Lazy {
	l := &Lazy{buf: buf, bodyOff: bodyOff, kind: kind, cache: newCache()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LastError returns the most recent reason an accessor gave up.
func (l *Lazy) LastError() error { return l.cache.LastError() }

// Flags reads the body flags byte.
func (l *Lazy) Flags() (Flags, bool) {
	v, _, err := wire.ReadU8(l.buf, l.bodyOff)
	if err != nil {
		l.cache.lastErr = err
		return 0, false
	}
	return Flags(v), true
}

// IsTerminal reports whether this is the final body of its logical call.
// An unreadable flags byte counts as terminal; LastError tells them apart.
func (l *Lazy) IsTerminal() bool {
	flags, ok := l.Flags()
	return !ok || flags&FlagFragment == 0
}

// TTL reads the request ttl. Cached after the first call.
func (l *Lazy) TTL() (uint32, bool) {
	if l.kind != KindRequest {
		l.cache.lastErr = errors.Wrap(ErrWrongKind, "ttl")
		return 0, false
	}
	if l.cache.ttl != nil {
		return *l.cache.ttl, true
	}
	v, _, err := wire.ReadU32(l.buf, l.bodyOff+reqTTLOff)
	if err != nil {
		l.cache.lastErr = err
		return 0, false
	}
	if v == 0 {
		l.cache.lastErr = ErrInvalidTTL
		return 0, false
	}
	l.cache.ttl = &v
	return v, true
}

// TracingBytes returns the raw 25-byte tracing record as a view into the
// frame buffer.
func (l *Lazy) TracingBytes() ([]byte, bool) {
	off := l.bodyOff + l.tracingOff()
	if off < 0 || len(l.buf)-off < tracing.Length {
		l.cache.lastErr = errors.Wrapf(wire.ErrBufferTooShort, "tracing at offset %d", off)
		return nil, false
	}
	return l.buf[off : off+tracing.Length], true
}

// Tracing decodes the tracing record. Cached after the first call.
func (l *Lazy) Tracing() (tracing.Span, bool) {
	if l.cache.tracing != nil {
		return *l.cache.tracing, true
	}
	span, _, err := tracing.ReadFrom(l.buf, l.bodyOff+l.tracingOff())
	if err != nil {
		l.cache.lastErr = err
		return tracing.Span{}, false
	}
	l.cache.tracing = &span
	return span, true
}

// ServiceBytes returns the service name bytes as a view into the frame
// buffer. A zero-length service is a valid result.
func (l *Lazy) ServiceBytes() ([]byte, bool) {
	if l.kind != KindRequest {
		l.cache.lastErr = errors.Wrap(ErrWrongKind, "service")
		return nil, false
	}
	v, _, err := wire.ReadStr1(l.buf, l.bodyOff+reqServiceOff)
	if err != nil {
		l.cache.lastErr = err
		return nil, false
	}
	return v, true
}

// Service decodes the service name. Cached after the first call.
func (l *Lazy) Service() (string, bool) {
	if l.cache.service.state == slotValue {
		return l.cache.service.val, true
	}
	raw, ok := l.ServiceBytes()
	if !ok {
		return "", false
	}
	s, ok := l.toString(raw, "service")
	if !ok {
		return "", false
	}
	l.cache.service = strSlot{state: slotValue, val: s}
	return s, true
}

// Headers materializes the transport header list in wire order. The header
// block start is cached; entries are re-walked per call.
func (l *Lazy) Headers() (Headers, bool) {
	start, ok := l.ensureHeaderStart()
	if !ok {
		return nil, false
	}
	hs, _, err := readHeaders(l.buf, start)
	if err != nil {
		l.cache.lastErr = err
		return nil, false
	}
	return hs, true
}

// CallerName reads the value of the first "cn" transport header. ok=false
// with nil LastError means the header is absent.
func (l *Lazy) CallerName() (string, bool) {
	return l.headerValue(&l.cache.callerName, &l.cache.cnValue, "cn header")
}

// RoutingDelegate reads the value of the first "rd" transport header.
func (l *Lazy) RoutingDelegate() (string, bool) {
	return l.headerValue(&l.cache.routingDelegate, &l.cache.rdValue, "rd header")
}

// Arg1 decodes the first argument as a string. For requests this is the
// endpoint name the call routes to.
func (l *Lazy) Arg1() (string, bool) {
	if l.cache.arg1.state == slotValue {
		return l.cache.arg1.val, true
	}
	if !l.ensureScan() {
		return "", false
	}
	tag, next, err := wire.ReadU8(l.buf, l.cache.csumStart)
	if err != nil {
		l.cache.lastErr = errors.Wrap(err, "checksum type")
		return "", false
	}
	width, err := checksum.Type(tag).Width()
	if err != nil {
		l.cache.lastErr = err
		return "", false
	}
	raw, _, err := wire.ReadArg2(l.buf, next+width)
	if err != nil {
		l.cache.lastErr = errors.Wrap(err, "arg1")
		return "", false
	}
	s, ok := l.toString(raw, "arg1")
	if !ok {
		return "", false
	}
	l.cache.arg1 = strSlot{state: slotValue, val: s}
	return s, true
}

func (l *Lazy) headerValue(slot *strSlot, offSlot *int, what string) (string, bool) {
	switch slot.state {
	case slotValue:
		return slot.val, true
	case slotAbsent:
		return "", false
	}
	if !l.ensureScan() {
		return "", false
	}
	if *offSlot == offsetAbsent {
		*slot = strSlot{state: slotAbsent}
		return "", false
	}
	raw, _, err := wire.ReadStr1(l.buf, *offSlot)
	if err != nil {
		l.cache.lastErr = errors.Wrap(err, what)
		return "", false
	}
	s, ok := l.toString(raw, what)
	if !ok {
		return "", false
	}
	*slot = strSlot{state: slotValue, val: s}
	return s, true
}

func (l *Lazy) tracingOff() int {
	if l.kind == KindRequest {
		return reqTracingOff
	}
	return resTracingOff
}

// ensureHeaderStart computes and caches the offset of the nh byte.
func (l *Lazy) ensureHeaderStart() (int, bool) {
	if l.cache.headerStart != offsetUnset {
		return l.cache.headerStart, true
	}
	var start int
	if l.kind == KindRequest {
		_, next, err := wire.ReadStr1(l.buf, l.bodyOff+reqServiceOff)
		if err != nil {
			l.cache.lastErr = errors.Wrap(err, "service")
			return 0, false
		}
		start = next
	} else {
		start = l.bodyOff + resHeadersOff
	}
	if start >= len(l.buf) {
		l.cache.lastErr = errors.Wrapf(wire.ErrBufferTooShort, "header count at offset %d", start)
		return 0, false
	}
	l.cache.headerStart = start
	return start, true
}

// ensureScan walks the header block once, recording the value offsets of the
// fast-path keys and the checksum start. Nothing is committed to the cache
// unless the whole walk succeeds.
func (l *Lazy) ensureScan() bool {
	if l.cache.csumStart != offsetUnset {
		return true
	}
	start, ok := l.ensureHeaderStart()
	if !ok {
		return false
	}
	n, off, err := wire.ReadU8(l.buf, start)
	if err != nil {
		l.cache.lastErr = errors.Wrap(err, "header count")
		return false
	}
	cn, rd := offsetAbsent, offsetAbsent
	for i := 0; i < int(n); i++ {
		key, next, err := wire.ReadStr1(l.buf, off)
		if err != nil {
			l.cache.lastErr = errors.Wrapf(err, "header %d key", i)
			return false
		}
		valOff := next
		if _, next, err = wire.ReadStr1(l.buf, next); err != nil {
			l.cache.lastErr = errors.Wrapf(err, "header %d value", i)
			return false
		}
		if len(key) == 2 {
			switch uint16(key[0])<<8 | uint16(key[1]) {
			case keyCallerName:
				if cn == offsetAbsent {
					cn = valOff
				}
			case keyRoutingDelegate:
				if rd == offsetAbsent {
					rd = valOff
				}
			}
		}
		off = next
	}
	l.cache.cnValue = cn
	l.cache.rdValue = rd
	l.cache.csumStart = off
	return true
}

func (l *Lazy) toString(raw []byte, what string) (string, bool) {
	if !l.rawStrings && !utf8.Valid(raw) {
		l.cache.lastErr = errors.Wrap(ErrInvalidUTF8, what)
		return "", false
	}
	return string(raw), true
}
