package call

import (
	"bytes"
	"errors"
	"testing"
)

func encodeRequest(t *testing.T, req *Request) []byte {
	t.Helper()
	buf, err := req.EncodeBytes(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf
}

func TestLazyMatchesStructuredDecode(t *testing.T) {
	in := richRequest(t)
	buf := encodeRequest(t, in)

	var full Request
	if err := full.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}

	lazy := NewLazy(buf, 0, KindRequest)
	if v, ok := lazy.TTL(); !ok || v != full.TTL {
		t.Fatalf("ttl: ok=%v %d want %d", ok, v, full.TTL)
	}
	if v, ok := lazy.Tracing(); !ok || v != full.Tracing {
		t.Fatalf("tracing: ok=%v %+v", ok, v)
	}
	if v, ok := lazy.Service(); !ok || v != full.Service {
		t.Fatalf("service: ok=%v %q", ok, v)
	}
	if v, ok := lazy.CallerName(); !ok || v != "gateway" {
		t.Fatalf("caller name: ok=%v %q", ok, v)
	}
	if v, ok := lazy.RoutingDelegate(); !ok || v != "storage-eu" {
		t.Fatalf("routing delegate: ok=%v %q", ok, v)
	}
	if v, ok := lazy.Arg1(); !ok || v != string(full.Args[0]) {
		t.Fatalf("arg1: ok=%v %q", ok, v)
	}
	hs, ok := lazy.Headers()
	if !ok || len(hs) != len(full.Headers) {
		t.Fatalf("headers: ok=%v %d", ok, len(hs))
	}
	for i := range hs {
		if hs[i] != full.Headers[i] {
			t.Fatalf("header %d mismatch: %+v", i, hs[i])
		}
	}
	if flags, ok := lazy.Flags(); !ok || flags != full.Flags {
		t.Fatalf("flags: ok=%v %#x", ok, flags)
	}
	if lazy.LastError() != nil {
		t.Fatalf("unexpected lastErr: %v", lazy.LastError())
	}
}

func TestLazyScanCommitsBothFastPathOffsets(t *testing.T) {
	buf := encodeRequest(t, richRequest(t))
	lazy := NewLazy(buf, 0, KindRequest)

	if _, ok := lazy.CallerName(); !ok {
		t.Fatalf("caller name unavailable: %v", lazy.LastError())
	}
	if _, ok := lazy.RoutingDelegate(); !ok {
		t.Fatalf("routing delegate unavailable: %v", lazy.LastError())
	}
	if lazy.cache.cnValue <= 0 || lazy.cache.rdValue <= 0 {
		t.Fatalf("expected committed offsets, got cn=%d rd=%d", lazy.cache.cnValue, lazy.cache.rdValue)
	}
	if lazy.cache.csumStart <= 0 {
		t.Fatalf("expected committed checksum start, got %d", lazy.cache.csumStart)
	}
}

func TestLazyDuplicateKeyFirstOccurrenceWins(t *testing.T) {
	req := minimalRequest()
	req.Headers = Headers{
		{Key: "cn", Value: "first"},
		{Key: "cn", Value: "second"},
		{Key: "rd", Value: "primary"},
		{Key: "rd", Value: "secondary"},
	}
	lazy := NewLazy(encodeRequest(t, req), 0, KindRequest)
	if v, ok := lazy.CallerName(); !ok || v != "first" {
		t.Fatalf("caller name: ok=%v %q", ok, v)
	}
	if v, ok := lazy.RoutingDelegate(); !ok || v != "primary" {
		t.Fatalf("routing delegate: ok=%v %q", ok, v)
	}
}

func TestLazyAbsentHeaderIsNotAnError(t *testing.T) {
	lazy := NewLazy(encodeRequest(t, minimalRequest()), 0, KindRequest)
	v, ok := lazy.RoutingDelegate()
	if ok || v != "" {
		t.Fatalf("expected absent routing delegate, got ok=%v %q", ok, v)
	}
	if lazy.LastError() != nil {
		t.Fatalf("absence recorded an error: %v", lazy.LastError())
	}
	// absence is cached too
	if _, ok := lazy.RoutingDelegate(); ok {
		t.Fatalf("absence not sticky")
	}
}

func TestLazyEmptyHeaderList(t *testing.T) {
	req := minimalRequest()
	req.Headers = nil
	lazy := NewLazy(encodeRequest(t, req), 0, KindRequest)
	if _, ok := lazy.CallerName(); ok {
		t.Fatalf("expected absent caller name")
	}
	if v, ok := lazy.Arg1(); !ok || v != "" {
		t.Fatalf("arg1: ok=%v %q (%v)", ok, v, lazy.LastError())
	}
}

func TestLazyCachesSurviveBufferMutation(t *testing.T) {
	buf := encodeRequest(t, richRequest(t))
	lazy := NewLazy(buf, 0, KindRequest)

	ttl, _ := lazy.TTL()
	span, _ := lazy.Tracing()
	service, _ := lazy.Service()
	caller, _ := lazy.CallerName()
	rd, _ := lazy.RoutingDelegate()
	arg1, _ := lazy.Arg1()

	// scribble over the whole body; cached values must come back unchanged
	for i := range buf {
		buf[i] = 0xff
	}

	if v, ok := lazy.TTL(); !ok || v != ttl {
		t.Fatalf("ttl reread buffer: ok=%v %d", ok, v)
	}
	if v, ok := lazy.Tracing(); !ok || v != span {
		t.Fatalf("tracing reread buffer: ok=%v", ok)
	}
	if v, ok := lazy.Service(); !ok || v != service {
		t.Fatalf("service reread buffer: ok=%v %q", ok, v)
	}
	if v, ok := lazy.CallerName(); !ok || v != caller {
		t.Fatalf("caller reread buffer: ok=%v %q", ok, v)
	}
	if v, ok := lazy.RoutingDelegate(); !ok || v != rd {
		t.Fatalf("rd reread buffer: ok=%v %q", ok, v)
	}
	if v, ok := lazy.Arg1(); !ok || v != arg1 {
		t.Fatalf("arg1 reread buffer: ok=%v %q", ok, v)
	}
}

func TestLazyTruncationSafety(t *testing.T) {
	in := richRequest(t)
	buf := encodeRequest(t, in)

	var full Request
	if err := full.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for cut := 0; cut < len(buf); cut++ {
		lazy := NewLazy(buf[:cut], 0, KindRequest)
		if v, ok := lazy.TTL(); ok && v != full.TTL {
			t.Fatalf("cut=%d ttl wrong: %d", cut, v)
		}
		if v, ok := lazy.Tracing(); ok && v != full.Tracing {
			t.Fatalf("cut=%d tracing wrong", cut)
		}
		if v, ok := lazy.Service(); ok && v != full.Service {
			t.Fatalf("cut=%d service wrong: %q", cut, v)
		}
		if v, ok := lazy.CallerName(); ok && v != "gateway" {
			t.Fatalf("cut=%d caller wrong: %q", cut, v)
		}
		if v, ok := lazy.RoutingDelegate(); ok && v != "storage-eu" {
			t.Fatalf("cut=%d rd wrong: %q", cut, v)
		}
		if v, ok := lazy.Arg1(); ok && v != string(full.Args[0]) {
			t.Fatalf("cut=%d arg1 wrong: %q", cut, v)
		}
		if hs, ok := lazy.Headers(); ok {
			for i := range hs {
				if hs[i] != full.Headers[i] {
					t.Fatalf("cut=%d header %d wrong", cut, i)
				}
			}
		}
		lazy.IsTerminal()
	}
}

func TestLazyNoPartialCommitOnFailedScan(t *testing.T) {
	in := richRequest(t)
	buf := encodeRequest(t, in)

	// cut one byte into the second header entry: the cn entry scans fine,
	// the rd entry cannot
	cut := 31 + len(in.Service) + 1 + (1 + 2) + (1 + len("gateway")) + 1
	lazy := NewLazy(buf[:cut], 0, KindRequest)
	if _, ok := lazy.CallerName(); ok {
		t.Fatalf("expected unavailable caller name on truncated headers")
	}
	if lazy.LastError() == nil {
		t.Fatalf("expected lastErr after failed scan")
	}
	if lazy.cache.cnValue != offsetUnset || lazy.cache.rdValue != offsetUnset || lazy.cache.csumStart != offsetUnset {
		t.Fatalf("partial offsets committed: cn=%d rd=%d csum=%d",
			lazy.cache.cnValue, lazy.cache.rdValue, lazy.cache.csumStart)
	}
}

func TestLazyInvalidUTF8Service(t *testing.T) {
	buf := encodeRequest(t, minimalRequest())
	// service bytes sit at offset 31..33
	copy(buf[31:34], []byte{0xff, 0xfe, 0xfd})

	lazy := NewLazy(buf, 0, KindRequest)
	if _, ok := lazy.Service(); ok {
		t.Fatalf("expected invalid utf-8 service to be unavailable")
	}
	if !errors.Is(lazy.LastError(), ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", lazy.LastError())
	}

	raw := NewLazy(buf, 0, KindRequest, WithRawStrings())
	v, ok := raw.Service()
	if !ok || !bytes.Equal([]byte(v), []byte{0xff, 0xfe, 0xfd}) {
		t.Fatalf("raw strings: ok=%v %x", ok, []byte(v))
	}
}

func TestLazyZeroTTLUnavailable(t *testing.T) {
	buf := encodeRequest(t, minimalRequest())
	copy(buf[1:5], []byte{0, 0, 0, 0})
	lazy := NewLazy(buf, 0, KindRequest)
	if _, ok := lazy.TTL(); ok {
		t.Fatalf("expected zero ttl to be unavailable")
	}
	if !errors.Is(lazy.LastError(), ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", lazy.LastError())
	}
}

func TestLazyTTLOnResponseKind(t *testing.T) {
	buf, err := errorResponse().EncodeBytes(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	lazy := NewLazy(buf, 0, KindResponse)
	if _, ok := lazy.TTL(); ok {
		t.Fatalf("ttl on a response frame")
	}
	if !errors.Is(lazy.LastError(), ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", lazy.LastError())
	}
}

func TestLazyBodyOffset(t *testing.T) {
	body := encodeRequest(t, minimalRequest())
	framed := append(make([]byte, 16), body...)
	lazy := NewLazy(framed, 16, KindRequest)
	if v, ok := lazy.Service(); !ok || v != "svc" {
		t.Fatalf("service through body offset: ok=%v %q", ok, v)
	}
	if v, ok := lazy.CallerName(); !ok || v != "caller" {
		t.Fatalf("caller through body offset: ok=%v %q", ok, v)
	}
	if v, ok := lazy.Arg1(); !ok || v != "" {
		t.Fatalf("arg1 through body offset: ok=%v %q", ok, v)
	}
}

func TestLazyIsTerminal(t *testing.T) {
	req := minimalRequest()
	frag, err := req.EncodeBytes(true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if NewLazy(frag, 0, KindRequest).IsTerminal() {
		t.Fatalf("fragment reported terminal")
	}
	terminal := encodeRequest(t, req)
	if !NewLazy(terminal, 0, KindRequest).IsTerminal() {
		t.Fatalf("terminal body reported fragmented")
	}
}
