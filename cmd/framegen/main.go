package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/farcall/farcall/internal/observability"
	"github.com/farcall/farcall/internal/protocol/call"
	"github.com/farcall/farcall/internal/protocol/checksum"
	"github.com/farcall/farcall/internal/protocol/frame"
	"github.com/farcall/farcall/internal/protocol/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "framegen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	outDir := flag.String("out", ".", "output directory")
	flag.Parse()

	logger := observability.InitLogger("framegen")
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	span := newSpan()

	frames := []struct {
		name  string
		build func() (*frame.Frame, error)
	}{
		{"minimal.req", func() (*frame.Frame, error) {
			return frame.NewRequestFrame(1, &call.Request{
				TTL:      1000,
				Tracing:  span,
				Service:  "svc",
				Headers:  call.Headers{{Key: "cn", Value: "caller"}},
				Checksum: checksum.Checksum{Type: checksum.None},
				Args:     [][]byte{[]byte("echo"), nil, []byte("hello")},
			}, false)
		}},
		{"delegated.req", func() (*frame.Frame, error) {
			args := [][]byte{[]byte("lookup"), nil, []byte("key=1")}
			digest, err := checksum.Compute(checksum.CRC32, args)
			if err != nil {
				return nil, err
			}
			return frame.NewRequestFrame(2, &call.Request{
				TTL:     500,
				Tracing: span,
				Service: "registry",
				Headers: call.Headers{
					{Key: "cn", Value: "gateway"},
					{Key: "rd", Value: "registry-eu"},
				},
				Checksum: checksum.Checksum{Type: checksum.CRC32, Digest: digest},
				Args:     args,
			}, false)
		}},
		{"frag-0.req", func() (*frame.Frame, error) {
			return frame.NewRequestFrame(3, &call.Request{
				TTL:      250,
				Tracing:  span,
				Service:  "blobs",
				Headers:  call.Headers{{Key: "cn", Value: "uploader"}},
				Checksum: checksum.Checksum{Type: checksum.None},
				Args:     [][]byte{[]byte("put"), []byte("chunk-0")},
			}, true)
		}},
		{"frag-1.req", func() (*frame.Frame, error) {
			return frame.NewRequestFrame(3, &call.Request{
				TTL:      250,
				Tracing:  span,
				Service:  "blobs",
				Headers:  call.Headers{{Key: "cn", Value: "uploader"}},
				Checksum: checksum.Checksum{Type: checksum.None},
				Args:     [][]byte{[]byte("chunk-1")},
			}, false)
		}},
		{"ok.res", func() (*frame.Frame, error) {
			return frame.NewResponseFrame(1, &call.Response{
				Code:     call.CodeOK,
				Tracing:  span,
				Checksum: checksum.Checksum{Type: checksum.None},
				Args:     [][]byte{[]byte("echo"), nil, []byte("hello")},
			}, false)
		}},
	}

	for _, entry := range frames {
		f, err := entry.build()
		if err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
		path := filepath.Join(*outDir, entry.name)
		if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
			return err
		}
		logger.Info().Str("file", path).Int("bytes", f.Size()).Msg("wrote frame")
	}
	return nil
}

// newSpan derives tracing ids from fresh uuids.
func newSpan() tracing.Span {
	return tracing.Span{
		SpanID:   uuidID(),
		ParentID: 0,
		TraceID:  uuidID(),
		Flags:    tracing.FlagEnabled,
	}
}

func uuidID() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[:8])
}
