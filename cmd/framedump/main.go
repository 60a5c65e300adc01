package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/farcall/farcall/internal/config"
	"github.com/farcall/farcall/internal/observability"
	"github.com/farcall/farcall/internal/protocol/call"
	"github.com/farcall/farcall/internal/protocol/frame"
	"github.com/farcall/farcall/internal/ratelimit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "framedump: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "toml config file")
	hexInput := flag.Bool("hex", false, "inputs are hex text instead of raw bytes")
	flag.Parse()

	if flag.NArg() == 0 {
		return fmt.Errorf("usage: framedump [-config file] [-hex] frame-file...")
	}

	logger := observability.InitLogger("framedump")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(cfg.LimiterConfig())

	g, _ := errgroup.WithContext(context.Background())
	for _, path := range flag.Args() {
		path := path
		g.Go(func() error {
			return dump(logger, cfg, limiter, path, *hexInput)
		})
	}
	return g.Wait()
}

func dump(logger zerolog.Logger, cfg config.Config, limiter *ratelimit.Limiter, path string, hexInput bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if hexInput {
		if raw, err = decodeHex(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if len(raw) > cfg.MaxFrameBytes {
		return fmt.Errorf("%s: frame of %d bytes exceeds limit %d", path, len(raw), cfg.MaxFrameBytes)
	}

	f, err := frame.FromBytes(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	log := logger.With().Str("file", path).Uint32("id", f.ID).
		Str("type", fmt.Sprintf("0x%02x", uint8(f.Type))).Logger()

	var opts []call.LazyOption
	if cfg.AllowInvalidUTF8 {
		opts = append(opts, call.WithRawStrings())
	}
	lazy, ok := f.Lazy(opts...)
	if !ok {
		log.Info().Msg("not a call frame")
		return nil
	}

	fastPath(log, lazy, limiter, cfg.RateLimit.Enabled, f.Type)

	switch f.Type {
	case frame.TypeCallReq:
		req, err := f.DecodeRequest()
		observability.RecordDecode("call_req", err)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Info().
			Uint8("flags", uint8(req.Flags)).
			Uint32("ttl_ms", req.TTL).
			Str("service", req.Service).
			Int("headers", len(req.Headers)).
			Str("checksum", fmt.Sprintf("0x%02x", uint8(req.Checksum.Type))).
			Int("args", len(req.Args)).
			Msg("call request")
		if err := req.Checksum.Verify(req.Args); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case frame.TypeCallRes:
		res, err := f.DecodeResponse()
		observability.RecordDecode("call_res", err)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Info().
			Uint8("flags", uint8(res.Flags)).
			Uint8("code", res.Code).
			Int("headers", len(res.Headers)).
			Int("args", len(res.Args)).
			Msg("call response")
		if err := res.Checksum.Verify(res.Args); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// fastPath exercises the lazy accessors the way a router would before a full
// decode, and feeds the (caller, service) pair to the limiter.
func fastPath(log zerolog.Logger, lazy *call.Lazy, limiter *ratelimit.Limiter, limit bool, t frame.Type) {
	ev := log.Info().Bool("terminal", lazy.IsTerminal())

	arg1, ok := lazy.Arg1()
	if ok {
		ev = ev.Str("endpoint", arg1)
	} else if lazy.LastError() != nil {
		observability.RecordLazyFailure("arg1")
	}

	if t != frame.TypeCallReq {
		ev.Msg("fast path")
		return
	}

	service, ok := lazy.Service()
	if !ok {
		observability.RecordLazyFailure("service")
	}
	caller, ok := lazy.CallerName()
	if !ok && lazy.LastError() != nil {
		observability.RecordLazyFailure("cn")
	}
	if rd, ok := lazy.RoutingDelegate(); ok {
		ev = ev.Str("routing_delegate", rd)
	}
	if ttl, ok := lazy.TTL(); ok {
		ev = ev.Uint32("ttl_ms", ttl)
	}

	ev = ev.Str("service", service).Str("caller", caller)
	if limit {
		limiter.Observe(caller, service)
		ev = ev.Bool("allowed", limiter.Allow(caller, service))
	}
	ev.Msg("fast path")
}

func decodeHex(raw []byte) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, string(raw))
	return hex.DecodeString(s)
}
