package call

import (
	"github.com/farcall/farcall/internal/protocol/tracing"
)

// Offset slot sentinels. offsetAbsent marks a completed scan that found no
// value; it cannot collide with a real offset because the body preamble
// precedes every header value.
const (
	offsetUnset  = -1
	offsetAbsent = 0
)

type slotState uint8

const (
	slotUnset slotState = iota
	slotAbsent
	slotValue
)

type strSlot struct {
	state slotState
	val   string
}

// Cache is the per-frame scratch pad backing the lazy accessors. Slots fill
// monotonically, unset to value, and a filled slot is final. A frame is owned
// by one worker at a time, so no locking.
type Cache struct {
	ttl     *uint32
	tracing *tracing.Span

	service         strSlot
	callerName      strSlot
	routingDelegate strSlot
	arg1            strSlot

	headerStart int
	csumStart   int
	cnValue     int
	rdValue     int

	lastErr error
}

func newCache() Cache {
	return Cache{
		headerStart: offsetUnset,
		csumStart:   offsetUnset,
		cnValue:     offsetUnset,
		rdValue:     offsetUnset,
	}
}

// LastError returns the most recent reason a lazy read gave up, nil if none.
func (c *Cache) LastError() error { return c.lastErr }
