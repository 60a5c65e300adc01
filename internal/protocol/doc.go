// Package protocol owns the call-frame wire contract and parsing primitives.
//
// Ownership boundary:
// - wire: fixed-width and length-prefixed primitives
// - tracing: the fixed 25-byte tracing record
// - checksum: the checksum tag taxonomy and verification
// - call: CallRequest/CallResponse bodies and lazy field access
// - frame: the outer envelope and per-frame offset cache ownership
package protocol
