// Package call owns the CallRequest and CallResponse body codecs.
//
// Ownership boundary:
// - structured body encode/decode and sizing
// - transport header list and packed arg codecs
// - lazy field accessors over a framed buffer
// - the per-frame offset cache backing them
package call
