// Package protocol owns the NOODLES wire contract.
//
// Ownership boundary:
// - typed component identifiers
// - component and message bodies as they appear on the wire
// - CBOR codec configuration
// - structural validation entry points
package protocol
