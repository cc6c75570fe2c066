// Package layout owns payload layout descriptions for UBX messages.
//
// Ownership boundary:
// - primitive wire types (U1..R8, X1..X4, C)
// - field descriptors: scalar, padding, bit-field, repeated block
// - message and class definitions
// - payload decode/encode against a definition
//
// Descriptors are immutable once built. Repeat counts for repeated blocks
// are derived from the payload (decode) or the supplied records (encode)
// on every call and never stored back onto a descriptor, so one definition
// can serve concurrent decoders.
package layout
