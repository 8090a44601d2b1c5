// Package wave defines Starlane's unit of communication — the wave —
// and its fixed, deterministic binary wire encoding.
//
// # Overview
//
// A wave carries a method call or a reply between two surfaces. Six
// discriminants exist: Ping (directed, reflects to Pong), Pong
// (reflected), Ripple (directed, multi-recipient, reflects to Echo(es)),
// Echo (reflected), Signal (directed, fire-and-forget), and the internal
// Transport/Hop envelopes used for star-to-star delivery, which are
// themselves Signals whose body is a nested wave.
//
// Every wave carries a unique id, a from-surface, a recipients
// expression, a method name, a substance body, handling hints, a scope,
// an agent identity, a hop count, and a history set recording every star
// it has already traversed (so ripple sharding never re-enters a star).
//
// # Wire encoding
//
// UltraWave.MarshalBinary/UnmarshalBinary implement a fixed,
// deterministic binary scheme: a 4-byte magic, a version byte, a kind
// byte, big-endian length-prefixed variable fields, and fixed-width
// substructures for handling and hop count. There is no self-describing
// metadata beyond field lengths — a decode error always means protocol
// skew between peers, never ambiguous input, and the lane layer treats
// it as fatal to the connection.
//
// # Error taxonomy
//
// The sentinel errors in errors.go name the abstract failure kinds from the
// error-handling design: NotFound, Dupe, AuthFailed, VersionMismatch,
// HopsExceeded, Timeout, WrongKind, Unauthorized, Panic, IoFailure,
// DecodeFailure. Components test against these with errors.Is/errors.As
// rather than matching strings.
package wave
