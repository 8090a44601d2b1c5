// Package lane implements Starlane's framed, TLS-terminated,
// bidirectional star-to-star link.
//
// # Overview
//
// A lane is a single live TLS connection between two stars, with an
// owned read half and an owned write half multiplexed through a
// bidirectional endpoint. Lanes are created by Dial (dialing out) or
// accepted by a Listener, and are discarded whole on any I/O
// error — there is no partial-lane recovery.
//
// # Framing
//
// Every frame is a u32 big-endian length followed by exactly that many
// payload bytes. No other framing metadata exists. The stream
// guarantees no partial frame is ever delivered to a reader, and that
// writes are flushed to the underlying connection before Write
// returns.
//
// # Handshake
//
// Immediately after the TLS connection completes, both peers
// independently:
//
//  1. Send a version frame (UTF-8 semantic-versioning triple).
//  2. Read the peer's version frame with a 30-second timeout.
//  3. If versions match, send "Ok"; otherwise send the literal
//     "Err(\"expected version X. encountered version Y\")" and close.
//  4. Read the peer's status frame with a 30-second timeout; success
//     requires exactly "Ok".
//
// Failure at any step tears the lane down without mounting an
// endpoint.
//
// # Multiplexing
//
// Once handshaken, Lane.Run starts two goroutines: one reading frames,
// decoding each as an UltraWave and delivering it to Inbound(); one
// draining Outbound(), encoding and writing each wave. A close of
// either the connection or the lane's done channel collapses both.
package lane
