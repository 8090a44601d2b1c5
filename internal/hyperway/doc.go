// Package hyperway implements the per-star interchange and its
// authenticating front door, the gate.
//
// # Overview
//
// An interchange is a per-star container of mounted endpoints plus a
// router: every endpoint is identified by a Stub (the remote's surface
// plus its agent identity). mount/unmount/route are the interchange's
// only operations — routing a wave delivers it to whichever endpoint's
// stub matches the wave's destination point, and drops with a warning
// when nothing matches.
//
// A gate wraps an interchange with three collaborators: an
// Authenticator that turns a Knock into an assigned surface or an
// AuthFailed error, a Greeter that builds the Greet the remote will use
// to address itself and the fabric, and a Configurator that attaches
// inbound rewrites (from/hop/transport) before the endpoint is mounted.
// The gate enters the protocol immediately after a lane's handshake: it
// reads exactly one inbound wave, which must carry a Knock body;
// anything else terminates the lane without mounting.
package hyperway
