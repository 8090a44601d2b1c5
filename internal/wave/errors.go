package wave

import "errors"

// Sentinel errors naming the abstract failure kinds from the
// error-handling design. Components compare against these with
// errors.Is; wrap with fmt.Errorf("...: %w", ErrX) to add context.
var (
	// ErrNotFound means no record exists for an address or surface.
	// Surfaced to the originator as a reflected error; never retried.
	ErrNotFound = errors.New("starlane: not found")

	// ErrDupe means a point is already registered under a Commit
	// strategy. Surfaced to the caller of register.
	ErrDupe = errors.New("starlane: duplicate registration")

	// ErrAuthFailed means a Knock was rejected at the gate. The lane
	// is closed; there is no retry.
	ErrAuthFailed = errors.New("starlane: authentication failed")

	// ErrVersionMismatch means the handshake saw a different peer
	// version. The lane is closed after informing the peer.
	ErrVersionMismatch = errors.New("starlane: version mismatch")

	// ErrHopsExceeded means a transport's hop count exceeded 255. The
	// wave is dropped; no reflection is produced.
	ErrHopsExceeded = errors.New("starlane: hop count exceeded")

	// ErrTimeout means a reply or search aggregator transaction
	// expired. Reflected as an error to the waiter.
	ErrTimeout = errors.New("starlane: timeout")

	// ErrWrongKind means an assign targeted a host of an
	// inappropriate kind. The wave is dropped; the sender gets an
	// error reply.
	ErrWrongKind = errors.New("starlane: wrong kind")

	// ErrUnauthorized means an access check failed in a layer.
	// Reflected as an error.
	ErrUnauthorized = errors.New("starlane: unauthorized")

	// ErrPanic means a particle's status became Panic (bad
	// provisioning, fatal driver error). Set on the record;
	// provisioning returns this error.
	ErrPanic = errors.New("starlane: particle panic")

	// ErrIoFailure means a lane or registry I/O operation failed. The
	// owning component resets: the lane is torn down, or the
	// registry call is surfaced to its caller.
	ErrIoFailure = errors.New("starlane: io failure")

	// ErrDecodeFailure means a wave could not be deserialized. The
	// lane that produced it is torn down.
	ErrDecodeFailure = errors.New("starlane: decode failure")

	// ErrUnimplemented is returned for operations explicitly out of
	// scope for the first implementation, such as non-ripple Multi
	// recipient sharding.
	ErrUnimplemented = errors.New("starlane: unimplemented")

	// ErrPropertyLocked means a property modification targeted a
	// locked key, which may not be overwritten or unset.
	ErrPropertyLocked = errors.New("starlane: property is locked")
)
