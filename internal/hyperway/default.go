package hyperway

import (
	"context"
	"fmt"
	"sync"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/wave"
)

// TokenAuthenticator is a minimal Authenticator suitable for tests and
// single-operator deployments: it maps an exact credential token to an
// agent identity and assigns the surface the Knock asked for verbatim.
type TokenAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> agent
}

// NewTokenAuthenticator builds an authenticator with no registered
// tokens; use Register to add them.
func NewTokenAuthenticator() *TokenAuthenticator {
	return &TokenAuthenticator{tokens: make(map[string]string)}
}

// Register associates a credential token with an agent identity.
func (a *TokenAuthenticator) Register(token, agent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = agent
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(_ context.Context, knock wave.Knock) (address.Surface, string, error) {
	a.mu.RLock()
	agent, ok := a.tokens[string(knock.Credentials)]
	a.mu.RUnlock()
	if !ok {
		return address.Surface{}, "", fmt.Errorf("%w: unrecognized credentials", wave.ErrAuthFailed)
	}
	point, err := address.ParsePoint(knock.PointPattern)
	if err != nil {
		return address.Surface{}, "", fmt.Errorf("%w: invalid requested point: %w", wave.ErrAuthFailed, err)
	}
	return address.NewSurface(point, address.LayerGravity), agent, nil
}

// StarGreeter builds Greets anchored at this star's own surfaces.
type StarGreeter struct {
	StarPoint address.Point
}

// Greet implements Greeter: the hop and transport addresses are both
// this star's Core surface, since all inter-star traffic for a remote
// mounted here funnels through this star's core.
func (g StarGreeter) Greet(_ context.Context, assigned address.Surface, agent string) (Greet, error) {
	core := address.NewSurface(g.StarPoint, address.LayerCore)
	return Greet{
		Surface:   assigned,
		Agent:     agent,
		Hop:       core,
		Transport: core,
	}, nil
}

// IdentityConfigurator attaches a RewriteSet that simply trusts the
// Greet's surface as the inbound From, with no further transform. It
// is the configurator used when the remote does not need its hop or
// transport addressing remapped beyond the greet.
type IdentityConfigurator struct{}

// Configure implements Configurator.
func (IdentityConfigurator) Configure(_ context.Context, greet Greet) (RewriteSet, error) {
	return RewriteSet{From: greet.Surface, Hop: greet.Hop, Transport: greet.Transport}, nil
}
