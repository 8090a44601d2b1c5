package hyperway

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/lane"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/sirupsen/logrus"
)

// KnockTimeout bounds how long the gate waits for the single inbound
// wave expected immediately after handshake.
const KnockTimeout = 30 * time.Second

// Greet is what a gate hands back to a newly authenticated remote: the
// surface it should use as its "from", the hop address (this star) it
// addresses transports to, and the transport address at which its own
// waves will appear once inside the fabric.
type Greet struct {
	Surface   address.Surface
	Agent     string
	Hop       address.Surface
	Transport address.Surface
}

// Authenticator turns a Knock into an assigned surface or rejects it.
type Authenticator interface {
	Authenticate(ctx context.Context, knock wave.Knock) (assigned address.Surface, agent string, err error)
}

// Greeter builds the Greet for a newly authenticated remote.
type Greeter interface {
	Greet(ctx context.Context, assigned address.Surface, agent string) (Greet, error)
}

// Configurator turns a Greet into the RewriteSet attached to the
// mounted endpoint.
type Configurator interface {
	Configure(ctx context.Context, greet Greet) (RewriteSet, error)
}

// Gate wraps an interchange with authentication, greeting, and
// configuration, entering the protocol immediately after a lane's
// handshake completes.
type Gate struct {
	interchange *Interchange
	auth        Authenticator
	greeter     Greeter
	configurer  Configurator
	log         *logrus.Entry
}

// NewGate builds a gate over interchange.
func NewGate(interchange *Interchange, auth Authenticator, greeter Greeter, configurer Configurator, log *logrus.Entry) *Gate {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gate{
		interchange: interchange,
		auth:        auth,
		greeter:     greeter,
		configurer:  configurer,
		log:         log.WithField("component", "gate"),
	}
}

// Admit runs the gate protocol over a handshaken, already-Run lane: it
// reads exactly one inbound wave (which must carry a Knock body),
// authenticates, greets, configures, and mounts. Any deviation
// terminates the lane and returns an error; the lane is never left half
// admitted.
func (g *Gate) Admit(ctx context.Context, l *lane.Lane, singular bool) (*LaneEndpoint, Greet, error) {
	knockCtx, cancel := context.WithTimeout(ctx, KnockTimeout)
	defer cancel()

	var knockWave wave.UltraWave
	select {
	case w, ok := <-l.Inbound():
		if !ok {
			l.Terminate()
			return nil, Greet{}, fmt.Errorf("hyperway: gate: lane closed before knock")
		}
		knockWave = w
	case <-l.Done():
		return nil, Greet{}, fmt.Errorf("hyperway: gate: lane terminated before knock: %w", l.Err())
	case <-knockCtx.Done():
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: %w: no knock received", wave.ErrTimeout)
	}

	if knockWave.Body.Type != wave.SubstanceTypeKnock {
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: %w: expected Knock, got %q", wave.ErrAuthFailed, knockWave.Body.Type)
	}
	knock, err := wave.KnockFromSubstance(knockWave.Body)
	if err != nil {
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: %w: %w", wave.ErrAuthFailed, err)
	}

	assigned, agent, err := g.auth.Authenticate(ctx, knock)
	if err != nil {
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: %w: %w", wave.ErrAuthFailed, err)
	}

	greet, err := g.greeter.Greet(ctx, assigned, agent)
	if err != nil {
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: greet: %w", err)
	}

	rewrite, err := g.configurer.Configure(ctx, greet)
	if err != nil {
		l.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: configure: %w", err)
	}

	stub := Stub{RemoteSurface: assigned, Agent: agent}
	ep := NewLaneEndpoint(stub, l, rewrite)
	if err := g.interchange.Mount(ep, singular); err != nil {
		ep.Terminate()
		return nil, Greet{}, fmt.Errorf("hyperway: gate: mount: %w", err)
	}

	g.log.WithFields(logrus.Fields{"agent": agent, "surface": assigned.String()}).Info("admitted endpoint")
	return ep, greet, nil
}
