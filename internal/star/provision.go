package star

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/wave"
)

// Provision implements topology.Provisioner. A star always places a
// new particle on itself: if it already owns the parent the decision
// is made on the spot, otherwise a Provision ping crosses to the star
// that does. Either way the caller (the locator) is the one that
// actually records the assignment in the registry; this method only
// decides where.
func (s *Star) Provision(ctx context.Context, parentOwner, parent, point address.Point) (registry.Location, error) {
	if parentOwner.Equal(s.selfPoint) {
		return registry.Location{Star: s.selfPoint, Host: s.selfPoint}, nil
	}

	req := wave.NewPing(
		address.NewSurface(s.selfPoint, address.LayerCore),
		address.NewSurface(parentOwner, address.LayerCore),
		provisionMethod,
		wave.Text(point.String()),
	)
	reply, err := s.replies.Await(ctx, req, s.sendDirect)
	if err != nil {
		return registry.Location{}, fmt.Errorf("star: provision %s: %w", point, err)
	}
	if !reply.IsSuccess() {
		return registry.Location{}, fmt.Errorf("star: provision %s: %s", point, reply.Body.String())
	}
	return decodeLocation(reply.Body)
}

// handleInboundProvision answers a Provision ping addressed to this
// star: it names itself as the new particle's location and reflects
// that back to the requester.
func (s *Star) handleInboundProvision(ctx context.Context, req wave.UltraWave) {
	if _, err := address.ParsePoint(req.Body.String()); err != nil {
		s.log.WithError(err).Warn("star: provision: bad point in inbound request")
		reflected := req.ReflectError(address.NewSurface(s.selfPoint, address.LayerCore), err)
		s.sendDirect(reflected)
		return
	}
	loc := registry.Location{Star: s.selfPoint, Host: s.selfPoint}
	reply := req.Reflect(address.NewSurface(s.selfPoint, address.LayerCore), wave.StatusOK, encodeLocation(loc))
	s.sendDirect(reply)
}

func encodeLocation(loc registry.Location) wave.Substance {
	return wave.Substance{
		Type:    wave.SubstanceTypeLocation,
		Payload: []byte(loc.Star.String() + "\n" + loc.Host.String()),
	}
}

func decodeLocation(s wave.Substance) (registry.Location, error) {
	if s.Type != wave.SubstanceTypeLocation {
		return registry.Location{}, fmt.Errorf("star: decode location: %w: unexpected substance type %q", wave.ErrDecodeFailure, s.Type)
	}
	parts := strings.SplitN(string(s.Payload), "\n", 2)
	if len(parts) != 2 {
		return registry.Location{}, fmt.Errorf("star: decode location: %w: malformed payload", wave.ErrDecodeFailure)
	}
	star, err := address.ParsePoint(parts[0])
	if err != nil {
		return registry.Location{}, fmt.Errorf("star: decode location: %w", err)
	}
	host, err := address.ParsePoint(parts[1])
	if err != nil {
		return registry.Location{}, fmt.Errorf("star: decode location: %w", err)
	}
	return registry.Location{Star: star, Host: host}, nil
}
