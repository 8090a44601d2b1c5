package star

import (
	"context"

	"github.com/dreamware/starlane/internal/traversal"
)

// starExiter implements traversal.Exiter against a running Star: a
// traversal that walks off the Gravity end re-enters the router's
// to-gravity handling, and one that walks off the Core end is handed
// to the kind driver that owns the particle.
type starExiter struct {
	star *Star
}

func (e *starExiter) ExitUp(ctx context.Context, trav *traversal.Traversal) error {
	e.star.ToGravity(trav.Wave)
	return nil
}

func (e *starExiter) ExitDown(ctx context.Context, trav *traversal.Traversal) error {
	return e.star.drivers.Deliver(ctx, trav)
}
