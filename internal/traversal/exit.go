package traversal

import "context"

// Exiter delivers a traversal that has walked off one end of its
// particle's layer plan. ExitUp re-enters the star router's gravity
// path so the wave can be sent out over a lane.
// ExitDown hands the traversal to the drivers subsystem for the
// particle's owning kind.
type Exiter interface {
	ExitUp(ctx context.Context, trav *Traversal) error
	ExitDown(ctx context.Context, trav *Traversal) error
}
