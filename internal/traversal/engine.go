package traversal

import (
	"context"
	"fmt"
	"sync"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/sirupsen/logrus"
)

// RecordLookup is the slice of registry.Store the engine needs: enough
// to resolve a recipient surface's owning particle. registry.Store
// satisfies this directly.
type RecordLookup interface {
	Record(ctx context.Context, point address.Point) (registry.Particle, error)
}

// PlanFor returns the declared traversal plan for a particle kind.
type PlanFor func(kind registry.Kind) Plan

// Engine implements layered traversal: given an
// Injection, it resolves the destination(s), builds a Traversal per
// destination, and walks each through its plan's layers until it
// reaches a stopping layer or exits.
type Engine struct {
	self address.Point // this star's own point, for Ripple-to-Stars expansion

	records RecordLookup
	plans   PlanFor
	exit    Exiter

	fields []FieldInterceptor
	shells []ShellInterceptor
	states *ShellStates

	log *logrus.Entry
}

// NewEngine builds a traversal engine. self is the owning star's point
// (StarKey.Point()).
func NewEngine(self address.Point, records RecordLookup, plans PlanFor, exit Exiter, fields []FieldInterceptor, shells []ShellInterceptor, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		self:    self,
		records: records,
		plans:   plans,
		exit:    exit,
		fields:  fields,
		shells:  shells,
		states:  NewShellStates(),
		log:     log.WithField("component", "traversal"),
	}
}

type destination struct {
	Surface address.Surface
	Record  registry.Particle
}

// Inject is the engine's entry point. Ripples with
// multiple resolved recipients run as independent parallel traversals;
// everything else is a single traversal.
func (e *Engine) Inject(ctx context.Context, inj Injection) error {
	dests, err := e.expand(ctx, inj)
	if err != nil {
		return err
	}
	if len(dests) == 0 {
		return nil
	}
	if len(dests) == 1 {
		return e.runDestination(ctx, inj, dests[0])
	}

	errs := make([]error, len(dests))
	var wg sync.WaitGroup
	wg.Add(len(dests))
	for i, d := range dests {
		go func(i int, d destination) {
			defer wg.Done()
			errs[i] = e.runDestination(ctx, inj, d)
		}(i, d)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// expand resolves an injection's wave.To into the concrete surfaces
// this star must run a traversal for.
func (e *Engine) expand(ctx context.Context, inj Injection) ([]destination, error) {
	w := inj.Wave

	if w.Kind != wave.KindRipple {
		s, ok := w.To.Single()
		if !ok {
			return nil, fmt.Errorf("traversal: %w: non-ripple wave with multi recipients", wave.ErrUnimplemented)
		}
		return e.resolveOne(ctx, inj, s)
	}

	switch w.To.Kind {
	case wave.RecipientsSingle:
		s, _ := w.To.Single()
		return e.resolveOne(ctx, inj, s)

	case wave.RecipientsMulti:
		out := make([]destination, 0, len(w.To.Surfaces))
		for _, s := range w.To.Surfaces {
			rec, err := e.records.Record(ctx, s.Point)
			if err != nil {
				continue
			}
			if rec.Location.Star.Equal(e.self) {
				out = append(out, destination{Surface: s, Record: rec})
			}
		}
		return out, nil

	case wave.RecipientsStars:
		layer := address.LayerCore
		if w.From.Point.Equal(e.self) {
			layer = address.LayerGravity
		}
		return e.resolveOne(ctx, inj, address.NewSurface(e.self, layer))

	case wave.RecipientsWatchers:
		// No watcher registry exists yet; silently yields no
		// destinations, matching the original's unimplemented branch.
		return nil, nil

	default:
		return nil, fmt.Errorf("traversal: %w: unrecognized recipients kind", wave.ErrUnimplemented)
	}
}

func (e *Engine) resolveOne(ctx context.Context, inj Injection, s address.Surface) ([]destination, error) {
	rec, err := e.records.Record(ctx, s.Point)
	if err != nil {
		return nil, e.notFound(ctx, inj, s, err)
	}
	return []destination{{Surface: s, Record: rec}}, nil
}

// notFound implements step 1's failure path: fail, and for a
// reflectable wave synthesize a reflected error back to the source.
func (e *Engine) notFound(ctx context.Context, inj Injection, to address.Surface, cause error) error {
	err := fmt.Errorf("traversal: %s: %w: %v", to.Point, wave.ErrNotFound, cause)
	if inj.Wave.Kind.Reflectable() {
		reflected := inj.Wave.ReflectError(to, err)
		_ = e.Inject(ctx, Injection{InjectorSurface: inj.InjectorSurface, Wave: reflected})
	}
	return err
}

func (e *Engine) runDestination(ctx context.Context, inj Injection, d destination) error {
	plan := e.plans(d.Record.Kind)
	dir, dest := e.direction(inj, d.Surface)

	trav := &Traversal{
		Wave:           inj.Wave,
		Record:         d.Record,
		InjectionLayer: inj.InjectorSurface.Layer,
		Injector:       inj.InjectorSurface,
		Direction:      dir,
		DestLayer:      dest,
		ToSurface:      d.Surface,
		Point:          d.Surface.Point,
		Layer:          inj.InjectorSurface.Layer,
	}
	return e.run(ctx, trav, plan)
}

// direction implements the direction rule for where a wave should walk
// next, given how it entered traversal and where it's addressed.
func (e *Engine) direction(inj Injection, to address.Surface) (Direction, *address.Layer) {
	if inj.ForcedDirection != nil {
		return *inj.ForcedDirection, nil
	}
	if inj.FromGravity {
		l := to.Layer
		return DirectionCore, &l
	}
	if to.Point.IsGlobalExecutor() {
		return DirectionFabric, nil
	}
	if to.Point.Equal(inj.Wave.From.Point) {
		l := to.Layer
		dir, ok := directionBetween(inj.InjectorSurface.Layer, to.Layer)
		if !ok {
			dir = DirectionFabric
		}
		return dir, &l
	}
	return DirectionFabric, nil
}

// run walks trav through plan one layer at a time. Step 3 applies once,
// at injection: if the layer the wave entered on isn't interceptable
// (or isn't even in the plan), step forward once to find the first
// layer the walk should actually visit. From there, step 4 visits
// Field/Shell on every interceptable layer the walk lands on and exits
// immediately the moment it lands on anything else, and step 5 stops
// early once the traversal reaches its configured destination layer.
func (e *Engine) run(ctx context.Context, trav *Traversal, plan Plan) error {
	if !plan.Interceptable(trav.Layer) {
		next, ok := plan.Next(trav.Layer, trav.Direction)
		if !ok {
			return e.boundary(ctx, trav)
		}
		trav.Layer = next
	}

	for {
		if !plan.Interceptable(trav.Layer) {
			return e.exitTerminal(ctx, trav)
		}

		atDest := trav.AtDestination()

		var err error
		switch trav.Layer {
		case address.LayerField:
			err = e.visitField(ctx, trav)
		case address.LayerShell:
			err = e.visitShell(ctx, trav)
		default:
			err = e.visitExtended(ctx, trav)
		}
		if err != nil {
			return err
		}
		if atDest {
			return nil
		}

		next, ok := plan.Next(trav.Layer, trav.Direction)
		if !ok {
			return e.boundary(ctx, trav)
		}
		trav.Layer = next
	}
}

func (e *Engine) visitField(ctx context.Context, trav *Traversal) error {
	for _, fi := range e.fields {
		if err := fi.Visit(ctx, trav); err != nil {
			return e.reflectOrLog(ctx, trav, err)
		}
	}
	return nil
}

func (e *Engine) visitShell(ctx context.Context, trav *Traversal) error {
	state := e.states.For(trav.Point)
	for _, si := range e.shells {
		if err := si.Visit(ctx, trav, state); err != nil {
			return e.reflectOrLog(ctx, trav, err)
		}
	}
	return nil
}

// visitExtended handles an interceptable layer beyond Field/Shell
// (e.g. a hosted kind's Portal) for which no interceptor chain is
// registered yet; a kind that marks such a layer interceptable but
// never wires interceptors for it simply passes through.
func (e *Engine) visitExtended(_ context.Context, _ *Traversal) error {
	return nil
}

func (e *Engine) reflectOrLog(ctx context.Context, trav *Traversal, cause error) error {
	if !trav.Wave.Kind.Reflectable() {
		e.log.WithError(cause).WithField("point", trav.Point.String()).Warn("traversal: layer visit failed for a non-reflectable wave")
		return nil
	}
	reflected := trav.Wave.ReflectError(trav.ToSurface, cause)
	return e.Inject(ctx, Injection{InjectorSurface: trav.Injector, Wave: reflected})
}

func (e *Engine) exitTerminal(ctx context.Context, trav *Traversal) error {
	switch trav.Direction {
	case DirectionFabric:
		return e.exit.ExitUp(ctx, trav)
	default:
		return e.exit.ExitDown(ctx, trav)
	}
}

func (e *Engine) boundary(ctx context.Context, trav *Traversal) error {
	if trav.Direction == DirectionFabric {
		return e.exit.ExitUp(ctx, trav)
	}
	e.log.WithField("point", trav.Point.String()).Warn("traversal: walked to the end of the plan while still heading toward Core")
	return fmt.Errorf("traversal: %s: no further layer toward Core", trav.Point)
}
