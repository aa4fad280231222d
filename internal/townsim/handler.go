package townsim

import "time"

// Handler is one input-name's processing function: validate then apply,
// returning the closed Result union. Grounded on the teacher's
// ActionHandler interface (game/action_handler.go), generalized from
// game actions to simulation inputs.
type Handler interface {
	Name() InputName
	Handle(ctx *HandlerContext, input Input) Result
}

// HandlerContext bundles the dependencies a Handler needs, grounded on
// the teacher's ActionContext struct.
type HandlerContext struct {
	World      *World
	Pathfinder *Pathfinder
	Now        time.Time
	Scheduler  OperationScheduler
}

// OperationScheduler is the seam a Handler uses to dispatch an
// asynchronous operation without importing the engine package directly,
// grounded on the registry/dispatch split the teacher already draws
// between game and game/actions to avoid import cycles.
type OperationScheduler interface {
	Schedule(op Operation)
}

// HandlerRegistry maps input names to their Handler, grounded on the
// teacher's HandlerRegistry (game/action_handler.go).
type HandlerRegistry struct {
	handlers map[InputName]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[InputName]Handler)}
}

func (r *HandlerRegistry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

func (r *HandlerRegistry) Get(name InputName) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}
