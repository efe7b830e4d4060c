package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

// Handler consumes one dispatched envelope.
type Handler func(protocol.Envelope)

// Router demultiplexes inbound envelopes by kind. Several subscribers may
// register for the same kind; each receives every envelope of that kind
// (fan-out, not competing consumption). A kind with no handler is a
// no-op, which is what keeps the client forward compatible with message
// kinds the server introduces later.
type Router struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register subscribes a handler to an exact message kind.
func (r *Router) Register(kind string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], fn)
}

// Dispatch delivers the envelope to every handler registered for its
// kind, in registration order.
func (r *Router) Dispatch(env protocol.Envelope) {
	r.mu.RLock()
	handlers := r.handlers[env.Kind]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.Debug("no handler for message kind", zap.String("kind", env.Kind))
		return
	}
	for _, fn := range handlers {
		fn(env)
	}
}
