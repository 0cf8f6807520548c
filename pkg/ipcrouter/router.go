package ipcrouter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config configures a Router.
type Config struct {
	// DefaultRate, if set, rate-limits every handler that has no per-handler
	// override via SetRateLimit.
	DefaultRate *RateRule
	Logger      *slog.Logger

	// API is shallow-copied into the CallContext of every call, giving
	// handlers dependency-injected access to the collaborators named here
	// (e.g. "bus", "store") instead of capturing them via closures.
	API APIRecord
}

// Router is the single-channel multiplexed request/response dispatcher:
// every inbound call is validated, rate-limited, dispatched to a registered
// handler, and the result (or any error) is wrapped into a Response before
// it crosses back over the wire.
type Router struct {
	dispatcher *MessageDispatcher
	limiter    *RateLimiter
	logger     *slog.Logger
	api        APIRecord

	mu     sync.RWMutex
	closed bool

	metrics *routerMetrics
	tracing *TracingConfig
}

// New constructs a Router.
func New(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		dispatcher: NewMessageDispatcher(),
		limiter:    NewRateLimiter(cfg.DefaultRate, cfg.Logger),
		logger:     cfg.Logger.With("component", "ipc_router"),
		api:        cfg.API,
	}
}

// SetAPI replaces the collaborator record injected into every subsequent
// call's CallContext.
func (r *Router) SetAPI(api APIRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.api = api
}

// Handle registers fn under name. schema may be nil to skip payload
// validation.
func (r *Router) Handle(name string, fn HandlerFunc, schema *Schema) error {
	return r.dispatcher.Register(name, fn, schema)
}

// RemoveHandler unregisters a previously registered handler.
func (r *Router) RemoveHandler(name string) {
	r.dispatcher.Unregister(name)
}

// SetRateLimit overrides the rate rule applied to a specific handler name.
func (r *Router) SetRateLimit(name string, rule RateRule) {
	r.limiter.SetRule(name, rule)
}

// Call runs the full dispatch algorithm for a single request and always
// returns a Response — handler panics, validation failures, missing
// handlers, and rate-limit denials all resolve to a categorized Response
// rather than a Go error.
func (r *Router) Call(ctx context.Context, req Request, senderID string) Response {
	start := time.Now()
	handler := req.Name

	var span trace.Span
	if r.tracing != nil {
		_, span = r.tracing.startSpan(ctx, handler, senderID)
	}

	resp, err := r.call(req, senderID)

	if r.metrics != nil {
		r.metrics.observe(handler, resp.Code, time.Since(start).Seconds())
	}
	endSpan(span, resp, err)

	return resp
}

func (r *Router) call(req Request, senderID string) (Response, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return Fail(CodeInternalError, CategoryInternal, ErrRouterClosed.Error(), nil), ErrRouterClosed
	}

	if req.Name == "" {
		return Fail(CodeValidationError, CategoryValidation, ErrEnvelopeInvalid.Error(), nil), ErrEnvelopeInvalid
	}

	rateKey := senderID + ":" + req.Name
	if !r.limiter.Check(rateKey, req.Name) {
		return Fail(CodeRateLimit, CategoryRateLimit, ErrRateLimited.Error(), nil), ErrRateLimited
	}

	entry, ok := r.dispatcher.lookup(req.Name)
	if !ok {
		return Fail(CodeNotFound, CategoryNotFound, "no handler registered for \""+req.Name+"\"", nil), ErrHandlerNotFound
	}

	if entry.schema != nil {
		if verr := entry.schema.Validate(req.Payload); verr != nil {
			return Fail(CodeValidationError, CategoryValidation, verr.Error(), verr.Issues), verr
		}
	}

	return r.invoke(entry, req, senderID)
}

func (r *Router) invoke(entry handlerEntry, req Request, senderID string) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			panicErr := &HandlerPanicError{Name: req.Name, Panic: p}
			r.logger.Error("handler panicked", "handler", req.Name, "panic", p)
			resp = Fail(CodeInternalError, CategoryInternal, panicErr.Error(), nil)
			err = panicErr
		}
	}()

	r.mu.RLock()
	api := r.api
	r.mu.RUnlock()

	cc := &CallContext{SenderID: senderID, Name: req.Name, API: api.shallowCopy()}
	data, herr := entry.fn(cc, req.Payload)
	if herr != nil {
		return classify(herr), herr
	}
	return Success(data), nil
}

// classify maps a handler error to a categorized Response. Handlers that
// want a specific category/code should return one of the sentinel- or
// struct-based errors this package defines; anything else becomes INTERNAL.
func classify(err error) Response {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Fail(CodeValidationError, CategoryValidation, verr.Error(), verr.Issues)
	}

	switch {
	case errors.Is(err, ErrHandlerNotFound):
		return Fail(CodeNotFound, CategoryNotFound, err.Error(), nil)
	case errors.Is(err, ErrRateLimited):
		return Fail(CodeRateLimit, CategoryRateLimit, err.Error(), nil)
	default:
		return Fail(CodeInternalError, CategoryInternal, err.Error(), nil)
	}
}

// HandleBatch runs several requests from the same sender in sequence,
// returning one Response per request in order.
func (r *Router) HandleBatch(ctx context.Context, reqs []Request, senderID string) []Response {
	out := make([]Response, len(reqs))
	for i, req := range reqs {
		out[i] = r.Call(ctx, req, senderID)
	}
	return out
}

// Dispose stops the rate limiter's sweeper and clears all registered
// handlers. The router rejects further calls afterward.
func (r *Router) Dispose() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.limiter.Stop()
	r.dispatcher.Clear()
}
