package ipcrouter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterSuccessfulCall(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	require.NoError(t, r.Handle("ping", func(ctx *CallContext, payload any) (any, error) {
		return "pong", nil
	}, nil))

	resp := r.Call(context.Background(), Request{Name: "ping"}, "s1")
	assert.Equal(t, CodeOK, resp.Code)
	assert.Equal(t, "pong", resp.Data)
}

func TestRouterUnknownHandler(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	resp := r.Call(context.Background(), Request{Name: "missing"}, "s1")
	assert.Equal(t, CodeNotFound, resp.Code)
	assert.Equal(t, CategoryNotFound, resp.Category)
}

func TestRouterHandlerPanicBecomesInternalError(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	require.NoError(t, r.Handle("boom", func(ctx *CallContext, payload any) (any, error) {
		panic("kaboom")
	}, nil))

	resp := r.Call(context.Background(), Request{Name: "boom"}, "s1")
	assert.Equal(t, CodeInternalError, resp.Code)
	assert.Equal(t, CategoryInternal, resp.Category)
}

// TestRouterRateLimitDenial covers the spec's concrete rate-limit scenario:
// limit 2 per 1s window, three calls from the same sender within the
// window yield success, success, RATE_LIMIT, and the window reopens once
// the interval elapses.
func TestRouterRateLimitDenial(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	require.NoError(t, r.Handle("tick", func(ctx *CallContext, payload any) (any, error) {
		return nil, nil
	}, nil))
	r.SetRateLimit("tick", RateRule{Limit: 2, Interval: time.Second})

	ctx := context.Background()
	resp1 := r.Call(ctx, Request{Name: "tick"}, "s1")
	resp2 := r.Call(ctx, Request{Name: "tick"}, "s1")
	resp3 := r.Call(ctx, Request{Name: "tick"}, "s1")

	assert.Equal(t, CodeOK, resp1.Code)
	assert.Equal(t, CodeOK, resp2.Code)
	assert.Equal(t, CodeRateLimit, resp3.Code)
	assert.Equal(t, CategoryRateLimit, resp3.Category)

	time.Sleep(1100 * time.Millisecond)
	resp4 := r.Call(ctx, Request{Name: "tick"}, "s1")
	assert.Equal(t, CodeOK, resp4.Code)
}

// TestRouterSchemaValidation covers the spec's concrete schema scenario: a
// handler requiring a nonempty "id" string rejects an empty id with
// VALIDATION category and issue details, and accepts a valid id.
func TestRouterSchemaValidation(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	schema := NewSchema(Field{Name: "id", Kind: KindString, Required: true, NonEmpty: true})
	require.NoError(t, r.Handle("getUser", func(ctx *CallContext, payload any) (any, error) {
		m := payload.(map[string]any)
		return map[string]any{"id": m["id"]}, nil
	}, schema))

	ctx := context.Background()

	bad := r.Call(ctx, Request{Name: "getUser", Payload: map[string]any{"id": ""}}, "s1")
	assert.Equal(t, CodeValidationError, bad.Code)
	assert.Equal(t, CategoryValidation, bad.Category)
	require.NotNil(t, bad.Details)

	good := r.Call(ctx, Request{Name: "getUser", Payload: map[string]any{"id": "u-1"}}, "s1")
	assert.Equal(t, CodeOK, good.Code)
}

func TestRouterHandleBatchPreservesOrder(t *testing.T) {
	r := New(Config{})
	defer r.Dispose()

	require.NoError(t, r.Handle("echo", func(ctx *CallContext, payload any) (any, error) {
		return payload, nil
	}, nil))

	reqs := []Request{
		{Name: "echo", Payload: "a"},
		{Name: "echo", Payload: "b"},
		{Name: "echo", Payload: "c"},
	}
	resps := r.HandleBatch(context.Background(), reqs, "s1")
	require.Len(t, resps, 3)
	assert.Equal(t, "a", resps[0].Data)
	assert.Equal(t, "b", resps[1].Data)
	assert.Equal(t, "c", resps[2].Data)
}

// TestRouterInjectsAPIRecord covers the spec's dependency-injection step: a
// handler reaches a collaborator through ctx.API rather than a closure, and
// mutating the map a handler receives never leaks into the next call.
func TestRouterInjectsAPIRecord(t *testing.T) {
	r := New(Config{API: APIRecord{"greeting": "hello"}})
	defer r.Dispose()

	require.NoError(t, r.Handle("greet", func(ctx *CallContext, payload any) (any, error) {
		got := ctx.API["greeting"]
		ctx.API["greeting"] = "mutated"
		return got, nil
	}, nil))

	resp1 := r.Call(context.Background(), Request{Name: "greet"}, "s1")
	assert.Equal(t, CodeOK, resp1.Code)
	assert.Equal(t, "hello", resp1.Data)

	resp2 := r.Call(context.Background(), Request{Name: "greet"}, "s1")
	assert.Equal(t, "hello", resp2.Data)

	r.SetAPI(APIRecord{"greeting": "reset"})
	resp3 := r.Call(context.Background(), Request{Name: "greet"}, "s1")
	assert.Equal(t, "reset", resp3.Data)
}

func TestRouterDisposeRejectsFurtherCalls(t *testing.T) {
	r := New(Config{})
	require.NoError(t, r.Handle("ping", func(ctx *CallContext, payload any) (any, error) {
		return nil, nil
	}, nil))
	r.Dispose()

	resp := r.Call(context.Background(), Request{Name: "ping"}, "s1")
	assert.Equal(t, CodeInternalError, resp.Code)
}
