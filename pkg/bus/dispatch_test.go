package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchTestBus(t *testing.T) (*MessageBus, *PortTransport, map[string]*fakeWindow) {
	t.Helper()
	transport := NewPortTransport(nil)
	b := New(transport, Config{
		GroupResolver: func(group string) []string {
			if group == "g1" {
				return []string{"w1", "w2"}
			}
			return nil
		},
	})

	windows := map[string]*fakeWindow{"w1": {id: "w1"}, "w2": {id: "w2"}, "w3": {id: "w3"}}
	for id, w := range windows {
		require.NoError(t, b.RegisterWindow(id, w))
	}
	return b, transport, windows
}

// TestDispatchSetThenGetRoundTrip covers the wire path a renderer actually
// uses: SET from one window, GET (with GET_RESPONSE correlation) from
// another.
func TestDispatchSetThenGetRoundTrip(t *testing.T) {
	_, transport, windows := newDispatchTestBus(t)

	transport.Receive("w1", Message{Type: MsgSet, Key: "k", Value: "v"})

	transport.Receive("w2", Message{Type: MsgGet, Key: "k", RequestID: "r1"})
	// "k" has no subscribers, so the SET was broadcast to every window
	// (w2 included) before w2's GET_RESPONSE.
	sent := windows["w2"].sentMessages()
	require.Len(t, sent, 2)
	resp := sent[1].(Message)
	assert.Equal(t, MsgGetResponse, resp.Type)
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, "v", resp.Value)
}

func TestDispatchGetMissingKeyRepliesWithError(t *testing.T) {
	_, transport, windows := newDispatchTestBus(t)

	transport.Receive("w1", Message{Type: MsgGet, Key: "missing", RequestID: "r2"})
	sent := windows["w1"].sentMessages()
	require.Len(t, sent, 1)
	resp := sent[0].(Message)
	assert.Equal(t, MsgGetResponse, resp.Type)
	assert.NotEmpty(t, resp.Error)
}

// TestDispatchTransactionLifecycle covers the same scenario as
// TestTransactionalAtomicity but driven entirely over the wire, through
// TRANSACTION_START/SET/COMMIT messages rather than Go method calls.
func TestDispatchTransactionLifecycle(t *testing.T) {
	b, transport, windows := newDispatchTestBus(t)
	b.Subscribe("a", "w2")

	transport.Receive("w1", Message{Type: MsgTransactionStart})
	transport.Receive("w1", Message{Type: MsgSet, Key: "a", Value: 1})
	assert.Empty(t, windows["w2"].sentMessages())

	transport.Receive("w1", Message{Type: MsgCommit})
	sent := windows["w2"].sentMessages()
	require.Len(t, sent, 1)
	msg := sent[0].(Message)
	assert.Equal(t, MsgSet, msg.Type)
	assert.Equal(t, "a", msg.Key)
}

func TestDispatchUpdateAppliesNumericDelta(t *testing.T) {
	b, transport, _ := newDispatchTestBus(t)
	require.NoError(t, b.SetData("counter", float64(5), ""))

	transport.Receive("w1", Message{Type: MsgUpdate, Key: "counter", Value: float64(1)})

	v, ok := b.GetData("counter", "")
	require.True(t, ok)
	assert.Equal(t, float64(6), v)
}

func TestDispatchSendToGroupResolvesViaGroupResolver(t *testing.T) {
	_, transport, windows := newDispatchTestBus(t)

	transport.Receive("w3", Message{Type: MsgSendToGroup, GroupID: "g1", Value: "hi"})

	assert.Len(t, windows["w1"].sentMessages(), 1)
	assert.Len(t, windows["w2"].sentMessages(), 1)
	assert.Empty(t, windows["w3"].sentMessages())
}

func TestDispatchUnknownTypeIsIgnored(t *testing.T) {
	_, transport, windows := newDispatchTestBus(t)

	transport.Receive("w1", Message{Type: MessageType("BOGUS")})
	assert.Empty(t, windows["w1"].sentMessages())
}

// TestPermissionDeniedExactMessages covers the spec's concrete permission
// scenario's exact wording.
func TestPermissionDeniedExactMessages(t *testing.T) {
	b, _, _ := newDispatchTestBus(t)

	b.SetPermission("theme", PermissionReadOnly, nil)
	err := b.SetData("theme", "dark", "w2")
	require.Error(t, err)
	assert.Equal(t, `Field "theme" is readonly`, err.Error())

	b.SetPermission("admin", PermissionAllowed, []string{"w1"})
	err = b.SetData("admin", "x", "w2")
	require.Error(t, err)
	assert.Equal(t, `Window "w2" is not allowed to modify "admin"`, err.Error())
}

// TestPermissionCheckedBeforeTransactionBuffer ensures a denied write never
// enters the transaction buffer in the first place, rather than being
// buffered and silently dropped at commit.
func TestPermissionCheckedBeforeTransactionBuffer(t *testing.T) {
	b, _, _ := newDispatchTestBus(t)
	b.SetPermission("locked", PermissionReadOnly, nil)

	b.StartTransaction("w1")
	err := b.SetData("locked", "nope", "w1")
	require.Error(t, err)

	require.NoError(t, b.Commit("w1"))
	_, ok := b.GetData("locked", "")
	assert.False(t, ok)
}

func TestUpdateDataReadsOwnTransactionBuffer(t *testing.T) {
	b, _, _ := newDispatchTestBus(t)
	require.NoError(t, b.SetData("counter", 1, ""))

	b.StartTransaction("w1")
	require.NoError(t, b.SetData("counter", 2, "w1"))
	require.NoError(t, b.UpdateData("counter", func(old any) any {
		return old.(int) + 1
	}, "w1"))

	v, ok := b.GetData("counter", "w1")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	gv, _ := b.GetData("counter", "")
	assert.Equal(t, 1, gv)
}

// TestAwaitGetRoundTrip drives a real correlated GET/GET_RESPONSE exchange:
// AwaitGet sends a GET carrying a generated request id, and only resolves
// once a GET_RESPONSE echoing that id arrives over the transport.
func TestAwaitGetRoundTrip(t *testing.T) {
	b, transport, windows := newDispatchTestBus(t)

	type result struct {
		v   any
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		v, err := b.AwaitGet(context.Background(), "w1", "remote-key")
		resultCh <- result{v, err}
	}()

	require.Eventually(t, func() bool {
		return len(windows["w1"].sentMessages()) == 1
	}, time.Second, time.Millisecond)

	sentMsg := windows["w1"].sentMessages()[0].(Message)
	require.Equal(t, MsgGet, sentMsg.Type)
	require.NotEmpty(t, sentMsg.RequestID)

	transport.Receive("w1", Message{Type: MsgGetResponse, RequestID: sentMsg.RequestID, Value: "async-value"})

	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, "async-value", res.v)
}

func TestAwaitGetTimesOutWithoutResponse(t *testing.T) {
	transport := NewPortTransport(nil)
	b := New(transport, Config{GetTimeout: 20 * time.Millisecond})
	require.NoError(t, b.RegisterWindow("w1", &fakeWindow{id: "w1"}))

	_, err := b.AwaitGet(context.Background(), "w1", "k")
	assert.ErrorIs(t, err, ErrGetTimeout)
}
