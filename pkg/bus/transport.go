package bus

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

// Strategy names the wire strategy a Transport uses to move Messages to and
// from a window.
type Strategy string

const (
	StrategyPort    Strategy = "port"    // linked message-port pair, JSON payloads
	StrategyChannel Strategy = "channel" // single named channel, length-delimited frames
)

// Transport moves Messages between the bus and registered windows. Init
// installs onMessage, which the transport invokes for every inbound Message
// a window sends — the host runtime delivers the raw event to Receive (Port)
// or ReceiveBytes (Channel), and the transport decodes it before calling
// onMessage.
type Transport interface {
	Init(onMessage func(windowID string, msg Message)) error
	RegisterWindow(id string, w windowreg.Window) error
	UnregisterWindow(id string)
	Send(id string, msg Message) error
	Broadcast(msg Message, ids []string) (sent int)
	Dispose()
}

// NewTransport returns the preferred strategy (Port), uninitialized;
// MessageBus.New calls Init and falls back to a ChannelTransport if that
// fails.
func NewTransport(logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return NewPortTransport(logger)
}

// PortTransport sends each Message as a JSON-serializable payload directly
// over a per-window linked port (windowreg.Window.Send). No byte framing is
// needed: the host's message-port delivery preserves structured payloads.
type PortTransport struct {
	mu        sync.RWMutex
	windows   map[string]windowreg.Window
	onMessage func(windowID string, msg Message)
	logger    *slog.Logger
	closed    bool
}

// NewPortTransport constructs a PortTransport.
func NewPortTransport(logger *slog.Logger) *PortTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortTransport{
		windows: make(map[string]windowreg.Window),
		logger:  logger.With("component", "bus_transport", "strategy", StrategyPort),
	}
}

func (p *PortTransport) Init(onMessage func(windowID string, msg Message)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onMessage = onMessage
	return nil
}

func (p *PortTransport) RegisterWindow(id string, w windowreg.Window) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows[id] = w
	return nil
}

func (p *PortTransport) UnregisterWindow(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.windows, id)
}

func (p *PortTransport) Send(id string, msg Message) error {
	p.mu.RLock()
	w, ok := p.windows[id]
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrTransportClosed
	}
	if !ok || w.Destroyed() {
		return windowreg.ErrWindowNotFound
	}
	w.Send("bus-message", msg)
	return nil
}

func (p *PortTransport) Broadcast(msg Message, ids []string) int {
	sent := 0
	for _, id := range ids {
		if err := p.Send(id, msg); err != nil {
			p.logger.Warn("broadcast send failed", "window", id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Receive delivers an inbound Message that arrived on id's linked port to
// the installed onMessage callback. The host runtime's port-message event
// handler calls this; a structured payload needs no decoding.
func (p *PortTransport) Receive(id string, msg Message) {
	p.mu.RLock()
	cb := p.onMessage
	p.mu.RUnlock()
	if cb != nil {
		cb(id, msg)
	}
}

func (p *PortTransport) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.windows = make(map[string]windowreg.Window)
}

const channelHeaderSize = 4 // uint32 big-endian payload length

func encodeChannelFrame(payload []byte) []byte {
	buf := make([]byte, channelHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[:channelHeaderSize], uint32(len(payload)))
	copy(buf[channelHeaderSize:], payload)
	return buf
}

func decodeChannelFrame(data []byte) ([]byte, error) {
	if len(data) < channelHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	n := int(binary.BigEndian.Uint32(data[:channelHeaderSize]))
	if len(data) < channelHeaderSize+n {
		return nil, io.ErrUnexpectedEOF
	}
	return data[channelHeaderSize : channelHeaderSize+n], nil
}

// ChannelTransport encodes each Message as JSON behind a 4-byte
// length-delimited header before delivery over a single shared channel, for
// hosts whose window bridge only exposes one byte-oriented pipe per window
// rather than linked ports.
type ChannelTransport struct {
	mu        sync.RWMutex
	windows   map[string]windowreg.Window
	onMessage func(windowID string, msg Message)
	logger    *slog.Logger
	closed    bool
}

// NewChannelTransport constructs a ChannelTransport.
func NewChannelTransport(logger *slog.Logger) *ChannelTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelTransport{
		windows: make(map[string]windowreg.Window),
		logger:  logger.With("component", "bus_transport", "strategy", StrategyChannel),
	}
}

func (c *ChannelTransport) Init(onMessage func(windowID string, msg Message)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = onMessage
	return nil
}

func (c *ChannelTransport) RegisterWindow(id string, w windowreg.Window) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[id] = w
	return nil
}

func (c *ChannelTransport) UnregisterWindow(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, id)
}

func (c *ChannelTransport) encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return encodeChannelFrame(payload), nil
}

func (c *ChannelTransport) Send(id string, msg Message) error {
	c.mu.RLock()
	w, ok := c.windows[id]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrTransportClosed
	}
	if !ok || w.Destroyed() {
		return windowreg.ErrWindowNotFound
	}
	data, err := c.encode(msg)
	if err != nil {
		return err
	}
	w.Send("bus-channel", data)
	return nil
}

func (c *ChannelTransport) Broadcast(msg Message, ids []string) int {
	sent := 0
	for _, id := range ids {
		if err := c.Send(id, msg); err != nil {
			c.logger.Warn("broadcast send failed", "window", id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// ReceiveBytes decodes a length-delimited frame that arrived on id's shared
// channel and, on success, delivers the Message to onMessage. The host
// runtime's channel-message event handler calls this with the raw bytes it
// received.
func (c *ChannelTransport) ReceiveBytes(id string, data []byte) error {
	payload, err := decodeChannelFrame(data)
	if err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	c.mu.RLock()
	cb := c.onMessage
	c.mu.RUnlock()
	if cb != nil {
		cb(id, msg)
	}
	return nil
}

func (c *ChannelTransport) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.windows = make(map[string]windowreg.Window)
}
