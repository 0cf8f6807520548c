package bus

// dispatch handles one inbound Message a window sent over its Transport,
// doing whatever a Go caller could do in-process via the bus's own methods.
// It is installed as the Transport's onMessage callback in New. Any type
// not listed here is logged and ignored.
func (b *MessageBus) dispatch(windowID string, msg Message) {
	switch msg.Type {
	case MsgGet:
		b.handleGet(windowID, msg)
	case MsgSet:
		b.handleSet(windowID, msg)
	case MsgDelete:
		b.handleDelete(windowID, msg)
	case MsgUpdate:
		b.handleUpdate(windowID, msg)
	case MsgSubscribe:
		b.Subscribe(msg.Key, windowID)
	case MsgUnsubscribe:
		b.Unsubscribe(msg.Key, windowID)
	case MsgSetPermission:
		b.SetPermission(msg.Key, msg.Permission, msg.AllowedWindows)
	case MsgTransactionStart:
		b.StartTransaction(windowID)
	case MsgCommit:
		if err := b.Commit(windowID); err != nil {
			b.logger.Warn("commit failed", "window", windowID, "error", err)
		}
	case MsgRollback:
		b.Rollback(windowID)
	case MsgSendToWindow:
		if err := b.SendToWindow(msg.TargetWindow, msg); err != nil {
			b.logger.Warn("send to window failed", "from", windowID, "to", msg.TargetWindow, "error", err)
		}
	case MsgSendToGroup:
		b.handleSendToGroup(windowID, msg)
	case MsgGetResponse:
		// Only ever arrives as the reply half of a host-initiated AwaitGet.
		b.resolvePending(msg)
	default:
		b.logger.Warn("ignoring unrecognized inbound message type", "window", windowID, "type", msg.Type)
	}
}

func (b *MessageBus) handleGet(windowID string, msg Message) {
	resp := Message{Type: MsgGetResponse, Key: msg.Key, RequestID: msg.RequestID}
	if v, ok := b.GetData(msg.Key, windowID); ok {
		resp.Value = v
	} else {
		resp.Error = ErrKeyNotFound.Error()
	}
	if err := b.transport.Send(windowID, resp); err != nil {
		b.logger.Warn("GET_RESPONSE send failed", "window", windowID, "key", msg.Key, "error", err)
	}
}

func (b *MessageBus) handleSet(windowID string, msg Message) {
	if err := b.SetData(msg.Key, msg.Value, windowID); err != nil {
		b.logger.Debug("SET denied", "window", windowID, "key", msg.Key, "error", err)
	}
}

func (b *MessageBus) handleDelete(windowID string, msg Message) {
	if err := b.DeleteData(msg.Key, windowID); err != nil {
		b.logger.Debug("DELETE denied", "window", windowID, "key", msg.Key, "error", err)
	}
}

// handleUpdate treats an inbound UPDATE's Value as a numeric delta, the
// canonical use named in the spec's read-your-writes scenario
// (updateData(k, x=>x+1, w)): non-numeric or missing current values are
// treated as zero.
func (b *MessageBus) handleUpdate(windowID string, msg Message) {
	delta := asFloat64(msg.Value)
	err := b.UpdateData(msg.Key, func(old any) any {
		return asFloat64(old) + delta
	}, windowID)
	if err != nil {
		b.logger.Debug("UPDATE denied", "window", windowID, "key", msg.Key, "error", err)
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func (b *MessageBus) handleSendToGroup(windowID string, msg Message) {
	if b.groupResolver == nil {
		b.logger.Warn("SEND_TO_GROUP received with no group resolver configured", "group", msg.GroupID)
		return
	}
	ids := b.groupResolver(msg.GroupID)
	b.SendToGroup(ids, msg)
}

func (b *MessageBus) resolvePending(msg Message) {
	b.mu.Lock()
	reply, ok := b.pending[msg.RequestID]
	b.mu.Unlock()
	if ok {
		reply <- msg
	}
}
