package ssn

// Counter is the sender sequence number of a single security context. It is owned by that context
// and isn't safe for concurrent use.
type Counter struct {
	manager    *Manager
	senderID   []byte
	idContext  []byte
	persistent bool
	next       uint64
}

// NewCounter initializes a Counter for the context identified by senderID and idContext. See
// Manager.Init for recovery semantics.
//
// With persistence enabled, the starting value is checkpointed before NewCounter returns. The
// recovery offset need not be a multiple of the store interval, so without this checkpoint a crash
// before the first interval boundary would recover to the same starting value.
func (m *Manager) NewCounter(senderID, idContext []byte, persistent bool) (*Counter, error) {
	next, err := m.Init(senderID, idContext, persistent)
	if err != nil {
		return nil, err
	}
	if persistent {
		if err := m.checkpoint(senderID, idContext, next); err != nil {
			return nil, err
		}
	}
	return &Counter{
		manager:    m,
		senderID:   append([]byte{}, senderID...),
		idContext:  append([]byte{}, idContext...),
		persistent: persistent,
		next:       next,
	}, nil
}

// Peek returns the value the next call to Next will hand out.
func (c *Counter) Peek() uint64 {
	return c.next
}

// SenderID returns the sender ID the Counter belongs to.
func (c *Counter) SenderID() []byte {
	return c.senderID
}

// IDContext returns the ID context the Counter belongs to.
func (c *Counter) IDContext() []byte {
	return c.idContext
}

// Next returns a fresh sequence number and advances the counter. Values on a store interval
// boundary are checkpointed before being returned.
//
// If the checkpoint fails, the returned sequence number is still valid and has been consumed; the
// error wraps ErrCheckpointFailed. Once every sequence number up to MaxSSN has been handed out,
// Next returns ErrExhausted.
func (c *Counter) Next() (uint64, error) {
	if c.next > MaxSSN {
		return 0, ErrExhausted
	}
	used := c.next
	c.next++
	if err := c.manager.StoreInNVM(c.senderID, c.idContext, used, c.persistent); err != nil {
		return used, err
	}
	return used, nil
}
