package ssn

import (
	"encoding/hex"
	"sync"

	"github.com/oscore-edhoc/wire/pkg/protocol"
)

//go:generate mockgen -destination ../../../mocks/store.go -package mocks -mock_names Store=Store github.com/oscore-edhoc/wire/pkg/oscore/ssn Store

var (
	// ErrNoRecord indicates that nothing has been persisted for a context. Stores must return an
	// error matching ErrNoRecord (rather than a zero value) so that the Manager can log it.
	ErrNoRecord = protocol.NewError(protocol.KindStorageUnavailable, "ssn: no persisted record")
	// ErrNotImplemented is returned by every UnimplementedStore operation.
	ErrNotImplemented = protocol.NewError(protocol.KindStorageUnavailable, "ssn: persistence not implemented")
)

// Store persists one sequence number per (sender ID, ID context) pair. Implementations must not
// return from WriteSSN until the value is durable.
type Store interface {
	WriteSSN(senderID, idContext []byte, ssn uint64) error
	ReadSSN(senderID, idContext []byte) (uint64, error)
}

// UnimplementedStore is a Store that fails every operation. It's an explicit opt-out for
// deployments that never enable persistence.
type UnimplementedStore struct{}

func (UnimplementedStore) WriteSSN(senderID, idContext []byte, ssn uint64) error {
	return ErrNotImplemented
}

func (UnimplementedStore) ReadSSN(senderID, idContext []byte) (uint64, error) {
	return 0, ErrNotImplemented
}

func isUnimplemented(s Store) bool {
	switch s.(type) {
	case UnimplementedStore, *UnimplementedStore:
		return true
	}
	return false
}

// recordKey returns the key under which backends file a context's sequence number.
func recordKey(senderID, idContext []byte) string {
	return hex.EncodeToString(senderID) + "/" + hex.EncodeToString(idContext)
}

// MemoryStore is a volatile Store, useful for tests and for contexts that are re-established from
// scratch on every start.
type MemoryStore struct {
	lock    sync.Mutex
	records map[string]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]uint64)}
}

func (m *MemoryStore) WriteSSN(senderID, idContext []byte, ssn uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.records[recordKey(senderID, idContext)] = ssn
	return nil
}

func (m *MemoryStore) ReadSSN(senderID, idContext []byte) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	ssn, ok := m.records[recordKey(senderID, idContext)]
	if !ok {
		return 0, ErrNoRecord
	}
	return ssn, nil
}
