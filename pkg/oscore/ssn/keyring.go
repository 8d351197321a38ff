package ssn

import (
	"encoding/hex"
	"errors"

	"github.com/99designs/keyring"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const keyringItemLabel = "OSCORE sender sequence number"

// KeyringStore persists sequence numbers in an OS keyring or any other keyring.Keyring backend.
type KeyringStore struct {
	ring keyring.Keyring
}

func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func keyringItemKey(senderID, idContext []byte) string {
	return "ssn." + hex.EncodeToString(senderID) + "." + hex.EncodeToString(idContext)
}

func (k *KeyringStore) WriteSSN(senderID, idContext []byte, ssn uint64) error {
	data, err := proto.Marshal(wrapperspb.UInt64(ssn))
	if err != nil {
		return err
	}
	return k.ring.Set(keyring.Item{
		Key:   keyringItemKey(senderID, idContext),
		Data:  data,
		Label: keyringItemLabel,
	})
}

func (k *KeyringStore) ReadSSN(senderID, idContext []byte) (uint64, error) {
	item, err := k.ring.Get(keyringItemKey(senderID, idContext))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return 0, ErrNoRecord
	}
	if err != nil {
		return 0, err
	}
	var value wrapperspb.UInt64Value
	if err := proto.Unmarshal(item.Data, &value); err != nil {
		return 0, err
	}
	return value.GetValue(), nil
}
