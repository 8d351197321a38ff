package ssn

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/oscore-edhoc/wire/pkg/cbor"
)

const leveldbKeyPrefix = "ssn/"

// LevelDBStore persists sequence numbers in a LevelDB database. Values are CBOR unsigned integers
// and every write is synced.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (or creates) the database in directory path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// NewLevelDBStore wraps an open database. The caller retains ownership of db.
func NewLevelDBStore(db *leveldb.DB) *LevelDBStore {
	return &LevelDBStore{db: db}
}

func (l *LevelDBStore) Close() error {
	return l.db.Close()
}

func leveldbKey(senderID, idContext []byte) []byte {
	return []byte(leveldbKeyPrefix + recordKey(senderID, idContext))
}

func (l *LevelDBStore) WriteSSN(senderID, idContext []byte, ssn uint64) error {
	var buf [9]byte
	n, err := cbor.EncodeUint(buf[:], ssn)
	if err != nil {
		return err
	}
	return l.db.Put(leveldbKey(senderID, idContext), buf[:n], &opt.WriteOptions{Sync: true})
}

func (l *LevelDBStore) ReadSSN(senderID, idContext []byte) (uint64, error) {
	value, err := l.db.Get(leveldbKey(senderID, idContext), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, ErrNoRecord
	}
	if err != nil {
		return 0, err
	}
	ssn, n, err := cbor.DecodeUint(value)
	if err != nil {
		return 0, err
	}
	if n != len(value) {
		return 0, fmt.Errorf("ssn: %d trailing bytes in record", len(value)-n)
	}
	return ssn, nil
}
