package ssn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	fxcbor "github.com/fxamacker/cbor/v2"
)

const fileStateVersion = 1

// fileState is the on-disk layout of a FileStore.
type fileState struct {
	Version int               `cbor:"1,keyasint"`
	Records map[string]uint64 `cbor:"2,keyasint"`
}

var fileEncMode fxcbor.EncMode

func init() {
	var err error
	if fileEncMode, err = fxcbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
}

// FileStore persists sequence numbers to a single CBOR file. Every write replaces the file
// atomically, so a crash leaves either the old or the new state on disk.
type FileStore struct {
	filename string
	lock     sync.Mutex
}

// NewFileStore returns a FileStore backed by filename. The file is created on the first write.
func NewFileStore(filename string) *FileStore {
	return &FileStore{filename: filename}
}

func importState(r io.Reader) (*fileState, error) {
	var state fileState
	if err := fxcbor.NewDecoder(r).Decode(&state); err != nil {
		return nil, err
	}
	if state.Version != fileStateVersion {
		return nil, fmt.Errorf("ssn: unsupported state file version %d", state.Version)
	}
	if state.Records == nil {
		state.Records = make(map[string]uint64)
	}
	return &state, nil
}

func (f *FileStore) load() (*fileState, error) {
	file, err := os.Open(f.filename)
	if errors.Is(err, os.ErrNotExist) {
		return &fileState{Version: fileStateVersion, Records: make(map[string]uint64)}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return importState(file)
}

func (f *FileStore) save(state *fileState) error {
	encoded, err := fileEncMode.Marshal(state)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.filename), filepath.Base(f.filename)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.filename)
}

func (f *FileStore) WriteSSN(senderID, idContext []byte, ssn uint64) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	state, err := f.load()
	if err != nil {
		return err
	}
	state.Records[recordKey(senderID, idContext)] = ssn
	return f.save(state)
}

func (f *FileStore) ReadSSN(senderID, idContext []byte) (uint64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	state, err := f.load()
	if err != nil {
		return 0, err
	}
	ssn, ok := state.Records[recordKey(senderID, idContext)]
	if !ok {
		return 0, ErrNoRecord
	}
	return ssn, nil
}

// Records returns a copy of every persisted record, keyed by hex sender ID and hex ID context
// separated by a slash.
func (f *FileStore) Records() (map[string]uint64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	records := make(map[string]uint64, len(state.Records))
	for k, v := range state.Records {
		records[k] = v
	}
	return records, nil
}
