// Package retained is the load/store boundary for state that survives deep
// sleep. The controller reads it once at process start and writes it once,
// as the last action before arming sleep.
package retained

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io/fs"
	"os"
	"sync"

	"airnode-go/errcode"
	"airnode-go/types"
)

// ErrEmpty is returned by Load when nothing has been retained yet, or when
// the retained block did not survive (power loss, layout change).
var ErrEmpty = errors.New("retained: empty")

type Store interface {
	Load() (types.PersistedState, error)
	Save(types.PersistedState) error
}

// ---- in-memory ----

// MemStore models a retained RAM block.
type MemStore struct {
	mu    sync.Mutex
	st    types.PersistedState
	valid bool
}

func (m *MemStore) Load() (types.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid {
		return types.PersistedState{}, ErrEmpty
	}
	return m.st, nil
}

func (m *MemStore) Save(st types.PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st, m.valid = st, true
	return nil
}

// PowerLoss drops the retained block, as a cold boot does.
func (m *MemStore) PowerLoss() {
	m.mu.Lock()
	m.valid = false
	m.st = types.PersistedState{}
	m.mu.Unlock()
}

// ---- file ----

const (
	magic   uint32 = 0x4e524941 // "AIRN"
	version uint8  = 1
)

type header struct {
	Magic   uint32
	Version uint8
	Sum     uint32 // CRC-32 (IEEE) of the encoded state
}

// FileStore keeps the retained block in a fixed-layout little-endian file,
// for hosts where a tmpfs file plays the part of retained RAM.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (f *FileStore) Load() (types.PersistedState, error) {
	var st types.PersistedState
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, ErrEmpty
	}
	if err != nil {
		return st, errcode.Wrap(errcode.StoreFailure, "retained_load", err)
	}
	return Decode(raw)
}

func (f *FileStore) Save(st types.PersistedState) error {
	raw, err := Encode(st)
	if err != nil {
		return errcode.Wrap(errcode.StoreFailure, "retained_save", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errcode.Wrap(errcode.StoreFailure, "retained_save", err)
	}
	return errcode.Wrap(errcode.StoreFailure, "retained_save", os.Rename(tmp, f.Path))
}

// Encode renders st in the retained layout: header then state.
func Encode(st types.PersistedState) ([]byte, error) {
	var body bytes.Buffer
	if err := binary.Write(&body, binary.LittleEndian, &st); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	h := header{Magic: magic, Version: version, Sum: crc32.ChecksumIEEE(body.Bytes())}
	if err := binary.Write(&out, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Decode parses the retained layout. Anything that does not match the
// current layout exactly is reported as ErrEmpty.
func Decode(raw []byte) (types.PersistedState, error) {
	var (
		h  header
		st types.PersistedState
	)
	hs, ss := binary.Size(h), binary.Size(st)
	if len(raw) != hs+ss {
		return st, ErrEmpty
	}
	if err := binary.Read(bytes.NewReader(raw[:hs]), binary.LittleEndian, &h); err != nil {
		return st, ErrEmpty
	}
	if h.Magic != magic || h.Version != version || h.Sum != crc32.ChecksumIEEE(raw[hs:]) {
		return st, ErrEmpty
	}
	if err := binary.Read(bytes.NewReader(raw[hs:]), binary.LittleEndian, &st); err != nil {
		return types.PersistedState{}, ErrEmpty
	}
	return st, nil
}
