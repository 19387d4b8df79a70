// Package calib persists sensor calibration independently of retained memory.
// It is read once per cold boot and written only when calibration changes.
package calib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"airnode-go/errcode"
	"airnode-go/types"

	"gopkg.in/yaml.v3"
)

// Store is the non-volatile calibration boundary.
type Store interface {
	Load() (types.SensorConfig, error)
	Save(types.SensorConfig) error
}

// ---- in-memory ----

// MemStore keeps calibration in memory; it stands in for flash in tests and
// in the simulator.
type MemStore struct {
	mu  sync.Mutex
	cfg types.SensorConfig
	// Saves counts successful Save calls.
	Saves int
}

func NewMemStore(initial types.SensorConfig) *MemStore {
	return &MemStore{cfg: initial}
}

func (m *MemStore) Load() (types.SensorConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, nil
}

func (m *MemStore) Save(c types.SensorConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = c
	m.Saves++
	return nil
}

// ---- YAML file ----

// FileStore keeps calibration in a small YAML document:
//
//	t_offset: 400
//	h_offset: 0
//	frc_value: 420
//
// A missing file loads as the zero calibration.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (f *FileStore) Load() (types.SensorConfig, error) {
	var c types.SensorConfig
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, errcode.Wrap(errcode.StoreFailure, "calib_load", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return types.SensorConfig{}, errcode.Wrap(errcode.StoreFailure, "calib_load", fmt.Errorf("%s: %w", f.Path, err))
	}
	return c, nil
}

// Save writes to a temporary file and renames it over the old one so a
// power cut never leaves a half-written document.
func (f *FileStore) Save(c types.SensorConfig) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	return errcode.Wrap(errcode.StoreFailure, "calib_save", os.Rename(tmp, f.Path))
}

// ---- raw flash block ----

// BlockDevice is an erasable flash region, as machine.Flash provides.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// blockMagic starts a written calibration block. Erased flash reads 0xFF.
var blockMagic = [4]byte{'A', 'N', 'C', '1'}

const blockHeader = 10 // magic, uint16 length, crc32 of the YAML

// BlockStore keeps the YAML document of FileStore in one erase block of a
// flash device, behind a length and CRC header. A blank block loads as the
// zero calibration.
type BlockStore struct {
	Dev BlockDevice
	// Offset is the start of the erase block used, in bytes.
	Offset int64
}

func NewBlockStore(dev BlockDevice, offset int64) *BlockStore {
	return &BlockStore{Dev: dev, Offset: offset}
}

func (b *BlockStore) Load() (types.SensorConfig, error) {
	var c types.SensorConfig
	var hdr [blockHeader]byte
	if _, err := b.Dev.ReadAt(hdr[:], b.Offset); err != nil {
		return c, errcode.Wrap(errcode.StoreFailure, "calib_load", err)
	}
	if [4]byte(hdr[:4]) != blockMagic {
		return c, nil
	}
	n := int64(binary.LittleEndian.Uint16(hdr[4:6]))
	if n > b.Dev.EraseBlockSize()-blockHeader {
		return c, errcode.Wrap(errcode.StoreFailure, "calib_load", fmt.Errorf("length %d overruns the block", n))
	}
	raw := make([]byte, n)
	if _, err := b.Dev.ReadAt(raw, b.Offset+blockHeader); err != nil {
		return c, errcode.Wrap(errcode.StoreFailure, "calib_load", err)
	}
	if crc32.ChecksumIEEE(raw) != binary.LittleEndian.Uint32(hdr[6:10]) {
		return c, errcode.Wrap(errcode.StoreFailure, "calib_load", errcode.CRCMismatch)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return types.SensorConfig{}, errcode.Wrap(errcode.StoreFailure, "calib_load", err)
	}
	return c, nil
}

// Save erases the block and writes the new document, padded to the device's
// write size.
func (b *BlockStore) Save(c types.SensorConfig) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	erase := b.Dev.EraseBlockSize()
	if int64(len(raw))+blockHeader > erase {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", fmt.Errorf("%d bytes do not fit one block", len(raw)))
	}
	ws := b.Dev.WriteBlockSize()
	size := (int64(len(raw)) + blockHeader + ws - 1) / ws * ws
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf, blockMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(raw)))
	binary.LittleEndian.PutUint32(buf[6:10], crc32.ChecksumIEEE(raw))
	copy(buf[blockHeader:], raw)

	if err := b.Dev.EraseBlocks(b.Offset/erase, 1); err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	if _, err := b.Dev.WriteAt(buf, b.Offset); err != nil {
		return errcode.Wrap(errcode.StoreFailure, "calib_save", err)
	}
	return nil
}
