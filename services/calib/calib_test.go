package calib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"airnode-go/errcode"
	"airnode-go/types"
)

func TestFileStoreMissingIsZero(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "calib.yaml"))
	c, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != (types.SensorConfig{}) {
		t.Fatalf("got %+v, want zero", c)
	}
}

func TestFileStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "calib.yaml")
	fs := NewFileStore(path)
	want := types.SensorConfig{TemperatureOffsetCenti: 400, HumidityOffsetCenti: -150, FRCValue: 420}
	if err := fs.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}
}

func TestFileStoreReadsHandWrittenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calib.yaml")
	if err := os.WriteFile(path, []byte("t_offset: -200\nfrc_value: 415\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TemperatureOffsetCenti != -200 || got.HumidityOffsetCenti != 0 || got.FRCValue != 415 {
		t.Fatalf("got %+v", got)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calib.yaml")
	if err := os.WriteFile(path, []byte("t_offset: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load()
	if errcode.Of(err) != errcode.StoreFailure {
		t.Fatalf("err = %v, want store_failure", err)
	}
}

func TestMemStore(t *testing.T) {
	m := NewMemStore(types.SensorConfig{FRCValue: 400})
	c, _ := m.Load()
	if c.FRCValue != 400 {
		t.Fatalf("initial not kept: %+v", c)
	}
	c.FRCValue = 410
	_ = m.Save(c)
	got, _ := m.Load()
	if got.FRCValue != 410 || m.Saves != 1 {
		t.Fatalf("got %+v saves=%d", got, m.Saves)
	}
}

// memFlash behaves like NOR flash: writes must be aligned and may only land
// on erased bytes.
type memFlash struct {
	data   []byte
	erases int
}

func newMemFlash(blocks int) *memFlash {
	f := &memFlash{data: make([]byte, blocks*4096)}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *memFlash) WriteBlockSize() int64 { return 256 }
func (f *memFlash) EraseBlockSize() int64 { return 4096 }

func (f *memFlash) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(f.data)) {
		return 0, io.EOF
	}
	return copy(p, f.data[off:]), nil
}

func (f *memFlash) WriteAt(p []byte, off int64) (int, error) {
	if off%256 != 0 || len(p)%256 != 0 {
		return 0, fmt.Errorf("unaligned write %d+%d", off, len(p))
	}
	for i := range p {
		if f.data[off+int64(i)] != 0xFF {
			return 0, fmt.Errorf("write to unerased byte at %d", off+int64(i))
		}
	}
	return copy(f.data[off:], p), nil
}

func (f *memFlash) EraseBlocks(start, length int64) error {
	f.erases++
	for i := start * 4096; i < (start+length)*4096; i++ {
		f.data[i] = 0xFF
	}
	return nil
}

func TestBlockStoreBlankIsZero(t *testing.T) {
	got, err := NewBlockStore(newMemFlash(2), 4096).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (types.SensorConfig{}) {
		t.Fatalf("got %+v, want zero", got)
	}
}

func TestBlockStoreSaveLoad(t *testing.T) {
	f := newMemFlash(2)
	bs := NewBlockStore(f, 4096)
	first := types.SensorConfig{TemperatureOffsetCenti: 400, HumidityOffsetCenti: -150}
	if err := bs.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// rewriting needs the erase, or the fake refuses the write
	want := first
	want.FRCValue = 420
	if err := bs.Save(want); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if f.erases != 2 {
		t.Fatalf("erases = %d, want 2", f.erases)
	}
	// a fresh store over the same flash sees it, as after a reset
	got, err := NewBlockStore(f, 4096).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for _, b := range f.data[:4096] {
		if b != 0xFF {
			t.Fatal("write strayed outside its block")
		}
	}
}

func TestBlockStoreCorrupt(t *testing.T) {
	f := newMemFlash(1)
	bs := NewBlockStore(f, 0)
	if err := bs.Save(types.SensorConfig{FRCValue: 415}); err != nil {
		t.Fatal(err)
	}
	f.data[blockHeader] ^= 0x01
	got, err := bs.Load()
	if errcode.Of(err) != errcode.StoreFailure {
		t.Fatalf("err = %v, want store_failure", err)
	}
	if got != (types.SensorConfig{}) {
		t.Fatalf("corrupt block yielded %+v", got)
	}

	// a length that runs past the block
	f.data[4], f.data[5] = 0xFF, 0xFF
	if _, err := bs.Load(); errcode.Of(err) != errcode.StoreFailure {
		t.Fatalf("err = %v, want store_failure", err)
	}
}
