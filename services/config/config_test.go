package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logger "github.com/d2r2/go-logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airnode-go/services/power"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint16(5), cfg.Sampling.FullEvery)
	assert.Equal(t, 60*time.Second, cfg.Sleep.Battery)
	assert.Equal(t, 5*time.Second, cfg.Sleep.USB)
	assert.Equal(t, uint16(0xFCD2), cfg.Radio.ServiceUUID)
	assert.Equal(t, power.DefaultParams, power.Params(cfg.Battery))
}

func TestForBoard(t *testing.T) {
	cfg, err := ForBoard("epaper154")
	require.NoError(t, err)
	assert.Equal(t, "epaper154", cfg.Board)
	assert.Equal(t, int16(200), cfg.Display.Width)
	assert.Equal(t, uint16(50), cfg.Display.FullRefreshInterval)
	assert.Equal(t, 120*time.Second, cfg.Sleep.Battery)
	// Untouched by the profile.
	assert.Equal(t, 5*time.Second, cfg.Sleep.USB)

	_, err = ForBoard("nope")
	require.Error(t, err)
}

func TestParseOverlaysBoardThenFile(t *testing.T) {
	cfg, err := Parse([]byte(`
board: epaper154
sampling:
  full_every: 3
sleep:
  usb: 10s
radio:
  service_uuid: 0xFCD3
  local_name: Lab
logging:
  level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, int16(200), cfg.Display.Height, "board profile applied")
	assert.Equal(t, 120*time.Second, cfg.Sleep.Battery, "board profile applied")
	assert.Equal(t, 10*time.Second, cfg.Sleep.USB)
	assert.Equal(t, uint16(3), cfg.Sampling.FullEvery)
	assert.Equal(t, uint8(30), cfg.Sampling.AlphaPercent, "default kept")
	assert.Equal(t, uint16(0xFCD3), cfg.Radio.ServiceUUID)
	assert.Equal(t, "Lab", cfg.Radio.LocalName)
	assert.Equal(t, logger.DebugLevel, cfg.Logging.PackageLevel())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  show_clock: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBoard, cfg.Board)
	assert.True(t, cfg.Display.ShowClock)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"full_every zero":     func(c *Config) { c.Sampling.FullEvery = 0 },
		"alpha over 100":      func(c *Config) { c.Sampling.AlphaPercent = 101 },
		"empty above full":    func(c *Config) { c.Battery.EmptyMv = c.Battery.FullMv },
		"zero sleep":          func(c *Config) { c.Sleep.Battery = 0 },
		"zero refresh":        func(c *Config) { c.Display.FullRefreshInterval = 0 },
		"zero busy timeout":   func(c *Config) { c.Display.BusyTimeout = 0 },
		"zero sensor timeout": func(c *Config) { c.Sensor.FastTimeout = 0 },
		"zero radio window":   func(c *Config) { c.Radio.Window = 0 },
		"unknown log level":   func(c *Config) { c.Logging.Level = "loud" },
		"zero divider":        func(c *Config) { c.Battery.DividerMilli = 0 },
		"zero display width":  func(c *Config) { c.Display.Width = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRadioDisabledSkipsRadioChecks(t *testing.T) {
	cfg := Default()
	cfg.Radio.Enabled = false
	cfg.Radio.Window = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseRejectsInvalidOverlay(t *testing.T) {
	_, err := Parse([]byte("sampling:\n  full_every: 0\n"))
	require.Error(t, err)

	_, err = Parse([]byte("board: nope\n"))
	require.Error(t, err)

	_, err = Parse([]byte("sampling: [1, 2"))
	require.Error(t, err)
}

func TestEmbeddedConfigLookupOverride(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(board string) ([]byte, bool) {
		if board != "bench" {
			return nil, false
		}
		return []byte("display:\n  width: 128\n  height: 64\n"), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	cfg, err := ForBoard("bench")
	require.NoError(t, err)
	assert.Equal(t, int16(128), cfg.Display.Width)
}
