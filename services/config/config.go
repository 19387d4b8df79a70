// Package config holds node configuration: built-in defaults, embedded
// per-board YAML profiles and an optional YAML file overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/d2r2/go-logger"
	"gopkg.in/yaml.v3"

	"airnode-go/services/power"
)

var lg = logger.NewPackageLogger("config", logger.InfoLevel)

// DefaultBoard is used when neither the file nor the caller names a board.
const DefaultBoard = "epaper42"

// EmbeddedConfigLookup allows overriding how board profiles are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

type Config struct {
	Board    string   `yaml:"board"`
	Sampling Sampling `yaml:"sampling"`
	Sleep    Sleep    `yaml:"sleep"`
	Battery  Battery  `yaml:"battery"`
	Display  Display  `yaml:"display"`
	Sensor   Sensor   `yaml:"sensor"`
	Radio    Radio    `yaml:"radio"`
	Logging  Logging  `yaml:"logging"`
}

type Sampling struct {
	FullEvery    uint16 `yaml:"full_every"`    // full sample when wakeCount % FullEvery == 0
	AlphaPercent uint8  `yaml:"alpha_percent"` // smoothing weight of the new reading
}

type Sleep struct {
	Battery time.Duration `yaml:"battery"`
	USB     time.Duration `yaml:"usb"`
}

// Battery mirrors power.Params field for field.
type Battery struct {
	EmptyMv      uint32 `yaml:"empty_mv"`
	FullMv       uint32 `yaml:"full_mv"`
	DividerMilli uint32 `yaml:"divider_milli"` // divider ratio x 1000
}

type Display struct {
	Width               int16         `yaml:"width"`
	Height              int16         `yaml:"height"`
	FullRefreshInterval uint16        `yaml:"full_refresh_interval"`
	ShowClock           bool          `yaml:"show_clock"`
	ShowBorders         bool          `yaml:"show_borders"`
	BusyPoll            time.Duration `yaml:"busy_poll"`
	BusyTimeout         time.Duration `yaml:"busy_timeout"`
}

type Sensor struct {
	FullPoll    time.Duration `yaml:"full_poll"`
	FastPoll    time.Duration `yaml:"fast_poll"`
	FullTimeout time.Duration `yaml:"full_timeout"`
	FastTimeout time.Duration `yaml:"fast_timeout"`
}

type Radio struct {
	Enabled     bool          `yaml:"enabled"`
	ServiceUUID uint16        `yaml:"service_uuid"`
	Interval    time.Duration `yaml:"interval"`
	Window      time.Duration `yaml:"window"`
	LocalName   string        `yaml:"local_name"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

// Default returns a fully populated configuration for DefaultBoard.
func Default() Config {
	return Config{
		Board:    DefaultBoard,
		Sampling: Sampling{FullEvery: 5, AlphaPercent: 30},
		Sleep:    Sleep{Battery: 60 * time.Second, USB: 5 * time.Second},
		Battery:  Battery(power.DefaultParams),
		Display: Display{
			Width:               400,
			Height:              300,
			FullRefreshInterval: 200,
			BusyPoll:            3 * time.Millisecond,
			BusyTimeout:         20 * time.Second,
		},
		Sensor: Sensor{
			FullPoll:    time.Second,
			FastPoll:    20 * time.Millisecond,
			FullTimeout: 10 * time.Second,
			FastTimeout: time.Second,
		},
		Radio: Radio{
			Enabled:     true,
			ServiceUUID: 0xFCD2,
			Interval:    100 * time.Millisecond,
			Window:      time.Second,
			LocalName:   "SmartCo2",
		},
		Logging: Logging{Level: "info"},
	}
}

// ForBoard returns the defaults overlaid with the embedded profile for board.
func ForBoard(board string) (Config, error) {
	cfg := Default()
	if err := cfg.applyBoard(board); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Load reads a YAML file and overlays it on the defaults and on the profile
// of the board it names. Keys absent from the file keep their prior value.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse is Load without the file read.
func Parse(raw []byte) (Config, error) {
	var head struct {
		Board string `yaml:"board"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if head.Board != "" {
		if err := cfg.applyBoard(head.Board); err != nil {
			return Config{}, err
		}
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	lg.Debugf("loaded board=%s full_every=%d", cfg.Board, cfg.Sampling.FullEvery)
	return cfg, nil
}

func (c *Config) applyBoard(board string) error {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return errors.New("config: no embedded profile for board: " + board)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: board %s: %w", board, err)
	}
	c.Board = board
	return nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate rejects values the cycle cannot run with.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, why string) { errs = append(errs, fmt.Errorf("%s: %s", field, why)) }

	if c.Sampling.FullEvery == 0 {
		bad("sampling.full_every", "must be > 0")
	}
	if c.Sampling.AlphaPercent > 100 {
		bad("sampling.alpha_percent", "must be <= 100")
	}
	if c.Sleep.Battery <= 0 || c.Sleep.USB <= 0 {
		bad("sleep", "durations must be > 0")
	}
	if c.Battery.EmptyMv >= c.Battery.FullMv {
		bad("battery", "empty_mv must be below full_mv")
	}
	if c.Battery.DividerMilli == 0 {
		bad("battery.divider_milli", "must be > 0")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		bad("display", "width and height must be > 0")
	}
	if c.Display.FullRefreshInterval == 0 {
		bad("display.full_refresh_interval", "must be > 0")
	}
	if c.Display.BusyPoll <= 0 || c.Display.BusyTimeout <= 0 {
		bad("display", "busy_poll and busy_timeout must be > 0")
	}
	if c.Sensor.FullPoll <= 0 || c.Sensor.FastPoll <= 0 || c.Sensor.FullTimeout <= 0 || c.Sensor.FastTimeout <= 0 {
		bad("sensor", "poll and timeout durations must be > 0")
	}
	if c.Radio.Enabled && (c.Radio.Interval <= 0 || c.Radio.Window <= 0) {
		bad("radio", "interval and window must be > 0")
	}
	if _, ok := levels[strings.ToLower(c.Logging.Level)]; !ok {
		bad("logging.level", "unknown level "+c.Logging.Level)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{errors.New("config: invalid")}, errs...)...)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Logging
// -----------------------------------------------------------------------------

var levels = map[string]logger.LogLevel{
	"debug":  logger.DebugLevel,
	"info":   logger.InfoLevel,
	"notify": logger.NotifyLevel,
	"warn":   logger.WarnLevel,
	"error":  logger.ErrorLevel,
}

// PackageLevel maps the configured level name to a logger level.
func (l Logging) PackageLevel() logger.LogLevel {
	if lvl, ok := levels[strings.ToLower(l.Level)]; ok {
		return lvl
	}
	return logger.InfoLevel
}

// Packages lists every package logger the node creates.
var Packages = []string{"config", "measure", "display", "epd", "telemetry", "cycle", "node", "ble", "sim", "board", "main"}

// ApplyLogLevel sets every package logger to the configured level.
func (l Logging) ApplyLogLevel() {
	lvl := l.PackageLevel()
	for _, p := range Packages {
		if err := logger.ChangePackageLogLevel(p, lvl); err != nil {
			lg.Debugf("log level for %s: %v", p, err)
		}
	}
}
