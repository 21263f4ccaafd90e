// Package config loads the robot description: drivetrain geometry,
// regulator gains and loop timing.
//
// Values are layered with koanf: built-in defaults first, then the YAML
// file when one is given. Files are written back with yaml.v3.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rover/internal/device"
)

const (
	DefaultCycleMS   = 50
	DefaultSyncGain  = 1.0
	DefaultDutyLimit = 100.0
	DefaultP         = 1.0
	DefaultI         = 0.1
	DefaultD         = 2.0
	DefaultDataDir   = "runs"
	DefaultLogLevel  = "info"
)

type Config struct {
	Name      string        `yaml:"name"`
	CycleMS   int           `yaml:"cycle_ms"`
	LogLevel  string        `yaml:"log_level"`
	DataDir   string        `yaml:"data_dir"`
	Regulator GainsConfig   `yaml:"regulator"`
	SyncGain  float64       `yaml:"sync_gain"`
	DutyLimit float64       `yaml:"duty_limit"`
	Wheels    []WheelConfig `yaml:"wheels"`
	Scanner   ScannerConfig `yaml:"scanner"`
}

type GainsConfig struct {
	P float64 `yaml:"p"`
	I float64 `yaml:"i"`
	D float64 `yaml:"d"`
}

// WheelConfig describes one drive wheel. Offset is signed, negative on the
// left. MaxSpeed and Efficiency only apply to simulated motors.
type WheelConfig struct {
	Name       string  `yaml:"name"`
	Port       string  `yaml:"port"`
	GearRatio  float64 `yaml:"gear_ratio"`
	Diameter   float64 `yaml:"diameter"`
	Width      float64 `yaml:"width"`
	Offset     float64 `yaml:"offset"`
	MaxSpeed   int     `yaml:"max_speed"`
	Efficiency float64 `yaml:"efficiency"`
}

type ScannerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Port        string  `yaml:"port"`
	GearRatio   float64 `yaml:"gear_ratio"`
	MaxDistance float64 `yaml:"max_distance"`
}

// DefaultConfig is a two-wheel EV3 drivetrain.
func DefaultConfig() *Config {
	return &Config{
		Name:      "ev3",
		CycleMS:   DefaultCycleMS,
		LogLevel:  DefaultLogLevel,
		DataDir:   DefaultDataDir,
		Regulator: GainsConfig{P: DefaultP, I: DefaultI, D: DefaultD},
		SyncGain:  DefaultSyncGain,
		DutyLimit: DefaultDutyLimit,
		Wheels: []WheelConfig{
			{Name: "left", Port: "outB", GearRatio: 1, Diameter: 4.3, Width: 2.1, Offset: -6.5, MaxSpeed: 1050, Efficiency: 1},
			{Name: "right", Port: "outC", GearRatio: 1, Diameter: 4.3, Width: 2.1, Offset: 6.5, MaxSpeed: 1050, Efficiency: 1},
		},
		Scanner: ScannerConfig{Enabled: true, Port: "outD", GearRatio: 3, MaxDistance: 255},
	}
}

// Load layers path over base. A missing file leaves base unchanged; an
// empty path skips the file.
func Load(path string, base *Config) (*Config, error) {
	if base == nil {
		base = DefaultConfig()
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "yaml"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations no drivetrain can be built from.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if c.CycleMS <= 0 {
		return device.Configurationf(op, "cycle_ms must be positive, got %d", c.CycleMS)
	}
	if len(c.Wheels) == 0 {
		return device.Configurationf(op, "no wheels")
	}
	seen := make(map[string]bool, len(c.Wheels))
	for i, w := range c.Wheels {
		if w.Diameter <= 0 {
			return device.Configurationf(op, "wheel %d: diameter must be positive, got %g", i, w.Diameter)
		}
		if w.GearRatio == 0 {
			return device.Configurationf(op, "wheel %d: gear_ratio must not be zero", i)
		}
		if w.Efficiency < 0 || w.Efficiency > 1 {
			return device.Configurationf(op, "wheel %d: efficiency %g outside [0, 1]", i, w.Efficiency)
		}
		if w.Name != "" && seen[w.Name] {
			return device.Configurationf(op, "duplicate wheel name %q", w.Name)
		}
		seen[w.Name] = true
	}
	if c.DutyLimit <= 0 || c.DutyLimit > 100 {
		return device.Configurationf(op, "duty_limit %g outside (0, 100]", c.DutyLimit)
	}
	return nil
}

func (c *Config) Cycle() time.Duration {
	return time.Duration(c.CycleMS) * time.Millisecond
}

// Params returns the tunable values by name.
func (c *Config) Params() map[string]float64 {
	return map[string]float64{
		"p":         c.Regulator.P,
		"i":         c.Regulator.I,
		"d":         c.Regulator.D,
		"sync_gain": c.SyncGain,
	}
}
