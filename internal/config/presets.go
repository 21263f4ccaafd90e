package config

import "sort"

func twoWheel(name string, diameter, offset, leftEff, rightEff float64, cycle int) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.CycleMS = cycle
	cfg.Wheels[0].Diameter, cfg.Wheels[1].Diameter = diameter, diameter
	cfg.Wheels[0].Offset, cfg.Wheels[1].Offset = -offset, offset
	cfg.Wheels[0].Efficiency, cfg.Wheels[1].Efficiency = leftEff, rightEff
	return cfg
}

var Presets = map[string]func() *Config{
	"ev3": DefaultConfig,
	// uneven load pulls the drivetrain to the left unless wheels are synced
	"ev3-loaded": func() *Config { return twoWheel("ev3-loaded", 4.3, 6.5, 0.8, 1, 50) },
	"ev3-fast":   func() *Config { return twoWheel("ev3-fast", 5.6, 6.5, 1, 1, 20) },
	"tracked": func() *Config {
		cfg := twoWheel("tracked", 3.0, 8, 0.9, 0.9, 50)
		cfg.Regulator = GainsConfig{P: 1.5, I: 0.1, D: 2}
		cfg.Scanner.Enabled = false
		return cfg
	},
	"three-wheel": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "three-wheel"
		cfg.Wheels = append(cfg.Wheels, WheelConfig{
			Name: "center", Port: "outA", GearRatio: 1, Diameter: 4.3, Width: 2.1, MaxSpeed: 1050, Efficiency: 1,
		})
		return cfg
	},
}

// GetPreset returns a fresh copy of a named preset, nil if unknown.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
