package config

// Presets are the classroom scenarios of the tool.
var Presets = map[string]*Config{
	"single-z": {
		Arrangement: "Z", Source: "beam", BeamRate: 10,
		Dt: 0.016, Duration: 30.0, Preparation: "z+", UpFraction: 1.0,
	},
	"single-x": {
		Arrangement: "X", Source: "beam", BeamRate: 10,
		Dt: 0.016, Duration: 30.0, Preparation: "z+", UpFraction: 1.0,
	},
	"analyzer-chain": {
		Arrangement: "ZXZ", Source: "beam", BeamRate: 15,
		Dt: 0.016, Duration: 60.0, Preparation: "z+", UpFraction: 1.0,
	},
	"repeat-z": {
		Arrangement: "ZZZ", Source: "beam", BeamRate: 15,
		Dt: 0.016, Duration: 60.0, Preparation: "z+", UpFraction: 1.0,
	},
	"blocked-branch": {
		Arrangement: "ZXX", Source: "beam", BeamRate: 15,
		Dt: 0.016, Duration: 60.0, Preparation: "x+", UpFraction: 0.5,
		Blocking: []string{"none", "none", "down"},
	},
	"single-shot": {
		Arrangement: "ZXX", Source: "single", BeamRate: 0,
		Dt: 0.016, Duration: 30.0, Preparation: "z+", UpFraction: 1.0,
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
