package sensors

import (
	"math"
	"time"

	"podctl/internal/pod"
)

// BatteryConfig shapes the simulated battery packs.
type BatteryConfig struct {
	Packs int `yaml:"packs"`

	// NominalVoltage is the fully charged pack voltage.
	NominalVoltage float64 `yaml:"nominal_voltage"`

	// DrainPerHour is the fraction of charge lost per hour under load.
	DrainPerHour float64 `yaml:"drain_per_hour"`

	// LoadCurrent is the reported current draw while the pod is moving.
	LoadCurrent float64 `yaml:"load_current"`
}

func (c BatteryConfig) withDefaults() BatteryConfig {
	if c.Packs <= 0 {
		c.Packs = 2
	}
	if c.NominalVoltage <= 0 {
		c.NominalVoltage = 48
	}
	if c.DrainPerHour <= 0 {
		c.DrainPerHour = 0.6
	}
	if c.LoadCurrent <= 0 {
		c.LoadCurrent = 40
	}
	return c
}

// FakeBatteries models battery packs draining under load. It exists so
// the battery substructure carries plausible data during simulated runs.
type FakeBatteries struct {
	cfg    BatteryConfig
	charge float64
}

// NewFakeBatteries builds fully charged packs.
func NewFakeBatteries(cfg BatteryConfig) *FakeBatteries {
	return &FakeBatteries{cfg: cfg.withDefaults(), charge: 1}
}

// Sample drains the packs by dt (when loaded) and returns the readings.
func (b *FakeBatteries) Sample(dt time.Duration, loaded bool) pod.Batteries {
	if loaded && dt > 0 {
		b.charge = math.Max(0, b.charge-b.cfg.DrainPerHour*dt.Hours())
	}

	current := 0.0
	if loaded {
		current = b.cfg.LoadCurrent
	}
	// Pack voltage sags roughly linearly toward 80% of nominal at empty.
	voltage := b.cfg.NominalVoltage * (0.8 + 0.2*b.charge)
	temp := 25 + 20*(1-b.charge)

	packs := make([]pod.BatteryReading, b.cfg.Packs)
	for i := range packs {
		packs[i] = pod.BatteryReading{
			Voltage:      voltage,
			Current:      current,
			Charge:       b.charge,
			TemperatureC: temp,
		}
	}
	return pod.Batteries{Packs: packs}
}
