package sensorsdr

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     LogConfig      `yaml:"log"`
	Monitor MonitorConfig  `yaml:"monitor"`
	Sensors []SensorConfig `yaml:"sensors"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	MetricsPort int  `yaml:"metrics_port"`
}

// SensorConfig declares one sensor for the static backend used by the
// CLI: the repository dump and local experiments run against these
// instead of a live sensor service.
type SensorConfig struct {
	Path         string   `yaml:"path"`
	Connection   string   `yaml:"connection"`
	Value        float64  `yaml:"value"`
	Max          *float64 `yaml:"max,omitempty"`
	Min          *float64 `yaml:"min,omitempty"`
	WarningHigh  *float64 `yaml:"warning_high,omitempty"`
	WarningLow   *float64 `yaml:"warning_low,omitempty"`
	CriticalHigh *float64 `yaml:"critical_high,omitempty"`
	CriticalLow  *float64 `yaml:"critical_low,omitempty"`
}

// Interfaces expands the declaration into the backend object model.
func (c SensorConfig) Interfaces() InterfaceMap {
	value := PropertyMap{"Value": c.Value}
	if c.Max != nil {
		value["MaxValue"] = *c.Max
	}
	if c.Min != nil {
		value["MinValue"] = *c.Min
	}
	interfaces := InterfaceMap{ValueInterface: value}

	if c.WarningHigh != nil || c.WarningLow != nil {
		warning := PropertyMap{}
		if c.WarningHigh != nil {
			warning["WarningHigh"] = *c.WarningHigh
			warning["WarningAlarmHigh"] = false
		}
		if c.WarningLow != nil {
			warning["WarningLow"] = *c.WarningLow
			warning["WarningAlarmLow"] = false
		}
		interfaces[WarningInterface] = warning
	}
	if c.CriticalHigh != nil || c.CriticalLow != nil {
		critical := PropertyMap{}
		if c.CriticalHigh != nil {
			critical["CriticalHigh"] = *c.CriticalHigh
			critical["CriticalAlarmHigh"] = false
		}
		if c.CriticalLow != nil {
			critical["CriticalLow"] = *c.CriticalLow
			critical["CriticalAlarmLow"] = false
		}
		interfaces[CriticalInterface] = critical
	}
	return interfaces
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Monitor: MonitorConfig{
			Enabled:     false,
			MetricsPort: 9290,
		},
	}
}

// BuildStaticBackend loads the configured sensor population into a
// fresh static backend.
func BuildStaticBackend(cfg *Config) *StaticBackend {
	backend := NewStaticBackend()
	for _, sensor := range cfg.Sensors {
		connection := sensor.Connection
		if connection == "" {
			connection = "local"
		}
		backend.AddSensor(connection, sensor.Path, sensor.Interfaces())
	}
	return backend
}
