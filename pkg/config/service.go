package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/NotCoffee418/han_reader/pkg/pathing"
)

var (
	ActiveHANReaderConfig      *HANReaderConfig
	ActiveMeterCollectorConfig *MeterCollectorConfig
)

func HANReaderConfigPath() string {
	return filepath.Join(pathing.GetConfigDir(), "han_reader.toml")
}

func MeterCollectorConfigPath() string {
	return filepath.Join(pathing.GetConfigDir(), "meter_collector.toml")
}

func DefaultHANReaderConfig() *HANReaderConfig {
	one := 1
	return &HANReaderConfig{
		SerialDevice:    "/dev/ttyUSB0",
		Baudrate:        2400,
		MaxFrameLength:  2048,
		VerifyChecksums: true,
		TimeZone:        "Europe/Oslo",
		PollIntervalMs:  16,
		ListenAddress:   "0.0.0.0",
		ListenPort:      9039,
		MQTT: MQTTConfig{
			Broker:      "mqtt://localhost:1883",
			TopicPrefix: "han_reader",
		},
		Sensors: []SensorConfig{
			{Name: "active_power_import", ObisCode: "1.0.1.7.0.255"},
			{Name: "active_power_export", ObisCode: "1.0.2.7.0.255"},
			{Name: "voltage_l1", ObisCode: "1.0.32.7.0.255", AccuracyDecimals: &one},
			{Name: "current_l1", ObisCode: "1.0.31.7.0.255"},
			{Name: "active_energy_import", ObisCode: "1.0.1.8.0.255"},
			{Name: "active_energy_export", ObisCode: "1.0.2.8.0.255"},
		},
	}
}

// LoadHANReaderConfig loads han_reader.toml from the config directory,
// creating it with defaults if it does not exist.
func LoadHANReaderConfig() error {
	cfg, err := LoadHANReaderConfigFrom(HANReaderConfigPath())
	if err != nil {
		return err
	}
	ActiveHANReaderConfig = cfg
	return nil
}

func LoadHANReaderConfigFrom(configPath string) (*HANReaderConfig, error) {
	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultHANReaderConfig()
		if err := writeDefault(configPath, cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	// Load existing config
	cfg := DefaultHANReaderConfig()
	cfg.Sensors = nil
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate parses every sensor's OBIS code. Invalid codes are reported with
// obis.ErrInvalidCode in the chain.
func (c *HANReaderConfig) Validate() error {
	if c.SerialDevice == "" {
		return fmt.Errorf("%w: serial_device is required", ErrInvalidConfig)
	}
	if c.MaxFrameLength < 0 {
		return fmt.Errorf("%w: max_frame_length must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	names := make(map[string]bool, len(c.Sensors))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Name == "" {
			return fmt.Errorf("%w: sensor %d has no name", ErrInvalidConfig, i+1)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate sensor name %q", ErrInvalidConfig, s.Name)
		}
		names[s.Name] = true

		code, err := obis.Parse(s.ObisCode)
		if err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
		s.Code = code
	}
	return nil
}

// Location returns the configured meter time zone, UTC when unset.
func (c *HANReaderConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time_zone %q: %v", ErrInvalidConfig, c.TimeZone, err)
	}
	return loc, nil
}

func (c *HANReaderConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *HANReaderConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}

func LoadMeterCollectorConfig() error {
	configPath := MeterCollectorConfigPath()

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &MeterCollectorConfig{
			HANReaderHost: "localhost:9039",
			TLSEnabled:    false,
			RetentionDays: 90,
		}
		if err := writeDefault(configPath, cfg); err != nil {
			return err
		}
		ActiveMeterCollectorConfig = cfg
		return nil
	}

	// Load existing config
	var config MeterCollectorConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, configPath, err)
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 90
	}
	ActiveMeterCollectorConfig = &config
	return nil
}

func writeDefault(configPath string, cfg any) error {
	cfgFile, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer cfgFile.Close()
	return toml.NewEncoder(cfgFile).Encode(cfg)
}
