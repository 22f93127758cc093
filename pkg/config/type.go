package config

import (
	"errors"

	"github.com/NotCoffee418/han_reader/pkg/obis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type MeterCollectorConfig struct {
	HANReaderHost string `toml:"han_reader_host"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	// Raw readings older than this are removed once aggregated
	RetentionDays int `toml:"retention_days"`
}

type HANReaderConfig struct {
	// Device path, or tcp://host:port for a serial-over-TCP bridge
	SerialDevice    string `toml:"serial_device"`
	Baudrate        uint   `toml:"baudrate"`
	MaxFrameLength  int    `toml:"max_frame_length"`
	VerifyChecksums bool   `toml:"verify_checksums"`
	// IANA zone of the meter clock, used when frames carry no UTC deviation
	TimeZone       string `toml:"time_zone"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
	ListenAddress  string `toml:"listen_address"`
	ListenPort     int    `toml:"listen_port"`

	MQTT    MQTTConfig     `toml:"mqtt"`
	Sensors []SensorConfig `toml:"sensors"`
}

type MQTTConfig struct {
	Enabled     bool   `toml:"enabled"`
	Broker      string `toml:"broker"`
	TopicPrefix string `toml:"topic_prefix"`
	Retain      bool   `toml:"retain"`
}

type SensorConfig struct {
	Name     string `toml:"name"`
	ObisCode string `toml:"obis_code"`
	// Overrides the unit sent by the meter
	Unit string `toml:"unit,omitempty"`
	// Omit to keep full precision
	AccuracyDecimals *int    `toml:"accuracy_decimals,omitempty"`
	Multiplier       float64 `toml:"multiplier,omitempty"`
	// Scaler for meters that send bare integers for this code
	Scaler *int8 `toml:"scaler,omitempty"`

	// Parsed from ObisCode by Validate
	Code obis.Code `toml:"-"`
}
