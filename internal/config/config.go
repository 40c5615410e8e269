// Package config loads gesturelink capture and transport settings.
//
// The schema uses pointer fields so a partial JSON file is safe: fields
// omitted from the file fall back to defaults through the Get* accessors,
// and the same file shape works for both the host and node binaries.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openglyph/gesturelink/internal/wire"
)

// Transport names accepted in the config file.
const (
	TransportLoopback = "loopback"
	TransportSerial   = "serial"
	TransportMQTT     = "mqtt"
	TransportWS       = "ws"
)

// Capture defaults matching the original hardware.
const (
	defaultSamplePeriodMS  = 20 // 50 Hz
	defaultCountdownStepMS = 1000
	defaultDrainMS         = 500
	defaultSessionTimeoutS = 15
)

// Config is the root configuration for a gesturelink host or node.
type Config struct {
	// Capture plan
	Capacity        *int `json:"capacity,omitempty"`
	SamplesPerChunk *int `json:"samples_per_chunk,omitempty"`

	// Node timing
	SamplePeriodMS  *int `json:"sample_period_ms,omitempty"`
	CountdownStepMS *int `json:"countdown_step_ms,omitempty"`
	DrainMS         *int `json:"drain_ms,omitempty"`

	// Host timing
	SessionTimeoutS *int `json:"session_timeout_s,omitempty"`

	// Transport selection and settings
	Transport    *string `json:"transport,omitempty"`
	SerialDevice *string `json:"serial_device,omitempty"`
	SerialBaud   *int    `json:"serial_baud,omitempty"`
	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTClientID *string `json:"mqtt_client_id,omitempty"`
	MQTTPrefix   *string `json:"mqtt_prefix,omitempty"`
	WSAddr       *string `json:"ws_addr,omitempty"`

	// Node sensor: "synthetic" or "mpu9250"
	Sensor    *string `json:"sensor,omitempty"`
	SPIDevice *string `json:"spi_device,omitempty"`
}

// Default returns a Config with every field unset, so all accessors
// return their defaults.
func Default() *Config {
	return &Config{}
}

// Load reads and validates a JSON config file. Partial files are fine;
// unknown keys are rejected so typos surface early.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency, including that the capture plan
// fits the link budget.
func (c *Config) Validate() error {
	if err := c.Plan().Validate(); err != nil {
		return err
	}
	if c.GetSamplePeriod() <= 0 {
		return fmt.Errorf("sample_period_ms must be positive")
	}
	if c.GetCountdownStep() <= 0 {
		return fmt.Errorf("countdown_step_ms must be positive")
	}
	if c.GetDrain() < 0 {
		return fmt.Errorf("drain_ms must not be negative")
	}
	if c.GetSessionTimeout() <= 0 {
		return fmt.Errorf("session_timeout_s must be positive")
	}
	switch tr := c.GetTransport(); tr {
	case TransportLoopback:
	case TransportSerial:
		if c.GetSerialDevice() == "" {
			return fmt.Errorf("serial transport requires serial_device")
		}
		if c.GetSerialBaud() <= 0 {
			return fmt.Errorf("serial_baud must be positive")
		}
	case TransportMQTT:
		if c.GetMQTTBroker() == "" {
			return fmt.Errorf("mqtt transport requires mqtt_broker")
		}
	case TransportWS:
		if c.GetWSAddr() == "" {
			return fmt.Errorf("ws transport requires ws_addr")
		}
	default:
		return fmt.Errorf("unknown transport %q", tr)
	}
	switch s := c.GetSensor(); s {
	case "synthetic":
	case "mpu9250":
		if c.GetSPIDevice() == "" {
			return fmt.Errorf("mpu9250 sensor requires spi_device")
		}
	default:
		return fmt.Errorf("unknown sensor %q", s)
	}
	return nil
}

// Plan returns the transfer plan the config describes.
func (c *Config) Plan() wire.TransferPlan {
	plan := wire.DefaultPlan()
	if c.Capacity != nil {
		plan.Capacity = *c.Capacity
	}
	if c.SamplesPerChunk != nil {
		plan.SamplesPerChunk = *c.SamplesPerChunk
	}
	return plan
}

func (c *Config) GetSamplePeriod() time.Duration {
	if c.SamplePeriodMS != nil {
		return time.Duration(*c.SamplePeriodMS) * time.Millisecond
	}
	return defaultSamplePeriodMS * time.Millisecond
}

func (c *Config) GetCountdownStep() time.Duration {
	if c.CountdownStepMS != nil {
		return time.Duration(*c.CountdownStepMS) * time.Millisecond
	}
	return defaultCountdownStepMS * time.Millisecond
}

func (c *Config) GetDrain() time.Duration {
	if c.DrainMS != nil {
		return time.Duration(*c.DrainMS) * time.Millisecond
	}
	return defaultDrainMS * time.Millisecond
}

func (c *Config) GetSessionTimeout() time.Duration {
	if c.SessionTimeoutS != nil {
		return time.Duration(*c.SessionTimeoutS) * time.Second
	}
	return defaultSessionTimeoutS * time.Second
}

func (c *Config) GetTransport() string {
	if c.Transport != nil {
		return *c.Transport
	}
	return TransportLoopback
}

func (c *Config) GetSerialDevice() string {
	if c.SerialDevice != nil {
		return *c.SerialDevice
	}
	return ""
}

func (c *Config) GetSerialBaud() int {
	if c.SerialBaud != nil {
		return *c.SerialBaud
	}
	return 115200
}

func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker != nil {
		return *c.MQTTBroker
	}
	return ""
}

func (c *Config) GetMQTTClientID() string {
	if c.MQTTClientID != nil {
		return *c.MQTTClientID
	}
	return "gesturelink"
}

func (c *Config) GetMQTTPrefix() string {
	if c.MQTTPrefix != nil {
		return *c.MQTTPrefix
	}
	return "gesturelink"
}

func (c *Config) GetWSAddr() string {
	if c.WSAddr != nil {
		return *c.WSAddr
	}
	return ""
}

func (c *Config) GetSensor() string {
	if c.Sensor != nil {
		return *c.Sensor
	}
	return "synthetic"
}

func (c *Config) GetSPIDevice() string {
	if c.SPIDevice != nil {
		return *c.SPIDevice
	}
	return ""
}
