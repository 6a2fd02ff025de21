package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
)

// Config holds all application configuration values.
type Config struct {
	MQTT struct {
		Broker          string `yaml:"broker"`
		ClientIDMonitor string `yaml:"client_id_monitor"`
		ClientIDDisplay string `yaml:"client_id_display"`
		ClientIDConsole string `yaml:"client_id_console"`
		ClientIDMock    string `yaml:"client_id_mock"`
	} `yaml:"mqtt"`

	Topics struct {
		Reading  string `yaml:"reading"`
		Verdict  string `yaml:"verdict"`
		Baseline string `yaml:"baseline"`
	} `yaml:"topics"`

	Sensor struct {
		I2CBus            string `yaml:"i2c_bus"`  // "" = first available
		I2CAddr           uint16 `yaml:"i2c_addr"` // 0x76 or 0x77
		HeaterTempC       int    `yaml:"gas_heater_temperature"`
		HeaterDurationMs  int    `yaml:"gas_heater_duration"`
		SampleIntervalSec int    `yaml:"sampling_interval"`
		Mock              bool   `yaml:"mock"` // synthetic source instead of hardware
	} `yaml:"sensor"`

	Calibration struct {
		BurnInSec                int    `yaml:"burn_in_duration"`
		BaselineSamplingSec      int    `yaml:"baseline_sampling_duration"`
		RecalibrationIntervalSec int    `yaml:"recalibration_interval"` // 0 = disabled
		BaselineFile             string `yaml:"baseline_file"`
		BaselineMaxAgeSec        int    `yaml:"baseline_max_age"`
	} `yaml:"calibration"`

	AirQuality struct {
		GoodRatio       float64 `yaml:"good_threshold"`
		PoorRatio       float64 `yaml:"poor_threshold"`
		ExcellentOhms   float64 `yaml:"excellent_threshold"`
		GoodOhms        float64 `yaml:"good_threshold_abs"`
		ModerateOhms    float64 `yaml:"moderate_threshold"`
		CleanAirMinOhms float64 `yaml:"clean_air_min"`
		CleanAirMaxOhms float64 `yaml:"clean_air_max"`
	} `yaml:"air_quality"`

	Display struct {
		I2CBus           string `yaml:"i2c_bus"` // SSD1306 sits at its fixed 0x3C address
		UpdateIntervalMs int    `yaml:"update_interval"`
		Title            string `yaml:"title"`
	} `yaml:"display"`

	DataLogging struct {
		CSVFilename      string  `yaml:"csv_filename"`
		FlushImmediately bool    `yaml:"flush_immediately"`
		MaxSizeMB        float64 `yaml:"max_size_mb"`
	} `yaml:"data_logging"`
}

// Default returns the documented defaults; Load overlays the file on top.
func Default() *Config {
	cfg := &Config{}

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientIDMonitor = "airq-monitor"
	cfg.MQTT.ClientIDDisplay = "airq-display"
	cfg.MQTT.ClientIDConsole = "airq-console"
	cfg.MQTT.ClientIDMock = "airq-mock-producer"

	cfg.Topics.Reading = "airq/reading"
	cfg.Topics.Verdict = "airq/quality"
	cfg.Topics.Baseline = "airq/baseline"

	cfg.Sensor.I2CAddr = 0x77
	cfg.Sensor.HeaterTempC = 320
	cfg.Sensor.HeaterDurationMs = 150
	cfg.Sensor.SampleIntervalSec = 1

	cfg.Calibration.BurnInSec = 300
	cfg.Calibration.BaselineSamplingSec = 300
	cfg.Calibration.RecalibrationIntervalSec = 14400
	cfg.Calibration.BaselineFile = "gas_baseline.json"
	cfg.Calibration.BaselineMaxAgeSec = 86400

	cfg.AirQuality.GoodRatio = 1.35
	cfg.AirQuality.PoorRatio = 0.70
	cfg.AirQuality.ExcellentOhms = 150000
	cfg.AirQuality.GoodOhms = 100000
	cfg.AirQuality.ModerateOhms = 50000
	cfg.AirQuality.CleanAirMinOhms = 50000
	cfg.AirQuality.CleanAirMaxOhms = 200000

	cfg.Display.UpdateIntervalMs = 1000
	cfg.Display.Title = "BME680 Readings"

	cfg.DataLogging.CSVFilename = "measures.csv"
	cfg.DataLogging.FlushImmediately = true
	cfg.DataLogging.MaxSizeMB = 100

	return cfg
}

// Package-level unexported variables for the singleton. External code must
// use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the YAML configuration file over the defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that the configuration is internally consistent.
// A malformed configuration is fatal at startup.
func (c *Config) validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.Sensor.SampleIntervalSec <= 0 {
		return fmt.Errorf("sensor.sampling_interval must be positive, got %d", c.Sensor.SampleIntervalSec)
	}
	if c.Sensor.I2CAddr != 0x76 && c.Sensor.I2CAddr != 0x77 {
		return fmt.Errorf("sensor.i2c_addr must be 0x76 or 0x77, got 0x%02X", c.Sensor.I2CAddr)
	}
	if c.Calibration.BurnInSec <= 0 {
		return fmt.Errorf("calibration.burn_in_duration must be positive, got %d", c.Calibration.BurnInSec)
	}
	if c.Calibration.BaselineSamplingSec <= 0 {
		return fmt.Errorf("calibration.baseline_sampling_duration must be positive, got %d", c.Calibration.BaselineSamplingSec)
	}
	if c.Calibration.BaselineFile == "" {
		return fmt.Errorf("calibration.baseline_file is required")
	}
	if c.AirQuality.GoodRatio <= c.AirQuality.PoorRatio {
		return fmt.Errorf("air_quality.good_threshold (%g) must exceed poor_threshold (%g)",
			c.AirQuality.GoodRatio, c.AirQuality.PoorRatio)
	}
	if c.AirQuality.PoorRatio <= 0 {
		return fmt.Errorf("air_quality.poor_threshold must be positive, got %g", c.AirQuality.PoorRatio)
	}
	if c.AirQuality.ModerateOhms <= 0 || c.AirQuality.GoodOhms <= c.AirQuality.ModerateOhms {
		return fmt.Errorf("air_quality absolute thresholds must satisfy 0 < moderate < good")
	}
	if c.AirQuality.CleanAirMinOhms <= 0 || c.AirQuality.CleanAirMaxOhms <= c.AirQuality.CleanAirMinOhms {
		return fmt.Errorf("air_quality clean-air bounds must satisfy 0 < min < max")
	}
	return nil
}

// Thresholds flattens the calibration and air-quality sections into the
// structure the core components consume.
func (c *Config) Thresholds() airquality.Thresholds {
	return airquality.Thresholds{
		GoodRatio:             c.AirQuality.GoodRatio,
		PoorRatio:             c.AirQuality.PoorRatio,
		ExcellentOhms:         c.AirQuality.ExcellentOhms,
		GoodOhms:              c.AirQuality.GoodOhms,
		ModerateOhms:          c.AirQuality.ModerateOhms,
		CleanAirMinOhms:       c.AirQuality.CleanAirMinOhms,
		CleanAirMaxOhms:       c.AirQuality.CleanAirMaxOhms,
		BurnIn:                time.Duration(c.Calibration.BurnInSec) * time.Second,
		BaselineSampling:      time.Duration(c.Calibration.BaselineSamplingSec) * time.Second,
		RecalibrationInterval: time.Duration(c.Calibration.RecalibrationIntervalSec) * time.Second,
		BaselineMaxAge:        time.Duration(c.Calibration.BaselineMaxAgeSec) * time.Second,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
