package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

const (
	DefaultConfigPath = "motion_config.txt"
	EnvPrefix         = "MOTION_BRIDGE"

	SourceMock     = "mock"
	SourceHardware = "hardware"
)

// Autostart is a stream the bridge opens on its own at startup.
type Autostart struct {
	SensorID sample.SensorID
	Interval int
}

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicSensorPrefix string // samples go to <prefix>/<sensor name>
	TopicCommand      string

	// Sensor subsystem
	SensorSource string // "mock" or "hardware"
	MockSensors  []sample.SensorID

	// Hardware
	IMUSPIDevice   string
	IMUCSPin       string
	BMPSPIDevice   string
	GNSSSerialPort string
	GNSSBaudRate   int

	// Streams
	Autostart       []Autostart
	DefaultInterval int // delay class 0-3 or microseconds
	SampleBuffer    int

	// Web Server
	WebServerPort int

	// Kafka (optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Display
	DisplayLeftI2CAddr    uint16
	DisplayRightI2CAddr   uint16
	DisplayUpdateInterval int // milliseconds
	DisplayLeftSensor     sample.SensorID
	DisplayRightSensor    sample.SensorID

	LogLevel string
}

// keys lists every accepted key, in file order of Default().
var keys = []string{
	"MQTT_BROKER", "MQTT_CLIENT_ID_BRIDGE", "MQTT_CLIENT_ID_CONSOLE", "MQTT_CLIENT_ID_DISPLAY",
	"TOPIC_SENSOR_PREFIX", "TOPIC_COMMAND",
	"SENSOR_SOURCE", "MOCK_SENSORS",
	"IMU_SPI_DEVICE", "IMU_CS_PIN", "BMP_SPI_DEVICE", "GNSS_SERIAL_PORT", "GNSS_BAUD_RATE",
	"AUTOSTART", "DEFAULT_INTERVAL", "SAMPLE_BUFFER",
	"WEB_SERVER_PORT",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"DISPLAY_LEFT_I2C_ADDR", "DISPLAY_RIGHT_I2C_ADDR", "DISPLAY_UPDATE_INTERVAL",
	"DISPLAY_LEFT_SENSOR", "DISPLAY_RIGHT_SENSOR",
	"LOG_LEVEL",
}

// Package-level singleton: InitGlobal sets it once, Get reads it under a
// read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys the file leaves out.
func Default() *Config {
	return &Config{
		MQTTClientIDBridge:    "motion-bridge",
		MQTTClientIDConsole:   "motion-console",
		MQTTClientIDDisplay:   "motion-display",
		TopicSensorPrefix:     "motion/sensors",
		TopicCommand:          "motion/command",
		SensorSource:          SourceMock,
		GNSSBaudRate:          9600,
		DefaultInterval:       sample.DefaultInterval,
		SampleBuffer:          64,
		WebServerPort:         8080,
		KafkaTopic:            "motion.samples",
		DisplayLeftI2CAddr:    0x3C,
		DisplayRightI2CAddr:   0x3D,
		DisplayUpdateInterval: 200,
		DisplayLeftSensor:     sample.Accelerometer,
		DisplayRightSensor:    sample.Gyroscope,
		LogLevel:              "info",
	}
}

// Load reads the KEY=VALUE configuration file. Any key can be overridden
// from the environment as MOTION_BRIDGE_<KEY>.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[strings.ToLower(k)] = true
	}
	for _, k := range v.AllKeys() {
		if !known[k] {
			return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(k))
		}
	}

	cfg := Default()
	for _, key := range keys {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.setValue(key, strings.TrimSpace(v.GetString(key))); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SENSOR_PREFIX":
		c.TopicSensorPrefix = strings.TrimSuffix(value, "/")
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Sensor subsystem
	case "SENSOR_SOURCE":
		source := strings.ToLower(value)
		if source != SourceMock && source != SourceHardware {
			return fmt.Errorf("SENSOR_SOURCE must be %q or %q, got %q", SourceMock, SourceHardware, value)
		}
		c.SensorSource = source
	case "MOCK_SENSORS":
		ids, err := parseSensorList(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_SENSORS: %w", err)
		}
		c.MockSensors = ids

	// Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "BMP_SPI_DEVICE":
		c.BMPSPIDevice = value
	case "GNSS_SERIAL_PORT":
		c.GNSSSerialPort = value
	case "GNSS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GNSS_BAUD_RATE %q: %w", value, err)
		}
		c.GNSSBaudRate = rate

	// Streams
	case "AUTOSTART":
		starts, err := parseAutostart(value)
		if err != nil {
			return fmt.Errorf("invalid AUTOSTART: %w", err)
		}
		c.Autostart = starts
	case "DEFAULT_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_INTERVAL %q: %w", value, err)
		}
		if interval < 0 {
			return fmt.Errorf("DEFAULT_INTERVAL must not be negative, got %d", interval)
		}
		c.DefaultInterval = interval
	case "SAMPLE_BUFFER":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_BUFFER %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("SAMPLE_BUFFER must be at least 1, got %d", n)
		}
		c.SampleBuffer = n

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Kafka
	case "KAFKA_BROKERS":
		c.KafkaBrokers = splitList(value)
	case "KAFKA_TOPIC":
		c.KafkaTopic = value

	// Display
	case "DISPLAY_LEFT_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_LEFT_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayLeftI2CAddr = uint16(addr)
	case "DISPLAY_RIGHT_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_RIGHT_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayRightI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		if interval < 1 {
			return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be at least 1, got %d", interval)
		}
		c.DisplayUpdateInterval = interval
	case "DISPLAY_LEFT_SENSOR":
		id, err := sample.ParseSensorID(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_LEFT_SENSOR: %w", err)
		}
		c.DisplayLeftSensor = id
	case "DISPLAY_RIGHT_SENSOR":
		id, err := sample.ParseSensorID(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_RIGHT_SENSOR: %w", err)
		}
		c.DisplayRightSensor = id

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSensorPrefix == "" {
		return fmt.Errorf("TOPIC_SENSOR_PREFIX must not be empty")
	}
	if c.SensorSource == SourceHardware &&
		c.IMUSPIDevice == "" && c.BMPSPIDevice == "" && c.GNSSSerialPort == "" {
		return fmt.Errorf("SENSOR_SOURCE=hardware needs at least one of IMU_SPI_DEVICE, BMP_SPI_DEVICE, GNSS_SERIAL_PORT")
	}
	if c.GNSSSerialPort != "" && c.GNSSBaudRate <= 0 {
		return fmt.Errorf("GNSS_BAUD_RATE is required with GNSS_SERIAL_PORT")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required with KAFKA_BROKERS")
	}
	return nil
}

// KafkaEnabled reports whether samples are mirrored to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseSensorList(value string) ([]sample.SensorID, error) {
	var ids []sample.SensorID
	for _, name := range splitList(value) {
		id, err := sample.ParseSensorID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseAutostart reads "name[:interval],...", e.g. "accelerometer:20000,pressure".
func parseAutostart(value string) ([]Autostart, error) {
	var out []Autostart
	for _, entry := range splitList(value) {
		name, rawInterval, hasInterval := strings.Cut(entry, ":")
		id, err := sample.ParseSensorID(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		start := Autostart{SensorID: id, Interval: -1}
		if hasInterval {
			interval, err := strconv.Atoi(strings.TrimSpace(rawInterval))
			if err != nil || interval < 0 {
				return nil, fmt.Errorf("bad interval in %q", entry)
			}
			start.Interval = interval
		}
		out = append(out, start)
	}
	return out, nil
}

// IntervalFor resolves an autostart interval, falling back to DefaultInterval.
func (c *Config) IntervalFor(a Autostart) int {
	if a.Interval < 0 {
		return c.DefaultInterval
	}
	return a.Interval
}

// InitGlobal initializes the global configuration from file. Only the first
// call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
