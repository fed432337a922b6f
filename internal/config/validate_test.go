package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func validConfig() Config {
	return Config{
		Language: LANGUAGE_EN,
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 9600,
			Driver:   "simonvetter",
		},
		MQTT: MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "PZEM",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: MonitorConfig{
			PollIntervalSeconds: 5,
			Slaves:              "2,3,4",
		},
	}
}

func TestParseSlaveList(t *testing.T) {

	assert := assert.New(t)

	slaves, err := ParseSlaveList("2,3,4")
	assert.NoError(err)
	assert.Equal([]uint8{2, 3, 4}, slaves)

	slaves, err = ParseSlaveList(" 1, 2 ,124,")
	assert.NoError(err)
	assert.Equal([]uint8{1, 2, 124}, slaves, "blanks are trimmed")

	slaves, err = ParseSlaveList("3,3")
	assert.NoError(err)
	assert.Equal([]uint8{3, 3}, slaves, "duplicates are kept")
}

func TestParseSlaveListErrors(t *testing.T) {

	for _, list := range []string{"", " , ", "a", "2,x", "0", "248", "-1", "300"} {
		_, err := ParseSlaveList(list)
		var ce *ConfigurationError
		assert.True(t, errors.As(err, &ce), "list %q must fail", list)
		assert.Equal(t, "monitor.slaves", ce.Param)
	}
}

func TestValidate(t *testing.T) {

	require := require.New(t)

	cfg := validConfig()
	require.NoError(Validate(&cfg))
	require.Equal("pzem", cfg.MQTT.BaseTopic, "base topic lower cased")
}

func TestValidatePollInterval(t *testing.T) {

	assert := assert.New(t)

	for _, s := range PollIntervals {
		cfg := validConfig()
		cfg.MonitorConfig.PollIntervalSeconds = s
		assert.NoError(Validate(&cfg), "interval %d", s)
	}
	for _, s := range []uint{0, 1, 6, 15, 60} {
		cfg := validConfig()
		cfg.MonitorConfig.PollIntervalSeconds = s
		err := Validate(&cfg)
		var ce *ConfigurationError
		assert.True(errors.As(err, &ce), "interval %d", s)
		assert.Equal("monitor.poll_interval_seconds", ce.Param)
	}
}

func TestValidateErrors(t *testing.T) {

	cases := map[string]func(*Config){
		"monitor.slaves":          func(c *Config) { c.MonitorConfig.Slaves = "" },
		"serial.port":             func(c *Config) { c.Serial.Port = " " },
		"serial.baud_rate":        func(c *Config) { c.Serial.BaudRate = 0 },
		"serial.driver":           func(c *Config) { c.Serial.Driver = "serialport" },
		"mqtt.base_topic":         func(c *Config) { c.MQTT.BaseTopic = "pzem/meters" },
		"mqtt.ha_discovery_topic": func(c *Config) { c.MQTT.HADiscoveryTopic = "" },
	}
	for param, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		err := Validate(&cfg)
		var ce *ConfigurationError
		if assert.True(t, errors.As(err, &ce), param) {
			assert.Equal(t, param, ce.Param)
		}
	}
}

func TestPollInterval(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "5s", cfg.MonitorConfig.PollInterval().String())
}

func TestParseLogLevel(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(zapcore.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(zapcore.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(zapcore.WarnLevel, ParseLogLevel("warn"))
	assert.Equal(zapcore.ErrorLevel, ParseLogLevel(" error "))
	assert.Equal(zapcore.FatalLevel, ParseLogLevel("fatal"))
	assert.Equal(zapcore.InfoLevel, ParseLogLevel("info"))
	assert.Equal(zapcore.InfoLevel, ParseLogLevel("verbose"))
}
