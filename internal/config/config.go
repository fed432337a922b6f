package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	LANGUAGE_EN = "en"
	LANGUAGE_IT = "it"
)

// poll intervals offered by the meter bridge, in seconds
var PollIntervals = []uint{2, 3, 4, 5, 10, 20, 30}

type Config struct {
	LogLevel      zapcore.Level
	Debug         bool          `mapstructure:"debug"`
	Language      string        `mapstructure:"language"`
	Serial        SerialConfig  `mapstructure:"serial"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate uint   `mapstructure:"baud_rate"`
	Driver   string `mapstructure:"driver"`
}

type MonitorConfig struct {
	PollIntervalSeconds uint   `mapstructure:"poll_interval_seconds"`
	Slaves              string `mapstructure:"slaves"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// ParseLogLevel maps the log_level setting to a zap level. Unknown names
// fall back to info; trace is accepted as an alias of debug.
func ParseLogLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
