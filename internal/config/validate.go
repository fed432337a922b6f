package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	MIN_SLAVE_ADDRESS = 1
	MAX_SLAVE_ADDRESS = 247
)

// ParseSlaveList parses the comma separated, ordered list of meter
// addresses. Duplicates are kept: each occurrence gets its own sensor group.
func ParseSlaveList(list string) ([]uint8, error) {
	var slaves []uint8
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.ParseUint(field, 10, 8)
		if err != nil {
			return nil, configError("monitor.slaves", fmt.Sprintf("invalid slave address %q", field), err)
		}
		if value < MIN_SLAVE_ADDRESS || value > MAX_SLAVE_ADDRESS {
			return nil, configError("monitor.slaves",
				fmt.Sprintf("slave address %d out of range [%d, %d]", value, MIN_SLAVE_ADDRESS, MAX_SLAVE_ADDRESS), nil)
		}
		slaves = append(slaves, uint8(value))
	}
	if len(slaves) == 0 {
		return nil, configError("monitor.slaves", "at least one slave address is required", nil)
	}
	return slaves, nil
}

func ValidPollInterval(seconds uint) bool {
	return slices.Contains(PollIntervals, seconds)
}

// Validate checks and normalizes cfg in place.
func Validate(cfg *Config) error {
	if !ValidPollInterval(cfg.MonitorConfig.PollIntervalSeconds) {
		return configError("monitor.poll_interval_seconds",
			fmt.Sprintf("%d is not one of %v", cfg.MonitorConfig.PollIntervalSeconds, PollIntervals), nil)
	}
	if _, err := ParseSlaveList(cfg.MonitorConfig.Slaves); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Serial.Port) == "" {
		return configError("serial.port", "serial port is required", nil)
	}
	if cfg.Serial.BaudRate == 0 {
		return configError("serial.baud_rate", "should be > 0", nil)
	}
	switch cfg.Serial.Driver {
	case "simonvetter", "goburrow":
	default:
		return configError("serial.driver", fmt.Sprintf("unknown driver %q", cfg.Serial.Driver), nil)
	}

	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return configError("mqtt.base_topic", "can only contain letters, numbers and underscores", err)
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return configError("mqtt.ha_discovery_topic", "can only contain letters, numbers and underscores", err)
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	return nil
}
