package util

import (
	"github.com/CreasolTech/pzem2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Language: config.LANGUAGE_EN,
		Serial: config.SerialConfig{
			Port:     "/dev/null",
			BaudRate: 9600,
			Driver:   "simonvetter",
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "pzem",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalSeconds: 2,
			Slaves:              "2,3,4",
		},
		Port: 8080,
	}
}
