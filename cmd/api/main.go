package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/CreasolTech/pzem2mqtt/internal/adapter/actor"
	"github.com/CreasolTech/pzem2mqtt/internal/config"
	"github.com/CreasolTech/pzem2mqtt/internal/core/actor"
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/server"
	"github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"
	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// shutdownOnSignal stops the http server on SIGINT or SIGTERM, giving
// in-flight requests 5 seconds, then closes done.
func shutdownOnSignal(apiServer *http.Server, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down, press Ctrl+C again to force")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Warn("http server forced to shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	if cfg.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Must(zapCfg.Build())
}

func main() {

	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	logger := newLogger(cfg)
	defer logger.Sync()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		logger.Fatal("could not open the serial bus", zap.String("port", cfg.Serial.Port), zap.Error(err))
	}

	master, err := root.SpawnNamed(pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, mqttActorProvider(cfg, logger), logger)
	}), domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Fatal("could not start master actor", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, root, master, logger)
	done := make(chan struct{})
	go shutdownOnSignal(apiServer, logger, done)

	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server error", zap.Error(err))
	}
	<-done

	// stopping the master takes the bridge offline before the system goes down
	if err := root.StopFuture(master).Wait(); err != nil {
		logger.Warn("master did not stop cleanly", zap.Error(err))
	}
	as.Shutdown()
	logger.Info("shutdown complete")
}

func initConfig() (*config.Config, error) {

	// alias PORT => PZEM_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PZEM_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("pzem")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = config.ParseLogLevel(viper.GetString("log_level"))

	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	reader, err := pzem_modbus.CreateMeterReader(cfg.Serial.Driver, pzem_modbus.SerialConfig{
		Port:     cfg.Serial.Port,
		BaudRate: cfg.Serial.BaudRate,
		Timeout:  pzem_modbus.DEFAULT_READ_TIMEOUT,
	}, logger, nil)

	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(reader, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(discovery *adactor.DiscoveryRegistry) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, discovery, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("debug", false)
	viper.SetDefault("language", config.LANGUAGE_EN)
	viper.SetDefault("serial.port", "/dev/ttyUSB0")
	viper.SetDefault("serial.baud_rate", pzem_modbus.DEFAULT_BAUD_RATE)
	viper.SetDefault("serial.driver", pzem_modbus.DRIVER_SIMONVETTER)
	viper.SetDefault("monitor.poll_interval_seconds", 5)
	viper.SetDefault("monitor.slaves", "2,3,4")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", true)
	viper.SetDefault("mqtt.base_topic", "pzem")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
