package mqtt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
)

var ErrInvalidCommand = errors.New("invalid sensor command")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("pzem_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	// the broker flags the bridge offline when the connection drops
	opts.SetBinaryWill(bridgeStateTopic(cfg.MQTT.BaseTopic), []byte(MQTT_PAYLOAD_OFFLINE), 0, true)

	return opts
}

// MQTTClient wraps a paho client with the topic layout of the bridge.
// Blocking paho tokens are awaited on their own goroutine and reported
// through a continuation, so callers never block.
type MQTTClient struct {
	client         mqtt.Client
	baseTopic      string
	discoveryTopic string
	commandPattern *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:         mqtt.NewClient(opts),
		baseTopic:      cfg.MQTT.BaseTopic,
		discoveryTopic: cfg.MQTT.HADiscoveryTopic,
		commandPattern: sensorCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic)
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return c.sensorTopic(sensorId, "state")
}

func (c *MQTTClient) HADiscoveryTopic() string {
	return c.discoveryTopic
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return parseSensorCommand(c.commandPattern, msg.Topic(), msg.Payload())
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	await("publish", c.client.Publish(topic, qos, retain, payload), continuation, timeout)
}

// SubscribeToCommandTopic subscribes to the set topic of every sensor.
func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	await("subscribe", c.client.Subscribe(c.commandTopic(), 1, handler), continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	await("connect", c.client.Connect(), continuation, timeout)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) sensorTopic(sensorId string, leaf string) string {
	return fmt.Sprintf("%s/sensor/%s/%s", c.baseTopic, sensorId, leaf)
}

func (c *MQTTClient) commandTopic() string {
	return c.sensorTopic("+", "set")
}

func await(op string, token mqtt.Token, continuation func(error), timeout time.Duration) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(fmt.Errorf("MQTT %s timed out after %s", op, timeout))
			return
		}
		continuation(token.Error())
	}()
}

func parseSensorCommand(r *regexp.Regexp, topic string, payload []byte) (*ParsedMQTTCommand, error) {
	match := r.FindStringSubmatch(topic)
	if len(match) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, topic)
	}
	return &ParsedMQTTCommand{
		DeviceId: match[1],
		Command:  "set",
		Payload:  string(payload),
	}, nil
}

func sensorCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/sensor/([a-zA-Z0-9_]+)/set$", regexp.QuoteMeta(baseTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
