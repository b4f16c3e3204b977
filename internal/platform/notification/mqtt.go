package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes payloads to an MQTT broker. Topics that do not
// already start with the prefix are rooted under it.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(ctx context.Context, cfg MQTTConfig, logger zerolog.Logger) (*MQTTPublisher, error) {
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info().Str("broker", cfg.Broker).Msg("connected to mqtt broker")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
		})

	c := mqtt.NewClient(opts)
	if err := waitToken(ctx, c.Connect()); err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(c, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTTPublisher(c mqttClient, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: c, prefix: strings.TrimRight(prefix, "/"), qos: qos}
}

func (p *MQTTPublisher) Topic(topic string) string {
	if p.prefix == "" || strings.HasPrefix(topic, p.prefix) {
		return topic
	}
	return p.prefix + "/" + strings.TrimLeft(topic, "/")
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return waitToken(ctx, p.client.Publish(p.Topic(topic), p.qos, false, payload))
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
