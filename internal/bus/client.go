package bus

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Publisher is the narrow messaging seam the pipeline components use, so
// tests never need a broker.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client wraps the MQTT connection used for barrier commands, status
// updates, and periodic stats.
type Client struct {
	client mqtt.Client
	log    zerolog.Logger
}

func Connect(broker, clientID string, log zerolog.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Str("client_id", clientID).Msg("mqtt connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("mqtt connection lost, auto-reconnecting")
	}

	c := &Client{client: mqtt.NewClient(opts), log: log}

	token := c.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return c, nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishRetained publishes with the retained flag, for last-known-state
// documents like the periodic stats report.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.log.Info().Str("topic", topic).Msg("subscribed")
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}
