// Package mqttingest lets edge devices report state changes over MQTT as
// an alternative to the HTTP write boundary. Messages are translated into
// the same typed mutation events; malformed payloads are logged and
// dropped at this boundary.
package mqttingest

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ClientConfig holds MQTT connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client manages the MQTT connection; subscriptions live on Subscriber.
type Client struct {
	client mqtt.Client
	logger *log.Logger
}

// NewClient connects to the broker. Reconnection after a drop is handled
// by paho's auto-reconnect.
func NewClient(cfg ClientConfig, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Printf("mqtt ingest: connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Printf("mqtt ingest: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt ingest: connect to %s: %w", cfg.Broker, token.Error())
	}

	return &Client{client: client, logger: logger}, nil
}

// NativeClient returns the underlying paho client for Subscriber.
func (c *Client) NativeClient() mqtt.Client {
	return c.client
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Printf("mqtt ingest: disconnected")
}
