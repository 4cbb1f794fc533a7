package telemetry

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// #region config

// Config locates the broker. An empty Broker means telemetry is off.
type Config struct {
	Broker string // e.g. tcp://localhost:1883
	Topic  string
}

// #endregion config

// #region publisher

// Publisher mirrors game events onto an MQTT topic for external displays.
// Publishing is fire-and-forget: a slow or absent broker never holds up the
// game loop.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// Connect creates and connects a publisher. Returns (nil, nil) when no
// broker is configured, so callers can wire it unconditionally.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("lockbox-core-%d", time.Now().Unix()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("[MQTT] connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &Publisher{client: client, topic: cfg.Topic}, nil
}

// PublishEvent sends one event payload to <topic>/<kind>. Nil-safe so a
// disabled publisher can be passed around as-is.
func (p *Publisher) PublishEvent(kind string, payload []byte) {
	if p == nil {
		return
	}
	p.client.Publish(p.topic+"/"+kind, 0, false, payload)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}

// #endregion publisher
