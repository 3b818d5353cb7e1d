package rabbitmq

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends payloads through a shared MQTT client.
type Publisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishTo(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it at qos 1.
func (p *Publisher) PublishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.PublishTo(topic, 1, b)
}
