package rabbitmq

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on a subscription.
type Handler func(topic string, msg mqtt.Message) error

// Consumer subscribes a handler to one topic filter.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler Handler
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: handler}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// Subscribe registers the handler and waits for the broker's acknowledgement.
func (c *Consumer) Subscribe() error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler == nil {
			log.Printf("mqtt: no handler for %s", c.topic)
			return
		}
		if err := c.handler(msg.Topic(), msg); err != nil {
			log.Printf("mqtt: handling message on %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, token.Error())
	}
	log.Printf("mqtt: subscribed to %s (qos %d)", c.topic, c.qos)
	return nil
}

// ConsumeMessage subscribes and blocks until ctx is done, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	if err := c.Subscribe(); err != nil {
		return err
	}
	<-ctx.Done()
	c.client.Unsubscribe(c.topic).Wait()
	return nil
}
