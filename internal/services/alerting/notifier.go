package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/messages"
)

// Notifier pushes a stored alert to whoever watches for it.
type Notifier interface {
	Notify(ctx context.Context, a model.Alert) error
}

type NotifierFunc func(ctx context.Context, a model.Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a model.Alert) error { return f(ctx, a) }

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, a model.Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TopicPublisher is the slice of pkg/rabbitmq the MQTT notifier needs.
type TopicPublisher interface {
	PublishTo(topic string, qos byte, payload []byte) error
}

// MQTTNotifier publishes a messages.AlertEvent on a per-pot topic built from
// a template such as "event/alert/{pot}".
type MQTTNotifier struct {
	pub       TopicPublisher
	topicTmpl string
}

func NewMQTTNotifier(pub TopicPublisher, topicTmpl string) *MQTTNotifier {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = "event/alert/{pot}"
	}
	return &MQTTNotifier{pub: pub, topicTmpl: topicTmpl}
}

func (n *MQTTNotifier) Topic(potID string) string {
	return strings.ReplaceAll(n.topicTmpl, "{pot}", potID)
}

func (n *MQTTNotifier) Notify(_ context.Context, a model.Alert) error {
	b, err := json.Marshal(messages.NewAlertEvent(a))
	if err != nil {
		return err
	}
	return n.pub.PublishTo(n.Topic(a.PotID), 1, b)
}

// Broadcaster is satisfied by *feed.Hub.
type Broadcaster interface {
	Publish(kind string, payload any) error
}

// FeedNotifier pushes alerts to connected operator dashboards.
type FeedNotifier struct {
	b Broadcaster
}

func NewFeedNotifier(b Broadcaster) *FeedNotifier { return &FeedNotifier{b: b} }

func (n *FeedNotifier) Notify(_ context.Context, a model.Alert) error {
	return n.b.Publish("alert", a)
}
