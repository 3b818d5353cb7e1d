package ingestion

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/soilwatch/pkg/dedup"
)

// MQTTIntake feeds device messages from sensor/readings/{pot} into the
// pipeline. QoS 1 redeliveries are dropped by payload hash.
type MQTTIntake struct {
	pipeline *Pipeline
	dedup    *dedup.Deduper
	timeout  time.Duration
	logger   *log.Logger
}

func NewMQTTIntake(p *Pipeline, d *dedup.Deduper, logger *log.Logger) *MQTTIntake {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTTIntake{pipeline: p, dedup: d, timeout: 10 * time.Second, logger: logger}
}

// Handle matches rabbitmq.Handler. Rejected payloads are logged and dropped so
// the subscription keeps flowing.
func (h *MQTTIntake) Handle(topic string, msg mqtt.Message) error {
	sum := sha256.Sum256(msg.Payload())
	key := hex.EncodeToString(sum[:])
	if h.dedup != nil && !h.dedup.ShouldProcess(key) {
		h.pipeline.metrics.Duplicates.Inc()
		return nil
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(msg.Payload()))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		h.logger.Printf("ingestion: bad payload on %s: %v", topic, err)
		return nil
	}
	if p == nil {
		h.logger.Printf("ingestion: bad payload on %s: not a JSON object", topic)
		return nil
	}
	if _, ok := p["pot_id"]; !ok {
		if pot := potFromTopic(topic); pot != "" {
			p["pot_id"] = pot
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	ack, err := h.pipeline.Ingest(ctx, p)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			h.logger.Printf("ingestion: rejected message on %s: %v", topic, err)
			return nil
		}
		if h.dedup != nil {
			h.dedup.Forget(key)
		}
		return fmt.Errorf("ingest from %s: %w", topic, err)
	}
	if ack.Alert != nil {
		h.logger.Printf("ingestion: reading %s from %s raised %s alert %s", ack.ID, topic, ack.Alert.Severity, ack.Alert.ID)
	}
	return nil
}

// potFromTopic returns the last level of sensor/readings/{pot}.
func potFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}
