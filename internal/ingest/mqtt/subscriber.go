package mqttingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fleet-hub/internal/fleet/application"
	"fleet-hub/internal/fleet/events"
	"fleet-hub/internal/observability/metrics"
)

// SubscriberConfig holds the ingest topic patterns. Topics carry the
// entity id and the action as their last two segments, e.g.
// fleet/devices/cam-01/offline or fleet/sessions/s-9/end.
type SubscriberConfig struct {
	DeviceTopic  string // e.g. "fleet/devices/+/+"
	SessionTopic string // e.g. "fleet/sessions/+/+"
}

var deviceActions = map[string]string{
	"register": events.KindDeviceRegister,
	"update":   events.KindDeviceUpdate,
	"offline":  events.KindDeviceOffline,
}

var sessionActions = map[string]string{
	"start": events.KindSessionStart,
	"end":   events.KindSessionEnd,
}

// Subscriber turns inbound MQTT messages into mutation events.
type Subscriber struct {
	client     mqtt.Client
	dispatcher *application.Dispatcher
	cfg        SubscriberConfig
	logger     *log.Logger
}

// NewSubscriber constructs a subscriber.
func NewSubscriber(client mqtt.Client, dispatcher *application.Dispatcher, cfg SubscriberConfig, logger *log.Logger) (*Subscriber, error) {
	if client == nil {
		return nil, errors.New("mqtt ingest: nil client")
	}
	if dispatcher == nil {
		return nil, errors.New("mqtt ingest: nil dispatcher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Subscriber{client: client, dispatcher: dispatcher, cfg: cfg, logger: logger}, nil
}

// SubscribeAll subscribes to the configured topics.
func (s *Subscriber) SubscribeAll() error {
	if s.cfg.DeviceTopic != "" {
		if err := s.subscribe(s.cfg.DeviceTopic, s.handler(deviceActions)); err != nil {
			return fmt.Errorf("mqtt ingest: subscribe %s: %w", s.cfg.DeviceTopic, err)
		}
		s.logger.Printf("mqtt ingest: subscribed to %s", s.cfg.DeviceTopic)
	}
	if s.cfg.SessionTopic != "" {
		if err := s.subscribe(s.cfg.SessionTopic, s.handler(sessionActions)); err != nil {
			return fmt.Errorf("mqtt ingest: subscribe %s: %w", s.cfg.SessionTopic, err)
		}
		s.logger.Printf("mqtt ingest: subscribed to %s", s.cfg.SessionTopic)
	}
	return nil
}

func (s *Subscriber) subscribe(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// handler builds a message handler for one action family.
func (s *Subscriber) handler(actions map[string]string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		id, action, ok := splitTopic(msg.Topic())
		if !ok {
			s.drop(msg.Topic(), errors.New("short topic"))
			return
		}
		kind, ok := actions[action]
		if !ok {
			s.drop(msg.Topic(), fmt.Errorf("unknown action %q", action))
			return
		}

		payload, err := withID(msg.Payload(), id)
		if err != nil {
			s.drop(msg.Topic(), err)
			return
		}
		ev, err := events.Decode(kind, payload)
		if err != nil {
			s.drop(msg.Topic(), err)
			return
		}

		s.dispatcher.Apply(ev)
	}
}

func (s *Subscriber) drop(topic string, err error) {
	s.logger.Printf("mqtt ingest: drop message on %s: %v", topic, err)
	metrics.RecordIngestRejected("mqtt")
}

// splitTopic extracts the entity id and action from the last two topic
// segments.
func splitTopic(topic string) (id, action string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	id = parts[len(parts)-2]
	action = parts[len(parts)-1]
	return id, action, id != "" && action != ""
}

// withID injects the topic's entity id into the payload when the payload
// does not carry one itself. An empty payload is normalized to {"id":...}.
func withID(payload []byte, id string) ([]byte, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, ok := fields["id"]; !ok {
		fields["id"] = id
		return json.Marshal(fields)
	}
	return payload, nil
}
