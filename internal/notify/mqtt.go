package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"atmotube-export/internal/telemetry/application"
	telemetry "atmotube-export/internal/telemetry/domain"
)

const publishTimeout = 5 * time.Second

// MQTTOptions configures the MQTT publisher.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Publisher abstracts the MQTT publish call.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes export events as JSON messages.
type MQTTNotifier struct {
	client Publisher
	topic  string
	logger *log.Logger
	close  func()
}

type mqttMessage struct {
	Type       string         `json:"type"`
	Device     string         `json:"device,omitempty"`
	StartDate  string         `json:"start_date,omitempty"`
	EndDate    string         `json:"end_date,omitempty"`
	Total      int            `json:"total"`
	Items      int            `json:"items"`
	Artifacts  []mqttArtifact `json:"artifacts,omitempty"`
	Error      string         `json:"error,omitempty"`
	Exported   int            `json:"exported,omitempty"`
	Failed     int            `json:"failed,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type mqttArtifact struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Empty  bool   `json:"empty"`
	Rows   int    `json:"rows"`
}

// NewMQTTNotifier connects to the broker.
func NewMQTTNotifier(opts MQTTOptions, logger *log.Logger) (*MQTTNotifier, error) {
	if strings.TrimSpace(opts.Broker) == "" {
		return nil, errors.New("mqtt notifier: empty broker")
	}
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetUsername(opts.Username)
	clientOpts.SetPassword(opts.Password)
	clientOpts.SetConnectTimeout(10 * time.Second)
	clientOpts.SetAutoReconnect(false)

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt notifier: connect: %w", token.Error())
	}
	n := NewMQTTNotifierWithClient(client, opts.Topic, logger)
	n.close = func() { client.Disconnect(250) }
	return n, nil
}

// NewMQTTNotifierWithClient builds a notifier over an existing publisher.
func NewMQTTNotifierWithClient(client Publisher, topic string, logger *log.Logger) *MQTTNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTTNotifier{client: client, topic: strings.TrimRight(topic, "/"), logger: logger}
}

// Notify publishes the event. Failures are logged.
func (n *MQTTNotifier) Notify(_ context.Context, event application.Event) {
	if err := n.Publish(event); err != nil {
		n.logger.Printf("mqtt notify error: type=%s device=%s err=%v", event.Type, event.Device, err)
	}
}

// Publish sends the event to <topic>/<device> or <topic>/run.
func (n *MQTTNotifier) Publish(event application.Event) error {
	payload, err := json.Marshal(toMQTTMessage(event))
	if err != nil {
		return err
	}
	token := n.client.Publish(n.topicFor(event), 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt notifier: publish timeout")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	if n != nil && n.close != nil {
		n.close()
	}
}

func (n *MQTTNotifier) topicFor(event application.Event) string {
	if event.Device == "" {
		return n.topic + "/run"
	}
	return n.topic + "/" + telemetry.DeviceDir(event.Device)
}

func toMQTTMessage(event application.Event) mqttMessage {
	msg := mqttMessage{
		Type:       event.Type,
		Device:     event.Device,
		Total:      event.Total,
		Items:      event.Items,
		Error:      event.Error,
		OccurredAt: event.OccurredAt,
	}
	if !event.Window.Start.IsZero() {
		msg.StartDate = event.Window.StartKey()
		msg.EndDate = event.Window.EndKey()
	}
	for _, artifact := range event.Artifacts {
		msg.Artifacts = append(msg.Artifacts, mqttArtifact{
			Format: artifact.Format,
			Path:   artifact.RelPath,
			Empty:  artifact.Empty,
			Rows:   artifact.Rows,
		})
	}
	if event.Summary != nil {
		msg.Exported = event.Summary.Exported
		msg.Failed = event.Summary.Failed
		msg.Items = event.Summary.Records
	}
	return msg
}
