package notify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"atmotube-export/internal/telemetry/application"
	telemetry "atmotube-export/internal/telemetry/domain"
)

func sampleEvent() application.Event {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	window := telemetry.ResolveWindow(start, time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local))
	return application.Event{
		Type:   application.EventExported,
		Device: "AA:BB:CC:DD:EE:FF",
		Window: window,
		Total:  12,
		Items:  12,
		Artifacts: []telemetry.Artifact{
			{Format: "csv", RelPath: "csv_data/AA-BB-CC-DD-EE-FF/2024-01-01_2024-01-08.csv", Rows: 12},
		},
		OccurredAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new webhook notifier: %v", err)
	}
	if err := notifier.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("send: %v", err)
	}

	payload := <-payloadCh
	if payload.MsgType != "text" {
		t.Fatalf("expected msgtype text, got %s", payload.MsgType)
	}
	checks := []string{
		"[Atmotube Export]",
		"Device: AA:BB:CC:DD:EE:FF",
		"Window: 2024-01-01 .. 2024-01-08",
		"Records: 12 of 12",
		"Artifact: csv_data/AA-BB-CC-DD-EE-FF/2024-01-01_2024-01-08.csv",
	}
	for _, check := range checks {
		if !strings.Contains(payload.Text.Content, check) {
			t.Fatalf("expected content to contain %q, got %q", check, payload.Text.Content)
		}
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new webhook notifier: %v", err)
	}
	if err := notifier.Send(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error for 502")
	}
	if _, err := NewWebhookNotifier(" ", nil); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestFormatRunFinished(t *testing.T) {
	content := formatEvent(application.Event{
		Type:    application.EventRunFinished,
		Summary: &application.RunSummary{Exported: 2, Failed: 1, Records: 40},
	})
	if !strings.Contains(content, "Devices: 2 exported, 1 failed") || !strings.Contains(content, "Records: 40") {
		t.Fatalf("unexpected content %q", content)
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishedMessage struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	messages []publishedMessage
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	raw, _ := payload.([]byte)
	p.messages = append(p.messages, publishedMessage{topic: topic, qos: qos, payload: raw})
	return newFakeToken(nil)
}

func TestMQTTNotifierPublish(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewMQTTNotifierWithClient(publisher, "atmotube/exports/", log.New(io.Discard, "", 0))

	notifier.Notify(context.Background(), sampleEvent())
	notifier.Notify(context.Background(), application.Event{
		Type:    application.EventRunFinished,
		Summary: &application.RunSummary{Exported: 1, Records: 12},
	})

	if len(publisher.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(publisher.messages))
	}
	first := publisher.messages[0]
	if first.topic != "atmotube/exports/AA-BB-CC-DD-EE-FF" || first.qos != 1 {
		t.Fatalf("unexpected topic/qos %s/%d", first.topic, first.qos)
	}
	var msg mqttMessage
	if err := json.Unmarshal(first.payload, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != application.EventExported || msg.StartDate != "2024-01-01" || msg.EndDate != "2024-01-08" || len(msg.Artifacts) != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if publisher.messages[1].topic != "atmotube/exports/run" {
		t.Fatalf("unexpected run topic %s", publisher.messages[1].topic)
	}
}

type countingNotifier struct{ count int }

func (c *countingNotifier) Notify(context.Context, application.Event) { c.count++ }

func TestMultiNotifier(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	multi := NewMultiNotifier(a, nil, b)
	multi.Notify(context.Background(), sampleEvent())
	if a.count != 1 || b.count != 1 {
		t.Fatalf("expected both notified, got %d %d", a.count, b.count)
	}
	if multi.Len() != 3 {
		t.Fatalf("unexpected len %d", multi.Len())
	}
	var nilMulti *MultiNotifier
	nilMulti.Notify(context.Background(), sampleEvent())
}
