package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"atmotube-export/internal/telemetry/application"
)

// WebhookNotifier posts a text summary of export events to a webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, logger *log.Logger) (*WebhookNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Notify sends the event. Failures are logged.
func (n *WebhookNotifier) Notify(ctx context.Context, event application.Event) {
	if err := n.Send(ctx, event); err != nil {
		n.logger.Printf("webhook notify error: type=%s device=%s err=%v", event.Type, event.Device, err)
	}
}

// Send posts the event and returns any delivery error.
func (n *WebhookNotifier) Send(ctx context.Context, event application.Event) error {
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatEvent(event)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: http %d", resp.StatusCode)
	}
	return nil
}

func formatEvent(event application.Event) string {
	var b strings.Builder
	switch event.Type {
	case application.EventExported:
		b.WriteString("[Atmotube Export]\n")
	case application.EventFetchFailed:
		b.WriteString("[Atmotube Fetch Failed]\n")
	case application.EventRunFinished:
		b.WriteString("[Atmotube Run Finished]\n")
	default:
		fmt.Fprintf(&b, "[Atmotube %s]\n", event.Type)
	}
	if event.Device != "" {
		fmt.Fprintf(&b, "Device: %s\n", event.Device)
	}
	if !event.Window.Start.IsZero() {
		fmt.Fprintf(&b, "Window: %s .. %s\n", event.Window.StartKey(), event.Window.EndKey())
	}
	if event.Type == application.EventExported {
		fmt.Fprintf(&b, "Records: %d of %d\n", event.Items, event.Total)
	}
	for _, artifact := range event.Artifacts {
		fmt.Fprintf(&b, "Artifact: %s\n", artifact.RelPath)
	}
	if event.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", event.Error)
	}
	if s := event.Summary; s != nil {
		fmt.Fprintf(&b, "Devices: %d exported, %d failed\n", s.Exported, s.Failed)
		fmt.Fprintf(&b, "Records: %d\n", s.Records)
	}
	return strings.TrimSpace(b.String())
}
