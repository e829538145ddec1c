package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gpuprices/internal/model"
	"gpuprices/pkg/config"
	"gpuprices/pkg/logger"
)

// Webhook payload formats
const (
	FormatJSON   = "json"
	FormatFeishu = "feishu"
)

// WebhookNotifier posts each new snapshot summary to a webhook. Delivery is
// best effort: failures are logged and never reach ingestion.
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	format  string
	timeout time.Duration
}

// NewWebhookNotifier creates a notifier; it returns nil when no URL is configured
func NewWebhookNotifier(cfg config.NotificationConfig) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		return nil
	}
	format := strings.ToLower(cfg.Format)
	if format != FormatFeishu {
		format = FormatJSON
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{
		client:  client,
		url:     cfg.WebhookURL,
		format:  format,
		timeout: cfg.Timeout,
	}
}

// Publish sends summary in the background
func (n *WebhookNotifier) Publish(summary model.SnapshotSummary) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.Send(ctx, summary); err != nil {
			logger.WarnCtx(ctx, "snapshot webhook failed, observed_at: %s, error: %v",
				summary.ObservedAt.Format(time.RFC3339), err)
		}
	}()
}

// Send posts summary and waits for the response
func (n *WebhookNotifier) Send(ctx context.Context, summary model.SnapshotSummary) error {
	var body interface{} = summary
	if n.format == FormatFeishu {
		body = buildSnapshotCard(summary)
	}

	resp, err := n.client.R().SetContext(ctx).SetBody(body).Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to send snapshot notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode())
	}

	logger.DebugCtx(ctx, "snapshot notification sent, observed_at: %s", summary.ObservedAt.Format(time.RFC3339))
	return nil
}

func larkField(label, value string) map[string]interface{} {
	return map[string]interface{}{
		"is_short": true,
		"text": map[string]interface{}{
			"content": fmt.Sprintf("**%s**\n%s", label, value),
			"tag":     "lark_md",
		},
	}
}

// buildSnapshotCard renders a Feishu (Lark) interactive card
func buildSnapshotCard(s model.SnapshotSummary) map[string]interface{} {
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"template": "blue",
				"title": map[string]interface{}{
					"content": "GPU price snapshot stored",
					"tag":     "plain_text",
				},
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"content": fmt.Sprintf("**Observed at**: %s", s.ObservedAt.UTC().Format("2006-01-02 15:04:05 MST")),
						"tag":     "lark_md",
					},
				},
				map[string]interface{}{"tag": "hr"},
				map[string]interface{}{
					"tag": "div",
					"fields": []interface{}{
						larkField("Offers", fmt.Sprintf("%d", s.TotalInstances)),
						larkField("Providers", strings.Join(s.Metadata.Providers, ", ")),
						larkField("GPU types", fmt.Sprintf("%d", s.GPUTypesCount)),
						larkField("Price range", fmt.Sprintf("$%.2f - $%.2f / h (avg $%.2f)", s.MinPrice, s.MaxPrice, s.AvgPrice)),
					},
				},
			},
		},
	}
}
