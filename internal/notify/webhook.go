// Package notify delivers price alert notifications to a configured webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_notifications_sent_total",
		Help: "Webhook notifications delivered successfully",
	})

	notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_notifications_failed_total",
		Help: "Webhook notifications that failed after all retries",
	})
)

// Message is the webhook payload for one triggered alert.
type Message struct {
	AlertID     int64   `json:"alert_id"`
	ProductName string  `json:"product_name"`
	Pharmacy    string  `json:"pharmacy"`
	Price       float64 `json:"price"`
	TargetPrice float64 `json:"target_price"`
	MapURL      string  `json:"map_url,omitempty"`
	Text        string  `json:"text"`
}

// Notifier posts alert messages to a webhook with retries.
type Notifier struct {
	client         *resty.Client
	webhookURL     string
	maxRetries     int
	initialBackoff time.Duration
	logger         zerolog.Logger
}

// NewNotifier builds a notifier. An empty webhookURL disables delivery.
func NewNotifier(webhookURL string, maxRetries int, timeout time.Duration) *Notifier {
	client := resty.New().SetTimeout(timeout)
	return &Notifier{
		client:         client,
		webhookURL:     webhookURL,
		maxRetries:     maxRetries,
		initialBackoff: 500 * time.Millisecond,
		logger:         log.With().Str("component", "notifier").Logger(),
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Send delivers one message, retrying with exponential backoff. It returns
// the last error after the retry budget is spent.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}

	var lastErr error
	backoff := n.initialBackoff
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				notificationsFailed.Inc()
				return ctx.Err()
			}
			backoff *= 2
		}

		resp, err := n.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(msg).
			Post(n.webhookURL)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode())
			continue
		}

		notificationsSent.Inc()
		n.logger.Info().
			Int64("alert_id", msg.AlertID).
			Str("product", msg.ProductName).
			Float64("price", msg.Price).
			Msg("Alert notification delivered")
		return nil
	}

	notificationsFailed.Inc()
	n.logger.Error().Err(lastErr).Int64("alert_id", msg.AlertID).Msg("Alert notification failed")
	return lastErr
}
