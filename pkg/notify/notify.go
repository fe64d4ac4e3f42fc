// Package notify posts a best-effort Slack summary for critical-urgency
// delivery plans (SPEC_FULL §4.6). A failed post never fails the query —
// it's one more degrade-only collaborator, same policy as the router and
// the Extractor.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/jordigilh/reliefnet/pkg/metrics"
	sharedErrors "github.com/jordigilh/reliefnet/pkg/shared/errors"
	sharedhttp "github.com/jordigilh/reliefnet/pkg/shared/http"
	"github.com/jordigilh/reliefnet/pkg/shared/logging"
)

// RouteSummary is the minimal shape notify needs from a computed route, so
// it depends on no pipeline types directly.
type RouteSummary struct {
	ShelterName string
	DistanceM   float64
	DurationSec float64
	Confidence  float64
	Source      string
}

// Notifier posts critical-urgency delivery-plan summaries to Slack.
type Notifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

// New builds a Notifier. webhookURL may be empty, in which case Notify is a
// no-op — Slack notification is an optional ambient feature (SPEC_FULL §6).
func New(webhookURL, channel string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: sharedhttp.NewClient(sharedhttp.SlackClientConfig()),
	}
}

// Notify posts a one-line summary of the top route for a critical-urgency
// query. Any failure is logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, query string, top RouteSummary, log *logrus.Logger) {
	if n.webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    summaryText(query, top),
	}

	if err := postWebhook(ctx, n.httpClient, n.webhookURL, msg); err != nil {
		metrics.RecordNotification("error")
		log.WithFields(logging.NewFields().Component("notify").Operation("slack_post").ToLogrus()).
			WithError(sharedErrors.NetworkError("slack webhook post", n.webhookURL, err)).
			Warn("notify: failed to post critical-urgency summary, continuing without it")
		return
	}
	metrics.RecordNotification("success")
}

func summaryText(query string, top RouteSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Critical-urgency delivery plan*\nQuery: %s\n", query)
	fmt.Fprintf(&b, "Top route -> %s: %.1f km, %.0f min, confidence %.2f (%s)",
		top.ShelterName, top.DistanceM/1000, top.DurationSec/60, top.Confidence, top.Source)
	return b.String()
}

// postWebhook posts msg to url over client, with a bounded timeout even if
// ctx carries none.
func postWebhook(ctx context.Context, client *http.Client, url string, msg *slack.WebhookMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return slack.PostWebhookCustomHTTPContext(ctx, url, client, msg)
}
