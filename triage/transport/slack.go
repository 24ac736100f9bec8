package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KathyFeiyang/cs152bots/util"
)

// SlackAuditor wraps another transport, mirroring every audit channel post to a Slack
// "incoming webhook". Mirroring failures are logged, and do not fail the audit post.
type SlackAuditor struct {
	Transport
	SlackWebhookURL string
	Client          *http.Client
	Logger          *slog.Logger
}

func NewSlackAuditor(inner Transport, webhookURL string) *SlackAuditor {
	return &SlackAuditor{
		Transport:       inner,
		SlackWebhookURL: webhookURL,
		Client:          util.RobustHTTPClient(),
		Logger:          slog.Default().With("system", "slack"),
	}
}

func (a *SlackAuditor) PostAudit(ctx context.Context, text string) error {
	if err := a.Transport.PostAudit(ctx, text); err != nil {
		return err
	}
	if err := a.sendSlackMsg(ctx, text); err != nil {
		a.Logger.Warn("failed to mirror audit post to slack", "err", err)
	}
	return nil
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (a *SlackAuditor) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
