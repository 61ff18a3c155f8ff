package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// Discord rejects messages whose content is longer than this
const discordMaxContentLength = 2000

// Notifier posts a message about the outcome of a run to a chat webhook
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// newNotifier picks the payload format from the webhook URL. No URL means notifications are disabled.
func newNotifier(webhookUrl string, httpClient *http.Client) Notifier {
	if webhookUrl == "" {
		return noopNotifier{}
	}

	if u, err := url.Parse(webhookUrl); err == nil && strings.EqualFold(u.Hostname(), "hooks.slack.com") {
		return &slackNotifier{webhookUrl: webhookUrl, httpClient: httpClient}
	}

	return &discordNotifier{webhookUrl: webhookUrl, httpClient: httpClient}
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, message string) error {
	return nil
}

// discordNotifier posts {"content": message}, the payload Discord and most chat webhooks accept
type discordNotifier struct {
	webhookUrl string
	httpClient *http.Client
}

type discordWebhookPayload struct {
	Content string `json:"content"`
}

func (n *discordNotifier) Notify(ctx context.Context, message string) error {
	if utf8.RuneCountInString(message) > discordMaxContentLength {
		message = string([]rune(message)[:discordMaxContentLength-3]) + "..."
	}

	payload, err := json.Marshal(discordWebhookPayload{Content: message})
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookUrl, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return fmt.Errorf("HTTP %d from webhook: %s", resp.StatusCode, buf.String())
	}

	return nil
}

type slackNotifier struct {
	webhookUrl string
	httpClient *http.Client
}

func (n *slackNotifier) Notify(ctx context.Context, message string) error {
	return slack.PostWebhookCustomHTTPContext(ctx, n.webhookUrl, n.httpClient, &slack.WebhookMessage{Text: message})
}
