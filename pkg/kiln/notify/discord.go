// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

const (
	EnvDiscordWebhook = "KILN_DISCORD_WEBHOOK"

	discordUsername = "Container Factory"
	userAgent       = "Container-Factory-Notifier"

	// Discord caps message content at 2000 chars
	maxContentLen = 1900
)

type Message struct {
	Content string
	Embeds  []Embed
}

type Embed struct {
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord resolves the webhook URL from the referenced secret,
// falling back to the KILN_DISCORD_WEBHOOK env variable. An empty
// URL yields a disabled notifier.
func NewDiscord(conf *ctlconf.NotifyDiscord, refFetcher ctltool.RefFetcher) (Discord, error) {
	if conf == nil || conf.WebhookSecretRef == nil {
		return NewDiscordFromURL(os.Getenv(EnvDiscordWebhook)), nil
	}

	secret, err := refFetcher.GetSecret(conf.WebhookSecretRef.Name)
	if err != nil {
		return Discord{}, err
	}

	var webhookURL string

	for name, val := range secret.Data {
		switch name {
		case ctlconf.SecretWebhookURLKey:
			webhookURL = string(val)
		default:
			return Discord{}, fmt.Errorf("Unknown secret field '%s' in secret '%s'",
				name, secret.Metadata.Name)
		}
	}

	return NewDiscordFromURL(webhookURL), nil
}

func NewDiscordFromURL(webhookURL string) Discord {
	return Discord{webhookURL, http.DefaultClient}
}

func (d Discord) Enabled() bool { return len(d.webhookURL) > 0 }

// Send posts a message to the webhook; no-op when disabled.
func (d Discord) Send(msg Message) error {
	if !d.Enabled() {
		return nil
	}

	bs, err := json.Marshal(discordPayload{
		Username: discordUsername,
		Content:  truncateContent(msg.Content),
		Embeds:   msg.Embeds,
	})
	if err != nil {
		return fmt.Errorf("Marshaling webhook payload: %s", err)
	}

	req, err := http.NewRequest("POST", d.webhookURL, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("Building webhook request: %s", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("Posting webhook: %s", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Expected webhook response status 2xx, but was '%d' (body: '%s')",
			resp.StatusCode, bs)
	}

	return nil
}

func truncateContent(content string) string {
	if len(content) <= maxContentLen {
		return content
	}
	return content[:maxContentLen] + "\n...(truncated)"
}

type discordPayload struct {
	Username string  `json:"username"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}
