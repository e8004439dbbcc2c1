// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

func TestDiscordSend(t *testing.T) {
	var payload discordPayload
	var gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	msg := Message{
		Content: "hello from the build",
		Embeds: []Embed{{
			Title:  "Updates",
			Fields: []Field{{Name: "python:3.12", Value: "File: `images/python/Dockerfile`"}},
		}},
	}

	err := NewDiscordFromURL(server.URL).Send(msg)
	require.NoError(t, err)

	require.Equal(t, "Container Factory", payload.Username)
	require.Equal(t, "hello from the build", payload.Content)
	require.Equal(t, msg.Embeds, payload.Embeds)
	require.Equal(t, "Container-Factory-Notifier", gotUserAgent)
}

func TestDiscordSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	err := NewDiscordFromURL(server.URL).Send(Message{Content: "hello"})
	require.Error(t, err)
	require.EqualError(t, err, "Expected webhook response status 2xx, but was '429' (body: 'rate limited')")
}

func TestDiscordSendTruncatesContent(t *testing.T) {
	var payload discordPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	content := strings.Repeat("0123456789\n", 300)

	err := NewDiscordFromURL(server.URL).Send(Message{Content: content})
	require.NoError(t, err)

	require.LessOrEqual(t, len(payload.Content), maxContentLen+len("\n...(truncated)"))
	require.True(t, strings.HasSuffix(payload.Content, "...(truncated)"))
}

func TestDiscordDisabled(t *testing.T) {
	discord := NewDiscordFromURL("")

	require.False(t, discord.Enabled())
	require.NoError(t, discord.Send(Message{Content: "never posted"}))
}

func TestNewDiscord(t *testing.T) {
	t.Run("resolves webhook from secret", func(t *testing.T) {
		secret := ctlconf.Secret{
			Metadata: ctlconf.GenericMetadata{Name: "discord-webhook"},
			Data:     map[string][]byte{"url": []byte("https://discord.test/webhook")},
		}

		discord, err := NewDiscord(&ctlconf.NotifyDiscord{
			WebhookSecretRef: &ctlconf.LocalRef{Name: "discord-webhook"},
		}, ctltool.SingleSecretRefFetcher{Secret: &secret})
		require.NoError(t, err)
		require.True(t, discord.Enabled())
	})

	t.Run("falls back to env variable", func(t *testing.T) {
		os.Setenv(EnvDiscordWebhook, "https://discord.test/webhook")
		defer os.Unsetenv(EnvDiscordWebhook)

		discord, err := NewDiscord(nil, ctltool.NoopRefFetcher{})
		require.NoError(t, err)
		require.True(t, discord.Enabled())
	})

	t.Run("disabled without configuration", func(t *testing.T) {
		discord, err := NewDiscord(nil, ctltool.NoopRefFetcher{})
		require.NoError(t, err)
		require.False(t, discord.Enabled())
	})
}

func TestPushMessage(t *testing.T) {
	msg := PushMessage("nexus.gillouche.homelab/docker-hosted/base/python",
		[]string{"3.12", "latest"}, "sha256:abc")

	expectedContent := "**New Image Pushed**\n" +
		"**Image:** `nexus.gillouche.homelab/docker-hosted/base/python`\n" +
		"**Tag:** `3.12, latest`\n" +
		"**Digest:** `sha256:abc`\n\n" +
		"Update your manifests to use this secure pinning!"

	require.Equal(t, expectedContent, msg.Content)
	require.Empty(t, msg.Embeds)
}

func TestReportMessage(t *testing.T) {
	rep := ctlrep.NewReport()
	rep.Updates = append(rep.Updates, ctlrep.Entry{
		Type:           ctlrep.TypeVariantUpdate,
		File:           "images/python/VARIANTS",
		Image:          "python",
		CurrentVersion: "3.12.1",
		LatestVersion:  "3.12.4",
	})
	rep.Warnings = append(rep.Warnings, ctlrep.Entry{
		Type:   ctlrep.TypeVariantUpdate,
		File:   "images/node/VARIANTS",
		Image:  "node",
		Reason: "rate limited",
	})

	msg := ReportMessage(rep)

	require.Equal(t, "**Dependency Report**\n1 update(s), 1 warning(s), 0 up-to-date", msg.Content)
	require.Len(t, msg.Embeds, 2)

	require.Equal(t, "Updates", msg.Embeds[0].Title)
	require.Equal(t, []Field{{
		Name:  "python",
		Value: "File: `images/python/VARIANTS`\nOld: `3.12.1`\nNew: `3.12.4`",
	}}, msg.Embeds[0].Fields)

	require.Equal(t, "Warnings", msg.Embeds[1].Title)
	require.Equal(t, []Field{{
		Name:  "node",
		Value: "File: `images/node/VARIANTS`\nrate limited",
	}}, msg.Embeds[1].Fields)
}

func TestReportMessageAllUpToDate(t *testing.T) {
	rep := ctlrep.NewReport()
	rep.UpToDate = append(rep.UpToDate,
		ctlrep.Entry{Type: ctlrep.TypeVariantUpdate, Image: "python"},
		ctlrep.Entry{Type: ctlrep.TypeVariantUpdate, Image: "node"},
	)

	msg := ReportMessage(rep)

	require.Len(t, msg.Embeds, 1)
	require.Equal(t, []Field{{
		Name:  "Status",
		Value: "2 dependencies checked. All up to date.",
	}}, msg.Embeds[0].Fields)
}

func TestReportFields(t *testing.T) {
	oldDigest := "sha256:" + strings.Repeat("a", 64)
	newDigest := "sha256:" + strings.Repeat("b", 64)
	oldSHA := strings.Repeat("1", 40)
	newSHA := strings.Repeat("2", 40)

	rep := ctlrep.NewReport()
	rep.Updates = append(rep.Updates,
		ctlrep.Entry{
			Type: ctlrep.TypeDockerDigest, File: "images/ansible/Dockerfile",
			Image: "nexus.gillouche.homelab/docker-hosted/base/python", Tag: "3.12",
			CurrentDigest: oldDigest, LatestDigest: newDigest,
		},
		ctlrep.Entry{
			Type: ctlrep.TypeDockerUnpinned, File: "images/node/Dockerfile",
			Image: "node", Tag: "22", RawRef: "node:22", LatestDigest: newDigest,
		},
		ctlrep.Entry{
			Type: ctlrep.TypeActionPinned, File: ".github/workflows/ci.yml",
			Action: "actions/checkout", Ref: "v4", CurrentSHA: oldSHA, LatestSHA: newSHA,
		},
		ctlrep.Entry{
			Type: ctlrep.TypeActionUnpinned, File: ".github/workflows/ci.yml",
			Action: "actions/setup-go", Ref: "v5", LatestSHA: newSHA,
		},
	)

	fields, err := ReportFields(rep, KindUpdates)
	require.NoError(t, err)

	require.Equal(t, []Field{
		{
			Name: "nexus.gillouche.homelab/docker-hosted/base/python:3.12",
			Value: "File: `images/ansible/Dockerfile`\nOld: `" + oldDigest[:19] +
				"...`\nNew: `" + newDigest[:19] + "...`",
		},
		{
			Name:  "node:22",
			Value: "File: `images/node/Dockerfile`\nStatus: Pinned to `" + newDigest[:19] + "...`",
		},
		{
			Name: "actions/checkout@v4",
			Value: "File: `.github/workflows/ci.yml`\nOld: `" + oldSHA[:12] +
				"`\nNew: `" + newSHA[:12] + "`",
		},
		{
			Name:  "actions/setup-go@v5",
			Value: "File: `.github/workflows/ci.yml`\nStatus: Pinned to `" + newSHA[:12] + "`",
		},
	}, fields)
}

func TestReportFieldsUnknownKind(t *testing.T) {
	_, err := ReportFields(ctlrep.NewReport(), "failures")
	require.Error(t, err)
	require.EqualError(t, err, "Unknown report kind 'failures' (expected one of updates, warnings, success)")
}

func TestReportFieldsLimit(t *testing.T) {
	rep := ctlrep.NewReport()
	for i := 0; i < 40; i++ {
		rep.Updates = append(rep.Updates, ctlrep.Entry{
			Type: ctlrep.TypeVariantUpdate, File: "images/python/VARIANTS", Image: "python",
		})
	}

	msg := ReportMessage(rep)

	require.Len(t, msg.Embeds, 1)
	require.Len(t, msg.Embeds[0].Fields, maxEmbedFields)
}

func TestReportSectionMessage(t *testing.T) {
	rep := ctlrep.NewReport()
	rep.Updates = append(rep.Updates, ctlrep.Entry{
		Type:           ctlrep.TypeVariantUpdate,
		File:           "images/python/VARIANTS",
		Image:          "python",
		CurrentVersion: "3.12.1",
		LatestVersion:  "3.12.4",
	})
	rep.Warnings = append(rep.Warnings, ctlrep.Entry{
		Type:   ctlrep.TypeVariantUpdate,
		File:   "images/node/VARIANTS",
		Image:  "node",
		Reason: "rate limited",
	})

	msg, err := ReportSectionMessage(rep, KindWarnings)
	require.NoError(t, err)

	require.Len(t, msg.Embeds, 1)
	require.Equal(t, "Warnings", msg.Embeds[0].Title)
	require.Equal(t, []Field{{
		Name:  "node",
		Value: "File: `images/node/VARIANTS`\nrate limited",
	}}, msg.Embeds[0].Fields)
}
