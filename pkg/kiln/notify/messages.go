// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"strings"

	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
)

const (
	KindUpdates  = "updates"
	KindWarnings = "warnings"
	KindSuccess  = "success"

	// Discord rejects embeds with more than 25 fields
	maxEmbedFields = 25
)

// PushMessage announces a freshly pushed image.
func PushMessage(image string, tags []string, digest string) Message {
	content := fmt.Sprintf(
		"**New Image Pushed**\n**Image:** `%s`\n**Tag:** `%s`\n**Digest:** `%s`\n\nUpdate your manifests to use this secure pinning!",
		image, strings.Join(tags, ", "), digest)

	return Message{Content: content}
}

// ReportMessage renders a dependency report for the channel: updates
// and warnings come out as embed fields, a clean report yields a
// single success embed.
func ReportMessage(rep ctlrep.Report) Message {
	msg := Message{Content: "**Dependency Report**\n" + rep.Summary()}

	if fields := updatesFields(rep); len(fields) > 0 {
		msg.Embeds = append(msg.Embeds, Embed{Title: "Updates", Fields: limitFields(fields)})
	}

	if fields := warningsFields(rep); len(fields) > 0 {
		msg.Embeds = append(msg.Embeds, Embed{Title: "Warnings", Fields: limitFields(fields)})
	}

	if len(msg.Embeds) == 0 {
		msg.Embeds = append(msg.Embeds, Embed{Fields: []Field{successField(rep)}})
	}

	return msg
}

// ReportSectionMessage renders a single report section.
func ReportSectionMessage(rep ctlrep.Report, kind string) (Message, error) {
	fields, err := ReportFields(rep, kind)
	if err != nil {
		return Message{}, err
	}

	embed := Embed{Fields: limitFields(fields)}

	switch kind {
	case KindUpdates:
		embed.Title = "Updates"
	case KindWarnings:
		embed.Title = "Warnings"
	}

	return Message{
		Content: "**Dependency Report**\n" + rep.Summary(),
		Embeds:  []Embed{embed},
	}, nil
}

// ReportFields renders one report section as embed fields.
func ReportFields(rep ctlrep.Report, kind string) ([]Field, error) {
	switch kind {
	case KindUpdates:
		return updatesFields(rep), nil
	case KindWarnings:
		return warningsFields(rep), nil
	case KindSuccess:
		return []Field{successField(rep)}, nil
	default:
		return nil, fmt.Errorf("Unknown report kind '%s' (expected one of updates, warnings, success)", kind)
	}
}

func updatesFields(rep ctlrep.Report) []Field {
	var fields []Field
	for _, entry := range rep.Updates {
		fields = append(fields, updateField(entry))
	}
	return fields
}

func updateField(entry ctlrep.Entry) Field {
	switch entry.Type {
	case ctlrep.TypeDockerDigest:
		return Field{
			Name: fmt.Sprintf("%s:%s", entry.Image, entry.Tag),
			Value: fmt.Sprintf("File: `%s`\nOld: `%s`\nNew: `%s`",
				entry.File, shortDigest(entry.CurrentDigest), shortDigest(entry.LatestDigest)),
		}
	case ctlrep.TypeDockerUnpinned:
		return Field{
			Name: fmt.Sprintf("%s:%s", entry.Image, entry.Tag),
			Value: fmt.Sprintf("File: `%s`\nStatus: Pinned to `%s`",
				entry.File, shortDigest(entry.LatestDigest)),
		}
	case ctlrep.TypeActionPinned:
		return Field{
			Name: fmt.Sprintf("%s@%s", entry.Action, entry.Ref),
			Value: fmt.Sprintf("File: `%s`\nOld: `%s`\nNew: `%s`",
				entry.File, shortSHA(entry.CurrentSHA), shortSHA(entry.LatestSHA)),
		}
	case ctlrep.TypeActionUnpinned:
		return Field{
			Name: fmt.Sprintf("%s@%s", entry.Action, entry.Ref),
			Value: fmt.Sprintf("File: `%s`\nStatus: Pinned to `%s`",
				entry.File, shortSHA(entry.LatestSHA)),
		}
	case ctlrep.TypeVariantUpdate:
		return Field{
			Name: entry.Image,
			Value: fmt.Sprintf("File: `%s`\nOld: `%s`\nNew: `%s`",
				entry.File, entry.CurrentVersion, entry.LatestVersion),
		}
	default:
		return Field{
			Name:  entry.Image,
			Value: fmt.Sprintf("File: `%s`\n%s", entry.File, entry.RawRef),
		}
	}
}

func warningsFields(rep ctlrep.Report) []Field {
	var fields []Field

	for _, entry := range rep.Warnings {
		name := entry.Action
		if len(name) == 0 {
			name = entry.Image
		}
		if len(name) == 0 {
			name = "unknown"
		}

		fields = append(fields, Field{
			Name:  name,
			Value: fmt.Sprintf("File: `%s`\n%s", entry.File, entry.Reason),
		})
	}

	return fields
}

func successField(rep ctlrep.Report) Field {
	return Field{
		Name:  "Status",
		Value: fmt.Sprintf("%d dependencies checked. All up to date.", len(rep.UpToDate)),
	}
}

func limitFields(fields []Field) []Field {
	if len(fields) > maxEmbedFields {
		return fields[:maxEmbedFields]
	}
	return fields
}

func shortDigest(digest string) string {
	if len(digest) > 19 {
		return digest[:19] + "..."
	}
	return digest
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
