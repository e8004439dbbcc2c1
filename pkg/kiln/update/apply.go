// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
)

// Entries returns actionable work items from a report: all updates
// plus warnings that carry enough information to pin. Duplicate
// occurrences of the same change collapse into one.
func Entries(rep ctlrep.Report) []ctlrep.Entry {
	var entries []ctlrep.Entry

	entries = append(entries, rep.Updates...)

	for _, warning := range rep.Warnings {
		if len(warning.LatestDigest) > 0 || len(warning.LatestSHA) > 0 {
			entries = append(entries, warning)
		}
	}

	type key struct {
		Type           string
		File           string
		RawRef         string
		CurrentVersion string
	}

	seen := map[key]struct{}{}
	var deduped []ctlrep.Entry

	for _, entry := range entries {
		entryKey := key{entry.Type, entry.File, entry.RawRef, entry.CurrentVersion}
		if _, found := seen[entryKey]; found {
			continue
		}
		seen[entryKey] = struct{}{}
		deduped = append(deduped, entry)
	}

	return deduped
}

type Change struct {
	File string
	Old  string
	New  string
}

type ApplyResult struct {
	Changes []Change
	// Skipped describes entries whose old text was not found
	Skipped []string
}

// Apply rewrites files under root according to entries.
func Apply(root string, entries []ctlrep.Entry) (ApplyResult, error) {
	var result ApplyResult

	for _, entry := range entries {
		old, new, err := replacement(entry)
		if err != nil {
			return result, err
		}

		path := filepath.Join(root, filepath.FromSlash(entry.File))

		bs, err := os.ReadFile(path)
		if err != nil {
			return result, fmt.Errorf("Reading '%s': %s", path, err)
		}

		fileInfo, err := os.Stat(path)
		if err != nil {
			return result, fmt.Errorf("Checking '%s': %s", path, err)
		}

		content := string(bs)
		var updated string
		var count int

		// Version tokens replace whole fields only so that e.g.
		// 3.1 never rewrites part of 3.12
		if entry.Type == ctlrep.TypeVariantUpdate {
			updated, count = replaceToken(content, old, new)
		} else {
			count = strings.Count(content, old)
			updated = strings.ReplaceAll(content, old, new)
		}

		if count == 0 {
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("%s: '%s' not found", entry.File, old))
			continue
		}

		err = os.WriteFile(path, []byte(updated), fileInfo.Mode())
		if err != nil {
			return result, fmt.Errorf("Writing '%s': %s", path, err)
		}

		result.Changes = append(result.Changes, Change{File: entry.File, Old: old, New: new})
	}

	return result, nil
}

func replacement(entry ctlrep.Entry) (string, string, error) {
	switch entry.Type {
	case ctlrep.TypeDockerDigest:
		return entry.CurrentDigest, entry.LatestDigest, nil
	case ctlrep.TypeDockerUnpinned:
		return entry.RawRef, entry.RawRef + "@" + entry.LatestDigest, nil
	case ctlrep.TypeActionPinned:
		return entry.CurrentSHA, entry.LatestSHA, nil
	case ctlrep.TypeActionUnpinned:
		return entry.RawRef, entry.Action + "@" + entry.LatestSHA + " # " + entry.Ref, nil
	case ctlrep.TypeVariantUpdate:
		return entry.CurrentVersion, entry.LatestVersion, nil
	default:
		return "", "", fmt.Errorf("Unknown update type '%s'", entry.Type)
	}
}

func replaceToken(content, old, new string) (string, int) {
	lines := strings.Split(content, "\n")
	count := 0

	for i, line := range lines {
		fields := strings.Fields(line)
		changed := false

		for j, field := range fields {
			if field == old {
				fields[j] = new
				count++
				changed = true
			}
		}

		if changed {
			lines[i] = strings.Join(fields, " ")
		}
	}

	return strings.Join(lines, "\n"), count
}
