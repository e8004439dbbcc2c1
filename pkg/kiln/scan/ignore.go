// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// idPrefixes mark ignore entries that name a finding directly
// instead of globbing over secret target paths.
var idPrefixes = []string{"CVE-", "GHSA-", "RUSTSEC-"}

type Ignores struct {
	patterns []string
}

func NewIgnoresFromFile(path string) (Ignores, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Ignores{}, nil
		}
		return Ignores{}, fmt.Errorf("Reading ignore file: %s", err)
	}

	return NewIgnoresFromBytes(bs), nil
}

func NewIgnoresFromBytes(bs []byte) Ignores {
	var patterns []string
	seen := map[string]struct{}{}

	for _, line := range strings.Split(string(bs), "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if _, found := seen[line]; found {
			continue
		}
		seen[line] = struct{}{}
		patterns = append(patterns, line)
	}

	return Ignores{patterns}
}

func (i Ignores) Len() int { return len(i.patterns) }

func (i Ignores) Contains(id string) bool {
	for _, pattern := range i.patterns {
		if pattern == id {
			return true
		}
	}
	return false
}

// MatchPath returns the first glob pattern matching target either
// fully or by its basename. Finding ID entries never glob.
func (i Ignores) MatchPath(target string) (string, bool) {
	for _, pattern := range i.patterns {
		if isFindingID(pattern) {
			continue
		}

		matched, err := doublestar.Match(pattern, target)
		if err != nil {
			continue
		}
		if !matched {
			matched, err = doublestar.Match(pattern, path.Base(target))
			if err != nil {
				continue
			}
		}
		if matched {
			return pattern, true
		}
	}

	return "", false
}

func isFindingID(pattern string) bool {
	for _, prefix := range idPrefixes {
		if strings.HasPrefix(pattern, prefix) {
			return true
		}
	}
	return false
}
