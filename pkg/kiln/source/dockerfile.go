// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

type Dockerfile struct {
	// Args holds ARG defaults, e.g. ARG GO_VERSION=1.22.1
	Args map[string]string

	FromRefs []FromRef
}

// FromRef is a single FROM instruction.
type FromRef struct {
	// Raw ref as written, e.g. golang:${GO_VERSION}@sha256:...
	Raw string
	// Resolved ref with ARG defaults substituted
	Resolved string

	Image  string
	Tag    string
	Digest string // sha256:... or empty

	// StageRef marks refs naming an earlier build stage
	// instead of a registry image
	StageRef bool
}

var (
	argRegexp = regexp.MustCompile(`^ARG\s+(\w+)=(.+)$`)
	varRegexp = regexp.MustCompile(`\$\{(\w+)\}`)
)

func ParseDockerfileFile(path string) (Dockerfile, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return Dockerfile{}, fmt.Errorf("Reading dockerfile '%s': %s", path, err)
	}
	return ParseDockerfile(bs)
}

func ParseDockerfile(bs []byte) (Dockerfile, error) {
	dockerfile := Dockerfile{Args: map[string]string{}}
	stageAliases := map[string]struct{}{}

	scanner := bufio.NewScanner(bytes.NewReader(bs))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := argRegexp.FindStringSubmatch(line); m != nil {
			dockerfile.Args[m[1]] = strings.TrimSpace(m[2])
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "FROM") {
			continue
		}

		// FROM may carry flags (e.g. --platform=...) before the ref
		var raw string
		for _, field := range fields[1:] {
			if strings.HasPrefix(field, "--") {
				continue
			}
			raw = field
			break
		}
		if len(raw) == 0 {
			continue
		}

		ref := FromRef{Raw: raw}

		// Stage aliases are case-insensitive
		if _, found := stageAliases[strings.ToLower(raw)]; found {
			ref.StageRef = true
		}

		for idx, field := range fields {
			if strings.EqualFold(field, "AS") && idx+1 < len(fields) {
				stageAliases[strings.ToLower(fields[idx+1])] = struct{}{}
			}
		}

		if !ref.StageRef {
			ref.Resolved = varRegexp.ReplaceAllStringFunc(raw, func(v string) string {
				name := varRegexp.FindStringSubmatch(v)[1]
				if val, found := dockerfile.Args[name]; found {
					return val
				}
				return v
			})
			ref.Image, ref.Tag, ref.Digest = splitRef(ref.Resolved)
		}

		dockerfile.FromRefs = append(dockerfile.FromRefs, ref)
	}
	if err := scanner.Err(); err != nil {
		return Dockerfile{}, fmt.Errorf("Scanning dockerfile: %s", err)
	}

	return dockerfile, nil
}

func splitRef(ref string) (image, tag, digest string) {
	base := ref
	if idx := strings.Index(base, "@sha256:"); idx >= 0 {
		digest = base[idx+1:]
		base = base[:idx]
	}

	// Tag colon has to come after the last slash so that
	// registry ports (host:5000/img) are left alone
	if idx := strings.LastIndex(base, ":"); idx > strings.LastIndex(base, "/") {
		return base[:idx], base[idx+1:], digest
	}
	return base, "latest", digest
}
