// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pins

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// ActionRef is one GitHub Action reference found in a workflow.
type ActionRef struct {
	File string
	Raw  string

	Action string
	Ref    string
	// Comment is the trailing version comment kept next to
	// SHA-pinned refs, e.g. uses: a/b@<sha> # v4.1.2
	Comment string
}

var (
	usesRegexp = regexp.MustCompile(`^\s*(?:-\s+)?uses:\s*["']?([^\s"'@]+)@([^\s"'#]+)["']?\s*(?:#\s*(\S+))?\s*$`)
	shaRegexp  = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

func (r ActionRef) Pinned() bool { return shaRegexp.MatchString(r.Ref) }

// FindActionRefs collects action refs from workflow files under root.
// Local actions and docker:// refs are skipped.
func FindActionRefs(root string) ([]ActionRef, error) {
	paths, err := doublestar.Glob(filepath.Join(root, ".github", "workflows", "*.{yml,yaml}"))
	if err != nil {
		return nil, fmt.Errorf("Globbing workflows: %s", err)
	}

	sort.Strings(paths)

	var refs []ActionRef

	for _, path := range paths {
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil, fmt.Errorf("Relativizing path '%s': %s", path, err)
		}

		fileRefs, err := parseWorkflowFile(path, filepath.ToSlash(relPath))
		if err != nil {
			return nil, err
		}

		refs = append(refs, fileRefs...)
	}

	return refs, nil
}

func parseWorkflowFile(path, relPath string) ([]ActionRef, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Opening workflow '%s': %s", path, err)
	}

	defer file.Close()

	var refs []ActionRef

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		match := usesRegexp.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		action, ref, comment := match[1], match[2], match[3]

		if strings.HasPrefix(action, "./") || strings.HasPrefix(action, "docker:") {
			continue
		}

		refs = append(refs, ActionRef{
			File:    relPath,
			Raw:     action + "@" + ref,
			Action:  action,
			Ref:     ref,
			Comment: comment,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Scanning workflow '%s': %s", path, err)
	}

	return refs, nil
}
