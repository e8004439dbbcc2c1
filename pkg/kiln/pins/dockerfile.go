// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package pins

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	ctlsrc "github.com/gillouche/kiln/pkg/kiln/source"
)

// DockerRef is one registry image reference found in a Dockerfile.
type DockerRef struct {
	File string
	Raw  string

	Image  string
	Tag    string
	Digest string
}

func (r DockerRef) Pinned() bool { return len(r.Digest) > 0 }

// FindDockerRefs collects image refs from all Dockerfiles under root.
// Stage refs, scratch and refs carrying unresolved variables are not
// pinnable and are skipped.
func FindDockerRefs(root string) ([]DockerRef, error) {
	paths, err := doublestar.Glob(filepath.Join(root, "**", "Dockerfile"))
	if err != nil {
		return nil, fmt.Errorf("Globbing dockerfiles: %s", err)
	}

	sort.Strings(paths)

	var refs []DockerRef

	for _, path := range paths {
		dockerfile, err := ctlsrc.ParseDockerfileFile(path)
		if err != nil {
			return nil, err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil, fmt.Errorf("Relativizing path '%s': %s", path, err)
		}

		for _, fromRef := range dockerfile.FromRefs {
			if fromRef.StageRef {
				continue
			}
			if strings.Contains(fromRef.Raw, "$") {
				continue
			}
			if fromRef.Image == "scratch" {
				continue
			}

			refs = append(refs, DockerRef{
				File:   filepath.ToSlash(relPath),
				Raw:    fromRef.Raw,
				Image:  fromRef.Image,
				Tag:    fromRef.Tag,
				Digest: fromRef.Digest,
			})
		}
	}

	return refs, nil
}
