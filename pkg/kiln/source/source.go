// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	VariantsFileName      = "VARIANTS"
	LegacyVersionFileName = "VERSION"
	DockerfileName        = "Dockerfile"
	IgnoreFileName        = ".trivyignore"
)

// Source is one image directory: a Dockerfile plus a VARIANTS file
// listing versions to build.
type Source struct {
	Name string
	Dir  string

	DockerfilePath string
	Variants       []string

	// BaseRef is the ref of the first FROM instruction,
	// with ARG defaults resolved
	BaseRef string
}

// Discover walks imagesDir and returns a source per subdirectory that
// carries a VARIANTS file (or a legacy VERSION file). Directories
// without either are skipped. Results come out sorted by name.
func Discover(imagesDir string) ([]Source, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("Reading images dir '%s': %s", imagesDir, err)
	}

	var sources []Source

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(imagesDir, entry.Name())

		variants, err := readVariants(dir)
		if err != nil {
			return nil, fmt.Errorf("Reading variants for image '%s': %s", entry.Name(), err)
		}
		if len(variants) == 0 {
			continue
		}

		src := Source{
			Name:           entry.Name(),
			Dir:            dir,
			DockerfilePath: filepath.Join(dir, DockerfileName),
			Variants:       variants,
		}

		if _, err := os.Stat(src.DockerfilePath); err == nil {
			dockerfile, err := ParseDockerfileFile(src.DockerfilePath)
			if err != nil {
				return nil, fmt.Errorf("Parsing dockerfile for image '%s': %s", entry.Name(), err)
			}
			if len(dockerfile.FromRefs) > 0 {
				src.BaseRef = dockerfile.FromRefs[0].Resolved
			}
		}

		sources = append(sources, src)
	}

	return sources, nil
}

// Level is 2 when the base image comes out of the internal registry
// (its build has to wait for a level 1 push), 1 otherwise.
func (s Source) Level(registryHostname string) int {
	if len(registryHostname) > 0 && strings.HasPrefix(s.BaseRef, registryHostname) {
		return 2
	}
	return 1
}

func (s Source) HasVariant(variant string) bool {
	for _, v := range s.Variants {
		if v == variant {
			return true
		}
	}
	return false
}

func (s Source) VariantsFilePath() string {
	path := filepath.Join(s.Dir, VariantsFileName)
	if _, err := os.Stat(path); err != nil {
		return filepath.Join(s.Dir, LegacyVersionFileName)
	}
	return path
}

func (s Source) IgnoreFilePath() string {
	return filepath.Join(s.Dir, IgnoreFileName)
}

func readVariants(dir string) ([]string, error) {
	bs, err := os.ReadFile(filepath.Join(dir, VariantsFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		// Older image dirs carry a single version in a VERSION file
		bs, err = os.ReadFile(filepath.Join(dir, LegacyVersionFileName))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			return nil, nil
		}

		variant := strings.TrimSpace(string(bs))
		if len(variant) == 0 {
			return nil, nil
		}
		return []string{variant}, nil
	}

	return strings.Fields(string(bs)), nil
}
