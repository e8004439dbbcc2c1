// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

const (
	knownAPIVersion = "kiln.gillouche.dev/v1alpha1"
	knownKind       = "Config"

	DefaultImagesDir = "images"
)

type Config struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`

	Registry Registry `json:"registry"`

	// ImagesDir is the directory scanned for image sources
	// (one subdirectory per image); defaults to "images"
	ImagesDir string `json:"imagesDir,omitempty"`

	Defaults BuildDefaults `json:"defaults,omitempty"`

	Sign   *Sign   `json:"sign,omitempty"`
	Notify *Notify `json:"notify,omitempty"`

	Images []Image `json:"images,omitempty"`
}

func NewConfigFromFiles(paths []string) (Config, []Secret, []ConfigMap, error) {
	var configs []Config
	var secrets []Secret
	var configMaps []ConfigMap

	err := parseResources(paths, func(docBytes []byte) error {
		var res resource

		err := yaml.Unmarshal(docBytes, &res)
		if err != nil {
			return fmt.Errorf("Unmarshaling doc: %s", err)
		}

		switch {
		case res.APIVersion == "v1" && res.Kind == "Secret":
			var secret Secret

			err := yaml.Unmarshal(docBytes, &secret)
			if err != nil {
				return fmt.Errorf("Unmarshaling secret: %s", err)
			}

			secrets = append(secrets, secret)

		case res.APIVersion == "v1" && res.Kind == "ConfigMap":
			var configMap ConfigMap

			err := yaml.Unmarshal(docBytes, &configMap)
			if err != nil {
				return fmt.Errorf("Unmarshaling config map: %s", err)
			}

			configMaps = append(configMaps, configMap)

		case res.APIVersion == knownAPIVersion && res.Kind == knownKind:
			config, err := NewConfigFromBytes(docBytes)
			if err != nil {
				return fmt.Errorf("Unmarshaling config: %s", err)
			}

			configs = append(configs, config)

		default:
			return fmt.Errorf("Unknown apiVersion '%s' or kind '%s' for resource doc",
				res.APIVersion, res.Kind)
		}
		return nil
	})
	if err != nil {
		return Config{}, nil, nil, err
	}

	switch len(configs) {
	case 0:
		return Config{}, nil, nil, fmt.Errorf("Expected to find at least one config, but found none")
	case 1:
		return configs[0], secrets, configMaps, nil
	default:
		return Config{}, nil, nil, fmt.Errorf("Expected to find exactly one config, but found multiple")
	}
}

func NewConfigFromBytes(bs []byte) (Config, error) {
	var config Config

	err := yaml.Unmarshal(bs, &config)
	if err != nil {
		return Config{}, fmt.Errorf("Unmarshaling config: %s", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("Validating config: %s", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.APIVersion != knownAPIVersion {
		return fmt.Errorf("Validating apiVersion: Unknown version (known: %s)", knownAPIVersion)
	}
	if c.Kind != knownKind {
		return fmt.Errorf("Validating kind: Unknown kind (known: %s)", knownKind)
	}

	err := c.Registry.Validate()
	if err != nil {
		return fmt.Errorf("Validating registry: %s", err)
	}

	names := map[string]struct{}{}

	for i, img := range c.Images {
		err := img.Validate()
		if err != nil {
			return fmt.Errorf("Validating image '%s' (%d): %s", img.Name, i, err)
		}
		if _, found := names[img.Name]; found {
			return fmt.Errorf("Expected image names to not repeat, but '%s' does", img.Name)
		}
		names[img.Name] = struct{}{}
	}

	return nil
}

func (c Config) AsBytes() ([]byte, error) {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("Marshaling config: %s", err)
	}

	return bs, nil
}

func (c Config) ImagesDirOrDefault() string {
	if len(c.ImagesDir) > 0 {
		return c.ImagesDir
	}
	return DefaultImagesDir
}

// ImageConfig returns the per-image configuration for name,
// or an empty one if the image has no entry.
func (c Config) ImageConfig(name string) Image {
	for _, img := range c.Images {
		if img.Name == name {
			return img
		}
	}
	return Image{Name: name}
}

// ImageRepo returns the fully qualified repository for an image,
// e.g. nexus.gillouche.homelab/docker-hosted/base/python.
func (c Config) ImageRepo(name string) string {
	repo := c.Registry.Hostname
	if len(c.Registry.Repository) > 0 {
		repo += "/" + c.Registry.Repository
	}
	return repo + "/" + name
}

func (c Config) TagLatest(img Image) bool {
	if img.TagLatest != nil {
		return *img.TagLatest
	}
	return c.Defaults.TagLatest
}

func (c Config) Platforms(img Image) []string {
	if len(img.Platforms) > 0 {
		return img.Platforms
	}
	return c.Defaults.Platforms
}

func (c Config) Severities() []string {
	if len(c.Defaults.Severities) > 0 {
		return c.Defaults.Severities
	}
	return []string{"HIGH", "CRITICAL"}
}
