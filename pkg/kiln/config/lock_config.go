// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"sigs.k8s.io/yaml"
)

// LockConfig records digests of pushed images for reproducible pinning.
type LockConfig struct {
	APIVersion string      `json:"apiVersion"`
	Kind       string      `json:"kind"`
	Images     []LockImage `json:"images"`
}

func NewLockConfig() LockConfig {
	return LockConfig{
		APIVersion: "kiln.gillouche.dev/v1alpha1",
		Kind:       "LockConfig",
	}
}

func LockFileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

func NewLockConfigFromFile(path string) (LockConfig, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return LockConfig{}, fmt.Errorf("Reading lock config '%s': %s", path, err)
	}

	return NewLockConfigFromBytes(bs)
}

func NewLockConfigFromBytes(bs []byte) (LockConfig, error) {
	var config LockConfig

	err := yaml.Unmarshal(bs, &config)
	if err != nil {
		return LockConfig{}, fmt.Errorf("Unmarshaling lock config: %s", err)
	}

	err = config.Validate()
	if err != nil {
		return LockConfig{}, fmt.Errorf("Validating lock config: %s", err)
	}

	return config, nil
}

func (c LockConfig) WriteToFile(path string) error {
	existingBytes, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("Failed to check existing lock file: %w", err)
	}

	bs, err := c.AsBytes()
	if err != nil {
		return fmt.Errorf("Marshaling lock config: %s", err)
	}

	if !bytes.Equal(existingBytes, bs) {
		err = os.WriteFile(path, bs, 0600)
		if err != nil {
			return fmt.Errorf("Writing lock config: %s", err)
		}
	}

	return nil
}

func (c LockConfig) AsBytes() ([]byte, error) {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("Marshaling lock config: %s", err)
	}

	return bs, nil
}

func (c LockConfig) Validate() error {
	const (
		knownAPIVersion = "kiln.gillouche.dev/v1alpha1"
		knownKind       = "LockConfig"
	)

	if c.APIVersion != knownAPIVersion {
		return fmt.Errorf("Validating apiVersion: Unknown version (known: %s)", knownAPIVersion)
	}
	if c.Kind != knownKind {
		return fmt.Errorf("Validating kind: Unknown kind (known: %s)", knownKind)
	}
	return nil
}

func (c LockConfig) FindImage(name, variant string) (LockImage, error) {
	for _, img := range c.Images {
		if img.Name == name && img.Variant == variant {
			return img, nil
		}
	}
	return LockImage{}, fmt.Errorf(
		"Expected to find image '%s' variant '%s' within lock config, but did not", name, variant)
}

// MergeImage replaces the lock entry matching img by name and variant,
// or appends img if no entry matches.
func (c *LockConfig) MergeImage(img LockImage) {
	for i, existing := range c.Images {
		if existing.Name == img.Name && existing.Variant == img.Variant {
			c.Images[i] = img
			return
		}
	}
	c.Images = append(c.Images, img)
}

func (c *LockConfig) Merge(other LockConfig) {
	for _, img := range other.Images {
		c.MergeImage(img)
	}
}
