// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gillouche/kiln/pkg/kiln/config"
)

func TestLockConfigMerge(t *testing.T) {
	existing := config.NewLockConfig()
	existing.Images = []config.LockImage{
		{Name: "python", Variant: "3.11", Digest: "sha256:aaa"},
		{Name: "python", Variant: "3.12", Digest: "sha256:bbb"},
		{Name: "golang", Variant: "1.21", Digest: "sha256:ccc"},
	}

	update := config.NewLockConfig()
	update.Images = []config.LockImage{
		{Name: "python", Variant: "3.12", Digest: "sha256:new"},
		{Name: "node", Variant: "20", Digest: "sha256:ddd"},
	}

	existing.Merge(update)

	expected := []config.LockImage{
		{Name: "python", Variant: "3.11", Digest: "sha256:aaa"},
		{Name: "python", Variant: "3.12", Digest: "sha256:new"},
		{Name: "golang", Variant: "1.21", Digest: "sha256:ccc"},
		{Name: "node", Variant: "20", Digest: "sha256:ddd"},
	}

	if !reflect.DeepEqual(existing.Images, expected) {
		t.Fatalf("Expected merged images '%#v' to equal '%#v'", existing.Images, expected)
	}
}

func TestLockConfigFindImage(t *testing.T) {
	lockConfig := config.NewLockConfig()
	lockConfig.Images = []config.LockImage{
		{Name: "python", Variant: "3.12", Digest: "sha256:bbb"},
	}

	img, err := lockConfig.FindImage("python", "3.12")
	if err != nil {
		t.Fatalf("Expected to find image: %s", err)
	}
	if img.Digest != "sha256:bbb" {
		t.Fatalf("Expected digest 'sha256:bbb', but was '%s'", img.Digest)
	}

	_, err = lockConfig.FindImage("python", "3.13")
	if err == nil {
		t.Fatalf("Expected missing variant lookup to error")
	}
}

func TestLockConfigRoundTrip(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "kiln.lock.yml")

	lockConfig := config.NewLockConfig()
	lockConfig.Images = []config.LockImage{
		{
			Name:      "python",
			Variant:   "3.12",
			Image:     "nexus.gillouche.homelab/docker-hosted/base/python@sha256:bbb",
			Digest:    "sha256:bbb",
			Tags:      []string{"3.12", "latest"},
			Platforms: []string{"linux/amd64", "linux/arm64"},
			Signed:    true,
		},
	}

	err := lockConfig.WriteToFile(lockPath)
	if err != nil {
		t.Fatalf("Expected write to succeed: %s", err)
	}

	readBack, err := config.NewLockConfigFromFile(lockPath)
	if err != nil {
		t.Fatalf("Expected read to succeed: %s", err)
	}

	if !reflect.DeepEqual(lockConfig, readBack) {
		t.Fatalf("Expected lock config '%#v' to equal '%#v'", readBack, lockConfig)
	}
}

func TestLockConfigWritePreservesUnchangedFile(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "kiln.lock.yml")

	lockConfig := config.NewLockConfig()

	err := lockConfig.WriteToFile(lockPath)
	if err != nil {
		t.Fatalf("Expected write to succeed: %s", err)
	}

	before, err := os.Stat(lockPath)
	if err != nil {
		t.Fatalf("Expected lock file to exist: %s", err)
	}

	err = lockConfig.WriteToFile(lockPath)
	if err != nil {
		t.Fatalf("Expected rewrite to succeed: %s", err)
	}

	after, err := os.Stat(lockPath)
	if err != nil {
		t.Fatalf("Expected lock file to exist: %s", err)
	}

	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatalf("Expected unchanged lock file to not be rewritten")
	}
}

func TestLockConfigValidation(t *testing.T) {
	_, err := config.NewLockConfigFromBytes([]byte(`
apiVersion: kiln.gillouche.dev/v1
kind: LockConfig
`))
	if err == nil {
		t.Fatalf("Expected unknown apiVersion to error")
	}

	_, err = config.NewLockConfigFromBytes([]byte(`
apiVersion: kiln.gillouche.dev/v1alpha1
kind: Lock
`))
	if err == nil {
		t.Fatalf("Expected unknown kind to error")
	}
}
