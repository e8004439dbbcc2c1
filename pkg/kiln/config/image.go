// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	ctlver "github.com/gillouche/kiln/pkg/kiln/versions"
)

var (
	disallowedNames = []string{"/", ".", "..", ""}
)

type Registry struct {
	// Example: nexus.gillouche.homelab
	Hostname string `json:"hostname"`
	// Repository prefix for pushed images, e.g. docker-hosted/base
	Repository string `json:"repository,omitempty"`
	Insecure   bool   `json:"insecure,omitempty"`
	// Secret may include one or more keys: username, password.
	// Secrets of type dockerconfigjson are supported as well.
	// +optional
	SecretRef *LocalRef `json:"secretRef,omitempty"`
}

type BuildDefaults struct {
	Platforms  []string `json:"platforms,omitempty"`
	Severities []string `json:"severities,omitempty"`
	TagLatest  bool     `json:"tagLatest,omitempty"`
}

type Sign struct {
	// Secret may include keys: cosign.key, cosign.pub, password
	KeySecretRef *LocalRef `json:"keySecretRef,omitempty"`
}

type Notify struct {
	Discord *NotifyDiscord `json:"discord,omitempty"`
}

type NotifyDiscord struct {
	// Secret may include one key: url.
	// By default KILN_DISCORD_WEBHOOK env var is used.
	// +optional
	WebhookSecretRef *LocalRef `json:"webhookSecretRef,omitempty"`
}

type Image struct {
	Name string `json:"name"`

	// Path to the build context; defaults to <imagesDir>/<name>
	Path string `json:"path,omitempty"`

	Platforms []string          `json:"platforms,omitempty"`
	BuildArgs map[string]string `json:"buildArgs,omitempty"`
	TagLatest *bool             `json:"tagLatest,omitempty"`

	Upstream  *Upstream  `json:"upstream,omitempty"`
	SmokeTest *SmokeTest `json:"smokeTest,omitempty"`
}

type Upstream struct {
	GithubRelease *UpstreamGithubRelease `json:"githubRelease,omitempty"`
	RegistryTags  *UpstreamRegistryTags  `json:"registryTags,omitempty"`
}

type UpstreamGithubRelease struct {
	Slug string `json:"slug"` // e.g. organization/repository

	// Prefix stripped off release tags before comparison; defaults to "v"
	Prefix *string `json:"prefix,omitempty"`

	// +optional
	VersionSelection *ctlver.VersionSelection `json:"versionSelection,omitempty"`

	// Secret may include one key: token
	// +optional
	SecretRef *LocalRef `json:"secretRef,omitempty"`
}

type UpstreamRegistryTags struct {
	// Example: index.docker.io/library/golang
	Image string `json:"image"`

	// TagTemplate extracts versions out of tags, e.g. "{version}-alpine".
	// Tags not matching the template are skipped.
	// +optional
	TagTemplate string `json:"tagTemplate,omitempty"`

	// +optional
	VersionSelection *ctlver.VersionSelection `json:"versionSelection,omitempty"`

	// Secret may include one or more keys: username, password
	// +optional
	SecretRef *LocalRef `json:"secretRef,omitempty"`
}

type SmokeTest struct {
	Command []string `json:"command,omitempty"`

	// Env values may use a {version} placeholder resolved to the built variant
	Env map[string]string `json:"env,omitempty"`

	// FilesPath is mounted read-only at /opt/smoke inside the container
	// +optional
	FilesPath string `json:"filesPath,omitempty"`
}

type LocalRef struct {
	Name string `json:"name,omitempty"`
}

func (r Registry) Validate() error {
	if len(r.Hostname) == 0 {
		return fmt.Errorf("Expected hostname to be non-empty")
	}
	return nil
}

func (i Image) Validate() error {
	err := isDisallowedName(i.Name)
	if err != nil {
		return err
	}

	if i.Upstream != nil {
		err := i.Upstream.Validate()
		if err != nil {
			return fmt.Errorf("Validating upstream: %s", err)
		}
	}

	return nil
}

func (u Upstream) Validate() error {
	var srcTypes []string

	if u.GithubRelease != nil {
		srcTypes = append(srcTypes, "githubRelease")
	}
	if u.RegistryTags != nil {
		srcTypes = append(srcTypes, "registryTags")
	}

	if len(srcTypes) == 0 {
		return fmt.Errorf("Expected upstream type to be specified (one of githubRelease, registryTags)")
	}
	if len(srcTypes) > 1 {
		return fmt.Errorf("Expected exactly one upstream type to be specified (multiple found: %s)",
			strings.Join(srcTypes, ", "))
	}

	if u.GithubRelease != nil && len(u.GithubRelease.Slug) == 0 {
		return fmt.Errorf("Expected github release slug to be non-empty")
	}
	if u.RegistryTags != nil && len(u.RegistryTags.Image) == 0 {
		return fmt.Errorf("Expected registry tags image to be non-empty")
	}

	return nil
}

func (u UpstreamGithubRelease) PrefixOrDefault() string {
	if u.Prefix != nil {
		return *u.Prefix
	}
	return "v"
}

func isDisallowedName(name string) error {
	for _, p := range disallowedNames {
		if name == p {
			return fmt.Errorf("Expected name to not be one of '%s'",
				strings.Join(disallowedNames, "', '"))
		}
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("Expected name to not contain '/'")
	}
	return nil
}
