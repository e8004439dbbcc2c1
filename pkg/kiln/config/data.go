// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package config

const (
	SecretK8sCorev1BasicAuthUsernameKey = "username"
	SecretK8sCorev1BasicAuthPasswordKey = "password"

	SecretRegistryHostnameKey = "hostname"

	SecretGithubAPIToken = "token"

	SecretCosignPrivateKey  = "cosign.key"
	SecretCosignPublicKey   = "cosign.pub"
	SecretCosignPasswordKey = "password"

	SecretWebhookURLKey = "url"
)

// These structs have minimal used set of fields from their K8s representations.

type GenericMetadata struct {
	Name string
}

type Secret struct {
	APIVersion string
	Kind       string

	Metadata GenericMetadata
	Type     string
	Data     map[string][]byte
}

type ConfigMap struct {
	APIVersion string
	Kind       string

	Metadata GenericMetadata
	Data     map[string]string
}
