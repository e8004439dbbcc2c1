// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"fmt"
	"reflect"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
)

type RefFetcher interface {
	GetSecret(string) (ctlconf.Secret, error)
	GetConfigMap(string) (ctlconf.ConfigMap, error)
}

type NoopRefFetcher struct{}

var _ RefFetcher = NoopRefFetcher{}

func (f NoopRefFetcher) GetSecret(name string) (ctlconf.Secret, error) {
	return ctlconf.Secret{}, fmt.Errorf("Not found")
}

func (f NoopRefFetcher) GetConfigMap(name string) (ctlconf.ConfigMap, error) {
	return ctlconf.ConfigMap{}, fmt.Errorf("Not found")
}

// SingleSecretRefFetcher is used in tests to provide one secret.
type SingleSecretRefFetcher struct {
	Secret *ctlconf.Secret
}

var _ RefFetcher = SingleSecretRefFetcher{}

func (f SingleSecretRefFetcher) GetSecret(name string) (ctlconf.Secret, error) {
	if f.Secret != nil && f.Secret.Metadata.Name == name {
		return *f.Secret, nil
	}
	return ctlconf.Secret{}, fmt.Errorf("Not found")
}

func (f SingleSecretRefFetcher) GetConfigMap(name string) (ctlconf.ConfigMap, error) {
	return ctlconf.ConfigMap{}, fmt.Errorf("Not found")
}

type NamedRefFetcher struct {
	secrets    []ctlconf.Secret
	configMaps []ctlconf.ConfigMap
}

var _ RefFetcher = NamedRefFetcher{}

func NewNamedRefFetcher(secrets []ctlconf.Secret, configMaps []ctlconf.ConfigMap) NamedRefFetcher {
	return NamedRefFetcher{secrets, configMaps}
}

func (f NamedRefFetcher) GetSecret(name string) (ctlconf.Secret, error) {
	var found []ctlconf.Secret
	for _, secret := range f.secrets {
		if secret.Metadata.Name == name {
			found = append(found, secret)
		}
	}

	if len(found) == 0 {
		return ctlconf.Secret{}, fmt.Errorf(
			"Expected to find one secret '%s', but found none", name)
	}
	// Copies of the same secret are tolerated
	if len(found) > 1 && !allSecretsAreEqual(found) {
		return ctlconf.Secret{}, fmt.Errorf(
			"Expected to find one secret '%s', but found multiple", name)
	}

	return found[0], nil
}

func allSecretsAreEqual(secrets []ctlconf.Secret) bool {
	for i := 1; i < len(secrets); i++ {
		if !reflect.DeepEqual(secrets[0], secrets[i]) {
			return false
		}
	}
	return true
}

func (f NamedRefFetcher) GetConfigMap(name string) (ctlconf.ConfigMap, error) {
	var found []ctlconf.ConfigMap
	for _, configMap := range f.configMaps {
		if configMap.Metadata.Name == name {
			found = append(found, configMap)
		}
	}

	if len(found) == 0 {
		return ctlconf.ConfigMap{}, fmt.Errorf(
			"Expected to find one config map '%s', but found none", name)
	}
	if len(found) > 1 {
		return ctlconf.ConfigMap{}, fmt.Errorf(
			"Expected to find one config map '%s', but found multiple", name)
	}

	return found[0], nil
}
