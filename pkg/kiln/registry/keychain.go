// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
)

// secretsKeychain resolves registry credentials from config secrets,
// falling back to the default docker keychain.
type secretsKeychain struct {
	auths map[string]authn.AuthConfig
}

var _ authn.Keychain = secretsKeychain{}

func newSecretsKeychain(defaultHostname string, secrets []ctlconf.Secret) (secretsKeychain, error) {
	auths := map[string]authn.AuthConfig{}

	for _, secret := range secrets {
		registrySecrets, err := secret.ToRegistryAuthSecrets()
		if err != nil {
			return secretsKeychain{}, err
		}

		for _, s := range registrySecrets {
			var auth authn.AuthConfig

			// Secrets without a hostname key authenticate the configured registry
			hostname := defaultHostname

			for name, val := range s.Data {
				switch name {
				case ctlconf.SecretRegistryHostnameKey:
					hostname = string(val)
				case ctlconf.SecretK8sCorev1BasicAuthUsernameKey:
					auth.Username = string(val)
				case ctlconf.SecretK8sCorev1BasicAuthPasswordKey:
					auth.Password = string(val)
				default:
					return secretsKeychain{}, fmt.Errorf(
						"Unknown secret field '%s' in secret '%s'", name, s.Metadata.Name)
				}
			}

			auths[hostname] = auth
		}
	}

	return secretsKeychain{auths}, nil
}

func (k secretsKeychain) Resolve(res authn.Resource) (authn.Authenticator, error) {
	if auth, found := k.auths[res.RegistryStr()]; found {
		return authn.FromConfig(auth), nil
	}
	return authn.DefaultKeychain.Resolve(res)
}
