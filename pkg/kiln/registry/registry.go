// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	regv1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	regtypes "github.com/google/go-containerregistry/pkg/v1/types"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
)

// Registry talks to image registries directly instead of
// shelling out to crane.
type Registry struct {
	keychain authn.Keychain
	nameOpts []name.Option
}

func NewRegistry(defaultHostname string, secrets []ctlconf.Secret, insecure bool) (Registry, error) {
	keychain, err := newSecretsKeychain(defaultHostname, secrets)
	if err != nil {
		return Registry{}, fmt.Errorf("Building registry keychain: %s", err)
	}

	var nameOpts []name.Option
	if insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}

	return Registry{keychain, nameOpts}, nil
}

// Digest resolves ref to its manifest digest (sha256:...).
func (r Registry) Digest(ref string) (string, error) {
	parsedRef, err := name.ParseReference(ref, r.nameOpts...)
	if err != nil {
		return "", fmt.Errorf("Parsing ref '%s': %s", ref, err)
	}

	desc, err := remote.Head(parsedRef, r.remoteOpts()...)
	if err != nil {
		// Some registries do not support HEAD requests
		getDesc, err := remote.Get(parsedRef, r.remoteOpts()...)
		if err != nil {
			return "", fmt.Errorf("Fetching digest of '%s': %s", ref, err)
		}
		return getDesc.Digest.String(), nil
	}

	return desc.Digest.String(), nil
}

// Tags lists all tags of a repository, e.g. index.docker.io/library/golang.
func (r Registry) Tags(repo string) ([]string, error) {
	parsedRepo, err := name.NewRepository(repo, r.nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("Parsing repository '%s': %s", repo, err)
	}

	tags, err := remote.List(parsedRepo, r.remoteOpts()...)
	if err != nil {
		return nil, fmt.Errorf("Listing tags of '%s': %s", repo, err)
	}

	return tags, nil
}

// Copy copies an image or index from srcRef to dstRef.
func (r Registry) Copy(srcRef, dstRef string) error {
	src, err := name.ParseReference(srcRef, r.nameOpts...)
	if err != nil {
		return fmt.Errorf("Parsing ref '%s': %s", srcRef, err)
	}

	dst, err := name.ParseReference(dstRef, r.nameOpts...)
	if err != nil {
		return fmt.Errorf("Parsing ref '%s': %s", dstRef, err)
	}

	desc, err := remote.Get(src, r.remoteOpts()...)
	if err != nil {
		return fmt.Errorf("Fetching '%s': %s", srcRef, err)
	}

	switch desc.MediaType {
	case regtypes.OCIImageIndex, regtypes.DockerManifestList:
		idx, err := desc.ImageIndex()
		if err != nil {
			return fmt.Errorf("Reading index '%s': %s", srcRef, err)
		}
		err = remote.WriteIndex(dst, idx, r.remoteOpts()...)
		if err != nil {
			return fmt.Errorf("Writing index '%s': %s", dstRef, err)
		}
	default:
		img, err := desc.Image()
		if err != nil {
			return fmt.Errorf("Reading image '%s': %s", srcRef, err)
		}
		err = remote.Write(dst, img, r.remoteOpts()...)
		if err != nil {
			return fmt.Errorf("Writing image '%s': %s", dstRef, err)
		}
	}

	return nil
}

// ImageUser returns the configured user of an image. For indexes the
// first platform image is inspected.
func (r Registry) ImageUser(ref string) (string, error) {
	parsedRef, err := name.ParseReference(ref, r.nameOpts...)
	if err != nil {
		return "", fmt.Errorf("Parsing ref '%s': %s", ref, err)
	}

	desc, err := remote.Get(parsedRef, r.remoteOpts()...)
	if err != nil {
		return "", fmt.Errorf("Fetching '%s': %s", ref, err)
	}

	var img regv1.Image

	switch desc.MediaType {
	case regtypes.OCIImageIndex, regtypes.DockerManifestList:
		idx, err := desc.ImageIndex()
		if err != nil {
			return "", fmt.Errorf("Reading index '%s': %s", ref, err)
		}
		manifest, err := idx.IndexManifest()
		if err != nil {
			return "", fmt.Errorf("Reading index manifest '%s': %s", ref, err)
		}
		if len(manifest.Manifests) == 0 {
			return "", fmt.Errorf("Expected index '%s' to contain at least one manifest, but did not", ref)
		}
		img, err = idx.Image(manifest.Manifests[0].Digest)
		if err != nil {
			return "", fmt.Errorf("Reading image '%s': %s", ref, err)
		}
	default:
		img, err = desc.Image()
		if err != nil {
			return "", fmt.Errorf("Reading image '%s': %s", ref, err)
		}
	}

	configFile, err := img.ConfigFile()
	if err != nil {
		return "", fmt.Errorf("Reading image config '%s': %s", ref, err)
	}

	return configFile.Config.User, nil
}

func (r Registry) remoteOpts() []remote.Option {
	return []remote.Option{remote.WithAuthFromKeychain(r.keychain)}
}
