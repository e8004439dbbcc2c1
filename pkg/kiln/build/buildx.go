// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

type BuildxOpts struct {
	// RegistryHostname authenticates secrets that do not carry
	// their own hostname key
	RegistryHostname string
	SecretRef        *ctlconf.LocalRef

	DangerousSkipTLSVerify bool

	// BinaryPath defaults to docker; buildx runs as its subcommand
	BinaryPath string

	CmdRunFunc  func(*exec.Cmd) error
	EnvironFunc func() []string
}

type Buildx struct {
	opts       BuildxOpts
	infoLog    io.Writer
	refFetcher ctltool.RefFetcher
}

func NewBuildx(opts BuildxOpts, infoLog io.Writer, refFetcher ctltool.RefFetcher) *Buildx {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "docker"
	}

	if opts.CmdRunFunc == nil {
		opts.CmdRunFunc = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	if opts.EnvironFunc == nil {
		opts.EnvironFunc = os.Environ
	}

	return &Buildx{opts, infoLog, refFetcher}
}

type BuildInput struct {
	ContextDir     string
	DockerfilePath string

	Tags      []string
	Platforms []string

	BuildArgs map[string]string
	Labels    map[string]string

	// Push and Load are mutually exclusive; multi-platform
	// results cannot be loaded into the daemon
	Push bool
	Load bool
}

// BuildMetadata is the subset of the buildx metadata file kiln reads.
type BuildMetadata struct {
	ImageName string `json:"image.name"`
	Digest    string `json:"containerimage.digest"`
}

func (t *Buildx) Build(input BuildInput, tempArea ctltool.TempArea) (BuildMetadata, error) {
	if input.Push && input.Load {
		return BuildMetadata{}, fmt.Errorf("Expected exactly one of push or load to be set")
	}

	metadataDir, err := tempArea.NewTempDir("buildx-metadata")
	if err != nil {
		return BuildMetadata{}, err
	}

	defer os.RemoveAll(metadataDir)

	metadataPath := filepath.Join(metadataDir, "metadata.json")

	args := []string{"build", "--progress", "plain", "--provenance=false"}
	args = append(args, "--metadata-file", metadataPath)

	if len(input.DockerfilePath) > 0 {
		args = append(args, "--file", input.DockerfilePath)
	}
	if len(input.Platforms) > 0 {
		args = append(args, "--platform", strings.Join(input.Platforms, ","))
	}
	for _, tag := range input.Tags {
		args = append(args, "--tag", tag)
	}
	for _, key := range sortedKeys(input.BuildArgs) {
		args = append(args, "--build-arg", key+"="+input.BuildArgs[key])
	}
	for _, key := range sortedKeys(input.Labels) {
		args = append(args, "--label", key+"="+input.Labels[key])
	}

	switch {
	case input.Push && t.opts.DangerousSkipTLSVerify:
		args = append(args, "--output", "type=registry,registry.insecure=true")
	case input.Push:
		args = append(args, "--push")
	case input.Load:
		args = append(args, "--load")
	}

	args = append(args, input.ContextDir)

	_, err = t.run(args, tempArea)
	if err != nil {
		return BuildMetadata{}, err
	}

	metadataBs, err := os.ReadFile(metadataPath)
	if err != nil {
		return BuildMetadata{}, fmt.Errorf("Reading buildx metadata: %s", err)
	}

	var metadata BuildMetadata

	err = json.Unmarshal(metadataBs, &metadata)
	if err != nil {
		return BuildMetadata{}, fmt.Errorf("Unmarshaling buildx metadata: %s", err)
	}

	if input.Push && len(metadata.Digest) == 0 {
		return BuildMetadata{}, fmt.Errorf("Expected buildx metadata to include pushed digest, but did not")
	}

	return metadata, nil
}

func (t *Buildx) run(args []string, tempArea ctltool.TempArea) (string, error) {
	args = append([]string{"buildx"}, args...)

	authEnv, cleanup, err := t.authEnv(tempArea)
	if err != nil {
		return "", err
	}

	defer cleanup()

	var stdoutBs, stderrBs bytes.Buffer

	cmd := exec.Command(t.opts.BinaryPath, args...)
	cmd.Env = append(t.opts.EnvironFunc(), authEnv...)
	cmd.Stdout = io.MultiWriter(t.infoLog, &stdoutBs)
	cmd.Stderr = io.MultiWriter(t.infoLog, &stderrBs)

	t.infoLog.Write([]byte(fmt.Sprintf("--> %s %s\n", t.opts.BinaryPath, strings.Join(args, " "))))

	err = t.opts.CmdRunFunc(cmd)
	if err != nil {
		return "", fmt.Errorf("Docker buildx: %s (stderr: %s)", err, stderrBs.String())
	}

	return stdoutBs.String(), nil
}

// authEnv materializes registry credentials as a temp DOCKER_CONFIG
// so that buildx can push without touching the user's docker login.
func (t *Buildx) authEnv(tempArea ctltool.TempArea) ([]string, func(), error) {
	noop := func() {}

	if t.opts.SecretRef == nil {
		return nil, noop, nil
	}

	secret, err := t.refFetcher.GetSecret(t.opts.SecretRef.Name)
	if err != nil {
		return nil, noop, err
	}

	secrets, err := secret.ToRegistryAuthSecrets()
	if err != nil {
		return nil, noop, err
	}

	auths := map[string]dockerConfigAuth{}

	for _, secret := range secrets {
		var username, password string
		hostname := t.opts.RegistryHostname

		for name, val := range secret.Data {
			switch name {
			case ctlconf.SecretRegistryHostnameKey:
				hostname = string(val)
			case ctlconf.SecretK8sCorev1BasicAuthUsernameKey:
				username = string(val)
			case ctlconf.SecretK8sCorev1BasicAuthPasswordKey:
				password = string(val)
			default:
				return nil, noop, fmt.Errorf("Unknown secret field '%s' in secret '%s'",
					name, secret.Metadata.Name)
			}
		}

		auths[hostname] = dockerConfigAuth{
			Auth: base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
		}
	}

	configDir, err := tempArea.NewTempDir("docker-config")
	if err != nil {
		return nil, noop, err
	}

	cleanup := func() { os.RemoveAll(configDir) }

	configBs, err := json.Marshal(dockerConfig{Auths: auths})
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("Marshaling docker config: %s", err)
	}

	err = os.WriteFile(filepath.Join(configDir, "config.json"), configBs, 0600)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("Writing docker config: %s", err)
	}

	return []string{"DOCKER_CONFIG=" + configDir}, cleanup, nil
}

type dockerConfig struct {
	Auths map[string]dockerConfigAuth `json:"auths"`
}

type dockerConfigAuth struct {
	Auth string `json:"auth"`
}

func sortedKeys(m map[string]string) []string {
	var keys []string
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
