// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package sign

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

type CosignOpts struct {
	KeySecretRef *ctlconf.LocalRef

	BinaryPath string

	CmdRunFunc  func(*exec.Cmd) error
	EnvironFunc func() []string
}

type Cosign struct {
	opts       CosignOpts
	infoLog    io.Writer
	refFetcher ctltool.RefFetcher
}

func NewCosign(opts CosignOpts, infoLog io.Writer, refFetcher ctltool.RefFetcher) *Cosign {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "cosign"
	}

	if opts.CmdRunFunc == nil {
		opts.CmdRunFunc = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	if opts.EnvironFunc == nil {
		opts.EnvironFunc = os.Environ
	}

	return &Cosign{opts, infoLog, refFetcher}
}

// Sign signs ref with the configured private key. ref must be in
// digest form so the signature cannot drift to a retagged image.
// The transparency log upload is disabled since images live in a
// private registry.
func (t *Cosign) Sign(ref string, tempArea ctltool.TempArea) error {
	if !strings.Contains(ref, "@sha256:") {
		return fmt.Errorf("Expected ref '%s' to be in digest form, but was not", ref)
	}

	keys, cleanup, err := t.keyMaterial(tempArea)
	if err != nil {
		return err
	}

	defer cleanup()

	if len(keys.privateKeyPath) == 0 {
		return fmt.Errorf("Expected signing secret to include key '%s', but did not",
			ctlconf.SecretCosignPrivateKey)
	}

	args := []string{"sign", "--key", keys.privateKeyPath, "--tlog-upload=false", "--yes", ref}

	return t.run(args, []string{"COSIGN_PASSWORD=" + keys.password})
}

// Verify checks the signature of ref against the configured public key.
func (t *Cosign) Verify(ref string, tempArea ctltool.TempArea) error {
	keys, cleanup, err := t.keyMaterial(tempArea)
	if err != nil {
		return err
	}

	defer cleanup()

	if len(keys.publicKeyPath) == 0 {
		return fmt.Errorf("Expected signing secret to include key '%s', but did not",
			ctlconf.SecretCosignPublicKey)
	}

	args := []string{"verify", "--key", keys.publicKeyPath, "--insecure-ignore-tlog=true", ref}

	return t.run(args, nil)
}

func (t *Cosign) run(args []string, extraEnv []string) error {
	var stdoutBs, stderrBs bytes.Buffer

	cmd := exec.Command(t.opts.BinaryPath, args...)
	cmd.Env = append(t.opts.EnvironFunc(), extraEnv...)
	cmd.Stdout = io.MultiWriter(t.infoLog, &stdoutBs)
	cmd.Stderr = io.MultiWriter(t.infoLog, &stderrBs)

	t.infoLog.Write([]byte(fmt.Sprintf("--> cosign %s\n", strings.Join(args, " "))))

	err := t.opts.CmdRunFunc(cmd)
	if err != nil {
		return fmt.Errorf("Cosign %s: %s (stderr: %s)", args[0], err, stderrBs.String())
	}

	return nil
}

type cosignKeys struct {
	privateKeyPath string
	publicKeyPath  string
	password       string
}

func (t *Cosign) keyMaterial(tempArea ctltool.TempArea) (cosignKeys, func(), error) {
	noop := func() {}

	if t.opts.KeySecretRef == nil {
		return cosignKeys{}, noop, fmt.Errorf("Expected signing key secret ref to be specified")
	}

	secret, err := t.refFetcher.GetSecret(t.opts.KeySecretRef.Name)
	if err != nil {
		return cosignKeys{}, noop, err
	}

	keyDir, err := tempArea.NewTempDir("cosign-keys")
	if err != nil {
		return cosignKeys{}, noop, err
	}

	cleanup := func() { os.RemoveAll(keyDir) }

	var keys cosignKeys

	for name, val := range secret.Data {
		switch name {
		case ctlconf.SecretCosignPrivateKey:
			path := filepath.Join(keyDir, "cosign.key")

			err = os.WriteFile(path, val, 0600)
			if err != nil {
				cleanup()
				return cosignKeys{}, noop, fmt.Errorf("Writing private key: %s", err)
			}

			keys.privateKeyPath = path

		case ctlconf.SecretCosignPublicKey:
			path := filepath.Join(keyDir, "cosign.pub")

			err = os.WriteFile(path, val, 0600)
			if err != nil {
				cleanup()
				return cosignKeys{}, noop, fmt.Errorf("Writing public key: %s", err)
			}

			keys.publicKeyPath = path

		case ctlconf.SecretCosignPasswordKey:
			keys.password = string(val)

		default:
			cleanup()
			return cosignKeys{}, noop, fmt.Errorf("Unknown secret field '%s' in secret '%s'",
				name, secret.Metadata.Name)
		}
	}

	return keys, cleanup, nil
}
