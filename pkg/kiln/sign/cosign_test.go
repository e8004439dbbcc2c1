// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package sign_test

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlsign "github.com/gillouche/kiln/pkg/kiln/sign"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
)

func TestCosignSign(t *testing.T) {
	ranCmd, keyFile := runCosign(t, map[string][]byte{
		"cosign.key": []byte("private-key-pem"),
		"cosign.pub": []byte("public-key-pem"),
		"password":   []byte("hunter2"),
	}, func(cosign *ctlsign.Cosign) error {
		return cosign.Sign("reg/base/python@sha256:abc", ctltool.OSTempArea{})
	})

	require.Equal(t, "cosign", ranCmd.Args[0])
	require.Equal(t, "sign", ranCmd.Args[1])
	require.Contains(t, ranCmd.Args, "--tlog-upload=false")
	require.Contains(t, ranCmd.Args, "--yes")
	require.Equal(t, "reg/base/python@sha256:abc", ranCmd.Args[len(ranCmd.Args)-1])
	require.Contains(t, ranCmd.Env, "COSIGN_PASSWORD=hunter2")
	require.Equal(t, "private-key-pem", keyFile)
}

func TestCosignSignRequiresDigestForm(t *testing.T) {
	cosign := ctlsign.NewCosign(ctlsign.CosignOpts{
		KeySecretRef: &ctlconf.LocalRef{Name: "signing-key"},
	}, bytes.NewBuffer(nil), ctltool.NoopRefFetcher{})

	err := cosign.Sign("reg/base/python:3.12", ctltool.OSTempArea{})
	require.EqualError(t, err, "Expected ref 'reg/base/python:3.12' to be in digest form, but was not")
}

func TestCosignSignRequiresPrivateKey(t *testing.T) {
	secret := ctlconf.Secret{
		Metadata: ctlconf.GenericMetadata{Name: "signing-key"},
		Data:     map[string][]byte{"cosign.pub": []byte("public-key-pem")},
	}

	cosign := ctlsign.NewCosign(ctlsign.CosignOpts{
		KeySecretRef: &ctlconf.LocalRef{Name: "signing-key"},
		CmdRunFunc:   func(cmd *exec.Cmd) error { return nil },
		EnvironFunc:  func() []string { return []string{} },
	}, bytes.NewBuffer(nil), ctltool.SingleSecretRefFetcher{Secret: &secret})

	err := cosign.Sign("reg/base/python@sha256:abc", ctltool.OSTempArea{})
	require.EqualError(t, err, "Expected signing secret to include key 'cosign.key', but did not")
}

func TestCosignVerify(t *testing.T) {
	ranCmd, keyFile := runCosign(t, map[string][]byte{
		"cosign.pub": []byte("public-key-pem"),
	}, func(cosign *ctlsign.Cosign) error {
		return cosign.Verify("reg/base/python@sha256:abc", ctltool.OSTempArea{})
	})

	require.Equal(t, "verify", ranCmd.Args[1])
	require.Contains(t, ranCmd.Args, "--insecure-ignore-tlog=true")
	require.Equal(t, "public-key-pem", keyFile)
}

func TestCosignWithoutKeySecretRef(t *testing.T) {
	cosign := ctlsign.NewCosign(ctlsign.CosignOpts{},
		bytes.NewBuffer(nil), ctltool.NoopRefFetcher{})

	err := cosign.Sign("reg/base/python@sha256:abc", ctltool.OSTempArea{})
	require.EqualError(t, err, "Expected signing key secret ref to be specified")
}

func runCosign(t *testing.T, data map[string][]byte, run func(*ctlsign.Cosign) error) (*exec.Cmd, string) {
	t.Helper()

	secret := ctlconf.Secret{
		Metadata: ctlconf.GenericMetadata{Name: "signing-key"},
		Data:     data,
	}

	var ranCmd *exec.Cmd
	var keyFile string

	cosign := ctlsign.NewCosign(ctlsign.CosignOpts{
		KeySecretRef: &ctlconf.LocalRef{Name: "signing-key"},
		CmdRunFunc: func(cmd *exec.Cmd) error {
			ranCmd = cmd
			// Key files only exist while the command runs
			if path := cosignArgValue(cmd.Args, "--key"); len(path) > 0 {
				bs, err := os.ReadFile(path)
				require.NoError(t, err)
				keyFile = string(bs)
			}
			return nil
		},
		EnvironFunc: func() []string { return []string{} },
	}, bytes.NewBuffer(nil), ctltool.SingleSecretRefFetcher{Secret: &secret})

	err := run(cosign)
	require.NoError(t, err)
	require.NotNil(t, ranCmd)

	return ranCmd, keyFile
}

func cosignArgValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
