// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package smoke_test

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
	ctlsmoke "github.com/gillouche/kiln/pkg/kiln/smoke"
)

func TestRunnerSubstitutesVersion(t *testing.T) {
	var ranCmd *exec.Cmd

	docker := ctlsmoke.NewDocker(ctlsmoke.DockerOpts{
		CmdRunFunc:  func(cmd *exec.Cmd) error { ranCmd = cmd; return nil },
		EnvironFunc: func() []string { return []string{} },
	}, bytes.NewBuffer(nil))

	err := ctlsmoke.NewRunner(docker).Run(
		"reg/base/python:3.12", "3.12", ctlconf.SmokeTest{
			Env:     map[string]string{"EXPECTED_VERSION": "{version}"},
			Command: []string{"python", "-c", "import sys; assert '{version}' in sys.version"},
		})
	require.NoError(t, err)

	require.Equal(t, []string{
		"docker", "run", "--rm",
		"--env", "EXPECTED_VERSION=3.12",
		"reg/base/python:3.12",
		"python", "-c", "import sys; assert '3.12' in sys.version",
	}, ranCmd.Args)
}

func TestRunnerMountsFilesReadOnly(t *testing.T) {
	filesDir := t.TempDir()

	var ranCmd *exec.Cmd

	docker := ctlsmoke.NewDocker(ctlsmoke.DockerOpts{
		CmdRunFunc:  func(cmd *exec.Cmd) error { ranCmd = cmd; return nil },
		EnvironFunc: func() []string { return []string{} },
	}, bytes.NewBuffer(nil))

	err := ctlsmoke.NewRunner(docker).Run(
		"reg/base/python:3.12", "3.12", ctlconf.SmokeTest{
			FilesPath: filesDir,
			Command:   []string{"sh", filepath.Join(ctlsmoke.FilesContainerPath, "check.sh")},
		})
	require.NoError(t, err)

	absDir, err := filepath.Abs(filesDir)
	require.NoError(t, err)
	require.Contains(t, ranCmd.Args, "--volume")
	require.Contains(t, ranCmd.Args, absDir+":"+ctlsmoke.FilesContainerPath+":ro")
}

func TestDockerRunFailure(t *testing.T) {
	docker := ctlsmoke.NewDocker(ctlsmoke.DockerOpts{
		CmdRunFunc: func(cmd *exec.Cmd) error {
			cmd.Stderr.Write([]byte("assertion failed"))
			return exec.ErrNotFound
		},
		EnvironFunc: func() []string { return []string{} },
	}, bytes.NewBuffer(nil))

	_, err := docker.Run("reg/base/python:3.12", ctlsmoke.RunOpts{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "assertion failed")
}
