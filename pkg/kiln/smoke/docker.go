// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package smoke

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type DockerOpts struct {
	BinaryPath string

	CmdRunFunc  func(*exec.Cmd) error
	EnvironFunc func() []string
}

type Docker struct {
	opts    DockerOpts
	infoLog io.Writer
}

func NewDocker(opts DockerOpts, infoLog io.Writer) *Docker {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "docker"
	}

	if opts.CmdRunFunc == nil {
		opts.CmdRunFunc = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	if opts.EnvironFunc == nil {
		opts.EnvironFunc = os.Environ
	}

	return &Docker{opts, infoLog}
}

type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

type RunOpts struct {
	Env     map[string]string
	Mounts  []Mount
	Command []string
}

func (t *Docker) Run(ref string, runOpts RunOpts) (string, error) {
	args := []string{"run", "--rm"}

	var envKeys []string
	for key := range runOpts.Env {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)

	for _, key := range envKeys {
		args = append(args, "--env", key+"="+runOpts.Env[key])
	}

	for _, mount := range runOpts.Mounts {
		spec := mount.HostPath + ":" + mount.ContainerPath
		if mount.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "--volume", spec)
	}

	args = append(args, ref)
	args = append(args, runOpts.Command...)

	var stdoutBs, stderrBs bytes.Buffer

	cmd := exec.Command(t.opts.BinaryPath, args...)
	cmd.Env = t.opts.EnvironFunc()
	cmd.Stdout = io.MultiWriter(t.infoLog, &stdoutBs)
	cmd.Stderr = io.MultiWriter(t.infoLog, &stderrBs)

	t.infoLog.Write([]byte(fmt.Sprintf("--> docker %s\n", strings.Join(args, " "))))

	err := t.opts.CmdRunFunc(cmd)
	if err != nil {
		return "", fmt.Errorf("Docker %s: %s (stderr: %s)", args[0], err, stderrBs.String())
	}

	return stdoutBs.String(), nil
}
