// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package smoke

import (
	"fmt"
	"path/filepath"
	"strings"

	ctlconf "github.com/gillouche/kiln/pkg/kiln/config"
)

const (
	// FilesContainerPath is where smoke test files are mounted
	// inside the container under test.
	FilesContainerPath = "/opt/smoke"

	versionPlaceholder = "{version}"
)

type Runner struct {
	docker *Docker
}

func NewRunner(docker *Docker) Runner {
	return Runner{docker}
}

// Run executes the image's smoke test against ref. The {version}
// placeholder in env values and command args resolves to variant.
func (r Runner) Run(ref string, variant string, test ctlconf.SmokeTest) error {
	env := map[string]string{}
	for key, val := range test.Env {
		env[key] = strings.ReplaceAll(val, versionPlaceholder, variant)
	}

	var command []string
	for _, arg := range test.Command {
		command = append(command, strings.ReplaceAll(arg, versionPlaceholder, variant))
	}

	var mounts []Mount

	if len(test.FilesPath) > 0 {
		absPath, err := filepath.Abs(test.FilesPath)
		if err != nil {
			return fmt.Errorf("Resolving smoke test files path: %s", err)
		}

		mounts = append(mounts, Mount{HostPath: absPath, ContainerPath: FilesContainerPath, ReadOnly: true})
	}

	_, err := r.docker.Run(ref, RunOpts{Env: env, Mounts: mounts, Command: command})

	return err
}
