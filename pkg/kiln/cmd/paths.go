// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// expandUserHomeDir resolves a leading ~ in user supplied paths.
func expandUserHomeDir(path string) (string, error) {
	// TODO does not support ~user convention
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("Expanding user home directory: %s", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
