// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"os"
)

type TempArea interface {
	NewTempDir(string) (string, error)
	NewTempFile(string) (*os.File, error)
}

// OSTempArea places temp dirs and files into the
// OS default temp location.
type OSTempArea struct{}

var _ TempArea = OSTempArea{}

func (OSTempArea) NewTempDir(name string) (string, error) {
	return os.MkdirTemp("", name)
}

func (OSTempArea) NewTempFile(pattern string) (*os.File, error) {
	return os.CreateTemp("", pattern)
}
