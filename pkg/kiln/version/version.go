// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package version

// Version can be set via:
// -ldflags="-X 'github.com/gillouche/kiln/pkg/kiln/version.Version=$VERSION'"
var Version = "develop"
