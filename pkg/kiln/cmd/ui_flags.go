// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/go-cli-ui/ui"
	"github.com/spf13/cobra"
)

type UIFlags struct {
	TTY            bool
	NoColor        bool
	JSON           bool
	NonInteractive bool

	Column []string
}

func (f *UIFlags) Set(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&f.TTY, "tty", false, "Force TTY-like output")
	cmd.PersistentFlags().BoolVar(&f.NoColor, "no-color", false, "Disable colorized output")
	cmd.PersistentFlags().BoolVar(&f.JSON, "json", false, "Output as JSON")
	cmd.PersistentFlags().BoolVar(&f.NonInteractive, "non-interactive", false, "Do not ask for user input")
	cmd.PersistentFlags().StringSliceVar(&f.Column, "column", nil, "Filter to show only given columns")
}

func (f *UIFlags) ConfigureUI(ui *ui.ConfUI) {
	if f.TTY {
		ui.EnableTTY(f.NonInteractive)
	}

	if !f.NoColor {
		ui.EnableColor()
	}

	if f.JSON {
		ui.EnableJSON()
	}

	if f.NonInteractive {
		ui.EnableNonInteractive()
	}

	if len(f.Column) > 0 {
		ui.ShowColumns(f.Column)
	}
}
