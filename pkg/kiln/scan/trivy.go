// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type TrivyOpts struct {
	BinaryPath string

	CmdRunFunc  func(*exec.Cmd) error
	EnvironFunc func() []string
}

type Trivy struct {
	opts    TrivyOpts
	infoLog io.Writer
}

func NewTrivy(opts TrivyOpts, infoLog io.Writer) *Trivy {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "trivy"
	}

	if opts.CmdRunFunc == nil {
		opts.CmdRunFunc = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	if opts.EnvironFunc == nil {
		opts.EnvironFunc = os.Environ
	}

	return &Trivy{opts, infoLog}
}

type ScanOpts struct {
	Severities    []string
	IgnoreUnfixed bool
	Insecure      bool
}

// ScanImage scans ref and writes the full JSON report to outputPath.
func (t *Trivy) ScanImage(ref string, outputPath string, opts ScanOpts) (Report, error) {
	args := []string{"image", "--scanners", "vuln,secret", "--format", "json", "--output", outputPath}

	if len(opts.Severities) > 0 {
		args = append(args, "--severity", strings.Join(opts.Severities, ","))
	}
	if opts.IgnoreUnfixed {
		args = append(args, "--ignore-unfixed")
	}
	if opts.Insecure {
		args = append(args, "--insecure")
	}

	args = append(args, ref)

	err := t.run(args)
	if err != nil {
		return Report{}, err
	}

	return NewReportFromFile(outputPath)
}

func (t *Trivy) run(args []string) error {
	var stderrBs bytes.Buffer

	cmd := exec.Command(t.opts.BinaryPath, args...)
	cmd.Env = t.opts.EnvironFunc()
	cmd.Stdout = t.infoLog
	cmd.Stderr = io.MultiWriter(t.infoLog, &stderrBs)

	t.infoLog.Write([]byte(fmt.Sprintf("--> trivy %s\n", strings.Join(args, " "))))

	err := t.opts.CmdRunFunc(cmd)
	if err != nil {
		return fmt.Errorf("Trivy %s: %s (stderr: %s)", args[0], err, stderrBs.String())
	}

	return nil
}
