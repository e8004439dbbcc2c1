// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const (
	EnvGitBinary = "KILN_GIT_BINARY"

	DefaultBranch        = "auto-update/pinned-deps"
	DefaultBaseBranch    = "main"
	DefaultCommitMessage = "update: pinned dependency digests/SHAs"

	defaultAuthorName  = "github-actions[bot]"
	defaultAuthorEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

type GitOpts struct {
	AuthorName  string
	AuthorEmail string

	BinaryPath string

	CmdRunFunc  func(*exec.Cmd) error
	EnvironFunc func() []string
}

type Git struct {
	opts    GitOpts
	infoLog io.Writer
	workDir string
}

func NewGit(opts GitOpts, infoLog io.Writer, workDir string) *Git {
	if opts.AuthorName == "" {
		opts.AuthorName = defaultAuthorName
	}

	if opts.AuthorEmail == "" {
		opts.AuthorEmail = defaultAuthorEmail
	}

	if opts.BinaryPath == "" {
		opts.BinaryPath = "git"
	}

	if opts.CmdRunFunc == nil {
		opts.CmdRunFunc = func(cmd *exec.Cmd) error { return cmd.Run() }
	}

	if opts.EnvironFunc == nil {
		opts.EnvironFunc = os.Environ
	}

	return &Git{opts, infoLog, workDir}
}

// CheckoutBranch resets branch onto the current tip of origin/base.
func (t *Git) CheckoutBranch(branch, base string) error {
	argss := [][]string{
		{"fetch", "origin", base},
		{"checkout", "-B", branch, "origin/" + base},
	}

	return t.runMultiple(argss)
}

// CommitAll stages and commits everything under the work dir,
// returning false without committing when nothing changed.
func (t *Git) CommitAll(message string) (bool, error) {
	_, err := t.run([]string{"add", "--all"})
	if err != nil {
		return false, err
	}

	hasChanges, err := t.hasStagedChanges()
	if err != nil {
		return false, err
	}
	if !hasChanges {
		return false, nil
	}

	argss := [][]string{
		{"config", "user.name", t.opts.AuthorName},
		{"config", "user.email", t.opts.AuthorEmail},
		{"commit", "-m", message},
	}

	err = t.runMultiple(argss)
	if err != nil {
		return false, err
	}

	return true, nil
}

// PushForce overwrites the remote branch; the branch is owned by
// the update flow and always rebuilt from base.
func (t *Git) PushForce(branch string) error {
	_, err := t.run([]string{"push", "--force", "--set-upstream", "origin", branch})
	return err
}

func (t *Git) hasStagedChanges() (bool, error) {
	// diff --cached --quiet exits 1 when the index differs from HEAD
	cmd := exec.Command(t.opts.BinaryPath, "diff", "--cached", "--quiet")
	cmd.Dir = t.workDir
	cmd.Env = t.opts.EnvironFunc()

	err := t.opts.CmdRunFunc(cmd)
	if err == nil {
		return false, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}

	return false, fmt.Errorf("Git diff: %s", err)
}

func (t *Git) runMultiple(argss [][]string) error {
	for _, args := range argss {
		_, err := t.run(args)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Git) run(args []string) (string, error) {
	var stdoutBs, stderrBs bytes.Buffer

	cmd := exec.Command(t.opts.BinaryPath, args...)
	cmd.Dir = t.workDir
	cmd.Env = t.opts.EnvironFunc()
	cmd.Stdout = io.MultiWriter(t.infoLog, &stdoutBs)
	cmd.Stderr = io.MultiWriter(t.infoLog, &stderrBs)

	t.infoLog.Write([]byte(fmt.Sprintf("--> git %s\n", strings.Join(args, " "))))

	err := t.opts.CmdRunFunc(cmd)
	if err != nil {
		return "", fmt.Errorf("Git %s: %s (stderr: %s)", args[0], err, stderrBs.String())
	}

	return stdoutBs.String(), nil
}
