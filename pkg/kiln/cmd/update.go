// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/cppforlife/go-cli-ui/ui"
	ctlgh "github.com/gillouche/kiln/pkg/kiln/githubapi"
	ctlrep "github.com/gillouche/kiln/pkg/kiln/report"
	ctltool "github.com/gillouche/kiln/pkg/kiln/tool"
	ctlupd "github.com/gillouche/kiln/pkg/kiln/update"
	"github.com/spf13/cobra"
)

type UpdateOptions struct {
	ui ui.UI

	ReportFile string
	Root       string

	PR      bool
	Slug    string
	Branch  string
	Base    string
	Message string
	Title   string
}

func NewUpdateOptions(ui ui.UI) *UpdateOptions {
	return &UpdateOptions{ui: ui}
}

func NewUpdateCmd(o *UpdateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply pin updates from a report, optionally opening a pull request",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.ReportFile, "report", "", "Read JSON report from file (required)")
	cmd.Flags().StringVar(&o.Root, "root", ".", "Set repository root holding the files to rewrite")

	cmd.Flags().BoolVar(&o.PR, "pr", false, "Commit rewritten files to a branch and open a pull request")
	cmd.Flags().StringVar(&o.Slug, "slug", "", "Repository slug for the pull request (format: owner/repo)")
	cmd.Flags().StringVar(&o.Branch, "branch", ctlupd.DefaultBranch, "Set update branch")
	cmd.Flags().StringVar(&o.Base, "base", ctlupd.DefaultBaseBranch, "Set base branch")
	cmd.Flags().StringVar(&o.Message, "message", ctlupd.DefaultCommitMessage, "Set commit message")
	cmd.Flags().StringVar(&o.Title, "title", ctlupd.DefaultCommitMessage, "Set pull request title")
	return cmd
}

func (o *UpdateOptions) Run() error {
	if len(o.ReportFile) == 0 {
		return fmt.Errorf("Expected report file to be specified (use --report)")
	}

	if o.PR && len(o.Slug) == 0 {
		return fmt.Errorf("Expected repository slug to be specified when opening a pull request (use --slug)")
	}

	rep, err := ctlrep.NewReportFromFile(o.ReportFile)
	if err != nil {
		return err
	}

	entries := ctlupd.Entries(rep)
	if len(entries) == 0 {
		o.ui.PrintLinef("No updates to apply")
		return nil
	}

	root, err := expandUserHomeDir(o.Root)
	if err != nil {
		return err
	}

	var git *ctlupd.Git

	if o.PR {
		git = ctlupd.NewGit(ctlupd.GitOpts{
			BinaryPath: os.Getenv(ctlupd.EnvGitBinary),
		}, ctltool.NewInfoLog(o.ui), root)

		err := git.CheckoutBranch(o.Branch, o.Base)
		if err != nil {
			return err
		}
	}

	result, err := ctlupd.Apply(root, entries)
	if err != nil {
		return err
	}

	for _, change := range result.Changes {
		o.ui.PrintLinef("Updated '%s': %s -> %s", change.File, change.Old, change.New)
	}

	for _, skipped := range result.Skipped {
		o.ui.PrintLinef("Skipped: %s", skipped)
	}

	if !o.PR {
		return nil
	}

	committed, err := git.CommitAll(o.Message)
	if err != nil {
		return err
	}

	if !committed {
		o.ui.PrintLinef("No changes to commit")
		return nil
	}

	err = git.PushForce(o.Branch)
	if err != nil {
		return err
	}

	token, err := ctlgh.APIToken(nil, ctltool.NoopRefFetcher{})
	if err != nil {
		return err
	}

	client, err := ctlgh.NewClient(ctlgh.ClientOpts{APIToken: token})
	if err != nil {
		return err
	}

	prURL, err := ctlupd.NewPullRequests(client).Ensure(ctlupd.PullRequestOpts{
		Slug:   o.Slug,
		Branch: o.Branch,
		Base:   o.Base,
		Title:  o.Title,
	}, ctlupd.PRBody(entries))
	if err != nil {
		return err
	}

	o.ui.PrintLinef("Pull request: %s", prURL)

	return nil
}
