package app

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/internal/sync"
)

// newModuleCmd builds the per-module command with its sync subcommands.
func newModuleCmd(mod modules.Module) *cobra.Command {
	cmd := &cobra.Command{
		Use:   mod.ID(),
		Short: fmt.Sprintf("Operations for the %s module", mod.Name()),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Fetch remote configuration and commit the changes",
		RunE: func(c *cobra.Command, _ []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			report, err := mgr.Pull(c.Context(), mod.ID())
			if err != nil {
				return err
			}
			printPullReport(report)
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d content type(s) failed", failed)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "diff",
		Short: "Show what a pull would change, without writing",
		RunE: func(c *cobra.Command, _ []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			report, err := mgr.Diff(c.Context(), mod.ID())
			if err != nil {
				return err
			}
			printDiffReport(report)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Probe every content type endpoint",
		RunE: func(c *cobra.Command, _ []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			report, err := mgr.Test(c.Context(), mod.ID())
			if err != nil {
				return err
			}
			return printTestReport(report)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Push local configuration to the remote instance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return fmt.Errorf("push is under development")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deploy",
		Short: "Deploy a reviewed change set to the remote instance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return fmt.Errorf("deploy is under development")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete remote objects removed from the local tree",
		RunE: func(_ *cobra.Command, _ []string) error {
			return fmt.Errorf("delete is under development")
		},
	})

	return cmd
}

func printPullReport(report *sync.PullReport) {
	for _, ct := range report.ContentTypes {
		printContentTypeResult(ct)
	}
	switch {
	case report.UpToDate:
		fmt.Println("Already up to date.")
	case report.CommitHash != "":
		fmt.Printf("Committed %s\n", report.CommitHash[:12])
	}
}

func printDiffReport(report *sync.DiffReport) {
	changes := false
	for _, ct := range report.ContentTypes {
		printContentTypeResult(ct)
		if ct.Diff == nil || ct.Diff.Empty() {
			continue
		}
		changes = true
		for _, id := range ct.Diff.Added {
			fmt.Printf("  %s %s\n", color.GreenString("+"), id)
		}
		for _, id := range ct.Diff.Updated {
			fmt.Printf("  %s %s\n", color.YellowString("~"), id)
		}
		for _, id := range ct.Diff.Removed {
			fmt.Printf("  %s %s\n", color.RedString("-"), id)
		}
	}
	if !changes {
		fmt.Println("No changes.")
	}
}

func printContentTypeResult(ct sync.ContentTypeReport) {
	if ct.Err != nil {
		fmt.Printf("%s %s: %v\n", color.RedString("fail"), ct.ContentType, ct.Err)
		return
	}
	summary := "no remote data"
	if ct.Diff != nil {
		summary = ct.Diff.Summary()
	}
	if ct.Partial {
		summary += " (partial fetch)"
	}
	fmt.Printf("%s %s: %s\n", color.GreenString("ok"), ct.ContentType, summary)
	for _, w := range ct.Warnings {
		fmt.Printf("  %s %s\n", color.YellowString("warning:"), w)
	}
}

func printTestReport(report *sync.TestReport) error {
	table := tablewriter.NewTable(os.Stdout)
	table.Header("Content Type", "Status", "Objects")

	failures := 0
	for _, ep := range report.Endpoints {
		if ep.Err != nil {
			failures++
			table.Append(ep.ContentType, color.RedString("fail: %v", ep.Err), "-")
			continue
		}
		table.Append(ep.ContentType, color.GreenString("ok"), fmt.Sprintf("%d", ep.Count))
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render test table: %w", err)
	}

	if failures > 0 {
		return fmt.Errorf("%d endpoint(s) failed", failures)
	}
	return nil
}
