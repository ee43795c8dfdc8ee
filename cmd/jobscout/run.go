package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/jobscout/pkg/orchestrator"
	"github.com/entrhq/jobscout/pkg/prompts"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		sources []string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run one task, or scrape the given sources",
		Long: `Run brings up the browser tool server, runs the agent and stores the
offers it returns.

With a task argument the agent runs that task as is. Otherwise each --source
(or each run.sources entry of the config file) is scraped in turn. Without any
source the default board is scraped when Airtable is configured, and a short
smoke-test task runs when it is not.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Run.Count
			}
			if len(sources) == 0 {
				sources = a.cfg.Run.Sources
			}

			ag, err := a.newAgent()
			if err != nil {
				return err
			}
			store := a.newStore()
			orch := a.newOrchestrator(ag, store)

			task := ""
			if len(args) == 1 {
				task = strings.TrimSpace(args[0])
			}
			switch {
			case task != "":
			case len(sources) > 1:
				return runSources(cmd, a, orch, sources, count)
			case len(sources) == 1:
				if task, err = a.taskFor(count)(sources[0]); err != nil {
					return &usageError{err}
				}
			case store != nil:
				if task, err = a.taskFor(count)(prompts.DefaultSource); err != nil {
					return err
				}
			default:
				task = prompts.Fallback
			}

			a.reporter.User(task)
			res, err := orch.Run(cmd.Context(), task)
			a.report(res)
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&sources, "source", "s", nil, "Job board URL to scrape (repeatable)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Offers to extract per source")
	return cmd
}

// runSources scrapes each source with a fresh tool server and prints a
// summary.
func runSources(cmd *cobra.Command, a *app, orch *orchestrator.Orchestrator, sources []string, count int) error {
	summary, err := orch.RunSources(cmd.Context(), sources, func(src string) (string, error) {
		task, err := a.taskFor(count)(src)
		if err == nil {
			a.reporter.User(task)
		}
		return task, err
	})
	for _, sr := range summary.Sources {
		a.report(sr.Result)
		if sr.Err != nil {
			a.reporter.Warn("%s: %v", sr.Source, sr.Err)
		}
	}
	a.reporter.Info("%d sources: %d succeeded, %d failed, %d records",
		len(summary.Sources), summary.Succeeded(), summary.Failed(), summary.Records())
	if err != nil {
		return err
	}
	if summary.Failed() == len(sources) {
		return fmt.Errorf("all %d sources failed: %w", len(sources), summary.Err())
	}
	return nil
}
