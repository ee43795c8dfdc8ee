package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/entrhq/jobscout/pkg/airtable"
)

func newSourcesCmd(a *app) *cobra.Command {
	var (
		count  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Scrape every source listed in the Airtable sources table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !dryRun {
				if err := a.validate(); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Run.Count
			}

			client, err := airtable.New(a.cfg.Store(), a.log.With("airtable"))
			if err != nil {
				return &usageError{err}
			}
			urls, err := client.Sources(cmd.Context())
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return errors.New("the sources table has no rows with a Link or URL")
			}
			a.reporter.Info("%d sources in table %s", len(urls), a.cfg.Airtable.SourcesTableID)
			if dryRun {
				for _, u := range urls {
					a.reporter.Info("  %s", u)
				}
				return nil
			}

			ag, err := a.newAgent()
			if err != nil {
				return err
			}
			return runSources(cmd, a, a.newOrchestrator(ag, client), urls, count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Offers to extract per source")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the sources without scraping them")
	return cmd
}
