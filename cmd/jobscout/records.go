package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/jobscout/pkg/airtable"
)

func newRecordsCmd(a *app) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records of the offers table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := airtable.New(a.cfg.Store(), a.log.With("airtable"))
			if err != nil {
				return &usageError{err}
			}
			if table == "" {
				table = a.cfg.Airtable.TableID
			}
			recs, err := client.ListRecords(cmd.Context(), table)
			if err != nil {
				return err
			}
			a.reporter.Info("%d records in %s", len(recs), table)
			return a.reporter.Records(recs)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Table id or name (default: the offers table)")
	return cmd
}
