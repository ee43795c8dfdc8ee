package airtable

import (
	"context"
	"errors"
	"strings"
)

// SourceFields are the field names checked, in order, for a source URL.
var SourceFields = []string{"Link", "URL", "Url", "url"}

// Sources reads the sources table and returns the URL of every row that has
// one. Rows without a URL are skipped.
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	if c.cfg.SourcesTableID == "" {
		return nil, errors.New("AIRTABLE_SOURCES_TABLE_ID is not set")
	}
	recs, err := c.ListRecords(ctx, c.cfg.SourcesTableID)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, r := range recs {
		for _, f := range SourceFields {
			if u := strings.TrimSpace(r.Text(f)); u != "" {
				urls = append(urls, u)
				break
			}
		}
	}
	return urls, nil
}
