// Package airtable persists extracted job offers to an Airtable base and
// reads the list of sources to scrape.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mehanizm/airtable"

	"github.com/entrhq/jobscout/pkg/logging"
	"github.com/entrhq/jobscout/pkg/records"
)

// MaxBatch is the Airtable limit on records per create request.
const MaxBatch = 10

// Store is the record-oriented store a run writes to.
type Store interface {
	CreateRecords(ctx context.Context, recs []records.Record) ([]records.Record, error)
	ListRecords(ctx context.Context, table string) ([]records.Record, error)
}

// Config identifies the base and tables.
type Config struct {
	APIKey         string
	BaseID         string
	TableID        string
	SourcesTableID string

	// BaseURL overrides the API root, e.g. for tests.
	BaseURL string

	// Typecast lets Airtable coerce strings into select and date fields.
	Typecast bool
}

// Missing lists the settings required for writing offers that are empty.
func (c Config) Missing() []string {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "AIRTABLE_API_KEY")
	}
	if c.BaseID == "" {
		missing = append(missing, "AIRTABLE_BASE_ID")
	}
	if c.TableID == "" {
		missing = append(missing, "AIRTABLE_TABLE_ID")
	}
	return missing
}

// Client is a Store backed by the Airtable REST API.
type Client struct {
	cfg Config
	at  *airtable.Client
	log *logging.Logger
}

var _ Store = (*Client)(nil)

// New creates a Client. It fails when required settings are missing.
func New(cfg Config, log *logging.Logger) (*Client, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("airtable not configured, missing %v", missing)
	}
	if log == nil {
		log = logging.Nop()
	}
	at := airtable.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		if err := at.SetBaseURL(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid airtable base url: %w", err)
		}
	}
	return &Client{cfg: cfg, at: at, log: log}, nil
}

// CreateRecords writes recs to the offers table in batches of MaxBatch and
// returns the created records with their ids under "id". No input, no request.
func (c *Client) CreateRecords(ctx context.Context, recs []records.Record) ([]records.Record, error) {
	if len(recs) == 0 {
		c.log.Infof("no records to create")
		return nil, nil
	}
	table := c.at.GetTable(c.cfg.BaseID, c.cfg.TableID)

	var created []records.Record
	for start := 0; start < len(recs); start += MaxBatch {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		end := min(start+MaxBatch, len(recs))

		batch := &airtable.Records{Typecast: c.cfg.Typecast}
		for _, r := range recs[start:end] {
			batch.Records = append(batch.Records, &airtable.Record{Fields: map[string]any(records.Normalize(r))})
		}

		res, err := table.AddRecordsContext(ctx, batch)
		if err != nil {
			return created, fmt.Errorf("create records %d-%d: %w", start, end-1, err)
		}
		created = append(created, fromAirtable(res)...)
		c.log.Infof("created %d records (batch %d)", len(res.Records), start/MaxBatch+1)
	}
	return created, nil
}

// ListRecords returns every record of table, following pagination.
func (c *Client) ListRecords(ctx context.Context, table string) ([]records.Record, error) {
	if table == "" {
		return nil, errors.New("table id is required")
	}
	t := c.at.GetTable(c.cfg.BaseID, table)

	var (
		out    []records.Record
		offset string
	)
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		params := url.Values{}
		if offset != "" {
			params.Set("offset", offset)
		}
		res, err := t.GetRecordsWithParamsContext(ctx, params)
		if err != nil {
			return out, fmt.Errorf("list records of %s: %w", table, err)
		}
		out = append(out, fromAirtable(res)...)
		if res.Offset == "" {
			break
		}
		offset = res.Offset
	}
	c.log.Debugf("listed %d records from %s", len(out), table)
	return out, nil
}

func fromAirtable(res *airtable.Records) []records.Record {
	if res == nil {
		return nil
	}
	out := make([]records.Record, 0, len(res.Records))
	for _, r := range res.Records {
		rec := records.Record{}
		for k, v := range r.Fields {
			rec[k] = v
		}
		if r.ID != "" {
			rec["id"] = r.ID
		}
		out = append(out, rec)
	}
	return out
}
