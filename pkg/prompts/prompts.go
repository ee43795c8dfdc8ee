// Package prompts holds the agent instructions and the scrape task template.
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// DefaultSource is scraped when no source is configured.
const DefaultSource = "https://theprotocol.it/filtry/python;t/trainee,assistant,junior;p?sort=date"

// Fallback is the smoke-test task used when there is nothing to scrape and
// nowhere to store results.
const Fallback = "Say hello and list the browser tools you can use, in one short paragraph."

// Instructions is the system prompt of the scraping agent.
const Instructions = `You are Job Scout, an agent that reads job boards with a real browser.

Use these prefixes in your messages:
🎤 before explaining what you are doing
🔧 when mentioning tool usage
✅ when reporting completion

Explain each step in one short sentence. Stay focused on the user's request.

Work with the browser tools: navigate to the page, take snapshots to read it, and
follow links to offer pages when details are missing. Close cookie banners if they
block the page. Never invent data you did not see on a page.

End with your final answer. The final answer must contain the results as one JSON
array of objects, and nothing after the closing bracket.`

// TaskData parameterizes the scrape task.
type TaskData struct {
	SourceURL string
	Count     int

	// BaseID and TableID are included so that an agent with Airtable tools
	// can address the table directly.
	BaseID  string
	TableID string
}

// SourceName returns the host of the source URL without a leading "www.".
func (d TaskData) SourceName() string {
	u, err := url.Parse(d.SourceURL)
	if err != nil || u.Host == "" {
		return d.SourceURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var taskTemplate = template.Must(template.New("task").Parse(`Scrape {{.Count}} job offers from {{.SourceURL}}

For each offer, extract:
- Company name
- Position title
- Salary (or "Not specified")
- Location
- Offer link
- Key requirements and skills
- Company description (or "Not available")

Return every offer as one object of a JSON array, with exactly these fields:

[
  {
    "Source": "{{.SourceName}}",
    "Link": "[offer URL]",
    "Company": "[company name]",
    "Position": "[position title]",
    "Salary": "[salary or 'Not specified']",
    "Location": "[location]",
    "Requirements": "[key skills]",
    "About company": "[description or 'Not available']"
  }
]
{{- if and .BaseID .TableID}}

The offers belong in Airtable base {{.BaseID}}, table {{.TableID}}.
{{- end}}
`))

// Task renders the scrape task for one source.
func Task(d TaskData) (string, error) {
	if strings.TrimSpace(d.SourceURL) == "" {
		return "", errors.New("source url is required")
	}
	if d.Count <= 0 {
		return "", fmt.Errorf("count must be positive, got %d", d.Count)
	}
	var buf bytes.Buffer
	if err := taskTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render task: %w", err)
	}
	return buf.String(), nil
}
