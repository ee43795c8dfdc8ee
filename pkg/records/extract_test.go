package records

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []Record
		wantErr error
	}{
		{
			name: "narrated single offer",
			text: `Hello! Here is your JSON: [{"Link":"https://a","Company":"A"}] Done.`,
			want: []Record{{"Link": "https://a", "Company": "A"}},
		},
		{
			name: "no offers found",
			text: "No offers found.",
		},
		{
			name: "empty array",
			text: "Nothing matched: []",
			want: []Record{},
		},
		{
			name: "fields envelope is unwrapped",
			text: `[{"fields":{"Link":"https://b","Title":"Go dev"}}, {"Link":"https://c"}]`,
			want: []Record{{"Link": "https://b", "Title": "Go dev"}, {"Link": "https://c"}},
		},
		{
			name: "non-object elements skipped",
			text: `["x", {"Link":"https://d"}, 3]`,
			want: []Record{{"Link": "https://d"}},
		},
		{
			name:    "malformed",
			text:    `Here: [{"Link": "https://a",}] oops`,
			wantErr: ErrNoPayload,
		},
		{
			name: "closing before opening",
			text: `] and then [`,
		},
		{
			name: "airtable record envelope",
			text: `[{"id":"rec1","createdTime":"2024-05-01T10:00:00.000Z","fields":{"Company":"A"}}]`,
			want: []Record{{"Company": "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeepsNumbersExact(t *testing.T) {
	got, err := Extract(`[{"Salary": 120000, "Remote": true}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "120000", got[0].Text("Salary"))
	assert.Equal(t, "true", got[0].Text("Remote"))
	assert.Equal(t, "", got[0].Text("Missing"))
}

func TestNormalize(t *testing.T) {
	rec := Normalize(map[string]any{
		"id":          "rec1",
		"createdTime": "2024-05-01T10:00:00.000Z",
		"fields":      map[string]any{"Company": "A", "Link": "https://a"},
	})
	assert.Equal(t, Record{"Company": "A", "Link": "https://a"}, rec)

	plain := Normalize(map[string]any{"fields": "not an object", "Link": "x"})
	assert.Equal(t, Record{"fields": "not an object", "Link": "x"}, plain)
}

func TestRender(t *testing.T) {
	recs := []Record{{"Link": "https://a?x=1&y=2"}}

	var plain bytes.Buffer
	require.NoError(t, Render(&plain, recs, RenderOptions{}))
	assert.Equal(t, "[\n  {\n    \"Link\": \"https://a?x=1&y=2\"\n  }\n]\n", plain.String())

	var colored bytes.Buffer
	require.NoError(t, Render(&colored, recs, RenderOptions{Color: true}))
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "Link")

	var empty bytes.Buffer
	require.NoError(t, Render(&empty, nil, RenderOptions{}))
	assert.Equal(t, "[]\n", empty.String())
}
