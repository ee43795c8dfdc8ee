package records

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderOptions controls Render.
type RenderOptions struct {
	Color bool
	// Style is a chroma style name; empty selects "monokai".
	Style string
}

// Render writes records as indented JSON, syntax highlighted when Color is set.
func Render(w io.Writer, recs []Record, opts RenderOptions) error {
	data, err := MarshalIndent(recs)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if !opts.Color {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	style := opts.Style
	if style == "" {
		style = "monokai"
	}
	if err := quick.Highlight(w, string(data)+"\n", "json", "terminal256", style); err != nil {
		return fmt.Errorf("highlight records: %w", err)
	}
	return nil
}
