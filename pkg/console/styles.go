package console

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every panel.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent, errors
	coralPink   = lipgloss.Color("#FFCCCB") // user input
	mintGreen   = lipgloss.Color("#A8E6CF") // tools, success
	skyBlue     = lipgloss.Color("#A0C4FF") // agent messages
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

// Kind selects the panel style.
type Kind int

const (
	KindUser Kind = iota
	KindAgent
	KindTool
	KindFinal
	KindFatal
	KindInfo
)

type theme struct {
	border map[Kind]lipgloss.Style
	title  map[Kind]lipgloss.Style
	muted  lipgloss.Style
	ok     lipgloss.Style
	bad    lipgloss.Style
	body   lipgloss.Style
}

func newTheme(color bool) theme {
	accent := map[Kind]lipgloss.Color{
		KindUser:  coralPink,
		KindAgent: skyBlue,
		KindTool:  mintGreen,
		KindFinal: mintGreen,
		KindFatal: salmonPink,
		KindInfo:  mutedGray,
	}

	t := theme{
		border: make(map[Kind]lipgloss.Style, len(accent)),
		title:  make(map[Kind]lipgloss.Style, len(accent)),
		muted:  lipgloss.NewStyle(),
		ok:     lipgloss.NewStyle(),
		bad:    lipgloss.NewStyle(),
		body:   lipgloss.NewStyle(),
	}
	for k, c := range accent {
		border := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
		title := lipgloss.NewStyle().Bold(true)
		if color {
			border = border.BorderForeground(c)
			title = title.Foreground(c)
		}
		if k == KindFinal || k == KindFatal {
			border = border.Border(lipgloss.DoubleBorder())
		}
		t.border[k] = border
		t.title[k] = title
	}
	if color {
		t.muted = t.muted.Foreground(mutedGray).Italic(true)
		t.ok = t.ok.Foreground(mintGreen)
		t.bad = t.bad.Foreground(salmonPink).Bold(true)
		t.body = t.body.Foreground(brightWhite)
	}
	return t
}
