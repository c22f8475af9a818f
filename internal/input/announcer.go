package input

import (
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/viewfinder/internal/sections"
)

// LiveRegion is the host-side announcement sink, the ARIA live region
// equivalent. It exists exactly while announcements are enabled: the mapper
// creates one on activation and closes it on deactivation, so a disabled
// mapper holds no registration at all.
type LiveRegion interface {
	Announce(text string)
	Close()
}

// LiveRegionFactory creates the sink when announcements are enabled.
type LiveRegionFactory func() LiveRegion

// BufferRegion is a LiveRegion that accumulates announcements in memory.
// The harness and tests read them back; a real host would bridge to its
// accessibility tree instead.
type BufferRegion struct {
	Messages []string
	closed   bool
}

// Announce implements LiveRegion.
func (b *BufferRegion) Announce(text string) {
	if b.closed {
		return
	}
	b.Messages = append(b.Messages, text)
}

// Close implements LiveRegion.
func (b *BufferRegion) Close() { b.closed = true }

// announcer renders verb-first announcement strings. Titles are normalized
// through a title caser and zoom levels render as integer percent.
type announcer struct {
	caser   cases.Caser
	printer *message.Printer
	spatial bool
}

func newAnnouncer(spatialContext bool) *announcer {
	return &announcer{
		caser:   cases.Title(language.English),
		printer: message.NewPrinter(language.English),
		spatial: spatialContext,
	}
}

// moved renders a relative pan announcement, e.g. "Moved left".
func (a *announcer) moved(dir Direction) string {
	return "Moved " + string(dir)
}

// zoomed renders a zoom announcement with the committed scale as integer
// percent, e.g. "Zoomed in to 120%".
func (a *announcer) zoomed(in bool, scale float64) string {
	verb := "out"
	if in {
		verb = "in"
	}
	pct := int(math.Round(scale * 100))
	return a.printer.Sprintf("Zoomed %s to %d%%", verb, pct)
}

// reset renders the origin-reset announcement.
func (a *announcer) reset() string {
	return "Reset view to origin"
}

// navigated renders a section jump announcement,
// "Navigated to <title> section - <description>", optionally followed by
// the grid position when spatial context is enabled.
func (a *announcer) navigated(entry sections.Entry) string {
	text := fmt.Sprintf("Navigated to %s section - %s",
		a.caser.String(entry.Metadata.Title), entry.Metadata.Description)
	if a.spatial {
		text += fmt.Sprintf(", row %d, column %d", entry.Coord.GridY+1, entry.Coord.GridX+1)
	}
	return text
}
