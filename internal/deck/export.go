package deck

import (
	"strconv"
	"strings"
)

// ExportText renders the deck as plain text, one card per line.
func ExportText(d Deck) string {
	lines := make([]string, 0, len(d))
	for i, c := range d {
		lines = append(lines, "Card "+strconv.Itoa(i+1)+": "+strings.Join(c, ", "))
	}
	return strings.Join(lines, "\n")
}
