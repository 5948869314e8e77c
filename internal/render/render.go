// Package render builds the deck markup.
package render

import (
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/layout"
)

// RenderDeck replaces the children of container with one card element per
// card of d. The cards are assembled off-document and moved in at the end,
// so container is never observed half-built.
func RenderDeck(container *html.Node, d deck.Deck, s layout.Strategy) {
	staging := element(atom.Div)
	for i, c := range d {
		staging.AppendChild(cardNode(i, c, s))
	}
	clearChildren(container)
	for c := staging.FirstChild; c != nil; c = staging.FirstChild {
		staging.RemoveChild(c)
		container.AppendChild(c)
	}
}

func cardNode(index int, c deck.Card, s layout.Strategy) *html.Node {
	card := element(atom.Div, "class", "card")

	label := element(atom.Div, "class", "card-number")
	label.AppendChild(text("Card " + strconv.Itoa(index+1)))
	card.AppendChild(label)

	symbols := element(atom.Div, "class", "symbols", "style", s.ContainerStyle(len(c)))
	pts := s.Positions(len(c))
	for i, ref := range c {
		style := ""
		if i < len(pts) {
			style = s.ItemStyle(pts[i])
		}
		symbols.AppendChild(element(atom.Img,
			"src", deck.URL(ref),
			"alt", ref,
			"style", style,
		))
	}
	card.AppendChild(symbols)
	return card
}

// Cards returns the card elements currently inside container.
func Cards(container *html.Node) []*html.Node {
	var out []*html.Node
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, "card") {
			out = append(out, c)
		}
	}
	return out
}
