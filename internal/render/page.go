package render

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/layout"
)

// Element ids the page must provide.
const (
	FormID      = "uploadForm"
	ContainerID = "deck"
	ExportID    = "exportButton"
)

//go:embed index.html
var indexHTML string

var ErrMissingElement = errors.New("page is missing a required element")

// Page is the upload page document. All access to the tree is serialized.
type Page struct {
	mu        sync.Mutex
	doc       *html.Node
	container *html.Node
	export    *html.Node
}

// NewPage parses the built-in upload page.
func NewPage() (*Page, error) {
	return ParsePage(strings.NewReader(indexHTML))
}

// ParsePage parses a page document. The form and the deck container are
// required; the export control is optional.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if FindByID(doc, FormID) == nil {
		return nil, fmt.Errorf("%w: #%s", ErrMissingElement, FormID)
	}
	container := FindByID(doc, ContainerID)
	if container == nil {
		return nil, fmt.Errorf("%w: #%s", ErrMissingElement, ContainerID)
	}
	return &Page{doc: doc, container: container, export: FindByID(doc, ExportID)}, nil
}

// Update runs fn with the deck container while holding the page lock.
func (p *Page) Update(fn func(container *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.container)
}

// ShowDeck renders d into the container and reveals the export control.
func (p *Page) ShowDeck(d deck.Deck, s layout.Strategy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	RenderDeck(p.container, d, s)
	if p.export != nil {
		setAttr(p.export, "style", "display: block")
	}
}

// ExportVisible reports whether the export control is shown.
func (p *Page) ExportVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.export != nil && !strings.Contains(Attr(p.export, "style"), "display: none")
}

// Images returns the src of every image in the container, in order.
func (p *Page) Images() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, img := range FindAll(p.container, atom.Img) {
		out = append(out, Attr(img, "src"))
	}
	return out
}

// Render writes the document as HTML.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

// RenderDocument writes a fresh page with d already rendered.
func RenderDocument(w io.Writer, d deck.Deck, s layout.Strategy) error {
	p, err := NewPage()
	if err != nil {
		return err
	}
	p.ShowDeck(d, s)
	return p.Render(w)
}
