package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/layout"
)

// PDFOptions controls the printable export. Lengths are in millimetres.
type PDFOptions struct {
	CardSize    float64
	CardsPerRow int
	RowsPerPage int
	Margin      float64
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.CardSize <= 0 {
		o.CardSize = 50
	}
	if o.CardsPerRow <= 0 {
		o.CardsPerRow = 4
	}
	if o.RowsPerPage <= 0 {
		o.RowsPerPage = 4
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	return o
}

// CardsPerPage is the number of cards one page holds.
func (o PDFOptions) CardsPerPage() int {
	o = o.withDefaults()
	return o.CardsPerRow * o.RowsPerPage
}

// WriteDeckPDF writes the deck as a Letter-size PDF, CardsPerRow x
// RowsPerPage cards per page, each card outlined with its stickers placed
// by s. It returns the number of pages written.
func WriteDeckPDF(w io.Writer, d deck.Deck, stickers map[deck.StickerRef]image.Image, s layout.Strategy, opt PDFOptions) (int, error) {
	opt = opt.withDefaults()
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetDrawColor(0x44, 0x44, 0x44)

	registered := map[deck.StickerRef]*gofpdf.ImageInfoType{}
	register := func(ref deck.StickerRef) (*gofpdf.ImageInfoType, error) {
		if info, ok := registered[ref]; ok {
			return info, nil
		}
		img, ok := stickers[ref]
		if !ok {
			return nil, fmt.Errorf("sticker %s not loaded", ref)
		}
		b, err := EncodePNG(img)
		if err != nil {
			return nil, err
		}
		info := pdf.RegisterImageOptionsReader(ref, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(b))
		if pdf.Err() {
			return nil, fmt.Errorf("register %s: %w", ref, pdf.Error())
		}
		registered[ref] = info
		return info, nil
	}

	perPage := opt.CardsPerPage()
	for i, c := range d {
		slot := i % perPage
		if slot == 0 {
			pdf.AddPage()
		}
		x := opt.Margin + float64(slot%opt.CardsPerRow)*opt.CardSize
		y := opt.Margin + float64(slot/opt.CardsPerRow)*opt.CardSize
		pdf.Rect(x, y, opt.CardSize, opt.CardSize, "D")

		box := layout.SymbolSize(len(c), opt.CardSize) * 0.85
		for j, p := range s.Frame(len(c), opt.CardSize) {
			info, err := register(c[j])
			if err != nil {
				return 0, fmt.Errorf("card %d: %w", i+1, err)
			}
			iw, ih := fit(info.Width(), info.Height(), box)
			pdf.ImageOptions(c[j], x+p.X-iw/2, y+p.Y-ih/2, iw, ih, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}
	if len(d) == 0 {
		pdf.AddPage()
	}

	pages := pdf.PageCount()
	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	return pages, nil
}

// fit scales w x h to fit inside a box x box square.
func fit(w, h, box float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return box, box
	}
	if w >= h {
		return box, box * h / w
	}
	return box * w / h, box
}
