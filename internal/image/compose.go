package imagepkg

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/layout"
)

// SheetOptions controls the export sheet geometry.
type SheetOptions struct {
	CardSize    int
	CardsPerRow int
	Margin      int
	QRSize      int
	QRText      string // no QR footer when empty
}

func (o SheetOptions) withDefaults() SheetOptions {
	if o.CardSize <= 0 {
		o.CardSize = 300
	}
	if o.CardsPerRow <= 0 {
		o.CardsPerRow = 4
	}
	if o.Margin <= 0 {
		o.Margin = 24
	}
	if o.QRSize <= 0 {
		o.QRSize = 160
	}
	return o
}

var (
	sheetBackground = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	cardBorder      = color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	cardFace        = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// OpenStickers decodes every sticker the deck references from dir.
func OpenStickers(dir string, d deck.Deck) (map[deck.StickerRef]image.Image, error) {
	out := map[deck.StickerRef]image.Image{}
	for _, c := range d {
		for _, ref := range c {
			if _, ok := out[ref]; ok {
				continue
			}
			img, err := imaging.Open(filepath.Join(dir, filepath.Base(ref)))
			if err != nil {
				return nil, fmt.Errorf("open sticker %s: %w", ref, err)
			}
			out[ref] = img
		}
	}
	return out, nil
}

// ComposeDeckSheet lays the cards out row by row on one image, placing the
// stickers of each card with s. A QR code is drawn below the cards when
// opt.QRText is set.
func ComposeDeckSheet(d deck.Deck, stickers map[deck.StickerRef]image.Image, s layout.Strategy, opt SheetOptions) (image.Image, error) {
	opt = opt.withDefaults()
	cols := min(opt.CardsPerRow, max(len(d), 1))
	rows := (len(d) + opt.CardsPerRow - 1) / opt.CardsPerRow

	var qr image.Image
	if opt.QRText != "" {
		q, err := GenerateQRImage(opt.QRText, opt.QRSize)
		if err != nil {
			return nil, err
		}
		qr = q
	}

	w := opt.Margin + cols*(opt.CardSize+opt.Margin)
	h := opt.Margin + rows*(opt.CardSize+opt.Margin)
	if qr != nil {
		w = max(w, opt.QRSize+2*opt.Margin)
		h += qr.Bounds().Dy() + opt.Margin
	}
	sheet := imaging.New(w, h, sheetBackground)

	for i, c := range d {
		x := opt.Margin + (i%opt.CardsPerRow)*(opt.CardSize+opt.Margin)
		y := opt.Margin + (i/opt.CardsPerRow)*(opt.CardSize+opt.Margin)
		face, err := composeCard(c, stickers, s, opt.CardSize)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		sheet = imaging.Paste(sheet, face, image.Pt(x, y))
	}

	if qr != nil {
		pos := image.Pt(w-opt.Margin-qr.Bounds().Dx(), h-opt.Margin-qr.Bounds().Dy())
		sheet = imaging.Paste(sheet, qr, pos)
	}
	return sheet, nil
}

func composeCard(c deck.Card, stickers map[deck.StickerRef]image.Image, s layout.Strategy, size int) (*image.NRGBA, error) {
	face := imaging.New(size, size, cardBorder)
	face = imaging.Paste(face, imaging.New(size-4, size-4, cardFace), image.Pt(2, 2))

	fsize := float64(size)
	box := int(layout.SymbolSize(len(c), fsize) * 0.85)
	for i, p := range s.Frame(len(c), fsize) {
		img, ok := stickers[c[i]]
		if !ok {
			return nil, fmt.Errorf("sticker %s not loaded", c[i])
		}
		fit := imaging.Fit(img, box, box, imaging.Lanczos)
		b := fit.Bounds()
		pos := image.Pt(int(p.X)-b.Dx()/2, int(p.Y)-b.Dy()/2)
		face = imaging.Overlay(face, fit, pos, 1.0)
	}
	return face, nil
}
