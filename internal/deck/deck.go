package deck

import "errors"

// StickerRef is the filename of an uploaded sticker image.
type StickerRef = string

// Card is one themed set of stickers, in display order.
type Card []StickerRef

// Deck is the full set of generated cards, in display order.
type Deck []Card

// Response is the JSON body returned by the upload endpoint.
// A non-empty Error takes precedence over Deck.
type Response struct {
	ID       string       `json:"id,omitempty"`
	Error    string       `json:"error,omitempty"`
	Deck     Deck         `json:"deck"`
	Stickers []StickerRef `json:"stickers,omitempty"`
}

var (
	ErrNotEnoughStickers = errors.New("need at least 7 stickers")
	ErrDuplicateSticker  = errors.New("duplicate sticker filename")
)

// URL returns the path a sticker is served from.
func URL(ref StickerRef) string {
	return "/uploads/" + ref
}
