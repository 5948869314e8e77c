package deck

import "fmt"

// Order returns the largest prime order n whose projective plane
// (n*n+n+1 cards) fits in count stickers, or 0 if none does.
func Order(count int) int {
	best := 0
	for n := 2; n*n+n+1 <= count; n++ {
		if isPrime(n) {
			best = n
		}
	}
	return best
}

// Generate builds a deck from the finite projective plane of the largest
// prime order the stickers allow. Every card holds n+1 stickers and any two
// cards share exactly one. Stickers beyond n*n+n+1 are unused.
func Generate(stickers []StickerRef) (Deck, error) {
	n := Order(len(stickers))
	if n == 0 {
		return nil, fmt.Errorf("%w, got %d", ErrNotEnoughStickers, len(stickers))
	}
	seen := make(map[StickerRef]bool, len(stickers))
	for _, s := range stickers {
		if seen[s] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSticker, s)
		}
		seen[s] = true
	}

	// symbol ids: affine point (x, y) -> x*n+y, slope at infinity m -> n*n+m,
	// vertical at infinity -> n*n+n
	lines := make([][]int, 0, n*n+n+1)
	for m := 0; m < n; m++ {
		for b := 0; b < n; b++ {
			line := make([]int, 0, n+1)
			for x := 0; x < n; x++ {
				line = append(line, x*n+(m*x+b)%n)
			}
			lines = append(lines, append(line, n*n+m))
		}
	}
	for x := 0; x < n; x++ {
		line := make([]int, 0, n+1)
		for y := 0; y < n; y++ {
			line = append(line, x*n+y)
		}
		lines = append(lines, append(line, n*n+n))
	}
	last := make([]int, 0, n+1)
	for m := 0; m <= n; m++ {
		last = append(last, n*n+m)
	}
	lines = append(lines, last)

	d := make(Deck, len(lines))
	for i, line := range lines {
		c := make(Card, len(line))
		for j, sym := range line {
			c[j] = stickers[sym]
		}
		d[i] = c
	}
	return d, nil
}

// Verify checks that no card repeats a sticker and that every pair of cards
// shares exactly one sticker.
func Verify(d Deck) error {
	sets := make([]map[StickerRef]bool, len(d))
	for i, c := range d {
		sets[i] = make(map[StickerRef]bool, len(c))
		for _, s := range c {
			if sets[i][s] {
				return fmt.Errorf("card %d repeats sticker %q", i+1, s)
			}
			sets[i][s] = true
		}
	}
	for i := 0; i < len(d); i++ {
		for j := i + 1; j < len(d); j++ {
			matches := 0
			for _, s := range d[j] {
				if sets[i][s] {
					matches++
				}
			}
			if matches != 1 {
				return fmt.Errorf("cards %d and %d share %d stickers, want 1", i+1, j+1, matches)
			}
		}
	}
	return nil
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}
