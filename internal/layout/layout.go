// Package layout positions the stickers of a card.
//
// A Strategy answers two questions: where sticker i of n sits relative to
// its card (Positions, used for CSS placement in the rendered page), and
// where its centre falls on a square card of a given pixel size (Frame,
// used when composing the export sheet).
package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultRadius is the circular layout radius in CSS pixels.
const DefaultRadius = 60.0

var ErrUnknownLayout = errors.New("unknown layout")

// Point is an offset. Its unit depends on the strategy: pixels from the
// card centre for Circular, grid cells for Grid.
type Point struct {
	X float64
	Y float64
}

// Strategy places n stickers on a card.
type Strategy interface {
	Name() string
	// Positions returns one offset per sticker, or nil when the strategy
	// leaves placement to document flow.
	Positions(n int) []Point
	ContainerStyle(n int) string
	ItemStyle(p Point) string
	// Frame returns sticker centres in pixels on a size x size card.
	Frame(n int, size float64) []Point
}

// Names lists the selectable strategies, default first.
var Names = []string{"circular", "grid", "linear"}

// ByName returns the strategy registered under name. An empty name selects
// the circular layout.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "circular", "circle":
		return Circular{Radius: DefaultRadius}, nil
	case "grid":
		return Grid{}, nil
	case "linear", "list":
		return Linear{}, nil
	}
	return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownLayout, name, strings.Join(Names, ", "))
}

// Circular spreads stickers evenly on a circle around the card centre.
type Circular struct {
	Radius float64
}

func (Circular) Name() string { return "circular" }

func (c Circular) Positions(n int) []Point {
	return ring(n, c.radius())
}

func (Circular) ContainerStyle(int) string {
	return "position: relative"
}

func (Circular) ItemStyle(p Point) string {
	return fmt.Sprintf("position: absolute; left: calc(50%% + %spx); top: calc(50%% + %spx); transform: translate(-50%%, -50%%)",
		num(p.X), num(p.Y))
}

// Frame keeps the ring inside the card: the radius is a third of the side,
// leaving room for stickers sized by SymbolSize.
func (Circular) Frame(n int, size float64) []Point {
	if n == 1 {
		return []Point{{X: size / 2, Y: size / 2}}
	}
	pts := ring(n, size/3)
	for i := range pts {
		pts[i].X += size / 2
		pts[i].Y += size / 2
	}
	return pts
}

func (c Circular) radius() float64 {
	if c.Radius <= 0 {
		return DefaultRadius
	}
	return c.Radius
}

func ring(n int, r float64) []Point {
	if n <= 0 {
		return nil
	}
	pts := make([]Point, n)
	for i := range pts {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
	}
	return pts
}

// Grid arranges stickers row by row in ceil(sqrt(n)) columns.
type Grid struct{}

func (Grid) Name() string { return "grid" }

// Columns returns the column count for n stickers.
func Columns(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

func (Grid) Positions(n int) []Point {
	cols := Columns(n)
	if cols == 0 {
		return nil
	}
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: float64(i % cols), Y: float64(i / cols)}
	}
	return pts
}

func (Grid) ContainerStyle(n int) string {
	return fmt.Sprintf("display: grid; grid-template-columns: repeat(%d, 1fr)", max(Columns(n), 1))
}

func (Grid) ItemStyle(p Point) string {
	return fmt.Sprintf("grid-column: %d; grid-row: %d", int(p.X)+1, int(p.Y)+1)
}

func (g Grid) Frame(n int, size float64) []Point {
	cell := size / float64(max(Columns(n), 1))
	pts := g.Positions(n)
	for i := range pts {
		pts[i] = Point{X: (pts[i].X + 0.5) * cell, Y: (pts[i].Y + 0.5) * cell}
	}
	return pts
}

// Linear appends stickers in order with no explicit positioning.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (Linear) Positions(int) []Point { return nil }

func (Linear) ContainerStyle(int) string { return "" }

func (Linear) ItemStyle(Point) string { return "" }

// Frame flows stickers left to right, wrapping like inline images would.
func (Linear) Frame(n int, size float64) []Point {
	if n <= 0 {
		return nil
	}
	step := SymbolSize(n, size)
	perRow := max(int(size/step), 1)
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			X: (float64(i%perRow) + 0.5) * step,
			Y: (float64(i/perRow) + 0.5) * step,
		}
	}
	return pts
}

// SymbolSize is the side in pixels a sticker occupies on a size x size card
// holding n stickers.
func SymbolSize(n int, size float64) float64 {
	cols := max(Columns(n), 1)
	if n > 1 {
		cols = max(cols, 3)
	}
	return size / float64(cols)
}

func num(f float64) string {
	if math.Abs(f) < 1e-9 {
		f = 0
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}
