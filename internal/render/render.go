// Package render draws boards as PNG images for the admin API.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"github.com/park285/checkers-lobby/internal/checkers"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Perspective selects whose side is drawn at the bottom.
type Perspective int

const (
	// PerspectivePrimary draws the first seat (owner=true, moving toward
	// row 0) at the bottom.
	PerspectivePrimary Perspective = iota
	PerspectiveSecondary
)

type Options struct {
	Perspective Perspective
	LastMove    *checkers.Move
	Title       string
}

const DefaultSquareSize = 64

type Option func(*BoardRenderer)

func WithSquareSize(px int) Option {
	return func(r *BoardRenderer) {
		if px >= 16 {
			r.squareSize = px
		}
	}
}

// BoardRenderer caches rasterised pieces per size. It is safe for concurrent
// use.
type BoardRenderer struct {
	squareSize int

	mu    sync.RWMutex
	cache map[pieceKey]image.Image
}

func NewBoardRenderer(opts ...Option) *BoardRenderer {
	r := &BoardRenderer{squareSize: DefaultSquareSize, cache: make(map[pieceKey]image.Image)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{118, 150, 86, 255}
	backgroundColor     = color.RGBA{24, 26, 38, 255}
	lastMoveFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 120}
	lastMoveArrow       = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	titlePanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	titleShadowColor    = color.NRGBA{0, 0, 0, 50}
	titleTextColor      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// layout is the pixel geometry of one render.
type layout struct {
	square int
	origin image.Point
	margin int
	title  image.Rectangle
	size   image.Point
	flip   bool
}

func (r *BoardRenderer) layout(opts Options) layout {
	const (
		titleHeight = 32
		titleGap    = 16
	)
	margin := r.squareSize / 2
	top := margin
	l := layout{square: r.squareSize, margin: margin, flip: opts.Perspective == PerspectiveSecondary}
	if strings.TrimSpace(opts.Title) != "" {
		l.title = image.Rect(margin, margin/2, margin+checkers.Size*r.squareSize, margin/2+titleHeight)
		top = l.title.Max.Y + titleGap
	}
	l.origin = image.Point{X: margin, Y: top}
	boardPx := checkers.Size * r.squareSize
	l.size = image.Point{X: boardPx + 2*margin, Y: top + boardPx + margin}
	return l
}

// squareRect maps a board coordinate to its pixels.
func (l layout) squareRect(p checkers.Pos) image.Rectangle {
	col, row := p.X, p.Y
	if l.flip {
		col, row = checkers.Size-1-col, checkers.Size-1-row
	}
	x := l.origin.X + col*l.square
	y := l.origin.Y + row*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func (l layout) center(p checkers.Pos) pointF {
	rc := l.squareRect(p)
	return pointF{X: float64(rc.Min.X + l.square/2), Y: float64(rc.Min.Y + l.square/2)}
}

// RenderPNG draws board as seen from the board's owner=true side unless
// opts asks for the other perspective.
func (r *BoardRenderer) RenderPNG(ctx context.Context, board checkers.Board, opts Options) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	l := r.layout(opts)
	img := image.NewRGBA(image.Rect(0, 0, l.size.X, l.size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawTitle(img, l, opts.Title)
	drawSquares(img, l)
	if opts.LastMove != nil {
		drawLastMove(img, l, board, *opts.LastMove)
	}
	if err := r.drawPieces(img, l, board); err != nil {
		return nil, err
	}
	drawCoordinates(img, l)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, l layout) {
	for x := 0; x < checkers.Size; x++ {
		for y := 0; y < checkers.Size; y++ {
			p := checkers.Pos{X: x, Y: y}
			imagedraw.Draw(dst, l.squareRect(p), image.NewUniform(squareColor(p)), image.Point{}, imagedraw.Src)
		}
	}
}

// Men start on squares where x+y is even; those are the dark ones.
func squareColor(p checkers.Pos) color.Color {
	if (p.X+p.Y)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func (r *BoardRenderer) drawPieces(dst imagedraw.Image, l layout, board checkers.Board) error {
	for x := 0; x < checkers.Size; x++ {
		for y := 0; y < checkers.Size; y++ {
			c := board[x][y]
			if !c.Used {
				continue
			}
			piece, err := r.pieceImage(c, l.square)
			if err != nil {
				return err
			}
			rc := l.squareRect(checkers.Pos{X: x, Y: y})
			imagedraw.Draw(dst, rc, piece, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawLastMove marks the start square and draws an arrow to where the piece
// landed. A step whose target is empty while the jump square holds a piece is
// taken to be a capture.
func drawLastMove(img *image.RGBA, l layout, board checkers.Board, m checkers.Move) {
	from := m.Pos()
	if !from.InBounds() {
		return
	}
	to := m.AfterMove()
	if !to.InBounds() {
		return
	}
	if jump := m.AfterDoubleMove(); jump.InBounds() && !board[to.X][to.Y].Used && board[jump.X][jump.Y].Used {
		to = jump
	}
	imagedraw.Draw(img, l.squareRect(from), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, l.squareRect(to), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
	drawArrow(img, l.center(from), l.center(to), l.square, lastMoveArrow)
}

func drawTitle(img *image.RGBA, l layout, title string) {
	title = strings.TrimSpace(title)
	if title == "" || l.title.Empty() {
		return
	}
	drawRoundedPanel(img, l.title.Add(image.Pt(0, 4)), 10, titleShadowColor)
	drawRoundedPanel(img, l.title, 10, titlePanelColor)
	face := basicfont.Face7x13
	title = truncateWithEllipsis(face, title, l.title.Dx()-24)
	drawCenteredString(&font.Drawer{Dst: img, Face: face}, l.title, title, titleTextColor)
}

// drawCoordinates labels columns below the board and rows on the left, 1..8
// as players type them.
func drawCoordinates(dst imagedraw.Image, l layout) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardBottom := l.origin.Y + checkers.Size*l.square

	for i := 0; i < checkers.Size; i++ {
		rc := l.squareRect(checkers.Pos{X: i, Y: i})
		label := strconv.Itoa(i + 1)
		drawCenteredText(drawer, label, rc.Min.X+l.square/2, boardBottom+(l.margin+ascent)/2)
		drawCenteredText(drawer, label, l.origin.X-l.margin/2, rc.Min.Y+(l.square+ascent)/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	if text == "" || maxWidth <= 0 {
		return text
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}
